// Package store holds the typed keyspace: the mapping from string key
// to one of five value kinds (streams, the sixth, live in
// internal/stream), a parallel TTL table, and the
// type-dispatching accessors that enforce the WRONGTYPE guard
// (spec §3, §4.2, §9).
package store

import (
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Kind discriminates the tagged union of value kinds a key can hold.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindList
	KindHash
	KindSet
	KindZSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	default:
		return "none"
	}
}

// Sentinel errors. Their text is byte-exact with the tokens spec §4.2
// requires on the wire; command handlers surface Error() directly.
var (
	ErrWrongType  = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger = errors.New("ERR value is not an integer or out of range")
	ErrNotFloat   = errors.New("ERR value is not a valid float")
	ErrSyntax     = errors.New("ERR syntax error")
)

// entry is the tagged value behind a key. Only the field matching Kind
// is meaningful.
type entry struct {
	kind Kind
	str  []byte
	list [][]byte
	hash map[string][]byte
	set  map[string]struct{}
	zset *zset
}

// Store is the process keyspace: string/list/hash/set/zset values plus
// their expirations, guarded by a single mutex. Spec §5 models command
// execution as a cooperative single-threaded loop with no intra-command
// interleaving; a mutex around every operation gives Go's
// goroutine-per-connection server the same serialization guarantee.
type Store struct {
	mu      sync.Mutex
	data    map[string]*entry
	expires map[string]time.Time
	dirty   uint64
	now     func() time.Time
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		data:    make(map[string]*entry),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// lockedExpire removes key if its TTL has passed. Caller must hold mu.
func (s *Store) lockedExpire(key string) {
	t, ok := s.expires[key]
	if !ok {
		return
	}
	if !s.now().Before(t) {
		delete(s.data, key)
		delete(s.expires, key)
	}
}

// lockedGet returns key's entry after lazily expiring it. Caller must
// hold mu.
func (s *Store) lockedGet(key string) (*entry, bool) {
	s.lockedExpire(key)
	e, ok := s.data[key]
	return e, ok
}

// lockedGetOfKind fetches key, enforcing the WRONGTYPE guard. If the
// key is absent, ok is false and err is nil. If present with a
// different kind, err is ErrWrongType.
func (s *Store) lockedGetOfKind(key string, kind Kind) (e *entry, ok bool, err error) {
	e, ok = s.lockedGet(key)
	if !ok {
		return nil, false, nil
	}
	if e.kind != kind {
		return nil, false, ErrWrongType
	}
	return e, true, nil
}

func (s *Store) lockedEnsure(key string, kind Kind) *entry {
	e, ok := s.lockedGet(key)
	if ok {
		return e
	}
	e = &entry{kind: kind}
	s.data[key] = e
	return e
}

func (s *Store) lockedDirty() {
	s.dirty++
}

// DirtyCount returns mutations since the last ResetDirty.
func (s *Store) DirtyCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ResetDirty zeroes the dirty counter, called after a successful save.
func (s *Store) ResetDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = 0
}

// Del removes keys, returning how many existed.
func (s *Store) Del(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := s.lockedGet(k); ok {
			delete(s.data, k)
			delete(s.expires, k)
			n++
		}
	}
	if n > 0 {
		s.lockedDirty()
	}
	return n
}

// Exists counts how many of keys are present (duplicates count twice,
// matching Redis EXISTS semantics).
func (s *Store) Exists(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := s.lockedGet(k); ok {
			n++
		}
	}
	return n
}

// Type reports key's kind, or KindNone if absent.
func (s *Store) Type(key string) Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lockedGet(key)
	if !ok {
		return KindNone
	}
	return e.kind
}

// Expire sets key's TTL to d from now; returns false if key is absent.
func (s *Store) Expire(key string, d time.Duration) bool {
	return s.ExpireAt(key, s.now().Add(d))
}

// ExpireAt sets key's absolute expiration instant.
func (s *Store) ExpireAt(key string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lockedGet(key); !ok {
		return false
	}
	s.expires[key] = at
	s.lockedDirty()
	return true
}

// TTL returns the remaining seconds until expiry: -2 if key is absent,
// -1 if key exists with no TTL, else the rounded-up remaining seconds.
func (s *Store) TTL(key string) int64 {
	ms := s.PTTL(key)
	if ms < 0 {
		return ms
	}
	return (ms + 999) / 1000
}

// PTTL is TTL in milliseconds.
func (s *Store) PTTL(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lockedGet(key); !ok {
		return -2
	}
	t, ok := s.expires[key]
	if !ok {
		return -1
	}
	d := t.Sub(s.now())
	if d < 0 {
		d = 0
	}
	return d.Milliseconds()
}

// Persist clears key's TTL; returns true if a TTL was removed.
func (s *Store) Persist(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lockedGet(key); !ok {
		return false
	}
	if _, ok := s.expires[key]; !ok {
		return false
	}
	delete(s.expires, key)
	s.lockedDirty()
	return true
}

// Keys returns every live key matching a Redis-style glob pattern.
func (s *Store) Keys(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.data {
		s.lockedExpire(k)
		if _, ok := s.data[k]; !ok {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out
}

// FlushAll drops every key and expiration.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*entry)
	s.expires = make(map[string]time.Time)
	s.lockedDirty()
}

// Snapshot is a point-in-time, independent copy of the keyspace and
// expirations, handed to the background save worker per spec §5/§4.7:
// the worker must never observe further mutations.
type Snapshot struct {
	Entries map[string]SnapshotEntry
}

// SnapshotEntry is one key's deep-copied value plus its absolute
// expiration, if any.
type SnapshotEntry struct {
	Kind     Kind
	Str      []byte
	List     [][]byte
	Hash     map[string][]byte
	Set      map[string]struct{}
	ZSet     []ZMember
	ExpireAt time.Time
	HasTTL   bool
}

// Snapshot deep-copies the live, non-expired keyspace.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{Entries: make(map[string]SnapshotEntry, len(s.data))}
	for k := range s.data {
		s.lockedExpire(k)
		e, ok := s.data[k]
		if !ok {
			continue
		}
		se := SnapshotEntry{Kind: e.kind}
		switch e.kind {
		case KindString:
			se.Str = append([]byte(nil), e.str...)
		case KindList:
			se.List = make([][]byte, len(e.list))
			for i, v := range e.list {
				se.List[i] = append([]byte(nil), v...)
			}
		case KindHash:
			se.Hash = make(map[string][]byte, len(e.hash))
			for f, v := range e.hash {
				se.Hash[f] = append([]byte(nil), v...)
			}
		case KindSet:
			se.Set = make(map[string]struct{}, len(e.set))
			for m := range e.set {
				se.Set[m] = struct{}{}
			}
		case KindZSet:
			se.ZSet = e.zset.members()
		}
		if t, ok := s.expires[k]; ok {
			se.ExpireAt = t
			se.HasTTL = true
		}
		out.Entries[k] = se
	}
	return out
}

// Restore replaces the live keyspace with the contents of a snapshot,
// as loaded from an RDB file at startup or during replica bootstrap.
// Entries whose expiry is already in the past are dropped, per
// spec §4.8 reader rules.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*entry, len(snap.Entries))
	s.expires = make(map[string]time.Time)
	now := s.now()
	for k, se := range snap.Entries {
		if se.HasTTL && !now.Before(se.ExpireAt) {
			continue
		}
		e := &entry{kind: se.Kind}
		switch se.Kind {
		case KindString:
			e.str = se.Str
		case KindList:
			e.list = se.List
		case KindHash:
			e.hash = se.Hash
		case KindSet:
			e.set = se.Set
		case KindZSet:
			e.zset = newZSetFromMembers(se.ZSet)
		}
		s.data[k] = e
		if se.HasTTL {
			s.expires[k] = se.ExpireAt
		}
	}
}
