package stream

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Field is one (name, value) pair carried by an entry.
type Field struct {
	Name, Value []byte
}

// Entry is one stream record: an id plus its ordered fields.
type Entry struct {
	ID     ID
	Fields []Field
}

// ErrIDNotGreater is returned when an explicit XADD id does not sort
// strictly after the stream's current last id (spec §3 invariant 5).
var ErrIDNotGreater = errors.New("ERR The ID specified in XADD is equal or smaller than the target stream top item")

// Stream is one key's ordered entry log plus its blocking-read
// notification channel (spec §4.3, §9: "model XREAD BLOCK as a wait on
// a per-stream notification").
type Stream struct {
	mu      sync.Mutex
	entries []Entry
	lastID  ID
	notify  chan struct{}
}

// New returns an empty stream.
func New() *Stream {
	return &Stream{notify: make(chan struct{})}
}

// LastID returns the most recently appended id (zero value if empty).
func (s *Stream) LastID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

// Len returns the entry count.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Add resolves idSpec against the stream's current tail and appends a
// new entry, per the id-generation rules of spec §4.3:
//   - "ms-seq": accepted iff strictly greater than the last id.
//   - "ms-*": seq picks up after the last entry sharing ms, else 0 (1
//     when ms == 0, to avoid 0-0).
//   - "*": ms is the current wall-clock ms; seq per the rule above.
func (s *Stream) Add(idSpec string, fields []Field, now time.Time) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.resolveID(idSpec, now)
	if err != nil {
		return ID{}, err
	}
	if id.IsZero() {
		return ID{}, ErrInvalidID
	}
	if !s.lastID.IsZero() || len(s.entries) > 0 {
		if id.Compare(s.lastID) <= 0 {
			return ID{}, ErrIDNotGreater
		}
	}
	s.entries = append(s.entries, Entry{ID: id, Fields: fields})
	s.lastID = id
	close(s.notify)
	s.notify = make(chan struct{})
	return id, nil
}

func (s *Stream) resolveID(idSpec string, now time.Time) (ID, error) {
	if idSpec == "*" {
		ms := uint64(now.UnixMilli())
		return ID{Ms: ms, Seq: s.nextSeqForMs(ms)}, nil
	}
	before, after, found := cutLast(idSpec, '-')
	if found && after == "*" {
		ms, err := parseUint(before)
		if err != nil {
			return ID{}, ErrInvalidID
		}
		return ID{Ms: ms, Seq: s.nextSeqForMs(ms)}, nil
	}
	return ParseID(idSpec)
}

// nextSeqForMs must be called with mu held.
func (s *Stream) nextSeqForMs(ms uint64) uint64 {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID.Ms == ms {
			return s.entries[i].ID.Seq + 1
		}
		if s.entries[i].ID.Ms < ms {
			break
		}
	}
	if ms == 0 {
		return 1
	}
	return 0
}

// Range returns entries with start <= id <= end, both inclusive. Open
// bounds ("-" and "+") are resolved by the caller to ID{} and
// {Ms: ^uint64(0), Seq: ^uint64(0)} respectively.
func (s *Stream) Range(start, end ID) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.ID.Compare(start) >= 0 && e.ID.Compare(end) <= 0 {
			out = append(out, e)
		}
	}
	return out
}

// After returns entries strictly greater than after, in order — the
// shape XREAD needs.
func (s *Stream) After(after ID) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.ID.Compare(after) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// waitChan returns the current notification channel, closed the next
// time Add appends an entry. Caller must not hold s.mu.
func (s *Stream) waitChan() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notify
}

// Wait blocks until an entry newer than after is appended, ctx is
// done, or timeout elapses (timeout <= 0 means no timeout). It returns
// the new entries, or nil if nothing arrived before cancellation.
func (s *Stream) Wait(ctx context.Context, after ID, timeout time.Duration) []Entry {
	for {
		ch := s.waitChan()
		if entries := s.After(after); len(entries) > 0 {
			return entries
		}
		var timer *time.Timer
		var timeoutCh <-chan time.Time
		if timeout > 0 {
			timer = time.NewTimer(timeout)
			timeoutCh = timer.C
		}
		select {
		case <-ch:
			if timer != nil {
				timer.Stop()
			}
			continue
		case <-timeoutCh:
			return nil
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		}
	}
}

// Index is the stream namespace: a set of streams keyed by name,
// separate from internal/store's keyspace (spec §3).
type Index struct {
	mu      sync.Mutex
	streams map[string]*Stream
}

// NewIndex builds an empty stream namespace.
func NewIndex() *Index {
	return &Index{streams: make(map[string]*Stream)}
}

// GetOrCreate returns key's stream, creating it if absent.
func (idx *Index) GetOrCreate(key string) *Stream {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	st, ok := idx.streams[key]
	if !ok {
		st = New()
		idx.streams[key] = st
	}
	return st
}

// Get returns key's stream, or nil if it doesn't exist.
func (idx *Index) Get(key string) *Stream {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.streams[key]
}

// Del removes a stream, returning whether it existed.
func (idx *Index) Del(key string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.streams[key]
	delete(idx.streams, key)
	return ok
}

// Snapshot returns every stream's entries for RDB persistence.
func (idx *Index) Snapshot() map[string][]Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make(map[string][]Entry, len(idx.streams))
	for k, st := range idx.streams {
		out[k] = st.Range(ID{}, ID{Ms: ^uint64(0), Seq: ^uint64(0)})
	}
	return out
}

// Restore replaces the whole namespace from a snapshot (RDB load).
func (idx *Index) Restore(data map[string][]Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.streams = make(map[string]*Stream, len(data))
	for k, entries := range data {
		st := New()
		st.entries = entries
		if len(entries) > 0 {
			st.lastID = entries[len(entries)-1].ID
		}
		idx.streams[k] = st
	}
}

func cutLast(s string, sep byte) (before, after string, found bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func parseUint(s string) (uint64, error) {
	var v uint64
	if s == "" {
		return 0, errors.New("empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.New("not a digit")
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}
