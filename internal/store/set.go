package store

import (
	"math/rand"
	"sort"
)

// SAdd adds members, returning the count newly added.
func (s *Store) SAdd(key string, members [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if err != nil {
		return 0, err
	}
	if !ok {
		e = s.lockedEnsure(key, KindSet)
		e.set = make(map[string]struct{}, len(members))
	}
	n := 0
	for _, m := range members {
		k := string(m)
		if _, exists := e.set[k]; !exists {
			e.set[k] = struct{}{}
			n++
		}
	}
	if n > 0 {
		s.lockedDirty()
	}
	return n, nil
}

// SMembers returns every member, sorted for deterministic test output
// (set iteration order is not observable per spec §3, so any stable
// order is correct).
func (s *Store) SMembers(key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if !ok || err != nil {
		return nil, err
	}
	return sortedSetMembers(e.set), nil
}

func sortedSetMembers(set map[string]struct{}) [][]byte {
	out := make([][]byte, 0, len(set))
	for m := range set {
		out = append(out, []byte(m))
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i]) < string(out[j]) })
	return out
}

// SRem removes members, returning how many existed.
func (s *Store) SRem(key string, members [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if !ok || err != nil {
		return 0, err
	}
	n := 0
	for _, m := range members {
		k := string(m)
		if _, exists := e.set[k]; exists {
			delete(e.set, k)
			n++
		}
	}
	if len(e.set) == 0 {
		delete(s.data, key)
		delete(s.expires, key)
	}
	if n > 0 {
		s.lockedDirty()
	}
	return n, nil
}

// SIsMember reports membership.
func (s *Store) SIsMember(key string, member []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if !ok || err != nil {
		return false, err
	}
	_, exists := e.set[string(member)]
	return exists, nil
}

// SCard returns the set's cardinality.
func (s *Store) SCard(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if !ok || err != nil {
		return 0, err
	}
	return len(e.set), nil
}

// SPop removes and returns one arbitrary member.
func (s *Store) SPop(key string) (val []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if !ok || err != nil {
		return nil, false, err
	}
	if len(e.set) == 0 {
		return nil, false, nil
	}
	for m := range e.set {
		val = []byte(m)
		delete(e.set, m)
		break
	}
	if len(e.set) == 0 {
		delete(s.data, key)
		delete(s.expires, key)
	}
	s.lockedDirty()
	return val, true, nil
}

// SRandMember returns one arbitrary member without removing it.
func (s *Store) SRandMember(key string) (val []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if !ok || err != nil {
		return nil, false, err
	}
	if len(e.set) == 0 {
		return nil, false, nil
	}
	idx := rand.Intn(len(e.set))
	i := 0
	for m := range e.set {
		if i == idx {
			return []byte(m), true, nil
		}
		i++
	}
	return nil, false, nil
}

func (s *Store) lockedSetOrEmpty(key string) (map[string]struct{}, error) {
	e, ok, err := s.lockedGetOfKind(key, KindSet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]struct{}{}, nil
	}
	return e.set, nil
}

// SUnion returns the union of the named sets' members.
func (s *Store) SUnion(keys []string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{})
	for _, k := range keys {
		set, err := s.lockedSetOrEmpty(k)
		if err != nil {
			return nil, err
		}
		for m := range set {
			out[m] = struct{}{}
		}
	}
	return sortedSetMembers(out), nil
}

// SInter returns the intersection of the named sets' members.
func (s *Store) SInter(keys []string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	first, err := s.lockedSetOrEmpty(keys[0])
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(first))
	for m := range first {
		out[m] = struct{}{}
	}
	for _, k := range keys[1:] {
		set, err := s.lockedSetOrEmpty(k)
		if err != nil {
			return nil, err
		}
		for m := range out {
			if _, ok := set[m]; !ok {
				delete(out, m)
			}
		}
	}
	return sortedSetMembers(out), nil
}

// SDiff returns members of the first set not present in any other.
func (s *Store) SDiff(keys []string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	first, err := s.lockedSetOrEmpty(keys[0])
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(first))
	for m := range first {
		out[m] = struct{}{}
	}
	for _, k := range keys[1:] {
		set, err := s.lockedSetOrEmpty(k)
		if err != nil {
			return nil, err
		}
		for m := range set {
			delete(out, m)
		}
	}
	return sortedSetMembers(out), nil
}

// SMove atomically moves member from src to dst, returning whether it
// was present in src.
func (s *Store) SMove(src, dst string, member []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	se, ok, err := s.lockedGetOfKind(src, KindSet)
	if err != nil {
		return false, err
	}
	if _, ok2, err := s.lockedGetOfKind(dst, KindSet); err != nil {
		_ = ok2
		return false, err
	}
	if !ok {
		return false, nil
	}
	k := string(member)
	if _, exists := se.set[k]; !exists {
		return false, nil
	}
	delete(se.set, k)
	if len(se.set) == 0 {
		delete(s.data, src)
		delete(s.expires, src)
	}
	de := s.lockedEnsure(dst, KindSet)
	if de.set == nil {
		de.set = make(map[string]struct{})
	}
	de.set[k] = struct{}{}
	s.lockedDirty()
	return true, nil
}
