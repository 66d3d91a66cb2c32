package store

import "bytes"

// Push adds values to the head (left=true) or tail of key's list,
// creating it if absent, and returns the new length. Spec's LPUSH
// semantics insert each subsequent value at the new head, so
// `LPUSH k a b c` yields the list [c b a].
func (s *Store) Push(key string, left bool, values [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if err != nil {
		return 0, err
	}
	if !ok {
		e = s.lockedEnsure(key, KindList)
	}
	for _, v := range values {
		cv := append([]byte(nil), v...)
		if left {
			e.list = append([][]byte{cv}, e.list...)
		} else {
			e.list = append(e.list, cv)
		}
	}
	s.lockedDirty()
	return len(e.list), nil
}

// PushX is Push but only when the key already holds a non-empty list;
// returns (0, nil, false) when there is nothing to push onto, per the
// canonical-compatibility resolution of spec §9's Open Question.
func (s *Store) PushX(key string, left bool, values [][]byte) (n int, err error, pushed bool) {
	s.mu.Lock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	s.mu.Unlock()
	if err != nil {
		return 0, err, false
	}
	if !ok || len(e.list) == 0 {
		return 0, nil, false
	}
	n, err = s.Push(key, left, values)
	return n, err, true
}

// Pop removes and returns the head (left=true) or tail element of
// key's list. ok is false if the key is absent or holds an empty list;
// a list emptied by this pop is removed from the keyspace.
func (s *Store) Pop(key string, left bool) (val []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if !ok || err != nil {
		return nil, ok, err
	}
	if len(e.list) == 0 {
		return nil, false, nil
	}
	if left {
		val = e.list[0]
		e.list = e.list[1:]
	} else {
		val = e.list[len(e.list)-1]
		e.list = e.list[:len(e.list)-1]
	}
	if len(e.list) == 0 {
		delete(s.data, key)
		delete(s.expires, key)
	}
	s.lockedDirty()
	return val, true, nil
}

// LLen returns key's list length, 0 if absent.
func (s *Store) LLen(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if !ok || err != nil {
		return 0, err
	}
	return len(e.list), nil
}

func normalizeRange(start, stop, length int) (int, int) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	return start, stop
}

// LRange returns the inclusive, two-sided, negative-indexed-from-tail
// slice of key's list, per spec §4.2.
func (s *Store) LRange(key string, start, stop int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if !ok || err != nil {
		return nil, err
	}
	start, stop = normalizeRange(start, stop, len(e.list))
	if start > stop || start >= len(e.list) {
		return [][]byte{}, nil
	}
	out := make([][]byte, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

// LIndex returns the element at a (possibly negative) index, or
// ok=false if out of range.
func (s *Store) LIndex(key string, index int) (val []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if !ok || err != nil {
		return nil, false, err
	}
	if index < 0 {
		index += len(e.list)
	}
	if index < 0 || index >= len(e.list) {
		return nil, false, nil
	}
	return e.list[index], true, nil
}

// LSet replaces the element at index. ok is false (no error) when the
// key is absent; index out of range is reported via outOfRange.
func (s *Store) LSet(key string, index int, val []byte) (ok bool, outOfRange bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if !ok || err != nil {
		return ok, false, err
	}
	if index < 0 {
		index += len(e.list)
	}
	if index < 0 || index >= len(e.list) {
		return true, true, nil
	}
	e.list[index] = append([]byte(nil), val...)
	s.lockedDirty()
	return true, false, nil
}

// LInsert inserts val immediately before or after the first occurrence
// of pivot, returning the new length and whether pivot was found.
func (s *Store) LInsert(key string, before bool, pivot, val []byte) (n int, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if !ok || err != nil {
		return 0, false, err
	}
	idx := -1
	for i, v := range e.list {
		if bytes.Equal(v, pivot) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(e.list), false, nil
	}
	at := idx
	if !before {
		at = idx + 1
	}
	e.list = append(e.list, nil)
	copy(e.list[at+1:], e.list[at:])
	e.list[at] = append([]byte(nil), val...)
	s.lockedDirty()
	return len(e.list), true, nil
}

// LRem removes up to count occurrences of value from key's list: from
// head when count >= 0, from tail when count < 0; count == 0 removes
// all. Returns the number removed, supplementing the list operations
// listed in spec §4.2 per SPEC_FULL §4.2.
func (s *Store) LRem(key string, count int, value []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindList)
	if !ok || err != nil {
		return 0, err
	}
	removed := 0
	out := make([][]byte, 0, len(e.list))
	if count >= 0 {
		limit := count
		for _, v := range e.list {
			if (limit == 0 || removed < limit) && bytes.Equal(v, value) {
				removed++
				continue
			}
			out = append(out, v)
		}
	} else {
		limit := -count
		for i := len(e.list) - 1; i >= 0; i-- {
			v := e.list[i]
			if removed < limit && bytes.Equal(v, value) {
				removed++
				continue
			}
			out = append([][]byte{v}, out...)
		}
	}
	e.list = out
	if len(e.list) == 0 {
		delete(s.data, key)
		delete(s.expires, key)
	}
	if removed > 0 {
		s.lockedDirty()
	}
	return removed, nil
}

// RPopLPush atomically pops the tail of src and pushes it to the head
// of dst, returning the moved value.
func (s *Store) RPopLPush(src, dst string) (val []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	se, ok, err := s.lockedGetOfKind(src, KindList)
	if !ok || err != nil {
		return nil, ok, err
	}
	if len(se.list) == 0 {
		return nil, false, nil
	}
	if _, ok, err := s.lockedGetOfKind(dst, KindList); err != nil {
		_ = ok
		return nil, false, err
	}
	val = se.list[len(se.list)-1]
	se.list = se.list[:len(se.list)-1]
	if len(se.list) == 0 {
		delete(s.data, src)
		delete(s.expires, src)
	}
	de := s.lockedEnsure(dst, KindList)
	de.list = append([][]byte{val}, de.list...)
	s.lockedDirty()
	return val, true, nil
}
