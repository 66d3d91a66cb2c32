package store

// HSet writes variadic field/value pairs into key's hash, creating it
// if absent.
func (s *Store) HSet(key string, pairs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if err != nil {
		return err
	}
	if !ok {
		e = s.lockedEnsure(key, KindHash)
		e.hash = make(map[string][]byte, len(pairs))
	}
	for f, v := range pairs {
		e.hash[f] = append([]byte(nil), v...)
	}
	s.lockedDirty()
	return nil
}

// HSetNX sets field only if absent, returning whether it was set.
func (s *Store) HSetNX(key, field string, val []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if err != nil {
		return false, err
	}
	if !ok {
		e = s.lockedEnsure(key, KindHash)
		e.hash = make(map[string][]byte)
	}
	if _, exists := e.hash[field]; exists {
		return false, nil
	}
	e.hash[field] = append([]byte(nil), val...)
	s.lockedDirty()
	return true, nil
}

// HGet returns field's value, ok=false if the key or field is absent.
func (s *Store) HGet(key, field string) (val []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if !ok || err != nil {
		return nil, false, err
	}
	v, exists := e.hash[field]
	return v, exists, nil
}

// HMGet returns field values in order, nil for any that are absent.
func (s *Store) HMGet(key string, fields []string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(fields))
	if !ok {
		return out, nil
	}
	for i, f := range fields {
		out[i] = e.hash[f]
	}
	return out, nil
}

// HGetAll returns field, value alternating (order not observable, per
// spec §3 invariants).
func (s *Store) HGetAll(key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if !ok || err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(e.hash)*2)
	for f, v := range e.hash {
		out = append(out, []byte(f), v)
	}
	return out, nil
}

// HDel removes fields, returning how many existed.
func (s *Store) HDel(key string, fields []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if !ok || err != nil {
		return 0, err
	}
	n := 0
	for _, f := range fields {
		if _, exists := e.hash[f]; exists {
			delete(e.hash, f)
			n++
		}
	}
	if len(e.hash) == 0 {
		delete(s.data, key)
		delete(s.expires, key)
	}
	if n > 0 {
		s.lockedDirty()
	}
	return n, nil
}

// HExists reports whether field exists in key's hash.
func (s *Store) HExists(key, field string) (bool, error) {
	_, ok, err := s.HGet(key, field)
	return ok, err
}

// HLen returns the number of fields in key's hash.
func (s *Store) HLen(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if !ok || err != nil {
		return 0, err
	}
	return len(e.hash), nil
}

// HKeys returns all field names.
func (s *Store) HKeys(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if !ok || err != nil {
		return nil, err
	}
	out := make([]string, 0, len(e.hash))
	for f := range e.hash {
		out = append(out, f)
	}
	return out, nil
}

// HVals returns all field values.
func (s *Store) HVals(key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if !ok || err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(e.hash))
	for _, v := range e.hash {
		out = append(out, v)
	}
	return out, nil
}

// HIncrBy adds delta to field's integer-decoded value.
func (s *Store) HIncrBy(key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindHash)
	if err != nil {
		return 0, err
	}
	if !ok {
		e = s.lockedEnsure(key, KindHash)
		e.hash = make(map[string][]byte)
	}
	var cur int64
	if v, exists := e.hash[field]; exists {
		cur, err = parseInt(v)
		if err != nil {
			return 0, ErrNotInteger
		}
	}
	next := cur + delta
	e.hash[field] = []byte(formatInt(next))
	s.lockedDirty()
	return next, nil
}
