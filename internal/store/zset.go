package store

import "sort"

// ZMember is one (member, score) pair, used for snapshotting and for
// range-query replies.
type ZMember struct {
	Member []byte
	Score  float64
}

// zset is an ordered collection keyed by (score, member), per spec §9:
// a side map gives O(1) score lookup and the sorted slice gives
// ordered iteration, with O(log n) positioning via binary search and
// O(n) insertion/removal (adequate at this server's scale).
type zset struct {
	byMember map[string]float64
	sorted   []ZMember
}

func newZSet() *zset {
	return &zset{byMember: make(map[string]float64)}
}

func newZSetFromMembers(ms []ZMember) *zset {
	z := newZSet()
	for _, m := range ms {
		z.set(string(m.Member), m.Score)
	}
	return z
}

func less(a ZMember, score float64, member string) bool {
	if a.Score != score {
		return a.Score < score
	}
	return string(a.Member) < member
}

func (z *zset) search(score float64, member string) int {
	return sort.Search(len(z.sorted), func(i int) bool {
		return !less(z.sorted[i], score, member)
	})
}

func (z *zset) removeSorted(member string, score float64) {
	i := z.search(score, member)
	for i < len(z.sorted) && z.sorted[i].Score == score {
		if string(z.sorted[i].Member) == member {
			z.sorted = append(z.sorted[:i], z.sorted[i+1:]...)
			return
		}
		i++
	}
}

// set inserts or repositions member at score.
func (z *zset) set(member string, score float64) {
	if old, exists := z.byMember[member]; exists {
		if old == score {
			return
		}
		z.removeSorted(member, old)
	}
	z.byMember[member] = score
	i := z.search(score, member)
	z.sorted = append(z.sorted, ZMember{})
	copy(z.sorted[i+1:], z.sorted[i:])
	z.sorted[i] = ZMember{Member: []byte(member), Score: score}
}

func (z *zset) remove(member string) bool {
	score, exists := z.byMember[member]
	if !exists {
		return false
	}
	delete(z.byMember, member)
	z.removeSorted(member, score)
	return true
}

func (z *zset) members() []ZMember {
	out := make([]ZMember, len(z.sorted))
	copy(out, z.sorted)
	return out
}

// ZAddOptions is the ZADD option bag of spec §4.2.
type ZAddOptions struct {
	NX, XX, GT, LT, CH, Incr bool
}

// ZAdd applies pairs under opt's policy, returning the number of new
// members added (or, with CH, new-or-changed), and — when Incr is set
// — the resulting score of the single updated member.
func (s *Store) ZAdd(key string, opt ZAddOptions, pairs []ZMember) (count int, incrResult float64, incrOK bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindZSet)
	if err != nil {
		return 0, 0, false, err
	}
	if !ok {
		e = s.lockedEnsure(key, KindZSet)
		e.zset = newZSet()
	}
	added, changed := 0, 0
	mutated := false
	for _, p := range pairs {
		member := string(p.Member)
		old, exists := e.zset.byMember[member]
		if opt.NX && exists {
			continue
		}
		if opt.XX && !exists {
			continue
		}
		newScore := p.Score
		if opt.Incr {
			newScore = p.Score
			if exists {
				newScore = old + p.Score
			}
		}
		if exists && opt.GT && newScore <= old {
			if opt.Incr {
				return 0, 0, false, nil
			}
			continue
		}
		if exists && opt.LT && newScore >= old {
			if opt.Incr {
				return 0, 0, false, nil
			}
			continue
		}
		e.zset.set(member, newScore)
		mutated = true
		if !exists {
			added++
		} else if newScore != old {
			changed++
		}
		if opt.Incr {
			s.lockedDirty()
			return 0, newScore, true, nil
		}
	}
	if len(e.zset.byMember) == 0 {
		delete(s.data, key)
		delete(s.expires, key)
	}
	if mutated {
		s.lockedDirty()
	}
	if opt.CH {
		return added + changed, 0, false, nil
	}
	return added, 0, false, nil
}

// ZRem removes members, returning how many existed.
func (s *Store) ZRem(key string, members [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindZSet)
	if !ok || err != nil {
		return 0, err
	}
	n := 0
	for _, m := range members {
		if e.zset.remove(string(m)) {
			n++
		}
	}
	if len(e.zset.byMember) == 0 {
		delete(s.data, key)
		delete(s.expires, key)
	}
	if n > 0 {
		s.lockedDirty()
	}
	return n, nil
}

// ZRange returns members in the inclusive index range, ascending
// (score, member) order.
func (s *Store) ZRange(key string, start, stop int) ([]ZMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindZSet)
	if !ok || err != nil {
		return nil, err
	}
	all := e.zset.sorted
	start, stop = normalizeRange(start, stop, len(all))
	if start > stop || start >= len(all) {
		return []ZMember{}, nil
	}
	out := make([]ZMember, stop-start+1)
	copy(out, all[start:stop+1])
	return out, nil
}

// ZRangeByScore returns members with min <= score <= max, ascending.
func (s *Store) ZRangeByScore(key string, min, max float64) ([]ZMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindZSet)
	if !ok || err != nil {
		return nil, err
	}
	var out []ZMember
	for _, m := range e.zset.sorted {
		if m.Score >= min && m.Score <= max {
			out = append(out, m)
		}
	}
	if out == nil {
		out = []ZMember{}
	}
	return out, nil
}

// ZRank returns member's 0-based ascending rank, ok=false if absent.
func (s *Store) ZRank(key string, member []byte) (rank int, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindZSet)
	if !ok || err != nil {
		return 0, false, err
	}
	score, exists := e.zset.byMember[string(member)]
	if !exists {
		return 0, false, nil
	}
	idx := e.zset.search(score, string(member))
	return idx, true, nil
}

// ZRevRank is ZRank from the high-score end.
func (s *Store) ZRevRank(key string, member []byte) (rank int, ok bool, err error) {
	r, ok, err := s.ZRank(key, member)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := s.ZCard(key)
	if err != nil {
		return 0, false, err
	}
	return n - 1 - r, true, nil
}

// ZScore returns member's score.
func (s *Store) ZScore(key string, member []byte) (score float64, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindZSet)
	if !ok || err != nil {
		return 0, false, err
	}
	score, exists := e.zset.byMember[string(member)]
	return score, exists, nil
}

// ZCard returns the set's cardinality.
func (s *Store) ZCard(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.lockedGetOfKind(key, KindZSet)
	if !ok || err != nil {
		return 0, err
	}
	return len(e.zset.byMember), nil
}

// ZCount counts members with min <= score <= max.
func (s *Store) ZCount(key string, min, max float64) (int, error) {
	members, err := s.ZRangeByScore(key, min, max)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}
