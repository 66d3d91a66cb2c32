package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/store"
)

func TestZAddAndZRangeAscending(t *testing.T) {
	s := store.New()
	count, _, _, err := s.ZAdd("z", store.ZAddOptions{}, []store.ZMember{
		{Member: []byte("b"), Score: 2},
		{Member: []byte("a"), Score: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	members, err := s.ZRange("z", 0, -1)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, []byte("a"), members[0].Member)
	assert.Equal(t, []byte("b"), members[1].Member)
}

func TestZAddNXSkipsExisting(t *testing.T) {
	s := store.New()
	s.ZAdd("z", store.ZAddOptions{}, []store.ZMember{{Member: []byte("a"), Score: 1}})
	count, _, _, err := s.ZAdd("z", store.ZAddOptions{NX: true}, []store.ZMember{{Member: []byte("a"), Score: 99}})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	score, _, _ := s.ZScore("z", []byte("a"))
	assert.Equal(t, float64(1), score)
}

func TestZAddIncr(t *testing.T) {
	s := store.New()
	s.ZAdd("z", store.ZAddOptions{}, []store.ZMember{{Member: []byte("a"), Score: 1}})
	_, result, ok, err := s.ZAdd("z", store.ZAddOptions{Incr: true}, []store.ZMember{{Member: []byte("a"), Score: 4}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(5), result)
}

func TestZRemAndZCard(t *testing.T) {
	s := store.New()
	s.ZAdd("z", store.ZAddOptions{}, []store.ZMember{{Member: []byte("a"), Score: 1}, {Member: []byte("b"), Score: 2}})

	n, err := s.ZRem("z", [][]byte{[]byte("a")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	card, err := s.ZCard("z")
	require.NoError(t, err)
	assert.Equal(t, 1, card)
}

func TestZRankAndZRevRank(t *testing.T) {
	s := store.New()
	s.ZAdd("z", store.ZAddOptions{}, []store.ZMember{
		{Member: []byte("a"), Score: 1},
		{Member: []byte("b"), Score: 2},
		{Member: []byte("c"), Score: 3},
	})

	rank, ok, err := s.ZRank("z", []byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	revRank, ok, err := s.ZRevRank("z", []byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, revRank)
}

func TestZRangeByScoreAndZCount(t *testing.T) {
	s := store.New()
	s.ZAdd("z", store.ZAddOptions{}, []store.ZMember{
		{Member: []byte("a"), Score: 1},
		{Member: []byte("b"), Score: 2},
		{Member: []byte("c"), Score: 3},
	})

	members, err := s.ZRangeByScore("z", 2, 3)
	require.NoError(t, err)
	require.Len(t, members, 2)

	n, err := s.ZCount("z", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
