package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/store"
)

func TestSAddAndSMembers(t *testing.T) {
	s := store.New()
	n, err := s.SAdd("k", [][]byte{[]byte("a"), []byte("b"), []byte("a")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	members, err := s.SMembers("k")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, members)
}

func TestSRemAndSCard(t *testing.T) {
	s := store.New()
	s.SAdd("k", [][]byte{[]byte("a"), []byte("b")})

	n, err := s.SRem("k", [][]byte{[]byte("a"), []byte("missing")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	card, err := s.SCard("k")
	require.NoError(t, err)
	assert.Equal(t, 1, card)
}

func TestSIsMember(t *testing.T) {
	s := store.New()
	s.SAdd("k", [][]byte{[]byte("a")})

	ok, err := s.SIsMember("k", []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SIsMember("k", []byte("z"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSUnionInterDiff(t *testing.T) {
	s := store.New()
	s.SAdd("a", [][]byte{[]byte("1"), []byte("2"), []byte("3")})
	s.SAdd("b", [][]byte{[]byte("2"), []byte("3"), []byte("4")})

	union, err := s.SUnion([]string{"a", "b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("1"), []byte("2"), []byte("3"), []byte("4")}, union)

	inter, err := s.SInter([]string{"a", "b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("2"), []byte("3")}, inter)

	diff, err := s.SDiff([]string{"a", "b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("1")}, diff)
}

func TestSMove(t *testing.T) {
	s := store.New()
	s.SAdd("src", [][]byte{[]byte("a")})

	moved, err := s.SMove("src", "dst", []byte("a"))
	require.NoError(t, err)
	assert.True(t, moved)

	ok, _ := s.SIsMember("dst", []byte("a"))
	assert.True(t, ok)
	ok, _ = s.SIsMember("src", []byte("a"))
	assert.False(t, ok)
}

func TestSPopRemovesAMember(t *testing.T) {
	s := store.New()
	s.SAdd("k", [][]byte{[]byte("only")})

	v, ok, err := s.SPop("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("only"), v)

	card, _ := s.SCard("k")
	assert.Equal(t, 0, card)
}
