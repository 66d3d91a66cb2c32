package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/store"
)

func TestHSetAndHGet(t *testing.T) {
	s := store.New()
	require.NoError(t, s.HSet("h", map[string][]byte{"f1": []byte("v1")}))

	v, ok, err := s.HGet("h", "f1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestHSetNXRespectsExisting(t *testing.T) {
	s := store.New()
	set, err := s.HSetNX("h", "f", []byte("first"))
	require.NoError(t, err)
	assert.True(t, set)

	set, err = s.HSetNX("h", "f", []byte("second"))
	require.NoError(t, err)
	assert.False(t, set)

	v, _, _ := s.HGet("h", "f")
	assert.Equal(t, []byte("first"), v)
}

func TestHDelAndHExists(t *testing.T) {
	s := store.New()
	require.NoError(t, s.HSet("h", map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")}))

	n, err := s.HDel("h", []string{"f1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := s.HExists("h", "f1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.HExists("h", "f2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHKeysHValsHLen(t *testing.T) {
	s := store.New()
	require.NoError(t, s.HSet("h", map[string][]byte{"a": []byte("1"), "b": []byte("2")}))

	n, err := s.HLen("h")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := s.HKeys("h")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	vals, err := s.HVals("h")
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("1"), []byte("2")}, vals)
}

func TestHIncrBy(t *testing.T) {
	s := store.New()
	n, err := s.HIncrBy("h", "counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = s.HIncrBy("h", "counter", -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
