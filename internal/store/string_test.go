package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/store"
)

func TestSetGetDel(t *testing.T) {
	s := store.New()
	s.Set("k", []byte("v"), store.SetOptions{})

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	del, ok2, err := s.GetDel("k")
	require.NoError(t, err)
	require.True(t, ok2)
	assert.Equal(t, []byte("v"), del)

	_, ok3, _ := s.Get("k")
	assert.False(t, ok3)
}

func TestSetWithExpiryExpires(t *testing.T) {
	s := store.New()
	s.Set("k", []byte("v"), store.SetOptions{HasPX: true, PXMs: time.Now().UnixMilli() - 1})

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendAndStrLen(t *testing.T) {
	s := store.New()
	n, err := s.Append("k", []byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Append("k", []byte("bar"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	l, err := s.StrLen("k")
	require.NoError(t, err)
	assert.Equal(t, 6, l)
}

func TestIncrByAndFloat(t *testing.T) {
	s := store.New()
	n, err := s.IncrBy("counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = s.IncrBy("counter", -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	f, err := s.IncrByFloat("counter", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)
}

func TestIncrByOnNonIntegerFails(t *testing.T) {
	s := store.New()
	s.Set("k", []byte("notanumber"), store.SetOptions{})
	_, err := s.IncrBy("k", 1)
	assert.ErrorIs(t, err, store.ErrNotInteger)
}

func TestMSetMGet(t *testing.T) {
	s := store.New()
	s.MSet(map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	vals := s.MGet([]string{"a", "b", "missing"})
	require.Len(t, vals, 3)
	assert.Equal(t, []byte("1"), vals[0])
	assert.Equal(t, []byte("2"), vals[1])
	assert.Nil(t, vals[2])
}

func TestGetAgainstWrongTypeFails(t *testing.T) {
	s := store.New()
	s.HSet("h", map[string][]byte{"f": []byte("v")})
	_, _, err := s.Get("h")
	assert.ErrorIs(t, err, store.ErrWrongType)
}
