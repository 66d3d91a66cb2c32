package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/config"
	"github.com/jameswagner/coolcache/internal/logging"
	"github.com/jameswagner/coolcache/internal/persistence"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := store.New()
	st.Set("foo", []byte("bar"), store.SetOptions{})
	streams := stream.NewIndex()

	sched := persistence.New(dir, "dump.rdb", nil, st, streams, logging.Nop(), nil)
	require.NoError(t, sched.Save())

	st2 := store.New()
	streams2 := stream.NewIndex()
	sched2 := persistence.New(dir, "dump.rdb", nil, st2, streams2, logging.Nop(), nil)
	require.NoError(t, sched2.LoadIfExists())

	v, ok, err := st2.Get("foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("bar"), v)
}

func TestLoadIfExistsToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	sched := persistence.New(dir, "missing.rdb", nil, store.New(), stream.NewIndex(), logging.Nop(), nil)
	assert.NoError(t, sched.LoadIfExists())
}

func TestBGSaveWritesAsynchronously(t *testing.T) {
	dir := t.TempDir()
	st := store.New()
	st.Set("k", []byte("v"), store.SetOptions{})
	sched := persistence.New(dir, "dump.rdb", nil, st, stream.NewIndex(), logging.Nop(), nil)

	require.NoError(t, sched.BGSave())

	require.Eventually(t, func() bool {
		return sched.LastSaveUnix() > 0
	}, time.Second, 10*time.Millisecond)
}

func TestRunAutoSaveRespectsThresholds(t *testing.T) {
	dir := t.TempDir()
	st := store.New()
	sched := persistence.New(dir, "dump.rdb", []config.SaveRule{{Seconds: 0, Changes: 1}}, st, stream.NewIndex(), logging.Nop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	st.Set("k", []byte("v"), store.SetOptions{})

	done := make(chan error, 1)
	go func() { done <- sched.RunAutoSave(ctx) }()

	require.Eventually(t, func() bool {
		return st.DirtyCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	<-done
}
