package rdb_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/rdb"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

func TestWriteReadRoundTrip(t *testing.T) {
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	snap := store.Snapshot{Entries: map[string]store.SnapshotEntry{
		"greeting": {Kind: store.KindString, Str: []byte("hello")},
		"counters": {Kind: store.KindString, Str: []byte("42"), HasTTL: true, ExpireAt: future},
		"mylist":   {Kind: store.KindList, List: [][]byte{[]byte("a"), []byte("b"), []byte("c")}},
		"myset":    {Kind: store.KindSet, Set: map[string]struct{}{"x": {}, "y": {}}},
		"myhash":   {Kind: store.KindHash, Hash: map[string][]byte{"field1": []byte("v1")}},
		"myzset": {Kind: store.KindZSet, ZSet: []store.ZMember{
			{Member: []byte("alice"), Score: 1.5},
			{Member: []byte("bob"), Score: 2.25},
		}},
	}}
	streams := map[string][]stream.Entry{
		"events": {
			{ID: stream.ID{Ms: 1000, Seq: 0}, Fields: []stream.Field{{Name: []byte("k"), Value: []byte("v")}}},
			{ID: stream.ID{Ms: 1000, Seq: 1}, Fields: []stream.Field{{Name: []byte("k2"), Value: []byte("v2")}}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, rdb.Write(&buf, snap, streams))

	got, gotStreams, err := rdb.Read(&buf, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Contains(t, got.Entries, "greeting")
	assert.Equal(t, []byte("hello"), got.Entries["greeting"].Str)

	require.Contains(t, got.Entries, "counters")
	assert.True(t, got.Entries["counters"].HasTTL)
	assert.True(t, got.Entries["counters"].ExpireAt.Equal(future))

	require.Contains(t, got.Entries, "mylist")
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, got.Entries["mylist"].List)

	require.Contains(t, got.Entries, "myset")
	assert.Len(t, got.Entries["myset"].Set, 2)

	require.Contains(t, got.Entries, "myhash")
	assert.Equal(t, []byte("v1"), got.Entries["myhash"].Hash["field1"])

	require.Contains(t, got.Entries, "myzset")
	assert.ElementsMatch(t, snap.Entries["myzset"].ZSet, got.Entries["myzset"].ZSet)

	require.Contains(t, gotStreams, "events")
	assert.Len(t, gotStreams["events"], 2)
	assert.Equal(t, stream.ID{Ms: 1000, Seq: 1}, gotStreams["events"][1].ID)
}

func TestReadDropsExpiredEntries(t *testing.T) {
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := store.Snapshot{Entries: map[string]store.SnapshotEntry{
		"gone": {Kind: store.KindString, Str: []byte("x"), HasTTL: true, ExpireAt: past},
	}}

	var buf bytes.Buffer
	require.NoError(t, rdb.Write(&buf, snap, nil))

	got, _, err := rdb.Read(&buf, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotContains(t, got.Entries, "gone")
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("NOTRDB\x00\x00\x00")
	_, _, err := rdb.Read(buf, time.Now())
	assert.ErrorIs(t, err, rdb.ErrBadMagic)
}
