package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/stream"
)

func TestAddAssignsSequenceWithinSameMs(t *testing.T) {
	s := stream.New()
	id1, err := s.Add("5-*", nil, time.Unix(0, 0))
	require.NoError(t, err)
	id2, err := s.Add("5-*", nil, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id1.Seq)
	assert.Equal(t, uint64(1), id2.Seq)
}

func TestAddRejectsNonIncreasingID(t *testing.T) {
	s := stream.New()
	_, err := s.Add("5-0", nil, time.Unix(0, 0))
	require.NoError(t, err)
	_, err = s.Add("5-0", nil, time.Unix(0, 0))
	assert.ErrorIs(t, err, stream.ErrIDNotGreater)
}

func TestRangeAndAfter(t *testing.T) {
	s := stream.New()
	id1, _ := s.Add("1-1", []stream.Field{{Name: []byte("f"), Value: []byte("v1")}}, time.Unix(0, 0))
	id2, _ := s.Add("2-1", []stream.Field{{Name: []byte("f"), Value: []byte("v2")}}, time.Unix(0, 0))

	all := s.Range(stream.ID{}, stream.ID{Ms: ^uint64(0), Seq: ^uint64(0)})
	require.Len(t, all, 2)

	after := s.After(id1)
	require.Len(t, after, 1)
	assert.Equal(t, id2, after[0].ID)
}

func TestWaitReturnsOnNewEntry(t *testing.T) {
	s := stream.New()
	last := s.LastID()

	result := make(chan []stream.Entry, 1)
	go func() {
		result <- s.Wait(context.Background(), last, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	id, err := s.Add("*", []stream.Field{{Name: []byte("f"), Value: []byte("v")}}, time.Now())
	require.NoError(t, err)

	select {
	case entries := <-result:
		require.Len(t, entries, 1)
		assert.Equal(t, id, entries[0].ID)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Add")
	}
}

func TestWaitTimesOutWithoutNewEntry(t *testing.T) {
	s := stream.New()
	entries := s.Wait(context.Background(), s.LastID(), 30*time.Millisecond)
	assert.Nil(t, entries)
}

func TestWaitUnblocksOnContextCancel(t *testing.T) {
	s := stream.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []stream.Entry, 1)
	go func() { done <- s.Wait(ctx, s.LastID(), 0) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case entries := <-done:
		assert.Nil(t, entries)
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock on cancel")
	}
}
