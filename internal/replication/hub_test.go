package replication_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/logging"
	"github.com/jameswagner/coolcache/internal/replication"
	"github.com/jameswagner/coolcache/internal/resp"
)

func TestPropagateAdvancesOffsetAndWritesReplica(t *testing.T) {
	h := replication.NewHub(logging.Nop(), nil)
	var buf bytes.Buffer
	w := resp.NewWriter(&buf)

	off := h.Register("r1", w)
	assert.Equal(t, int64(0), off)

	h.Propagate([][]byte{[]byte("SET"), []byte("k"), []byte("v")})

	assert.Greater(t, h.Offset(), int64(0))
	assert.Contains(t, buf.String(), "SET")
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := replication.NewHub(logging.Nop(), nil)
	var buf bytes.Buffer
	w := resp.NewWriter(&buf)
	h.Register("r1", w)
	h.Unregister("r1")

	h.Propagate([][]byte{[]byte("PING")})

	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 0, h.ReplicaCount())
}

func TestAckCount(t *testing.T) {
	h := replication.NewHub(logging.Nop(), nil)
	var buf1, buf2 bytes.Buffer
	h.Register("r1", resp.NewWriter(&buf1))
	h.Register("r2", resp.NewWriter(&buf2))

	h.Propagate([][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	target := h.Offset()

	assert.Equal(t, 0, h.AckCount(target))
	h.Ack("r1", target)
	assert.Equal(t, 1, h.AckCount(target))
	h.Ack("r2", target)
	assert.Equal(t, 2, h.AckCount(target))
}

func TestWaitReturnsImmediatelyWhenAlreadySatisfied(t *testing.T) {
	h := replication.NewHub(logging.Nop(), nil)
	var buf bytes.Buffer
	h.Register("r1", resp.NewWriter(&buf))

	h.Propagate([][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	h.Ack("r1", h.Offset())

	n := h.Wait(100, 1)
	assert.Equal(t, 1, n)
}

func TestWaitTimesOutWithoutEnoughAcks(t *testing.T) {
	h := replication.NewHub(logging.Nop(), nil)
	var buf bytes.Buffer
	h.Register("r1", resp.NewWriter(&buf))
	h.Propagate([][]byte{[]byte("SET"), []byte("k"), []byte("v")})

	start := time.Now()
	n := h.Wait(150, 2)
	require.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, n)
}
