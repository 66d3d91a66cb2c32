// Package replication implements the primary side of spec §4.6/§8.6:
// the PSYNC/FULLRESYNC handshake, propagating writes to connected
// replicas, and WAIT's ack-counting. The done-channel plus polling
// pattern mirrors proto/batch.go's MsgBatchAllocator.Wait — a
// non-blocking notify paired with a bounded poll loop instead of a
// single blocking receive, since more than one replica can ack between
// wake-ups.
package replication

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jameswagner/coolcache/internal/command"
	"github.com/jameswagner/coolcache/internal/metrics"
	"github.com/jameswagner/coolcache/internal/resp"
)

var _ command.Replicator = (*Hub)(nil)

// replica is one connected downstream server.
type replica struct {
	id     string
	w      *resp.Writer
	ackOff int64
}

// Hub tracks the set of connected replicas and the primary's
// replication stream position.
type Hub struct {
	mu      sync.Mutex
	id      string
	offset  int64
	rep     map[string]*replica
	notify  chan struct{}
	logger  *zap.Logger
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// NewHub builds an empty replica registry with a freshly generated
// replication ID (spec §4.6: "a run ID the replica records off the
// FULLRESYNC reply"). mx may be nil, e.g. in tests.
func NewHub(logger *zap.Logger, mx *metrics.Metrics) *Hub {
	return &Hub{
		id:      uuid.NewString(),
		rep:     make(map[string]*replica),
		notify:  make(chan struct{}),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		metrics: mx,
	}
}

// ReplicationID returns the primary's run ID, sent in the FULLRESYNC reply.
func (h *Hub) ReplicationID() string { return h.id }

// Offset returns the current replication stream offset in bytes.
func (h *Hub) Offset() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset
}

// ReplicaCount returns the number of currently registered replicas.
func (h *Hub) ReplicaCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rep)
}

// Register adds a replica connection under id, returning the offset
// it should FULLRESYNC from.
func (h *Hub) Register(id string, w *resp.Writer) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rep[id] = &replica{id: id, w: w}
	if h.metrics != nil {
		h.metrics.ConnectedReplicas.Set(float64(len(h.rep)))
	}
	if h.logger != nil {
		h.logger.Info("replica registered", zap.String("id", id), zap.Int64("offset", h.offset))
	}
	return h.offset
}

// Unregister drops a replica, e.g. when its connection closes.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rep, id)
	if h.metrics != nil {
		h.metrics.ConnectedReplicas.Set(float64(len(h.rep)))
	}
}

// Propagate encodes args and writes them to every connected replica,
// advancing the stream offset by the encoded length regardless of how
// many replicas are currently attached (spec §8.6: the offset tracks
// bytes the primary has produced, not bytes any one replica received).
func (h *Hub) Propagate(args [][]byte) {
	encoded := resp.EncodeCommand(args)
	h.mu.Lock()
	h.offset += int64(len(encoded))
	dead := make([]string, 0)
	for id, r := range h.rep {
		if _, err := r.w.Raw(encoded); err != nil {
			dead = append(dead, id)
			continue
		}
		r.w.Flush()
	}
	for _, id := range dead {
		delete(h.rep, id)
	}
	if len(dead) > 0 && h.metrics != nil {
		h.metrics.ConnectedReplicas.Set(float64(len(h.rep)))
	}
	h.mu.Unlock()
}

// Ack records a replica's acknowledged offset, reported via
// REPLCONF ACK <offset>, and wakes any pending WAIT.
func (h *Hub) Ack(id string, offset int64) {
	h.mu.Lock()
	if r, ok := h.rep[id]; ok && offset > r.ackOff {
		r.ackOff = offset
	}
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// AckCount returns how many replicas have acked at least offset.
func (h *Hub) AckCount(offset int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.rep {
		if r.ackOff >= offset {
			n++
		}
	}
	return n
}

// GetAckRequest is what the WAIT handler uses to prod replicas into
// reporting their current offset before polling.
type GetAckRequest [][]byte

var getAckCmd = GetAckRequest{[]byte("REPLCONF"), []byte("GETACK"), []byte("*")}

// Wait blocks until numReplicas have acked the primary's current
// offset or timeoutMs elapses (0 means wait forever); it returns
// however many had acked when it stopped waiting. It does not return
// early when fewer than numReplicas replicas are connected.
func (h *Hub) Wait(timeoutMs int64, numReplicas int) int {
	target := h.Offset()
	if h.AckCount(target) >= numReplicas {
		return h.AckCount(target)
	}
	h.Propagate(getAckCmd)

	ctx := context.Background()
	var cancel context.CancelFunc
	if timeoutMs > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}
	for {
		if h.AckCount(target) >= numReplicas {
			return h.AckCount(target)
		}
		if err := h.limiter.Wait(ctx); err != nil {
			return h.AckCount(target)
		}
		select {
		case <-h.notify:
		default:
		}
		if ctx.Err() != nil {
			return h.AckCount(target)
		}
	}
}
