package replication

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jameswagner/coolcache/internal/rdb"
	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

// SnapshotFunc captures the store+stream state for a FULLRESYNC
// payload; cmd/coolcache-server wires this to the live store and
// stream index, so HandlePSync takes its snapshot at the moment a
// replica resyncs.
type SnapshotFunc func() (store.Snapshot, map[string][]stream.Entry)

// HandlePSync takes over a connection that has just sent PSYNC,
// completing spec §4.6's handshake: a "+FULLRESYNC <replid> <offset>"
// line, then the keyspace as a length-prefixed RDB payload, then an
// unbounded stream of every subsequent propagated write. It also
// drains REPLCONF ACK messages the replica sends back on the same
// connection, since Redis's replication link is full-duplex.
func (h *Hub) HandlePSync(ctx context.Context, conn net.Conn, snapshot SnapshotFunc, logger *zap.Logger) {
	id := conn.RemoteAddr().String()
	w := resp.NewWriter(conn)

	offset := h.Register(id, w)
	defer h.Unregister(id)

	if err := w.WriteSimpleString("FULLRESYNC " + h.id + " " + strconv.FormatInt(offset, 10)); err != nil {
		return
	}
	snap, streams := snapshot()
	var payload strings.Builder
	if err := rdb.Write(&payload, snap, streams); err != nil {
		if logger != nil {
			logger.Error("psync: build snapshot payload", zap.Error(err))
		}
		return
	}
	if _, err := w.Raw([]byte("$" + strconv.Itoa(payload.Len()) + "\r\n")); err != nil {
		return
	}
	if _, err := w.Raw([]byte(payload.String())); err != nil {
		return
	}
	if err := w.Flush(); err != nil {
		return
	}
	if logger != nil {
		logger.Info("replica resynced", zap.String("id", id), zap.Int("snapshot_bytes", payload.Len()))
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	go pingReplica(h, id, stopPing)

	drainAcks(ctx, conn, id, h)
}

// pingReplica keeps the replication offset advancing even when the
// keyspace is idle, so REPLCONF ACK traffic (and WAIT) doesn't stall.
func pingReplica(h *Hub, id string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	ping := [][]byte{[]byte("PING")}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			_, stillConnected := h.rep[id]
			h.mu.Unlock()
			if !stillConnected {
				return
			}
			h.Propagate(ping)
		}
	}
}

// drainAcks reads REPLCONF ACK <offset> frames off the now
// primary-to-replica streaming connection until it closes.
func drainAcks(ctx context.Context, conn net.Conn, id string, h *Hub) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		n, err := conn.Read(tmp)
		if err != nil {
			return
		}
		buf = append(buf, tmp[:n]...)
		for {
			args, consumed, perr := resp.ReadCommand(buf)
			if consumed == 0 && perr == nil && args == nil {
				break
			}
			buf = buf[consumed:]
			if perr != nil || len(args) < 3 {
				continue
			}
			if strings.ToUpper(string(args[0])) != "REPLCONF" || strings.ToUpper(string(args[1])) != "ACK" {
				continue
			}
			off, err := strconv.ParseInt(string(args[2]), 10, 64)
			if err != nil {
				continue
			}
			h.Ack(id, off)
		}
	}
}

// pingInterval is how often the primary nudges idle replicas, keeping
// the connection's read deadline (if any) from tripping.
const pingInterval = 10 * time.Second
