package replication

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jameswagner/coolcache/internal/command"
	"github.com/jameswagner/coolcache/internal/rdb"
	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

// Client is the replica side of spec §4.6: it dials a primary, runs
// the PING/REPLCONF/PSYNC handshake, loads the FULLRESYNC snapshot,
// then applies every subsequently streamed command.
type Client struct {
	masterAddr string
	dispatcher *command.Dispatcher
	store      *store.Store
	streams    *stream.Index
	logger     *zap.Logger
	listenPort string
}

// NewClient builds a replica client that will connect to masterAddr.
// listenPort is advertised via REPLCONF listening-port, per spec §4.6.
func NewClient(masterAddr, listenPort string, d *command.Dispatcher, st *store.Store, streams *stream.Index, logger *zap.Logger) *Client {
	return &Client{masterAddr: masterAddr, dispatcher: d, store: st, streams: streams, logger: logger, listenPort: listenPort}
}

// Run connects and replicates until ctx is canceled or the connection
// drops, reconnecting with a fixed backoff on failure.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.runOnce(ctx); err != nil && c.logger != nil {
			c.logger.Warn("replication link dropped", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, err := net.Dial("tcp", c.masterAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	w := resp.NewWriter(conn)
	r := bufio.NewReaderSize(conn, 64*1024)

	if err := sendCommand(w, r, "PING"); err != nil {
		return err
	}
	if err := sendCommand(w, r, "REPLCONF", "listening-port", c.listenPort); err != nil {
		return err
	}
	if err := sendCommand(w, r, "REPLCONF", "capa", "eof"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(3); err != nil {
		return err
	}
	w.WriteBulkString("PSYNC")
	w.WriteBulkString("?")
	w.WriteBulkString("-1")
	if err := w.Flush(); err != nil {
		return err
	}
	line, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Info("replication handshake", zap.String("reply", strings.TrimSpace(line)))
	}

	lengthLine, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lengthLine), "$")))
	if err != nil {
		return err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	snap, streams, err := rdb.Read(bytes.NewReader(payload), time.Now())
	if err != nil {
		return err
	}
	c.store.Restore(snap)
	c.streams.Restore(streams)
	if c.logger != nil {
		c.logger.Info("loaded resync snapshot", zap.Int("keys", len(snap.Entries)))
	}

	return c.streamCommands(ctx, conn, r, w)
}

func (c *Client) streamCommands(ctx context.Context, conn net.Conn, r *bufio.Reader, w *resp.Writer) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	ackTicker := time.NewTicker(time.Second)
	defer ackTicker.Stop()
	applyWriter := resp.NewWriter(discard{})
	var offset int64
	buf := make([]byte, 0, 64*1024)
	tmp := make([]byte, 64*1024)
	for {
		n, err := r.Read(tmp)
		if err != nil {
			return err
		}
		buf = append(buf, tmp[:n]...)
		for {
			args, consumed, perr := resp.ReadCommand(buf)
			if consumed == 0 && perr == nil && args == nil {
				break
			}
			buf = buf[consumed:]
			if perr != nil || len(args) == 0 {
				continue
			}
			offset += int64(consumed)
			if strings.ToUpper(string(args[0])) == "REPLCONF" && len(args) >= 2 && strings.ToUpper(string(args[1])) == "GETACK" {
				sendCommand(w, nil, "REPLCONF", "ACK", strconv.FormatInt(offset, 10))
				continue
			}
			c.dispatcher.Dispatch(ctx, args, applyWriter)
		}
		select {
		case <-ackTicker.C:
			sendCommand(w, nil, "REPLCONF", "ACK", strconv.FormatInt(offset, 10))
		default:
		}
	}
}

func sendCommand(w *resp.Writer, r *bufio.Reader, parts ...string) error {
	if err := w.WriteArrayHeader(len(parts)); err != nil {
		return err
	}
	for _, p := range parts {
		if err := w.WriteBulkString(p); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	_, err := r.ReadString('\n')
	return err
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

