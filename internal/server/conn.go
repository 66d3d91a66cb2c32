package server

import (
	"context"
	"io"
	"net"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jameswagner/coolcache/internal/command"
	"github.com/jameswagner/coolcache/internal/resp"
)

const (
	connOpening = int32(0)
	connClosed  = int32(1)

	readBufSize = 64 * 1024
)

// conn handles one client connection's read/dispatch/write loop. The
// atomic closed flag and idempotent Close mirror
// proto/memcache/handler.go's handler type.
type conn struct {
	nc         net.Conn
	w          *resp.Writer
	dispatcher *command.Dispatcher
	logger     *zap.Logger
	onPSync    PSyncHandler

	closed int32
	buf    []byte
}

func newConn(nc net.Conn, d *command.Dispatcher, logger *zap.Logger, onPSync PSyncHandler) *conn {
	return &conn{
		nc:         nc,
		w:          resp.NewWriter(nc),
		dispatcher: d,
		logger:     logger,
		onPSync:    onPSync,
	}
}

func (c *conn) close() {
	if atomic.CompareAndSwapInt32(&c.closed, connOpening, connClosed) {
		c.nc.Close()
	}
}

// serve reads pipelined command frames off the connection until it is
// closed or ctx is canceled, dispatching each one in turn. PSYNC is
// intercepted here: once seen, control of the raw net.Conn passes to
// the replication layer and this loop returns.
func (c *conn) serve(ctx context.Context) {
	defer c.close()
	go func() {
		<-ctx.Done()
		c.close()
	}()

	readBuf := make([]byte, readBufSize)
	for {
		n, err := c.nc.Read(readBuf)
		if err != nil {
			if err != io.EOF && c.logger != nil {
				c.logger.Debug("connection read error", zap.Error(err))
			}
			return
		}
		c.buf = append(c.buf, readBuf[:n]...)

		for {
			args, consumed, perr := resp.ReadCommand(c.buf)
			if consumed == 0 && perr == nil && args == nil {
				break // incomplete frame, need more bytes
			}
			if perr != nil {
				c.w.WriteError(resp.ErrProtocol.Error())
				c.w.Flush()
				c.buf = c.buf[consumed:]
				continue
			}
			c.buf = c.buf[consumed:]
			if len(args) == 0 {
				continue
			}
			if strings.ToUpper(string(args[0])) == "PSYNC" {
				c.w.Flush()
				if c.onPSync != nil {
					c.onPSync(ctx, c.nc, args)
				}
				return
			}
			if err := c.dispatcher.Dispatch(ctx, args, c.w); err != nil {
				return
			}
			if err := c.w.Flush(); err != nil {
				return
			}
		}
	}
}
