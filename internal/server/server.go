// Package server implements the TCP front end of spec §5: an
// accept loop handing each connection to its own goroutine, whose
// commands are serialized against the shared keyspace by the
// internal/store and internal/stream locks behind
// internal/command.Dispatcher.
// The buffered-I/O and atomic-close shape is adapted from
// proto/memcache/handler.go; the accept loop itself follows the
// minimal shape every retrieved from-scratch RESP server in the
// examples pack uses.
package server

import (
	"context"
	"net"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jameswagner/coolcache/internal/command"
	"github.com/jameswagner/coolcache/internal/metrics"
)

// Server accepts RESP connections and dispatches their commands.
type Server struct {
	addr       string
	dispatcher *command.Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Metrics
	onPSync    PSyncHandler

	ln net.Listener
}

// PSyncHandler takes over a connection once PSYNC has been read off
// it, handing control of the net.Conn to the replication layer for
// the rest of its lifetime. Kept as an injected function (rather than
// an interface in internal/command) so internal/server, which already
// needs internal/replication for this one case, doesn't force
// internal/command to import it too.
type PSyncHandler func(ctx context.Context, conn net.Conn, args [][]byte)

// New builds a server bound to addr (not yet listening).
func New(addr string, dispatcher *command.Dispatcher, logger *zap.Logger, mx *metrics.Metrics, onPSync PSyncHandler) *Server {
	return &Server{addr: addr, dispatcher: dispatcher, logger: logger, metrics: mx, onPSync: onPSync}
}

// ListenAndServe binds addr and accepts connections until ctx is
// canceled, then closes the listener and returns once the accept loop
// has stopped. It does not wait for connection goroutines; each one
// closes its own socket when ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("listening", zap.String("addr", s.addr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return s.ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := s.ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if s.metrics != nil {
				s.metrics.ConnectedClients.Inc()
			}
			go func() {
				defer func() {
					if s.metrics != nil {
						s.metrics.ConnectedClients.Dec()
					}
				}()
				newConn(conn, s.dispatcher, s.logger, s.onPSync).serve(gctx)
			}()
		}
	})
	return g.Wait()
}

// Addr returns the bound listener address; useful in tests that bind
// an ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}
