// Package command implements the dispatch table of spec §4: one
// handler per RESP command name, wired to internal/store,
// internal/stream, and (via small interfaces so this package stays
// free of import cycles) the persistence and replication layers.
package command

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jameswagner/coolcache/internal/metrics"
	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

// Persister is the subset of internal/persistence.Scheduler the SAVE
// family of commands needs.
type Persister interface {
	Save() error
	BGSave() error
	LastSaveUnix() int64
}

// Replicator is the subset of internal/replication.Hub the
// WAIT/REPLCONF/PSYNC commands and write-propagation need.
type Replicator interface {
	Propagate(args [][]byte)
	Wait(timeoutMs int64, numReplicas int) int
	AckCount(offset int64) int
	ReplicaCount() int
	ReplicationID() string
	Offset() int64
}

// Handler executes one command, writing its reply to w. propagate
// reports whether the command mutated the keyspace and should be
// forwarded to replicas verbatim — decided per call, since e.g. LPUSHX
// against a missing key is a no-op despite being a "write" command.
type Handler func(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (propagate bool, err error)

type commandSpec struct {
	handler Handler
	arity   func(argc int) bool
}

// Dispatcher holds everything a command handler needs and the table
// that maps command names to handlers.
type Dispatcher struct {
	Store     *store.Store
	Streams   *stream.Index
	Persist   Persister
	Repl      Replicator
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	StartedAt int64 // unix seconds, for INFO uptime

	table map[string]commandSpec
}

// New builds a dispatcher with every handler registered.
func New(st *store.Store, streams *stream.Index, persist Persister, repl Replicator, logger *zap.Logger, mx *metrics.Metrics) *Dispatcher {
	d := &Dispatcher{Store: st, Streams: streams, Persist: persist, Repl: repl, Logger: logger, Metrics: mx, StartedAt: time.Now().Unix()}
	d.table = buildTable()
	return d
}

func atLeast(n int) func(int) bool  { return func(argc int) bool { return argc >= n } }
func exactly(n int) func(int) bool  { return func(argc int) bool { return argc == n } }
func between(a, b int) func(int) bool {
	return func(argc int) bool { return argc >= a && argc <= b }
}

// Dispatch looks up args[0] case-insensitively and runs its handler,
// writing the reply through w. A reply is always written (an error
// reply counts), except for transport-level failures which propagate
// as err so the server layer can tear the connection down.
func (d *Dispatcher) Dispatch(ctx context.Context, args [][]byte, w *resp.Writer) error {
	if len(args) == 0 {
		return nil
	}
	name := strings.ToUpper(string(args[0]))
	spec, ok := d.table[name]
	if !ok {
		if d.Metrics != nil {
			d.Metrics.CommandsTotal.WithLabelValues("unknown").Inc()
		}
		return w.WriteError("ERR unknown command")
	}
	if !spec.arity(len(args)) {
		if d.Metrics != nil {
			d.Metrics.CommandsTotal.WithLabelValues(name).Inc()
		}
		return w.WriteError("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
	}
	propagate, err := spec.handler(ctx, d, args, w)
	if d.Metrics != nil {
		d.Metrics.CommandsTotal.WithLabelValues(name).Inc()
	}
	if err != nil {
		return err
	}
	if propagate && d.Repl != nil {
		d.Repl.Propagate(args)
	}
	return nil
}

func buildTable() map[string]commandSpec {
	t := make(map[string]commandSpec)
	reg := func(name string, arity func(int) bool, h Handler) {
		t[name] = commandSpec{handler: h, arity: arity}
	}

	registerGeneric(reg)
	registerString(reg)
	registerList(reg)
	registerHash(reg)
	registerSet(reg)
	registerZSet(reg)
	registerStream(reg)
	registerServer(reg)

	return t
}

type registerFunc func(name string, arity func(int) bool, h Handler)
