package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jameswagner/coolcache/internal/resp"
)

func registerServer(reg registerFunc) {
	reg("PING", between(1, 2), cmdPing)
	reg("ECHO", exactly(2), cmdEcho)
	reg("COMMAND", atLeast(1), cmdCommand)
	reg("CONFIG", atLeast(2), cmdConfig)
	reg("INFO", between(1, 2), cmdInfo)
	reg("SELECT", exactly(2), cmdSelect)
	reg("SAVE", exactly(1), cmdSave)
	reg("BGSAVE", exactly(1), cmdBGSave)
	reg("LASTSAVE", exactly(1), cmdLastSave)
	reg("WAIT", exactly(3), cmdWait)
	reg("REPLCONF", atLeast(2), cmdReplConf)
	reg("PSYNC", exactly(3), cmdPSync)
}

func cmdPing(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	if len(args) == 2 {
		return false, w.WriteBulk(args[1])
	}
	return false, w.WriteSimpleString("PONG")
}

func cmdEcho(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return false, w.WriteBulk(args[1])
}

// COMMAND is answered minimally: clients mostly issue it to probe
// server capabilities at connect time.
func cmdCommand(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return false, w.WriteArrayHeader(0)
}

// CONFIG GET pattern | CONFIG SET name value. Only the subcommand and
// its arity are checked: GET always replies with an empty array, and
// SET replies +OK without changing any setting.
func cmdConfig(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	switch strings.ToUpper(string(args[1])) {
	case "GET":
		if len(args) != 3 {
			return false, w.WriteError("ERR wrong number of arguments for 'config|get' command")
		}
		return false, w.WriteArrayHeader(0)
	case "SET":
		if len(args) != 4 {
			return false, w.WriteError("ERR wrong number of arguments for 'config|set' command")
		}
		return false, w.WriteSimpleString("OK")
	default:
		return false, w.WriteError("ERR Unknown CONFIG subcommand")
	}
}

func cmdInfo(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	var b strings.Builder
	b.WriteString("# Server\r\n")
	b.WriteString("uptime_in_seconds:" + strconv.FormatInt(time.Now().Unix()-d.StartedAt, 10) + "\r\n")
	b.WriteString("# Replication\r\n")
	if d.Repl != nil {
		b.WriteString("connected_slaves:" + strconv.Itoa(d.Repl.ReplicaCount()) + "\r\n")
		b.WriteString("master_replid:" + d.Repl.ReplicationID() + "\r\n")
		b.WriteString("master_repl_offset:" + strconv.FormatInt(d.Repl.Offset(), 10) + "\r\n")
	}
	return false, w.WriteBulkString(b.String())
}

// SELECT is accepted for protocol compatibility; the keyspace is single-db.
func cmdSelect(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	idx, err := strconv.Atoi(string(args[1]))
	if err != nil || idx != 0 {
		return false, w.WriteError("ERR DB index is out of range")
	}
	return false, w.WriteSimpleString("OK")
}

func cmdSave(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	if err := d.Persist.Save(); err != nil {
		return false, w.WriteError("ERR Failed to save RDB file: " + err.Error())
	}
	return false, w.WriteSimpleString("OK")
}

func cmdBGSave(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	if err := d.Persist.BGSave(); err != nil {
		return false, w.WriteError("ERR " + err.Error())
	}
	return false, w.WriteSimpleString("Background saving started")
}

func cmdLastSave(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return false, w.WriteInteger(d.Persist.LastSaveUnix())
}

// WAIT numreplicas timeout
func cmdWait(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	numReplicas, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return false, w.WriteError("ERR value is not an integer or out of range")
	}
	timeoutMs, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return false, w.WriteError("ERR timeout is not an integer or out of range")
	}
	if d.Repl == nil {
		return false, w.WriteInteger(0)
	}
	acked := d.Repl.Wait(timeoutMs, numReplicas)
	return false, w.WriteInteger(int64(acked))
}

// REPLCONF replies +OK to every subcommand (listening-port, capa, ...)
// except GETACK, which gets no reply here; on a replica, GETACK from the
// primary is answered by the replication client's stream loop before
// it reaches the dispatcher. The connection layer does not intercept
// REPLCONF.
func cmdReplConf(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	switch strings.ToUpper(string(args[1])) {
	case "GETACK":
		return false, nil
	default:
		return false, w.WriteSimpleString("OK")
	}
}

// PSYNC is answered by the connection layer, which owns the
// full-resync handshake and byte-stream takeover; reaching the
// dispatcher means the connection layer didn't intercept it.
func cmdPSync(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return false, w.WriteError("ERR PSYNC must be handled by the connection layer")
}
