package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/stream"
)

func registerStream(reg registerFunc) {
	reg("XADD", func(argc int) bool { return argc >= 5 && argc%2 == 1 }, cmdXAdd)
	reg("XLEN", exactly(2), cmdXLen)
	reg("XRANGE", exactly(4), cmdXRange)
	reg("XREVRANGE", exactly(4), cmdXRevRange)
	reg("XREAD", atLeast(4), cmdXRead)
}

// XADD key <ms-seq|ms-*|*> field value [field value ...]
func cmdXAdd(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	fields := make([]stream.Field, 0, (len(args)-3)/2)
	for i := 3; i < len(args); i += 2 {
		fields = append(fields, stream.Field{Name: args[i], Value: args[i+1]})
	}
	st := d.Streams.GetOrCreate(string(args[1]))
	id, err := st.Add(string(args[2]), fields, time.Now())
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return true, w.WriteBulkString(id.String())
}

func cmdXLen(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	st := d.Streams.Get(string(args[1]))
	if st == nil {
		return false, w.WriteInteger(0)
	}
	return false, w.WriteInteger(int64(st.Len()))
}

func parseRangeBound(s string, openLow bool) (stream.ID, error) {
	switch s {
	case "-":
		return stream.ID{}, nil
	case "+":
		return stream.ID{Ms: ^uint64(0), Seq: ^uint64(0)}, nil
	default:
		return stream.ParseID(s)
	}
}

func cmdXRange(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return xrangeHelper(d, args[1], args[2], args[3], false, w)
}

func cmdXRevRange(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return xrangeHelper(d, args[1], args[3], args[2], true, w)
}

func xrangeHelper(d *Dispatcher, key, startArg, endArg []byte, reverse bool, w *resp.Writer) (bool, error) {
	start, err := parseRangeBound(string(startArg), true)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	end, err := parseRangeBound(string(endArg), false)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	st := d.Streams.Get(string(key))
	var entries []stream.Entry
	if st != nil {
		entries = st.Range(start, end)
	}
	if reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return false, writeEntries(w, entries)
}

func writeEntries(w *resp.Writer, entries []stream.Entry) error {
	if err := w.WriteArrayHeader(len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.WriteArrayHeader(2); err != nil {
			return err
		}
		if err := w.WriteBulkString(e.ID.String()); err != nil {
			return err
		}
		flat := make([][]byte, 0, len(e.Fields)*2)
		for _, f := range e.Fields {
			flat = append(flat, f.Name, f.Value)
		}
		if err := w.WriteBulkArray(flat); err != nil {
			return err
		}
	}
	return nil
}

// XREAD [BLOCK milliseconds] STREAMS key [key ...] id [id ...]
func cmdXRead(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	rest := args[1:]
	var blockMs int64 = -1
	if len(rest) >= 2 && strings.ToUpper(string(rest[0])) == "BLOCK" {
		ms, err := strconv.ParseInt(string(rest[1]), 10, 64)
		if err != nil {
			return false, w.WriteError("ERR timeout is not an integer or out of range")
		}
		blockMs = ms
		rest = rest[2:]
	}
	if len(rest) < 3 || strings.ToUpper(string(rest[0])) != "STREAMS" {
		return false, w.WriteError("ERR syntax error")
	}
	rest = rest[1:]
	if len(rest)%2 != 0 {
		return false, w.WriteError("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified")
	}
	n := len(rest) / 2
	keys := rest[:n]
	ids := rest[n:]

	type pending struct {
		key string
		st  *stream.Stream
		id  stream.ID
	}
	waits := make([]pending, n)
	for i := range keys {
		st := d.Streams.GetOrCreate(string(keys[i]))
		idSpec := string(ids[i])
		var id stream.ID
		if idSpec == "$" {
			id = st.LastID()
		} else {
			parsed, err := stream.ParseID(idSpec)
			if err != nil {
				return false, w.WriteError(err.Error())
			}
			id = parsed
		}
		waits[i] = pending{key: string(keys[i]), st: st, id: id}
	}

	collect := func() map[string][]stream.Entry {
		out := make(map[string][]stream.Entry)
		for _, p := range waits {
			entries := p.st.After(p.id)
			if len(entries) > 0 {
				out[p.key] = entries
			}
		}
		return out
	}

	results := collect()
	if len(results) == 0 && blockMs >= 0 {
		blockCtx := ctx
		var cancel context.CancelFunc
		if blockMs > 0 {
			blockCtx, cancel = context.WithTimeout(blockCtx, time.Duration(blockMs)*time.Millisecond)
			defer cancel()
		}
		// Several streams may be listed, each with its own notification
		// channel. Fan out a Wait per stream against the shared context
		// so any one of them waking (or the client disconnecting) ends
		// the block; a single sequential Wait would starve the later
		// streams of the shared timeout budget.
		woke := make(chan struct{}, len(waits))
		waitCtx, cancelWaits := context.WithCancel(blockCtx)
		for _, p := range waits {
			go func(p pending) {
				p.st.Wait(waitCtx, p.id, 0)
				select {
				case woke <- struct{}{}:
				default:
				}
			}(p)
		}
		<-woke
		cancelWaits()
		results = collect()
	}
	if len(results) == 0 {
		return false, w.WriteNullArray()
	}
	if err := w.WriteArrayHeader(len(results)); err != nil {
		return false, err
	}
	for _, p := range waits {
		entries, ok := results[p.key]
		if !ok {
			continue
		}
		if err := w.WriteArrayHeader(2); err != nil {
			return false, err
		}
		if err := w.WriteBulkString(p.key); err != nil {
			return false, err
		}
		if err := writeEntries(w, entries); err != nil {
			return false, err
		}
	}
	return false, nil
}
