package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
)

func registerString(reg registerFunc) {
	reg("SET", atLeast(3), cmdSet)
	reg("GET", exactly(2), cmdGet)
	reg("GETDEL", exactly(2), cmdGetDel)
	reg("STRLEN", exactly(2), cmdStrLen)
	reg("MSET", func(argc int) bool { return argc >= 3 && argc%2 == 1 }, cmdMSet)
	reg("MGET", atLeast(2), cmdMGet)
	reg("APPEND", exactly(3), cmdAppend)
	reg("INCR", exactly(2), cmdIncr)
	reg("DECR", exactly(2), cmdDecr)
	reg("INCRBY", exactly(3), cmdIncrBy)
	reg("DECRBY", exactly(3), cmdDecrBy)
	reg("INCRBYFLOAT", exactly(3), cmdIncrByFloat)
}

// SET key value [PX milliseconds]
func cmdSet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	opt := store.SetOptions{}
	rest := args[3:]
	for len(rest) > 0 {
		switch strings.ToUpper(string(rest[0])) {
		case "PX":
			if len(rest) < 2 {
				return false, w.WriteError(store.ErrSyntax.Error())
			}
			ms, err := strconv.ParseInt(string(rest[1]), 10, 64)
			if err != nil {
				return false, w.WriteError(store.ErrNotInteger.Error())
			}
			opt.HasPX = true
			opt.PXMs = time.Now().UnixMilli() + ms
			rest = rest[2:]
		default:
			return false, w.WriteError(store.ErrSyntax.Error())
		}
	}
	d.Store.Set(string(args[1]), args[2], opt)
	return true, w.WriteSimpleString("OK")
}

func cmdGet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	v, ok, err := d.Store.Get(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return false, w.WriteBulk(v)
}

func cmdGetDel(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	v, ok, err := d.Store.GetDel(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return true, w.WriteBulk(v)
}

func cmdStrLen(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.StrLen(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(int64(n))
}

func cmdMSet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	pairs := make(map[string][]byte, (len(args)-1)/2)
	for i := 1; i < len(args); i += 2 {
		pairs[string(args[i])] = args[i+1]
	}
	d.Store.MSet(pairs)
	return true, w.WriteSimpleString("OK")
}

func cmdMGet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	keys := make([]string, 0, len(args)-1)
	for _, k := range args[1:] {
		keys = append(keys, string(k))
	}
	return false, w.WriteBulkArray(d.Store.MGet(keys))
}

func cmdAppend(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.Append(string(args[1]), args[2])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return true, w.WriteInteger(int64(n))
}

func cmdIncr(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return incrByHelper(d, args[1], 1, w)
}

func cmdDecr(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return incrByHelper(d, args[1], -1, w)
}

func cmdIncrBy(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	delta, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	return incrByHelper(d, args[1], delta, w)
}

func cmdDecrBy(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	delta, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	return incrByHelper(d, args[1], -delta, w)
}

func incrByHelper(d *Dispatcher, key []byte, delta int64, w *resp.Writer) (bool, error) {
	next, err := d.Store.IncrBy(string(key), delta)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return true, w.WriteInteger(next)
}

func cmdIncrByFloat(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	delta, err := strconv.ParseFloat(string(args[2]), 64)
	if err != nil {
		return false, w.WriteError(store.ErrNotFloat.Error())
	}
	next, err := d.Store.IncrByFloat(string(args[1]), delta)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return true, w.WriteBulkString(strconv.FormatFloat(next, 'f', -1, 64))
}
