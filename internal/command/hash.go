package command

import (
	"context"
	"strconv"

	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
)

func registerHash(reg registerFunc) {
	reg("HSET", func(argc int) bool { return argc >= 4 && argc%2 == 0 }, cmdHSet)
	reg("HSETNX", exactly(4), cmdHSetNX)
	reg("HGET", exactly(3), cmdHGet)
	reg("HMGET", atLeast(3), cmdHMGet)
	reg("HGETALL", exactly(2), cmdHGetAll)
	reg("HDEL", atLeast(3), cmdHDel)
	reg("HEXISTS", exactly(3), cmdHExists)
	reg("HLEN", exactly(2), cmdHLen)
	reg("HKEYS", exactly(2), cmdHKeys)
	reg("HVALS", exactly(2), cmdHVals)
	reg("HINCRBY", exactly(4), cmdHIncrBy)
}

func cmdHSet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	pairs := make(map[string][]byte, (len(args)-2)/2)
	for i := 2; i < len(args); i += 2 {
		pairs[string(args[i])] = args[i+1]
	}
	if err := d.Store.HSet(string(args[1]), pairs); err != nil {
		return false, w.WriteError(err.Error())
	}
	return true, w.WriteSimpleString("OK")
}

func cmdHSetNX(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	ok, err := d.Store.HSetNX(string(args[1]), string(args[2]), args[3])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return ok, w.WriteInteger(boolToInt(ok))
}

func cmdHGet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	v, ok, err := d.Store.HGet(string(args[1]), string(args[2]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return false, w.WriteBulk(v)
}

func cmdHMGet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	fields := make([]string, 0, len(args)-2)
	for _, f := range args[2:] {
		fields = append(fields, string(f))
	}
	vals, err := d.Store.HMGet(string(args[1]), fields)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(vals)
}

func cmdHGetAll(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	vals, err := d.Store.HGetAll(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(vals)
}

func cmdHDel(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	fields := make([]string, 0, len(args)-2)
	for _, f := range args[2:] {
		fields = append(fields, string(f))
	}
	n, err := d.Store.HDel(string(args[1]), fields)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return n > 0, w.WriteInteger(int64(n))
}

func cmdHExists(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	ok, err := d.Store.HExists(string(args[1]), string(args[2]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(boolToInt(ok))
}

func cmdHLen(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.HLen(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(int64(n))
}

func cmdHKeys(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	keys, err := d.Store.HKeys(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return false, w.WriteBulkArray(out)
}

func cmdHVals(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	vals, err := d.Store.HVals(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(vals)
}

func cmdHIncrBy(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	delta, err := strconv.ParseInt(string(args[3]), 10, 64)
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	next, err := d.Store.HIncrBy(string(args[1]), string(args[2]), delta)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return true, w.WriteInteger(next)
}
