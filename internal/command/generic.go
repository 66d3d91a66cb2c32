package command

import (
	"context"
	"strconv"
	"time"

	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
)

func registerGeneric(reg registerFunc) {
	reg("DEL", atLeast(2), cmdDel)
	reg("EXISTS", atLeast(2), cmdExists)
	reg("TYPE", exactly(2), cmdType)
	reg("EXPIRE", exactly(3), cmdExpire)
	reg("PEXPIRE", exactly(3), cmdPExpire)
	reg("TTL", exactly(2), cmdTTL)
	reg("PTTL", exactly(2), cmdPTTL)
	reg("PERSIST", exactly(2), cmdPersist)
	reg("KEYS", exactly(2), cmdKeys)
	reg("FLUSHALL", atLeast(1), cmdFlushAll)
}

func cmdDel(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	keys := make([]string, 0, len(args)-1)
	for _, k := range args[1:] {
		keys = append(keys, string(k))
	}
	n := d.Store.Del(keys...)
	return n > 0, w.WriteInteger(int64(n))
}

func cmdExists(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	keys := make([]string, 0, len(args)-1)
	for _, k := range args[1:] {
		keys = append(keys, string(k))
	}
	n := d.Store.Exists(keys...)
	return false, w.WriteInteger(int64(n))
}

func cmdType(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	kind := d.Store.Type(string(args[1]))
	return false, w.WriteSimpleString(kind.String())
}

func cmdExpire(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	secs, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	ok := d.Store.Expire(string(args[1]), time.Duration(secs)*time.Second)
	return ok, w.WriteInteger(boolToInt(ok))
}

func cmdPExpire(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	ms, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	ok := d.Store.Expire(string(args[1]), time.Duration(ms)*time.Millisecond)
	return ok, w.WriteInteger(boolToInt(ok))
}

func cmdTTL(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return false, w.WriteInteger(d.Store.TTL(string(args[1])))
}

func cmdPTTL(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return false, w.WriteInteger(d.Store.PTTL(string(args[1])))
}

func cmdPersist(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	ok := d.Store.Persist(string(args[1]))
	return ok, w.WriteInteger(boolToInt(ok))
}

func cmdKeys(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	keys := d.Store.Keys(string(args[1]))
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return false, w.WriteBulkArray(out)
}

func cmdFlushAll(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	d.Store.FlushAll()
	return true, w.WriteSimpleString("OK")
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
