package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
)

func registerList(reg registerFunc) {
	reg("LPUSH", atLeast(3), cmdLPush)
	reg("RPUSH", atLeast(3), cmdRPush)
	reg("LPUSHX", atLeast(3), cmdLPushX)
	reg("RPUSHX", atLeast(3), cmdRPushX)
	reg("LPOP", exactly(2), cmdLPop)
	reg("RPOP", exactly(2), cmdRPop)
	reg("LLEN", exactly(2), cmdLLen)
	reg("LRANGE", exactly(4), cmdLRange)
	reg("LINDEX", exactly(3), cmdLIndex)
	reg("LSET", exactly(4), cmdLSet)
	reg("LINSERT", exactly(5), cmdLInsert)
	reg("LREM", exactly(4), cmdLRem)
	reg("RPOPLPUSH", exactly(3), cmdRPopLPush)
}

func cmdLPush(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return pushHelper(d, args, true, w)
}

func cmdRPush(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return pushHelper(d, args, false, w)
}

func pushHelper(d *Dispatcher, args [][]byte, left bool, w *resp.Writer) (bool, error) {
	n, err := d.Store.Push(string(args[1]), left, args[2:])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return true, w.WriteInteger(int64(n))
}

func cmdLPushX(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return pushXHelper(d, args, true, w)
}

func cmdRPushX(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return pushXHelper(d, args, false, w)
}

func pushXHelper(d *Dispatcher, args [][]byte, left bool, w *resp.Writer) (bool, error) {
	n, err, pushed := d.Store.PushX(string(args[1]), left, args[2:])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return pushed, w.WriteInteger(int64(n))
}

func cmdLPop(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return popHelper(d, args, true, w)
}

func cmdRPop(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	return popHelper(d, args, false, w)
}

func popHelper(d *Dispatcher, args [][]byte, left bool, w *resp.Writer) (bool, error) {
	v, ok, err := d.Store.Pop(string(args[1]), left)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return true, w.WriteBulk(v)
}

func cmdLLen(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.LLen(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(int64(n))
}

func cmdLRange(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	start, err1 := strconv.Atoi(string(args[2]))
	stop, err2 := strconv.Atoi(string(args[3]))
	if err1 != nil || err2 != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	items, err := d.Store.LRange(string(args[1]), start, stop)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(items)
}

func cmdLIndex(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	idx, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	v, ok, err := d.Store.LIndex(string(args[1]), idx)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return false, w.WriteBulk(v)
}

func cmdLSet(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	idx, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	ok, outOfRange, err := d.Store.LSet(string(args[1]), idx, args[3])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteError("ERR no such key")
	}
	if outOfRange {
		return false, w.WriteError("ERR index out of range")
	}
	return true, w.WriteSimpleString("OK")
}

func cmdLInsert(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	var before bool
	switch strings.ToUpper(string(args[2])) {
	case "BEFORE":
		before = true
	case "AFTER":
		before = false
	default:
		return false, w.WriteError(store.ErrSyntax.Error())
	}
	n, found, err := d.Store.LInsert(string(args[1]), before, args[3], args[4])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !found {
		return false, w.WriteNullBulk()
	}
	return true, w.WriteInteger(int64(n))
}

func cmdLRem(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	count, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	n, err := d.Store.LRem(string(args[1]), count, args[3])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return n > 0, w.WriteInteger(int64(n))
}

func cmdRPopLPush(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	v, ok, err := d.Store.RPopLPush(string(args[1]), string(args[2]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return true, w.WriteBulk(v)
}
