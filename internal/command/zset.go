package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
)

func registerZSet(reg registerFunc) {
	reg("ZADD", atLeast(4), cmdZAdd)
	reg("ZREM", atLeast(3), cmdZRem)
	reg("ZRANGE", exactly(4), cmdZRange)
	reg("ZRANGEBYSCORE", exactly(4), cmdZRangeByScore)
	reg("ZRANK", exactly(3), cmdZRank)
	reg("ZREVRANK", exactly(3), cmdZRevRank)
	reg("ZSCORE", exactly(3), cmdZScore)
	reg("ZCARD", exactly(2), cmdZCard)
	reg("ZCOUNT", exactly(4), cmdZCount)
}

// ZADD key [NX|XX] [GT|LT] [CH] [INCR] score member [score member ...]
func cmdZAdd(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	var opt store.ZAddOptions
	rest := args[2:]
	for len(rest) > 0 {
		switch strings.ToUpper(string(rest[0])) {
		case "NX":
			opt.NX = true
		case "XX":
			opt.XX = true
		case "GT":
			opt.GT = true
		case "LT":
			opt.LT = true
		case "CH":
			opt.CH = true
		case "INCR":
			opt.Incr = true
		default:
			goto parsed
		}
		rest = rest[1:]
	}
parsed:
	if opt.NX && opt.XX {
		return false, w.WriteError(store.ErrSyntax.Error())
	}
	if opt.GT && opt.LT {
		return false, w.WriteError(store.ErrSyntax.Error())
	}
	if opt.NX && (opt.GT || opt.LT) {
		return false, w.WriteError(store.ErrSyntax.Error())
	}
	if len(rest) == 0 || len(rest)%2 != 0 {
		return false, w.WriteError(store.ErrSyntax.Error())
	}
	if opt.Incr && len(rest) != 2 {
		return false, w.WriteError("ERR INCR option supports a single increment-element pair")
	}
	pairs := make([]store.ZMember, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		score, err := strconv.ParseFloat(string(rest[i]), 64)
		if err != nil {
			return false, w.WriteError(store.ErrNotFloat.Error())
		}
		pairs = append(pairs, store.ZMember{Member: rest[i+1], Score: score})
	}
	count, incrResult, incrOK, err := d.Store.ZAdd(string(args[1]), opt, pairs)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if opt.Incr {
		if !incrOK {
			return false, w.WriteNullBulk()
		}
		return true, w.WriteBulkString(strconv.FormatFloat(incrResult, 'f', -1, 64))
	}
	return count > 0, w.WriteInteger(int64(count))
}

func cmdZRem(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.ZRem(string(args[1]), args[2:])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return n > 0, w.WriteInteger(int64(n))
}

func cmdZRange(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	start, err1 := strconv.Atoi(string(args[2]))
	stop, err2 := strconv.Atoi(string(args[3]))
	if err1 != nil || err2 != nil {
		return false, w.WriteError(store.ErrNotInteger.Error())
	}
	members, err := d.Store.ZRange(string(args[1]), start, stop)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(membersToBulk(members))
}

func cmdZRangeByScore(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	min, err1 := strconv.ParseFloat(string(args[2]), 64)
	max, err2 := strconv.ParseFloat(string(args[3]), 64)
	if err1 != nil || err2 != nil {
		return false, w.WriteError(store.ErrNotFloat.Error())
	}
	members, err := d.Store.ZRangeByScore(string(args[1]), min, max)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(membersToBulk(members))
}

func cmdZRank(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	rank, ok, err := d.Store.ZRank(string(args[1]), args[2])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return false, w.WriteInteger(int64(rank))
}

func cmdZRevRank(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	rank, ok, err := d.Store.ZRevRank(string(args[1]), args[2])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return false, w.WriteInteger(int64(rank))
}

func cmdZScore(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	score, ok, err := d.Store.ZScore(string(args[1]), args[2])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return false, w.WriteBulkString(strconv.FormatFloat(score, 'f', -1, 64))
}

func cmdZCard(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.ZCard(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(int64(n))
}

func cmdZCount(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	min, err1 := strconv.ParseFloat(string(args[2]), 64)
	max, err2 := strconv.ParseFloat(string(args[3]), 64)
	if err1 != nil || err2 != nil {
		return false, w.WriteError(store.ErrNotFloat.Error())
	}
	n, err := d.Store.ZCount(string(args[1]), min, max)
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(int64(n))
}

func membersToBulk(members []store.ZMember) [][]byte {
	out := make([][]byte, 0, len(members)*2)
	for _, m := range members {
		out = append(out, m.Member, []byte(strconv.FormatFloat(m.Score, 'f', -1, 64)))
	}
	return out
}
