package command

import (
	"context"

	"github.com/jameswagner/coolcache/internal/resp"
)

func registerSet(reg registerFunc) {
	reg("SADD", atLeast(3), cmdSAdd)
	reg("SREM", atLeast(3), cmdSRem)
	reg("SISMEMBER", exactly(3), cmdSIsMember)
	reg("SCARD", exactly(2), cmdSCard)
	reg("SMEMBERS", exactly(2), cmdSMembers)
	reg("SPOP", exactly(2), cmdSPop)
	reg("SRANDMEMBER", exactly(2), cmdSRandMember)
	reg("SUNION", atLeast(2), cmdSUnion)
	reg("SINTER", atLeast(2), cmdSInter)
	reg("SDIFF", atLeast(2), cmdSDiff)
	reg("SMOVE", exactly(4), cmdSMove)
}

func cmdSAdd(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.SAdd(string(args[1]), args[2:])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return n > 0, w.WriteInteger(int64(n))
}

func cmdSRem(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.SRem(string(args[1]), args[2:])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return n > 0, w.WriteInteger(int64(n))
}

func cmdSIsMember(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	ok, err := d.Store.SIsMember(string(args[1]), args[2])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(boolToInt(ok))
}

func cmdSCard(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	n, err := d.Store.SCard(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteInteger(int64(n))
}

func cmdSMembers(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	members, err := d.Store.SMembers(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(members)
}

func cmdSPop(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	v, ok, err := d.Store.SPop(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return true, w.WriteBulk(v)
}

func cmdSRandMember(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	v, ok, err := d.Store.SRandMember(string(args[1]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	if !ok {
		return false, w.WriteNullBulk()
	}
	return false, w.WriteBulk(v)
}

func cmdSUnion(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	members, err := d.Store.SUnion(keysFrom(args[1:]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(members)
}

func cmdSInter(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	members, err := d.Store.SInter(keysFrom(args[1:]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(members)
}

func cmdSDiff(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	members, err := d.Store.SDiff(keysFrom(args[1:]))
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return false, w.WriteBulkArray(members)
}

func cmdSMove(ctx context.Context, d *Dispatcher, args [][]byte, w *resp.Writer) (bool, error) {
	ok, err := d.Store.SMove(string(args[1]), string(args[2]), args[3])
	if err != nil {
		return false, w.WriteError(err.Error())
	}
	return ok, w.WriteInteger(boolToInt(ok))
}

func keysFrom(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}
