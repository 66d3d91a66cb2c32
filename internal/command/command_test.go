package command_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jameswagner/coolcache/internal/command"
	"github.com/jameswagner/coolcache/internal/logging"
	"github.com/jameswagner/coolcache/internal/resp"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

type fakePersister struct {
	saved, bgSaved int
}

func (f *fakePersister) Save() error   { f.saved++; return nil }
func (f *fakePersister) BGSave() error { f.bgSaved++; return nil }
func (f *fakePersister) LastSaveUnix() int64 { return 1700000000 }

type fakeReplicator struct {
	propagated [][][]byte
}

func (f *fakeReplicator) Propagate(args [][]byte)          { f.propagated = append(f.propagated, args) }
func (f *fakeReplicator) Wait(timeoutMs int64, n int) int   { return 0 }
func (f *fakeReplicator) AckCount(offset int64) int         { return 0 }
func (f *fakeReplicator) ReplicaCount() int                 { return 0 }
func (f *fakeReplicator) ReplicationID() string              { return "test-run-id" }
func (f *fakeReplicator) Offset() int64                      { return 0 }

func newTestDispatcher() (*command.Dispatcher, *fakeReplicator) {
	repl := &fakeReplicator{}
	d := command.New(store.New(), stream.NewIndex(), &fakePersister{}, repl, logging.Nop(), nil)
	return d, repl
}

func run(t *testing.T, d *command.Dispatcher, args ...string) string {
	t.Helper()
	byteArgs := make([][]byte, len(args))
	for i, a := range args {
		byteArgs[i] = []byte(a)
	}
	var buf bytes.Buffer
	w := resp.NewWriter(&buf)
	require.NoError(t, d.Dispatch(context.Background(), byteArgs, w))
	require.NoError(t, w.Flush())
	return buf.String()
}

func TestSetGetRoundTrip(t *testing.T) {
	d, repl := newTestDispatcher()
	assert.Equal(t, "+OK\r\n", run(t, d, "SET", "foo", "bar"))
	assert.Equal(t, "$3\r\nbar\r\n", run(t, d, "GET", "foo"))
	require.Len(t, repl.propagated, 1)
	assert.Equal(t, "SET", string(repl.propagated[0][0]))
}

func TestGetMissingIsNullBulk(t *testing.T) {
	d, _ := newTestDispatcher()
	assert.Equal(t, "$-1\r\n", run(t, d, "GET", "nope"))
}

func TestWrongTypeError(t *testing.T) {
	d, _ := newTestDispatcher()
	run(t, d, "LPUSH", "list", "a")
	assert.Equal(t, "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n", run(t, d, "GET", "list"))
}

func TestIncrByNonIntegerError(t *testing.T) {
	d, _ := newTestDispatcher()
	run(t, d, "SET", "n", "notanumber")
	assert.Equal(t, "-ERR value is not an integer or out of range\r\n", run(t, d, "INCR", "n"))
}

func TestWrongArity(t *testing.T) {
	d, _ := newTestDispatcher()
	assert.Equal(t, "-ERR wrong number of arguments for 'get' command\r\n", run(t, d, "GET"))
}

func TestUnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher()
	assert.Equal(t, "-ERR unknown command\r\n", run(t, d, "FROBNICATE"))
}

func TestLInsertPivotNotFoundIsNullBulk(t *testing.T) {
	d, _ := newTestDispatcher()
	run(t, d, "RPUSH", "list", "a", "b", "c")
	assert.Equal(t, "$-1\r\n", run(t, d, "LINSERT", "list", "BEFORE", "zzz", "x"))
}

func TestZAddRejectsMutuallyExclusiveOptions(t *testing.T) {
	d, _ := newTestDispatcher()
	for _, args := range [][]string{
		{"ZADD", "z", "NX", "XX", "1", "a"},
		{"ZADD", "z", "GT", "LT", "1", "a"},
		{"ZADD", "z", "GT", "NX", "1", "a"},
		{"ZADD", "z", "LT", "NX", "1", "a"},
	} {
		assert.Equal(t, "-ERR syntax error\r\n", run(t, d, args...), "args=%v", args)
	}
}

func TestXReadBlockReturnsOnNewEntry(t *testing.T) {
	d, _ := newTestDispatcher()
	run(t, d, "XADD", "s", "1-1", "f", "v")

	done := make(chan string, 1)
	go func() {
		done <- run(t, d, "XREAD", "BLOCK", "0", "STREAMS", "s", "$")
	}()

	time.Sleep(20 * time.Millisecond)
	run(t, d, "XADD", "s", "2-1", "f", "v2")

	select {
	case out := <-done:
		assert.Contains(t, out, "2-1")
	case <-time.After(time.Second):
		t.Fatal("XREAD BLOCK did not unblock on new entry")
	}
}

func TestXReadBlockAbortsOnContextCancel(t *testing.T) {
	d, _ := newTestDispatcher()
	run(t, d, "XADD", "s", "1-1", "f", "v")

	ctx, cancel := context.WithCancel(context.Background())
	byteArgs := [][]byte{[]byte("XREAD"), []byte("BLOCK"), []byte("0"), []byte("STREAMS"), []byte("s"), []byte("$")}
	var buf bytes.Buffer
	w := resp.NewWriter(&buf)

	done := make(chan error, 1)
	go func() { done <- d.Dispatch(ctx, byteArgs, w) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		require.NoError(t, w.Flush())
		assert.Equal(t, "*-1\r\n", buf.String())
	case <-time.After(time.Second):
		t.Fatal("XREAD BLOCK did not abort on context cancel")
	}
}

func TestPushXOnMissingKeyDoesNotPropagate(t *testing.T) {
	d, repl := newTestDispatcher()
	assert.Equal(t, ":0\r\n", run(t, d, "LPUSHX", "missing", "v"))
	assert.Empty(t, repl.propagated)
}

func TestZAddAndRange(t *testing.T) {
	d, _ := newTestDispatcher()
	run(t, d, "ZADD", "z", "1", "a", "2", "b")
	out := run(t, d, "ZRANGE", "z", "0", "-1")
	assert.Equal(t, "*4\r\n$1\r\na\r\n$1\r\n1\r\n$1\r\nb\r\n$1\r\n2\r\n", out)
}

func TestXAddAndRange(t *testing.T) {
	d, _ := newTestDispatcher()
	out := run(t, d, "XADD", "stream1", "1-1", "field", "value")
	assert.Equal(t, "$3\r\n1-1\r\n", out)
	out = run(t, d, "XRANGE", "stream1", "-", "+")
	assert.Contains(t, out, "field")
}

func TestSaveDelegatesToPersister(t *testing.T) {
	repl := &fakeReplicator{}
	persist := &fakePersister{}
	d := command.New(store.New(), stream.NewIndex(), persist, repl, logging.Nop(), nil)
	assert.Equal(t, "+OK\r\n", run(t, d, "SAVE"))
	assert.Equal(t, 1, persist.saved)
}

func TestWaitDelegatesToReplicator(t *testing.T) {
	d, _ := newTestDispatcher()
	assert.Equal(t, ":0\r\n", run(t, d, "WAIT", "0", "100"))
}
