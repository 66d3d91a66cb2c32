package resp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCommandSingle(t *testing.T) {
	buf := []byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")
	args, n, err := ReadCommand(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, [][]byte{[]byte("GET"), []byte("foo")}, args)
}

func TestReadCommandIncomplete(t *testing.T) {
	buf := []byte("*2\r\n$3\r\nGET\r\n$3\r\nfo")
	args, n, err := ReadCommand(buf)
	require.NoError(t, err)
	assert.Nil(t, args)
	assert.Zero(t, n)
}

func TestReadCommandPipelined(t *testing.T) {
	// Property: pipelined vs one-at-a-time parses to the same commands,
	// and reported consumed lengths always sum to the full buffer.
	one := []byte("*1\r\n$4\r\nPING\r\n")
	two := []byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	buf := append(append([]byte{}, one...), two...)

	var got [][][]byte
	total := 0
	for len(buf) > 0 {
		args, n, err := ReadCommand(buf)
		require.NoError(t, err)
		if n == 0 {
			t.Fatalf("unexpected incomplete parse")
		}
		got = append(got, args)
		buf = buf[n:]
		total += n
	}
	require.Len(t, got, 2)
	assert.Equal(t, [][]byte{[]byte("PING")}, got[0])
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("k"), []byte("v")}, got[1])
	assert.Equal(t, len(one)+len(two), total)
}

func TestReadCommandInline(t *testing.T) {
	args, n, err := ReadCommand([]byte("PING\r\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING")}, args)
	assert.Equal(t, 6, n)
}

func TestReadCommandMalformedSkipsLine(t *testing.T) {
	buf := []byte("*abc\r\n*1\r\n$4\r\nPING\r\n")
	args, n, err := ReadCommand(buf)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Nil(t, args)
	require.Greater(t, n, 0)

	// After skipping the bad line, the next command still parses.
	args, n, err = ReadCommand(buf[n:])
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING")}, args)
	assert.Equal(t, len(buf)-len("*abc\r\n"), n)
}

func TestWriterShapes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteSimpleString("OK"))
	require.NoError(t, w.WriteError("WRONGTYPE bad"))
	require.NoError(t, w.WriteInteger(42))
	require.NoError(t, w.WriteBulkString("bar"))
	require.NoError(t, w.WriteNullBulk())
	require.NoError(t, w.WriteBulkArray([][]byte{[]byte("a"), []byte("b")}))
	require.NoError(t, w.Flush())

	want := "+OK\r\n" + "-WRONGTYPE bad\r\n" + ":42\r\n" + "$3\r\nbar\r\n" + "$-1\r\n" +
		"*2\r\n$1\r\na\r\n$1\r\nb\r\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeCommandRoundTrip(t *testing.T) {
	args := [][]byte{[]byte("SET"), []byte("k"), []byte("v")}
	enc := EncodeCommand(args)
	got, n, err := ReadCommand(enc)
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)
	assert.Equal(t, args, got)
}
