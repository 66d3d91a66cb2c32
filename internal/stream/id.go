// Package stream implements the ordered per-stream entry index of
// spec §4.3: id generation, range queries, and blocking reads. Streams
// live in their own namespace, separate from internal/store's keyspace
// (spec §3).
package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ID identifies a stream entry by its (ms, seq) pair.
type ID struct {
	Ms, Seq uint64
}

func (id ID) String() string {
	return fmt.Sprintf("%d-%d", id.Ms, id.Seq)
}

// Compare orders ids lexicographically on (Ms, Seq): -1, 0, 1.
func (id ID) Compare(o ID) int {
	switch {
	case id.Ms < o.Ms:
		return -1
	case id.Ms > o.Ms:
		return 1
	case id.Seq < o.Seq:
		return -1
	case id.Seq > o.Seq:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether id is the always-invalid 0-0.
func (id ID) IsZero() bool { return id.Ms == 0 && id.Seq == 0 }

// ErrInvalidID is returned for a literal id that parses but is 0-0 or
// not syntactically a ms-seq pair.
var ErrInvalidID = errors.New("ERR Invalid stream ID specified as stream command argument")

// ParseID parses a strict "ms-seq" or bare "ms" (seq defaults to 0)
// literal, as used by XRANGE bounds and explicit XADD ids.
func ParseID(s string) (ID, error) {
	ms, seq, hasSeq := strings.Cut(s, "-")
	msv, err := strconv.ParseUint(ms, 10, 64)
	if err != nil {
		return ID{}, ErrInvalidID
	}
	var seqv uint64
	if hasSeq {
		seqv, err = strconv.ParseUint(seq, 10, 64)
		if err != nil {
			return ID{}, ErrInvalidID
		}
	}
	return ID{Ms: msv, Seq: seqv}, nil
}
