package rdb

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

// ErrBadMagic marks a file that doesn't start with the expected header.
var ErrBadMagic = errors.New("rdb: bad magic header")

// Read parses a snapshot file written by Write. Entries whose expiry is
// already in the past relative to now are dropped, per spec §4.8.
func Read(r io.Reader, now time.Time) (store.Snapshot, map[string][]stream.Entry, error) {
	snap := store.Snapshot{Entries: make(map[string]store.SnapshotEntry)}
	streams := make(map[string][]stream.Entry)

	var header [9]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return snap, streams, err
	}
	if !bytes.Equal(header[:5], Magic) {
		return snap, streams, ErrBadMagic
	}

	var pendingExpiry *time.Time
	for {
		var op [1]byte
		if _, err := io.ReadFull(r, op[:]); err != nil {
			if err == io.EOF {
				return snap, streams, nil
			}
			return snap, streams, err
		}
		switch op[0] {
		case OpEOF:
			return snap, streams, nil
		case OpSelectDB:
			var dbnum [1]byte
			if _, err := io.ReadFull(r, dbnum[:]); err != nil {
				return snap, streams, err
			}
		case OpResizeDB:
			if _, err := DecodeLength(r); err != nil {
				return snap, streams, err
			}
			if _, err := DecodeLength(r); err != nil {
				return snap, streams, err
			}
		case OpExpireMs:
			var tmp [8]byte
			if _, err := io.ReadFull(r, tmp[:]); err != nil {
				return snap, streams, err
			}
			t := time.UnixMilli(int64(binary.LittleEndian.Uint64(tmp[:])))
			pendingExpiry = &t
		case OpExpireS:
			var tmp [4]byte
			if _, err := io.ReadFull(r, tmp[:]); err != nil {
				return snap, streams, err
			}
			t := time.Unix(int64(binary.LittleEndian.Uint32(tmp[:])), 0)
			pendingExpiry = &t
		case TypeString, TypeList, TypeSet, TypeHash, TypeZSet:
			key, se, err := readEntry(r, op[0])
			if err != nil {
				return snap, streams, err
			}
			if pendingExpiry != nil {
				se.HasTTL = true
				se.ExpireAt = *pendingExpiry
				pendingExpiry = nil
				if !now.Before(se.ExpireAt) {
					continue
				}
			}
			snap.Entries[key] = se
		case TypeStream:
			key, entries, err := readStream(r)
			if err != nil {
				return snap, streams, err
			}
			pendingExpiry = nil
			streams[key] = entries
		default:
			return snap, streams, errors.Errorf("rdb: unknown opcode 0x%02x", op[0])
		}
	}
}

func readEntry(r io.Reader, typeByte byte) (string, store.SnapshotEntry, error) {
	keyBytes, err := DecodeString(r)
	if err != nil {
		return "", store.SnapshotEntry{}, err
	}
	key := string(keyBytes)
	switch typeByte {
	case TypeString:
		v, err := DecodeString(r)
		if err != nil {
			return "", store.SnapshotEntry{}, err
		}
		return key, store.SnapshotEntry{Kind: store.KindString, Str: v}, nil
	case TypeList:
		n, err := DecodeLength(r)
		if err != nil {
			return "", store.SnapshotEntry{}, err
		}
		list := make([][]byte, n)
		for i := range list {
			v, err := DecodeString(r)
			if err != nil {
				return "", store.SnapshotEntry{}, err
			}
			list[i] = v
		}
		return key, store.SnapshotEntry{Kind: store.KindList, List: list}, nil
	case TypeSet:
		n, err := DecodeLength(r)
		if err != nil {
			return "", store.SnapshotEntry{}, err
		}
		set := make(map[string]struct{}, n)
		for i := uint32(0); i < n; i++ {
			v, err := DecodeString(r)
			if err != nil {
				return "", store.SnapshotEntry{}, err
			}
			set[string(v)] = struct{}{}
		}
		return key, store.SnapshotEntry{Kind: store.KindSet, Set: set}, nil
	case TypeHash:
		n, err := DecodeLength(r)
		if err != nil {
			return "", store.SnapshotEntry{}, err
		}
		hash := make(map[string][]byte, n)
		for i := uint32(0); i < n; i++ {
			f, err := DecodeString(r)
			if err != nil {
				return "", store.SnapshotEntry{}, err
			}
			v, err := DecodeString(r)
			if err != nil {
				return "", store.SnapshotEntry{}, err
			}
			hash[string(f)] = v
		}
		return key, store.SnapshotEntry{Kind: store.KindHash, Hash: hash}, nil
	case TypeZSet:
		n, err := DecodeLength(r)
		if err != nil {
			return "", store.SnapshotEntry{}, err
		}
		members := make([]store.ZMember, n)
		for i := range members {
			m, err := DecodeString(r)
			if err != nil {
				return "", store.SnapshotEntry{}, err
			}
			var sc [8]byte
			if _, err := io.ReadFull(r, sc[:]); err != nil {
				return "", store.SnapshotEntry{}, err
			}
			members[i] = store.ZMember{Member: m, Score: math.Float64frombits(binary.LittleEndian.Uint64(sc[:]))}
		}
		return key, store.SnapshotEntry{Kind: store.KindZSet, ZSet: members}, nil
	}
	return "", store.SnapshotEntry{}, errors.Errorf("rdb: unknown type byte 0x%02x", typeByte)
}

func readStream(r io.Reader) (string, []stream.Entry, error) {
	keyBytes, err := DecodeString(r)
	if err != nil {
		return "", nil, err
	}
	n, err := DecodeLength(r)
	if err != nil {
		return "", nil, err
	}
	entries := make([]stream.Entry, n)
	for i := range entries {
		var idBuf [16]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return "", nil, err
		}
		id := stream.ID{
			Ms:  binary.LittleEndian.Uint64(idBuf[0:8]),
			Seq: binary.LittleEndian.Uint64(idBuf[8:16]),
		}
		fn, err := DecodeLength(r)
		if err != nil {
			return "", nil, err
		}
		fields := make([]stream.Field, fn)
		for j := range fields {
			name, err := DecodeString(r)
			if err != nil {
				return "", nil, err
			}
			value, err := DecodeString(r)
			if err != nil {
				return "", nil, err
			}
			fields[j] = stream.Field{Name: name, Value: value}
		}
		entries[i] = stream.Entry{ID: id, Fields: fields}
	}
	return string(keyBytes), entries, nil
}
