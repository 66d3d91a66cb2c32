package rdb

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

// Write renders the keyspace snapshot and the stream namespace to w in
// the on-disk format of spec §4.8: header, a single database selector
// with a resize hint, one record per key (string/list/set/hash/zset
// entries prefixed by an expiry opcode when they carry a TTL, streams
// by their own type marker), then EOF.
func Write(w io.Writer, snap store.Snapshot, streams map[string][]stream.Entry) error {
	if _, err := w.Write(Magic); err != nil {
		return err
	}
	if _, err := w.Write(Version); err != nil {
		return err
	}

	var buf []byte
	buf = append(buf, OpSelectDB, 0x00, OpResizeDB)
	buf = EncodeLength(buf, uint32(len(snap.Entries)+len(streams)))
	expiring := 0
	for _, e := range snap.Entries {
		if e.HasTTL {
			expiring++
		}
	}
	buf = EncodeLength(buf, uint32(expiring))
	if _, err := w.Write(buf); err != nil {
		return err
	}

	for key, e := range snap.Entries {
		if err := writeEntry(w, key, e); err != nil {
			return err
		}
	}
	for key, entries := range streams {
		if err := writeStream(w, key, entries); err != nil {
			return err
		}
	}

	_, err := w.Write([]byte{OpEOF})
	return err
}

func writeExpiry(w io.Writer, e store.SnapshotEntry) error {
	if !e.HasTTL {
		return nil
	}
	ms := e.ExpireAt.UnixMilli()
	if ms >= 0 && ms <= math.MaxUint32*1000 && ms%1000 == 0 && ms/1000 <= math.MaxUint32 {
		var tmp [5]byte
		tmp[0] = OpExpireS
		binary.LittleEndian.PutUint32(tmp[1:], uint32(ms/1000))
		_, err := w.Write(tmp[:])
		return err
	}
	var tmp [9]byte
	tmp[0] = OpExpireMs
	binary.LittleEndian.PutUint64(tmp[1:], uint64(ms))
	_, err := w.Write(tmp[:])
	return err
}

func writeEntry(w io.Writer, key string, e store.SnapshotEntry) error {
	if err := writeExpiry(w, e); err != nil {
		return err
	}
	var typeByte byte
	switch e.Kind {
	case store.KindString:
		typeByte = TypeString
	case store.KindList:
		typeByte = TypeList
	case store.KindSet:
		typeByte = TypeSet
	case store.KindHash:
		typeByte = TypeHash
	case store.KindZSet:
		typeByte = TypeZSet
	default:
		return nil
	}
	buf := []byte{typeByte}
	buf = EncodeString(buf, []byte(key))
	switch e.Kind {
	case store.KindString:
		buf = EncodeString(buf, e.Str)
	case store.KindList:
		buf = EncodeLength(buf, uint32(len(e.List)))
		for _, v := range e.List {
			buf = EncodeString(buf, v)
		}
	case store.KindSet:
		buf = EncodeLength(buf, uint32(len(e.Set)))
		for m := range e.Set {
			buf = EncodeString(buf, []byte(m))
		}
	case store.KindHash:
		buf = EncodeLength(buf, uint32(len(e.Hash)))
		for f, v := range e.Hash {
			buf = EncodeString(buf, []byte(f))
			buf = EncodeString(buf, v)
		}
	case store.KindZSet:
		buf = EncodeLength(buf, uint32(len(e.ZSet)))
		for _, m := range e.ZSet {
			buf = EncodeString(buf, m.Member)
			var sc [8]byte
			binary.LittleEndian.PutUint64(sc[:], math.Float64bits(m.Score))
			buf = append(buf, sc[:]...)
		}
	}
	_, err := w.Write(buf)
	return err
}

func writeStream(w io.Writer, key string, entries []stream.Entry) error {
	buf := []byte{TypeStream}
	buf = EncodeString(buf, []byte(key))
	buf = EncodeLength(buf, uint32(len(entries)))
	for _, e := range entries {
		var idBuf [16]byte
		binary.LittleEndian.PutUint64(idBuf[0:8], e.ID.Ms)
		binary.LittleEndian.PutUint64(idBuf[8:16], e.ID.Seq)
		buf = append(buf, idBuf[:]...)
		buf = EncodeLength(buf, uint32(len(e.Fields)))
		for _, f := range e.Fields {
			buf = EncodeString(buf, f.Name)
			buf = EncodeString(buf, f.Value)
		}
	}
	_, err := w.Write(buf)
	return err
}
