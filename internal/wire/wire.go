package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1
	kindList  byte = 2
	kindCount byte = 3
)

var (
	ErrCorrupt = errors.New("swrcache: corrupt entry")
	magic4     = [...]byte{'S', 'W', 'R', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | kind(1=entry) | fetchedAt(i64 be, unixnano) | vlen(u32 be) | payload(vlen)
//
// fetchedAt records when the payload was produced by a fetch, so a fresh
// process can restore the deduplication clock from a shared store. Decoding is
// strict: trailing bytes beyond the framed payload are treated as corruption.
func EncodeEntry(fetchedAt int64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(fetchedAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeEntry(b []byte) (fetchedAt int64, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return 0, nil, ErrCorrupt
	}

	off := 6

	fetchedAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // strict: payload must end the frame
		return 0, nil, ErrCorrupt
	}

	return fetchedAt, b[off : off+vlen], nil
}

// List: magic(4) | ver(1) | kind(1=list) | fetchedAt(i64 be) | n(u32 be)
//
//	vlen(u32 be) | payload(vlen)  * n
//
// Items are positional (page index i stored at slot i); keys are not framed
// because the walk re-derives them from the loader on every cycle.
func EncodeList(fetchedAt int64, payloads [][]byte) []byte {
	total := 4 + 1 + 1 + 8 + 4
	for _, p := range payloads {
		total += 4 + len(p)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindList)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(fetchedAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payloads)))
	buf.Write(u4[:])

	for _, p := range payloads {
		binary.BigEndian.PutUint32(u4[:], uint32(len(p)))
		buf.Write(u4[:])
		buf.Write(p)
	}

	return buf.Bytes()
}

func DecodeList(b []byte) (fetchedAt int64, payloads [][]byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindList {
		return 0, nil, ErrCorrupt
	}

	off := 6

	fetchedAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 {
		return 0, nil, ErrCorrupt
	}

	// cap preallocation by remaining bytes so a bogus n cannot balloon memory
	capN := n
	if capN > len(b)-off {
		capN = len(b) - off
	}
	payloads = make([][]byte, 0, capN)
	for i := 0; i < n; i++ {
		if off+4 > len(b) {
			return 0, nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off {
			return 0, nil, ErrCorrupt
		}
		payloads = append(payloads, b[off:off+vlen])
		off += vlen
	}
	if off != len(b) { // strict: no trailing bytes after the last item
		return 0, nil, ErrCorrupt
	}

	return fetchedAt, payloads, nil
}

// Count: magic(4) | ver(1) | kind(1=count) | count(i64 be)
//
// Holds the persisted page count for a sequence. Signed so that callers that
// set unusual sizes round-trip them unchanged.
func EncodeCount(n int64) []byte {
	var b [4 + 1 + 1 + 8]byte
	copy(b[:4], magic4[:])
	b[4] = version
	b[5] = kindCount
	binary.BigEndian.PutUint64(b[6:], uint64(n))
	return b[:]
}

func DecodeCount(b []byte) (int64, error) {
	const frame = 4 + 1 + 1 + 8
	if len(b) != frame || !hasMagic(b) || b[4] != version || b[5] != kindCount {
		return 0, ErrCorrupt
	}
	return int64(binary.BigEndian.Uint64(b[6:])), nil
}
