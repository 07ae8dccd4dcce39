package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindValue byte = 1

	hdrLen = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt = errors.New("gridcache: corrupt entry")
	magic4     = [...]byte{'G', 'R', 'D', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Value: magic(4) | ver(1) | kind(1=value) | vlen(u32 be) | payload(vlen)
func EncodeValue(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindValue)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeValue returns the payload framed by EncodeValue. The payload aliases b.
// Trailing bytes after the payload are rejected.
func DecodeValue(b []byte) ([]byte, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindValue {
		return nil, ErrCorrupt
	}

	off := 6
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // strict framing
		return nil, ErrCorrupt
	}
	return b[off : off+vlen], nil
}
