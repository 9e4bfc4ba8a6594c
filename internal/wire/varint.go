package wire

import (
	"errors"
	"io"
)

var ErrVarintOverflow = errors.New("boss: varint overflows uint64")

// AppendVarint appends n in 7-bit groups, least significant first. Every
// byte but the last has the high bit clear; the last one has it set.
//
//	0   -> [0x80]
//	127 -> [0xff]
//	128 -> [0x00 0x81]
func AppendVarint(dst []byte, n uint64) []byte {
	for n > 0x7f {
		dst = append(dst, byte(n&0x7f))
		n >>= 7
	}
	return append(dst, byte(n)|0x80)
}

// ReadVarint reads a varint written by AppendVarint.
func ReadVarint(r io.ByteReader) (uint64, error) {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, unexpected(err)
		}
		group := uint64(b & 0x7f)
		if shift > 63 || (shift == 63 && group > 1) {
			return 0, ErrVarintOverflow
		}
		v |= group << shift
		if b&0x80 != 0 {
			return v, nil
		}
	}
}
