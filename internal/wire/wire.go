package wire

import (
	"errors"
	"io"
	"math/big"
	"math/bits"
)

// Record codes, stored in the low 3 bits of every header byte.
const (
	Int   byte = 0
	Extra byte = 1
	NInt  byte = 2
	Text  byte = 3
	Bin   byte = 4
	CRef  byte = 5
	List  byte = 6
	Dict  byte = 7
)

// Extra subcodes carried in the value field of an Extra header.
const (
	DZero       = 0
	FZero       = 1
	DOne        = 2
	FOne        = 3
	DMinusOne   = 4
	FMinusOne   = 5
	TFloat      = 6 // reserved, never written
	TDouble     = 7
	TObject     = 8 // 8..11 reserved, rejected on decode
	TMethod     = 9
	TFunction   = 10
	TGlobRef    = 11
	TTrue       = 12
	TFalse      = 13
	TCompressed = 14
	TTime       = 15
	StreamMode  = 16
)

const (
	// largest value stored directly in the 5-bit field
	maxInline = 22
	// field value announcing a varint-prefixed magnitude
	fieldVarLen = 31

	// MaxMagnitudeBytes bounds the byte length of a varint-prefixed magnitude.
	MaxMagnitudeBytes = 1 << 24
)

var (
	ErrMagnitudeTooLarge = errors.New("boss: header magnitude too large")
)

// Header is a decoded record header. Big is set only when the magnitude
// does not fit in 64 bits; Value is then zero.
type Header struct {
	Code  byte
	Value uint64
	Big   *big.Int
}

// SizeBytes returns the minimal number of little-endian bytes (at least 1)
// needed to hold v.
func SizeBytes(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 7) / 8
}

// AppendHeader appends the header for (code, value) to dst.
func AppendHeader(dst []byte, code byte, value uint64) []byte {
	if value <= maxInline {
		return append(dst, code|byte(value)<<3)
	}
	n := SizeBytes(value)
	dst = append(dst, code|byte(n+maxInline)<<3)
	for i := 0; i < n; i++ {
		dst = append(dst, byte(value))
		value >>= 8
	}
	return dst
}

// AppendHeaderBig appends the header for an arbitrary non-negative
// magnitude. Magnitudes that need 9 or more bytes use the varint length
// escape. The caller guarantees v >= 0.
func AppendHeaderBig(dst []byte, code byte, v *big.Int) []byte {
	if v.IsUint64() {
		return AppendHeader(dst, code, v.Uint64())
	}
	// past 64 bits, so at least 9 bytes
	be := v.Bytes()
	n := len(be)
	dst = append(dst, code|fieldVarLen<<3)
	dst = AppendVarint(dst, uint64(n))
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, be[i])
	}
	return dst
}

// ReadHeader reads one record header. io.EOF is returned untouched when the
// source is exhausted before the first byte; any later shortage is
// io.ErrUnexpectedEOF.
func ReadHeader(r io.ByteReader) (Header, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Header{}, err
	}
	h := Header{Code: b & 7}
	field := int(b >> 3)
	switch {
	case field <= maxInline:
		h.Value = uint64(field)
		return h, nil
	case field < fieldVarLen:
		h.Value, err = readUint(r, field-maxInline)
		return h, unexpected(err)
	}

	n, err := ReadVarint(r)
	if err != nil {
		return Header{}, err
	}
	if n > MaxMagnitudeBytes {
		return Header{}, ErrMagnitudeTooLarge
	}
	if n <= 8 {
		h.Value, err = readUint(r, int(n))
		return h, unexpected(err)
	}
	be := make([]byte, n)
	for i := int(n) - 1; i >= 0; i-- {
		c, err := r.ReadByte()
		if err != nil {
			return Header{}, unexpected(err)
		}
		be[i] = c
	}
	v := new(big.Int).SetBytes(be)
	if v.IsUint64() {
		h.Value = v.Uint64()
	} else {
		h.Big = v
	}
	return h, nil
}

func readUint(r io.ByteReader, n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(c) << (8 * i)
	}
	return v, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
