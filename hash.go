package boss

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// hasher computes structural hashes consistent with Equal. When memo is
// non-nil, container hashes are remembered by pointer; the memo is only valid
// while the hashed containers are not mutated.
type hasher struct {
	memo map[any]uint64
	buf  [9]byte
}

func hashValue(v Value) uint64 {
	var h hasher
	return h.sum(v)
}

func (h *hasher) sum(v Value) uint64 {
	switch x := v.(type) {
	case *List:
		if x == nil {
			return 0
		}
		if s, ok := h.memo[x]; ok {
			return s
		}
		if h.memo != nil {
			// a list reachable from itself hashes its inner occurrence as 0
			h.memo[x] = 0
		}
		d := xxhash.New()
		h.tag(d, KindList, uint64(x.Len()))
		for _, it := range x.Items {
			h.tag(d, KindNull, h.sum(it))
		}
		s := d.Sum64()
		if h.memo != nil {
			h.memo[x] = s
		}
		return s
	case *Dict:
		if x == nil {
			return 0
		}
		if s, ok := h.memo[x]; ok {
			return s
		}
		if h.memo != nil {
			h.memo[x] = 0
		}
		// order-independent combination, matching Equal
		var acc uint64
		for _, e := range x.entries {
			k := h.sum(e.Key)
			acc += k ^ (h.sum(e.Value)*0x9e3779b97f4a7c15 + k<<6)
		}
		d := xxhash.New()
		h.tag(d, KindDict, uint64(x.Len()))
		h.tag(d, KindNull, acc)
		s := d.Sum64()
		if h.memo != nil {
			h.memo[x] = s
		}
		return s
	}

	d := xxhash.New()
	switch x := v.(type) {
	case nil, Null:
		h.tag(d, KindNull, 0)
	case Int:
		if x.big != nil {
			h.tag(d, KindInt, uint64(x.big.Sign()))
			_, _ = d.Write(x.big.Bytes())
		} else {
			h.tag(d, KindInt, uint64(x.small))
		}
	case Text:
		h.tag(d, KindText, uint64(len(x)))
		_, _ = d.WriteString(string(x))
	case Bytes:
		h.tag(d, KindBytes, uint64(len(x)))
		_, _ = d.Write(x)
	case Bool:
		var b uint64
		if x {
			b = 1
		}
		h.tag(d, KindBool, b)
	case Double:
		h.tag(d, KindDouble, math.Float64bits(float64(x)))
	case Timestamp:
		h.tag(d, KindTimestamp, uint64(x))
	}
	return d.Sum64()
}

func (h *hasher) tag(d *xxhash.Digest, k Kind, n uint64) {
	h.buf[0] = byte(k)
	binary.LittleEndian.PutUint64(h.buf[1:], n)
	_, _ = d.Write(h.buf[:])
}
