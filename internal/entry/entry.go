// Package entry frames BOSS payloads stored in a provider.
//
//	magic(4) "BOSS" | ver(1) | kind(1) | roots(u32 be) | plen(u32 be) | payload(plen)
//
// roots is the number of top-level values in payload; bulk entries hold a
// key/value pair per member and share one reference cache.
package entry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	version byte = 1

	KindSingle byte = 1
	KindBulk   byte = 2

	hdrLen = 4 + 1 + 1 + 4 + 4
)

var (
	ErrCorrupt = errors.New("store: corrupt entry")
	magic4     = [...]byte{'B', 'O', 'S', 'S'}
)

// Entry is a decoded frame. Payload aliases the input.
type Entry struct {
	Kind    byte
	Roots   int
	Payload []byte
}

func Encode(kind byte, roots int, payload []byte) []byte {
	b := make([]byte, hdrLen, hdrLen+len(payload))
	copy(b, magic4[:])
	b[4] = version
	b[5] = kind
	binary.BigEndian.PutUint32(b[6:], uint32(roots))
	binary.BigEndian.PutUint32(b[10:], uint32(len(payload)))
	return append(b, payload...)
}

// Decode validates the frame. Unknown versions or kinds, short payloads and
// trailing bytes are all ErrCorrupt.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	kind := b[5]
	if kind != KindSingle && kind != KindBulk {
		return Entry{}, ErrCorrupt
	}
	roots := binary.BigEndian.Uint32(b[6:])
	plen := binary.BigEndian.Uint32(b[10:])
	if uint64(plen) != uint64(len(b)-hdrLen) || roots > math.MaxInt32 {
		return Entry{}, ErrCorrupt
	}
	if kind == KindSingle && roots != 1 {
		return Entry{}, ErrCorrupt
	}
	return Entry{Kind: kind, Roots: int(roots), Payload: b[hdrLen:]}, nil
}
