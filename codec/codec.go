// Package codec converts BOSS value trees to and from other serialization
// formats, so a document can be transcoded between BOSS, JSON, CBOR,
// MessagePack and protobuf (google.protobuf.Value).
//
// Only BOSS itself is lossless. The other formats lack some BOSS types and
// map them onto the closest thing they have; each codec documents what it
// changes on the way.
package codec

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/boss"
)

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Value is a Codec over BOSS value trees. Every codec in this package
// implements it.
type Value = Codec[boss.Value]

var (
	ErrPayloadTooLarge = errors.New("codec: payload too large")
	ErrUnknownFormat   = errors.New("codec: unknown format")
)

// ByName returns the codec registered under name: "boss", "boss+deflate",
// "json", "cbor", "msgpack", "proto" or "protojson".
func ByName(name string) (Value, error) {
	switch name {
	case "boss":
		return Boss{}, nil
	case "boss+deflate":
		return Boss{Compressed: true}, nil
	case "json":
		return JSON{}, nil
	case "cbor":
		return NewCBOR(false)
	case "msgpack":
		return Msgpack{}, nil
	case "proto":
		return Protobuf{}, nil
	case "protojson":
		return Protobuf{JSON: true}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}
