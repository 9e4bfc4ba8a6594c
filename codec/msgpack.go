package codec

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/boss"
)

// Msgpack transcodes through vmihailenco/msgpack/v5. Timestamps use the
// MessagePack time extension. Integers beyond 64 bits are rejected.
// The zero value is ready to use.
type Msgpack struct{}

var _ Value = Msgpack{}

func (Msgpack) Encode(v boss.Value) ([]byte, error) {
	p, err := plain(v, plainOpts{fitInts: true})
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(p)
}

func (Msgpack) Decode(b []byte) (boss.Value, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	// keep non-string keys
	dec.SetMapDecoder(func(d *msgpack.Decoder) (any, error) {
		return d.DecodeUntypedMap()
	})
	x, err := dec.DecodeInterface()
	if err != nil {
		return nil, fmt.Errorf("codec: msgpack: %w", err)
	}
	return boss.FromGo(x)
}
