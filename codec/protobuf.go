package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/boss"
)

// Protobuf transcodes through google.protobuf.Value, in binary form or,
// with JSON set, in its canonical JSON mapping. The message only has
// doubles for numbers, so integers come back as Double; integers beyond 64
// bits are written as decimal strings. Object keys must be Text or Int.
// Bytes travel as base64 strings and timestamps as RFC 3339 strings.
type Protobuf struct {
	JSON bool
}

var _ Value = Protobuf{}

func (c Protobuf) Encode(v boss.Value) ([]byte, error) {
	p, err := plain(v, plainOpts{stringKeys: true, bigText: true, timeText: true})
	if err != nil {
		return nil, err
	}
	m, err := structpb.NewValue(p)
	if err != nil {
		return nil, fmt.Errorf("codec: proto: %w", err)
	}
	if c.JSON {
		return protojson.Marshal(m)
	}
	return proto.Marshal(m)
}

func (c Protobuf) Decode(b []byte) (boss.Value, error) {
	m := new(structpb.Value)
	var err error
	if c.JSON {
		err = protojson.Unmarshal(b, m)
	} else {
		err = proto.Unmarshal(b, m)
	}
	if err != nil {
		return nil, fmt.Errorf("codec: proto: %w", err)
	}
	return boss.FromGo(m.AsInterface())
}
