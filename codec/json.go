package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/unkn0wn-root/boss"
)

// JSON transcodes through encoding/json. Object keys must be Text or Int
// (Int keys come back as Text). Bytes are written as base64 strings and
// timestamps as RFC 3339 strings; both decode as Text. Numbers decode as
// Int when they have no fraction or exponent, as Double otherwise.
type JSON struct{}

var _ Value = JSON{}

func (JSON) Encode(v boss.Value) ([]byte, error) {
	p, err := plain(v, plainOpts{stringKeys: true})
	if err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

func (JSON) Decode(b []byte) (boss.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, fmt.Errorf("codec: json: %w", err)
	}
	return boss.FromGo(x)
}
