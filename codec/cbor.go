package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/unkn0wn-root/boss"
)

// CBOR transcodes through fxamacker/cbor. Every BOSS type has a CBOR
// counterpart: integers beyond 64 bits use bignum tags and timestamps use
// epoch time tags. Dict keys of any kind but List, Dict and Bytes survive.
//
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Value = CBOR{}

// NewCBOR constructs a CBOR codec. With deterministic set it uses
// CoreDetEncOptions (RFC 8949) for byte-stable output, otherwise
// PreferredUnsortedEncOptions.
func NewCBOR(deterministic bool) (CBOR, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeUnix
	eo.TimeTag = cbor.EncTagRequired

	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
func MustCBOR(deterministic bool) CBOR {
	c, err := NewCBOR(deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR) Encode(v boss.Value) ([]byte, error) {
	p, err := plain(v, plainOpts{})
	if err != nil {
		return nil, err
	}
	return c.enc.Marshal(p)
}

func (c CBOR) Decode(b []byte) (boss.Value, error) {
	var x any
	if err := c.dec.Unmarshal(b, &x); err != nil {
		return nil, fmt.Errorf("codec: cbor: %w", err)
	}
	return boss.FromGo(x)
}
