package codec

import (
	"bytes"
	"io"

	"github.com/unkn0wn-root/boss"
)

// Boss is the native codec. With Compressed set, values are written inside
// a compression envelope. Decode accepts both forms.
// The zero value is ready to use.
type Boss struct {
	Compressed bool
	Options    boss.Options
}

var _ Value = Boss{}

func (c Boss) Encode(v boss.Value) ([]byte, error) {
	e := boss.NewEncoder(nil, c.Options)
	put := e.Put
	if c.Compressed {
		put = e.PutCompressed
	}
	if err := put(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Decode returns the first value in b.
func (c Boss) Decode(b []byte) (boss.Value, error) {
	v, err := boss.NewDecoder(bytes.NewReader(b), c.Options).Get()
	if err != nil {
		if err == io.EOF {
			return nil, boss.ErrTruncated
		}
		return nil, err
	}
	return v, nil
}
