package boss

import (
	"bytes"
	"io"
)

// Options tune Encoder and Decoder. The zero value is ready to use.
type Options struct {
	Logger Logger // if nil, NopLogger is used

	// MaxDepth bounds nesting of lists, dicts and compression envelopes on
	// both sides. 0 => 1024.
	MaxDepth int

	// CompressionLevel is the DEFLATE level used for large compressed
	// envelopes (see klauspost/compress/flate). 0 => flate.DefaultCompression.
	CompressionLevel int
}

// Encode returns the encoding of v.
func Encode(v Value) ([]byte, error) {
	return EncodeMany(v)
}

// EncodeMany encodes vs one after another with a single shared cache, so
// repeated values across roots are written once.
func EncodeMany(vs ...Value) ([]byte, error) {
	e := NewEncoder(nil, Options{})
	for _, v := range vs {
		if err := e.Put(v); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

// EncodeCompressed writes every value in its own compression envelope.
// Decode and DecodeAll unwrap envelopes transparently.
func EncodeCompressed(vs ...Value) ([]byte, error) {
	e := NewEncoder(nil, Options{})
	for _, v := range vs {
		if err := e.PutCompressed(v); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

// Decode returns the first value in data.
func Decode(data []byte) (Value, error) {
	v, err := NewDecoder(bytes.NewReader(data), Options{}).Get()
	if err == io.EOF {
		return nil, ErrTruncated
	}
	return v, err
}

// DecodeAll returns every value in data, read with a single shared cache.
func DecodeAll(data []byte) ([]Value, error) {
	return Load(data, nil)
}

// Load decodes every value in data and returns fn's result for each one.
// A nil fn keeps values as decoded. Every result is kept, Null included.
func Load(data []byte, fn func(Value) (Value, error)) ([]Value, error) {
	var out []Value
	for v, err := range NewDecoder(bytes.NewReader(data), Options{}).All() {
		if err != nil {
			return out, err
		}
		if fn != nil {
			if v, err = fn(v); err != nil {
				return out, err
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Marshal converts x with FromGo and encodes it.
func Marshal(x any) ([]byte, error) {
	v, err := FromGo(x)
	if err != nil {
		return nil, err
	}
	return Encode(v)
}

// Unmarshal decodes the first value in data and converts it with ToGo.
func Unmarshal(data []byte) (any, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ToGo(v), nil
}
