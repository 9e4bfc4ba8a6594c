package boss

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"

	"github.com/unkn0wn-root/boss/internal/wire"
)

// keep scratch buffers below this size between writes
const maxRetainedScratch = 64 << 10

// Encoder writes values to a sink. All values written through one Encoder
// share a reference cache, so a value equal to one written earlier costs a
// single back-reference.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	w       io.Writer
	opts    Options
	cache   *writeCache
	scratch []byte
	stream  bool
	err     error
}

// NewEncoder returns an Encoder writing to w. A nil w makes the Encoder
// buffer its output in memory; read it back with Bytes.
func NewEncoder(w io.Writer, opts Options) *Encoder {
	if w == nil {
		w = new(bytes.Buffer)
	}
	return &Encoder{
		w:     w,
		opts:  opts.withDefaults(),
		cache: newWriteCache(),
	}
}

// Put writes one value tree. On error nothing of v has reached the sink
// and the cache is left as it was before the call.
func (e *Encoder) Put(v Value) error {
	mark := e.cache.len()
	e.cache.forget()
	rec, err := e.appendValue(e.scratch[:0], v, 0)
	if err != nil {
		e.cache.truncate(mark)
		return err
	}
	if err := e.flush(rec); err != nil {
		e.cache.truncate(mark)
		return err
	}
	return nil
}

// PutAny converts a native Go value with FromGo and writes it.
func (e *Encoder) PutAny(x any) error {
	v, err := FromGo(x)
	if err != nil {
		return err
	}
	return e.Put(v)
}

// Add is the chainable form of Put. The first error sticks and turns the
// following calls into no-ops; check it with Err.
func (e *Encoder) Add(v Value) *Encoder {
	if e.err == nil {
		e.err = e.Put(v)
	}
	return e
}

func (e *Encoder) Err() error { return e.err }

// PutCompressed encodes v on its own, with a fresh cache, and writes it
// inside a compression envelope. Inner streams longer than 160 bytes are
// deflated; shorter ones are stored as is.
func (e *Encoder) PutCompressed(v Value) error {
	inner := NewEncoder(nil, e.opts)
	if err := inner.Put(v); err != nil {
		return err
	}
	data := inner.Bytes()
	tier := byte(tierRaw)
	if len(data) > compressThreshold {
		var err error
		if data, err = deflate(data, e.opts.CompressionLevel); err != nil {
			return err
		}
		tier = tierDeflate
	}
	e.opts.Logger.Debug("compressed envelope", Fields{"tier": tier, "size": len(data), "raw": inner.Len()})

	rec := wire.AppendHeader(e.scratch[:0], wire.Extra, wire.TCompressed)
	rec = wire.AppendHeader(rec, tier, uint64(len(data)))
	rec = append(rec, data...)
	return e.flush(rec)
}

// EnterStreamMode writes the stream-mode marker and drops the reference
// cache for good: values written afterwards are never deduplicated.
// Calling it again is a no-op.
func (e *Encoder) EnterStreamMode() error {
	if e.stream {
		return nil
	}
	if err := e.flush(wire.AppendHeader(e.scratch[:0], wire.Extra, wire.StreamMode)); err != nil {
		return err
	}
	e.stream = true
	e.cache.reset(true)
	e.opts.Logger.Debug("stream mode on", nil)
	return nil
}

// StreamMode reports whether EnterStreamMode has been called.
func (e *Encoder) StreamMode() bool { return e.stream }

// Bytes returns everything written so far when the sink is the internal
// buffer or a *bytes.Buffer, and nil otherwise.
func (e *Encoder) Bytes() []byte {
	if b, ok := e.w.(*bytes.Buffer); ok {
		return b.Bytes()
	}
	return nil
}

// Len is len(e.Bytes()).
func (e *Encoder) Len() int { return len(e.Bytes()) }

func (e *Encoder) flush(rec []byte) error {
	_, err := e.w.Write(rec)
	if cap(rec) <= maxRetainedScratch {
		e.scratch = rec[:0]
	} else {
		e.scratch = nil
	}
	if err != nil {
		return fmt.Errorf("boss: write: %w", err)
	}
	return nil
}

func (e *Encoder) appendValue(dst []byte, v Value, depth int) ([]byte, error) {
	if depth > e.opts.MaxDepth {
		return dst, ErrDepthExceeded
	}
	switch x := v.(type) {
	case nil, Null:
		return wire.AppendHeader(dst, wire.CRef, 0), nil

	case Int:
		code := wire.Int
		if x.Sign() < 0 {
			code = wire.NInt
		}
		m, bm := x.magnitude()
		if bm != nil {
			return wire.AppendHeaderBig(dst, code, bm), nil
		}
		return wire.AppendHeader(dst, code, m), nil

	case Text:
		if !utf8.ValidString(string(x)) {
			return dst, &UnsupportedValueError{Value: x, Reason: "text is not valid UTF-8"}
		}
		if idx, ok := e.cache.lookup(x); ok {
			return wire.AppendHeader(dst, wire.CRef, uint64(idx)), nil
		}
		dst = wire.AppendHeader(dst, wire.Text, uint64(len(x)))
		return append(dst, string(x)...), nil

	case Bytes:
		if idx, ok := e.cache.lookup(x); ok {
			return wire.AppendHeader(dst, wire.CRef, uint64(idx)), nil
		}
		dst = wire.AppendHeader(dst, wire.Bin, uint64(len(x)))
		return append(dst, x...), nil

	case *List:
		if x == nil {
			return dst, &UnsupportedValueError{Value: x, Reason: "nil list"}
		}
		if idx, ok := e.cache.lookup(x); ok {
			return wire.AppendHeader(dst, wire.CRef, uint64(idx)), nil
		}
		dst = wire.AppendHeader(dst, wire.List, uint64(len(x.Items)))
		var err error
		for _, it := range x.Items {
			if dst, err = e.appendValue(dst, it, depth+1); err != nil {
				return dst, err
			}
		}
		return dst, nil

	case *Dict:
		if x == nil {
			return dst, &UnsupportedValueError{Value: x, Reason: "nil dict"}
		}
		if idx, ok := e.cache.lookup(x); ok {
			return wire.AppendHeader(dst, wire.CRef, uint64(idx)), nil
		}
		dst = wire.AppendHeader(dst, wire.Dict, uint64(x.Len()))
		var err error
		for _, en := range x.entries {
			if dst, err = e.appendValue(dst, en.Key, depth+1); err != nil {
				return dst, err
			}
			if dst, err = e.appendValue(dst, en.Value, depth+1); err != nil {
				return dst, err
			}
		}
		return dst, nil

	case Bool:
		if x {
			return wire.AppendHeader(dst, wire.Extra, wire.TTrue), nil
		}
		return wire.AppendHeader(dst, wire.Extra, wire.TFalse), nil

	case Double:
		switch math.Float64bits(float64(x)) {
		case math.Float64bits(0):
			return wire.AppendHeader(dst, wire.Extra, wire.DZero), nil
		case math.Float64bits(1):
			return wire.AppendHeader(dst, wire.Extra, wire.DOne), nil
		case math.Float64bits(-1):
			return wire.AppendHeader(dst, wire.Extra, wire.DMinusOne), nil
		}
		dst = wire.AppendHeader(dst, wire.Extra, wire.TDouble)
		return appendFloat64(dst, float64(x)), nil

	case Timestamp:
		if x < 0 {
			return dst, &UnsupportedValueError{Value: x, Reason: "timestamp before the epoch"}
		}
		dst = wire.AppendHeader(dst, wire.Extra, wire.TTime)
		return wire.AppendVarint(dst, uint64(x)), nil
	}
	return dst, &UnsupportedValueError{Value: v}
}

func appendFloat64(dst []byte, f float64) []byte {
	b := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		dst = append(dst, byte(b))
		b >>= 8
	}
	return dst
}

func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("boss: deflate: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("boss: deflate: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("boss: deflate: %w", err)
	}
	return buf.Bytes(), nil
}
