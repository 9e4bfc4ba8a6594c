package boss

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"

	"github.com/unkn0wn-root/boss/internal/wire"
)

const (
	// payloads up to this size are read with a single allocation; larger
	// ones grow with the data actually present in the source
	directReadLimit = 64 << 10
	// upper bound for capacity reserved ahead of decoding container items
	maxPrealloc = 1024
)

// Decoder reads values from a source. All values read through one Decoder
// share a reference cache, mirroring the Encoder that produced them.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r      *bufio.Reader
	opts   Options
	cache  *readCache
	stream bool
}

// NewDecoder returns a Decoder reading from r. The Decoder buffers r
// unless it already is a *bufio.Reader.
func NewDecoder(r io.Reader, opts Options) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{
		r:     br,
		opts:  opts.withDefaults(),
		cache: newReadCache(),
	}
}

// Get reads the next value tree. It returns io.EOF when the source ends
// cleanly between records and ErrTruncated when it ends inside one.
func (d *Decoder) Get() (Value, error) {
	v, err := d.get(0)
	if err != nil && err != io.EOF {
		d.opts.Logger.Warn("rejected record", Fields{"err": err})
	}
	return v, err
}

// AtEnd reports whether the source ended cleanly. It may block until the
// source delivers data or is closed. A failing source is not at its end;
// the next Get reports the failure.
func (d *Decoder) AtEnd() bool {
	_, err := d.r.Peek(1)
	return err == io.EOF
}

// StreamMode reports whether a stream-mode marker has been read.
func (d *Decoder) StreamMode() bool { return d.stream }

// All yields every remaining value. Iteration stops after the first error,
// which is yielded with a nil Value. A clean end of the source is not an
// error; any other read failure between records is.
func (d *Decoder) All() iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		for {
			if _, err := d.r.Peek(1); err != nil {
				if err != io.EOF {
					d.opts.Logger.Warn("source failed", Fields{"err": err})
					yield(nil, fmt.Errorf("boss: read: %w", err))
				}
				return
			}
			v, err := d.Get()
			if err == io.EOF {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Each calls fn for every remaining value and stops at the first error.
func (d *Decoder) Each(fn func(Value) error) error {
	for v, err := range d.All() {
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) get(depth int) (Value, error) {
	if depth > d.opts.MaxDepth {
		return nil, ErrDepthExceeded
	}
	for {
		h, err := wire.ReadHeader(d.r)
		if err != nil {
			if err == io.EOF && depth == 0 {
				return nil, io.EOF
			}
			return nil, readErr(err)
		}
		if h.Code == wire.Extra && h.Big == nil && h.Value == wire.StreamMode {
			// the marker has no payload; the value follows it
			d.stream = true
			d.cache.reset(true)
			d.opts.Logger.Debug("stream mode on", nil)
			continue
		}
		return d.value(h, depth)
	}
}

func (d *Decoder) value(h wire.Header, depth int) (Value, error) {
	switch h.Code {
	case wire.Int, wire.NInt:
		neg := h.Code == wire.NInt
		if h.Big != nil {
			return intFromBigMagnitude(neg, h.Big), nil
		}
		return intFromMagnitude(neg, h.Value), nil

	case wire.Text, wire.Bin:
		n, err := length(h)
		if err != nil {
			return nil, err
		}
		b, err := d.readN(n)
		if err != nil {
			return nil, err
		}
		var v Value = Bytes(b)
		if h.Code == wire.Text {
			if !utf8.Valid(b) {
				return nil, ErrInvalidText
			}
			v = Text(b)
		}
		d.cache.add(v)
		return v, nil

	case wire.List:
		n, err := length(h)
		if err != nil {
			return nil, err
		}
		l := &List{Items: make([]Value, 0, min(n, maxPrealloc))}
		// registered before its items, which may refer to it
		d.cache.add(l)
		for i := 0; i < n; i++ {
			it, err := d.get(depth + 1)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, it)
		}
		return l, nil

	case wire.Dict:
		n, err := length(h)
		if err != nil {
			return nil, err
		}
		m := &Dict{}
		d.cache.add(m)
		for i := 0; i < n; i++ {
			k, err := d.get(depth + 1)
			if err != nil {
				return nil, err
			}
			v, err := d.get(depth + 1)
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil

	case wire.CRef:
		if h.Big != nil {
			return nil, ErrBadReference
		}
		v, ok := d.cache.get(h.Value)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrBadReference, h.Value)
		}
		return v, nil

	case wire.Extra:
		if h.Big != nil {
			return nil, &UnknownTypeError{Kind: "extra", Code: math.MaxUint64}
		}
		return d.extra(h.Value, depth)
	}
	return nil, &UnknownTypeError{Kind: "code", Code: uint64(h.Code)}
}

func (d *Decoder) extra(code uint64, depth int) (Value, error) {
	switch code {
	case wire.TTrue:
		return Bool(true), nil
	case wire.TFalse:
		return Bool(false), nil
	case wire.DZero, wire.FZero:
		// zero comes back as an integer
		return NewInt(0), nil
	case wire.DOne, wire.FOne:
		return Double(1), nil
	case wire.DMinusOne, wire.FMinusOne:
		return Double(-1), nil
	case wire.TDouble:
		b, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		var bits uint64
		for i := 7; i >= 0; i-- {
			bits = bits<<8 | uint64(b[i])
		}
		return Double(math.Float64frombits(bits)), nil
	case wire.TTime:
		s, err := wire.ReadVarint(d.r)
		if err != nil {
			return nil, readErr(err)
		}
		if s > math.MaxInt64 {
			return nil, fmt.Errorf("%w: timestamp %d", ErrLengthOverflow, s)
		}
		return Timestamp(s), nil
	case wire.TCompressed:
		return d.compressed(depth)
	}
	return nil, &UnknownTypeError{Kind: "extra", Code: code}
}

// compressed decodes the first value of an independently encoded inner
// stream. The inner stream has its own cache.
func (d *Decoder) compressed(depth int) (Value, error) {
	h, err := wire.ReadHeader(d.r)
	if err != nil {
		return nil, readErr(err)
	}
	n, err := length(h)
	if err != nil {
		return nil, err
	}
	data, err := d.readN(n)
	if err != nil {
		return nil, err
	}

	var src io.Reader
	switch h.Code {
	case tierRaw:
		src = bytes.NewReader(data)
	case tierDeflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		src = fr
	default:
		return nil, &UnknownTypeError{Kind: "tier", Code: uint64(h.Code)}
	}

	inner := &Decoder{r: bufio.NewReader(src), opts: d.opts, cache: newReadCache()}
	return inner.get(depth + 1)
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if n <= directReadLimit {
		b := make([]byte, n)
		if _, err := io.ReadFull(d.r, b); err != nil {
			return nil, readErr(err)
		}
		return b, nil
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, d.r, int64(n)); err != nil {
		return nil, readErr(err)
	}
	return buf.Bytes(), nil
}

// length converts a header magnitude into an in-memory length.
func length(h wire.Header) (int, error) {
	if h.Big != nil || h.Value > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v", ErrLengthOverflow, h.Value)
	}
	return int(h.Value), nil
}

func readErr(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrTruncated
	case errors.Is(err, wire.ErrVarintOverflow), errors.Is(err, wire.ErrMagnitudeTooLarge):
		return fmt.Errorf("%w: %w", ErrLengthOverflow, err)
	}
	return fmt.Errorf("boss: read: %w", err)
}
