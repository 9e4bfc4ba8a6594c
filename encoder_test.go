package boss

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"
	"time"
)

func mustEncode(t *testing.T, vs ...Value) []byte {
	t.Helper()
	b, err := EncodeMany(vs...)
	if err != nil {
		t.Fatalf("EncodeMany: %v", err)
	}
	return b
}

func TestEncodeKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want []byte
	}{
		{"small int", NewInt(7), []byte("8")},
		{"one byte int", NewInt(70), []byte("\xb8F")},
		{"three byte int", NewInt(70000), []byte("\xc8p\x11\x01")},
		{"ints list", NewList(NewInt(0), NewInt(1), NewInt(-1), NewInt(7), NewInt(-7)), []byte(".\x00\x08\n8:")},
		{"text", Text("Hello"), []byte("+Hello")},
		{"bytes", Bytes("Hello"), []byte(",Hello")},
		{"null", Null{}, []byte{0x05}},
		{"nil", nil, []byte{0x05}},
		{"true", Bool(true), []byte{0x61}},
		{"false", Bool(false), []byte{0x69}},
		{"double zero", Double(0), []byte{0x01}},
		{"double one", Double(1), []byte{0x11}},
		{"double minus one", Double(-1), []byte{0x21}},
		{"dict", NewDict(Entry{Text("Hello"), Text("world")}), []byte("\x0f+Hello+world")},
		{"empty list", NewList(), []byte{0x06}},
		{"empty dict", NewDict(), []byte{0x07}},
		{"max int64", NewInt(math.MaxInt64), []byte{0xf0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
		{"min int64", NewInt(math.MinInt64), []byte{0xf2, 0, 0, 0, 0, 0, 0, 0, 0x80}},
		{"timestamp", Timestamp(300), []byte{0x79, 0x2c, 0x82}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.v)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("Encode(%v) = % x, want % x", tt.v, got, tt.want)
			}
		})
	}
}

func TestEncodeDoubleBits(t *testing.T) {
	b := mustEncode(t, Double(1.11))
	if len(b) != 9 || b[0] != 0x39 {
		t.Fatalf("Double(1.11) = % x", b)
	}
	var bits uint64
	for i := 8; i >= 1; i-- {
		bits = bits<<8 | uint64(b[i])
	}
	if math.Float64frombits(bits) != 1.11 {
		t.Fatalf("payload = %v", math.Float64frombits(bits))
	}
	// negative zero is not zero bit-wise
	if b := mustEncode(t, Double(math.Copysign(0, -1))); len(b) != 9 {
		t.Fatalf("-0.0 should use the full form, got % x", b)
	}
}

func TestEncodeBigInt(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 1024)
	n.Mul(n, big.NewInt(7))
	n.Add(n, big.NewInt(117))
	neg := new(big.Int).Neg(n)

	b := mustEncode(t, BigInt(neg))
	if !bytes.HasPrefix(b, []byte{0xfa, 0x01, 0x81, 0x75}) {
		t.Fatalf("prefix = % x", b[:4])
	}
	if len(b) != 3+129 {
		t.Fatalf("len = %d, want %d", len(b), 3+129)
	}
}

func TestEncodeSharesEqualValues(t *testing.T) {
	inner := NewList(Text("a"))
	got := mustEncode(t, NewList(inner, inner))
	// outer list = 1, inner = 2, "a" = 3
	want := []byte{0x16, 0x0e, 0x0b, 'a', 0x15}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	// structurally equal, distinct objects are shared too
	got = mustEncode(t, Text("hello"), Text("hello"), NewList(NewInt(1)), NewList(NewInt(1)))
	want = []byte{0x2b, 'h', 'e', 'l', 'l', 'o', 0x0d, 0x0e, 0x08, 0x15}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeNeverSharesScalars(t *testing.T) {
	got := mustEncode(t, NewInt(1000), NewInt(1000), Bool(true), Bool(true))
	want := []byte{0xc0, 0xe8, 0x03, 0xc0, 0xe8, 0x03, 0x61, 0x61}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeIntAndDoubleAreDistinctKeys(t *testing.T) {
	d := NewDict(Entry{NewInt(1), Text("int")}, Entry{Double(1), Text("double")})
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	vs := decodeAll(t, mustEncode(t, d))
	got := vs[0].(*Dict)
	if v, _ := got.Get(NewInt(1)); !Equal(v, Text("int")) {
		t.Fatalf("int key -> %v", v)
	}
	if v, _ := got.Get(Double(1)); !Equal(v, Text("double")) {
		t.Fatalf("double key -> %v", v)
	}
}

func TestEncoderUnsupportedValueRollsBack(t *testing.T) {
	e := NewEncoder(nil, Options{})
	if err := e.Put(Text("a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	before := e.Len()

	err := e.Put(NewList(Text("b"), Text("\xff")))
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("err = %v, want ErrUnsupportedValue", err)
	}
	var uv *UnsupportedValueError
	if !errors.As(err, &uv) || uv.Value != Text("\xff") {
		t.Fatalf("err = %#v", err)
	}
	if e.Len() != before {
		t.Fatalf("failed Put wrote %d bytes", e.Len()-before)
	}

	// "b" must not have survived in the cache
	if err := e.Put(Text("b")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := e.Put(Text("a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := []byte{0x0b, 'a', 0x0b, 'b', 0x0d}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("got % x, want % x", e.Bytes(), want)
	}
}

func TestEncoderRejects(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"nil list", (*List)(nil)},
		{"nil dict", (*Dict)(nil)},
		{"negative timestamp", Timestamp(-1)},
		{"invalid utf8", Text("\xc3\x28")},
		{"nested", NewList(NewInt(1), NewDict(Entry{Text("k"), (*List)(nil)}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.v); !errors.Is(err, ErrUnsupportedValue) {
				t.Fatalf("err = %v, want ErrUnsupportedValue", err)
			}
		})
	}
}

func nest(n int) Value {
	var v Value = NewList()
	for i := 1; i < n; i++ {
		v = NewList(v)
	}
	return v
}

func TestEncoderMaxDepth(t *testing.T) {
	e := NewEncoder(nil, Options{MaxDepth: 3})
	if err := e.Put(nest(4)); err != nil {
		t.Fatalf("depth 4: %v", err)
	}
	if err := e.Put(nest(5)); !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("depth 5: err = %v, want ErrDepthExceeded", err)
	}
}

func TestEncoderAddChain(t *testing.T) {
	e := NewEncoder(nil, Options{})
	err := e.Add(NewInt(1)).Add(Timestamp(-5)).Add(NewInt(2)).Err()
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("err = %v", err)
	}
	if !bytes.Equal(e.Bytes(), []byte{0x08}) {
		t.Fatalf("got % x", e.Bytes())
	}
}

type failWriter struct{ n int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errors.New("disk full")
	}
	w.n--
	return len(p), nil
}

func TestEncoderWriteErrorRollsBackCache(t *testing.T) {
	w := &failWriter{n: 0}
	e := NewEncoder(w, Options{})
	if err := e.Put(Text("x")); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
	if e.cache.len() != 1 {
		t.Fatalf("cache holds %d entries after failed write", e.cache.len()-1)
	}
	if e.Bytes() != nil {
		t.Fatalf("Bytes() on a foreign writer should be nil")
	}
}

func TestEncoderStreamMode(t *testing.T) {
	e := NewEncoder(nil, Options{})
	if err := e.Put(Text("same")); err != nil {
		t.Fatal(err)
	}
	if err := e.EnterStreamMode(); err != nil {
		t.Fatal(err)
	}
	if err := e.EnterStreamMode(); err != nil {
		t.Fatal(err)
	}
	if !e.StreamMode() {
		t.Fatalf("StreamMode() = false")
	}
	start := e.Len()
	if start != 5+2 {
		t.Fatalf("len after marker = %d, want 7", start)
	}
	const n = 4096
	for i := 0; i < n; i++ {
		if err := e.Put(Text("same")); err != nil {
			t.Fatal(err)
		}
	}
	if got := e.Len() - start; got != n*5 {
		t.Fatalf("stream wrote %d bytes, want %d", got, n*5)
	}

	vs := decodeAll(t, e.Bytes())
	if len(vs) != n+1 {
		t.Fatalf("decoded %d values, want %d", len(vs), n+1)
	}
	for _, v := range vs {
		if v != Text("same") {
			t.Fatalf("value = %v", v)
		}
	}
}

func TestPutCompressedShort(t *testing.T) {
	b, err := EncodeCompressed(Text("Too short"))
	if err != nil {
		t.Fatal(err)
	}
	// extra/compressed, tier 0 header with length 10, then the inner stream
	want := append([]byte{0x71, 0x50, 0x4b}, "Too short"...)
	if !bytes.Equal(b, want) {
		t.Fatalf("got % x, want % x", b, want)
	}
	if len(b) > len("Too short")+3 {
		t.Fatalf("len = %d", len(b))
	}
}

func TestPutCompressedLong(t *testing.T) {
	s := strings.Repeat("z", 1024)
	b, err := EncodeCompressed(Text(s))
	if err != nil {
		t.Fatal(err)
	}
	if len(b) >= len(s)/10 {
		t.Fatalf("compressed to %d bytes", len(b))
	}
	if b[0] != 0x71 || b[1]&7 != tierDeflate {
		t.Fatalf("header = % x", b[:2])
	}
	v, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if v != Text(s) {
		t.Fatalf("round trip lost data")
	}
}

func TestPutCompressedUsesOwnCache(t *testing.T) {
	e := NewEncoder(nil, Options{})
	_ = e.Put(Text("a"))
	_ = e.PutCompressed(Text("a"))
	_ = e.Put(Text("a"))
	want := []byte{0x0b, 'a', 0x71, 0x10, 0x0b, 'a', 0x0d}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("got % x, want % x", e.Bytes(), want)
	}
	vs := decodeAll(t, e.Bytes())
	for i, v := range vs {
		if v != Text("a") {
			t.Fatalf("value %d = %v", i, v)
		}
	}
}

func TestPutAny(t *testing.T) {
	e := NewEncoder(nil, Options{})
	if err := e.PutAny(map[string]any{"at": time.Unix(300, 0)}); err != nil {
		t.Fatal(err)
	}
	want := []byte("\x0f\x13at\x79\x2c\x82")
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("got % x, want % x", e.Bytes(), want)
	}
	if err := e.PutAny(make(chan int)); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("err = %v", err)
	}
}
