package boss

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// Kind identifies a Value variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindText
	KindBytes
	KindList
	KindDict
	KindBool
	KindDouble
	KindTimestamp
)

var kindNames = [...]string{"null", "int", "text", "bytes", "list", "dict", "bool", "double", "timestamp"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is a node of a serializable tree. The set of implementations is
// closed: Null, Int, Text, Bytes, *List, *Dict, Bool, Double and Timestamp.
// A nil Value is treated as Null.
type Value interface {
	Kind() Kind
	isValue()
}

// Null is the absent value. It always encodes as a reference to cache slot 0.
type Null struct{}

// Int is an arbitrary-precision signed integer. The zero value is 0.
type Int struct {
	small int64
	big   *big.Int // set only when the value does not fit in int64
}

// Text is a UTF-8 string.
type Text string

// Bytes is a raw binary blob.
type Bytes []byte

type Bool bool

// Double is an IEEE-754 64-bit float.
type Double float64

// Timestamp is a point in time with one-second resolution, counted from the
// Unix epoch. Only non-negative timestamps can be encoded.
type Timestamp int64

// List is an ordered sequence. Lists are shared by pointer: a list decoded
// from a back-reference is the very same *List as the first occurrence.
type List struct {
	Items []Value
}

func (Null) Kind() Kind      { return KindNull }
func (Int) Kind() Kind       { return KindInt }
func (Text) Kind() Kind      { return KindText }
func (Bytes) Kind() Kind     { return KindBytes }
func (*List) Kind() Kind     { return KindList }
func (*Dict) Kind() Kind     { return KindDict }
func (Bool) Kind() Kind      { return KindBool }
func (Double) Kind() Kind    { return KindDouble }
func (Timestamp) Kind() Kind { return KindTimestamp }

func (Null) isValue()      {}
func (Int) isValue()       {}
func (Text) isValue()      {}
func (Bytes) isValue()     {}
func (*List) isValue()     {}
func (*Dict) isValue()     {}
func (Bool) isValue()      {}
func (Double) isValue()    {}
func (Timestamp) isValue() {}

func NewInt(v int64) Int { return Int{small: v} }

func NewUint(v uint64) Int {
	if v <= math.MaxInt64 {
		return Int{small: int64(v)}
	}
	return Int{big: new(big.Int).SetUint64(v)}
}

// BigInt returns an Int holding a copy of v.
func BigInt(v *big.Int) Int {
	if v.IsInt64() {
		return Int{small: v.Int64()}
	}
	return Int{big: new(big.Int).Set(v)}
}

// Int64 returns the value and whether it fits in an int64.
func (i Int) Int64() (int64, bool) {
	if i.big != nil {
		return 0, false
	}
	return i.small, true
}

// Big returns the value as a newly allocated big.Int.
func (i Int) Big() *big.Int {
	if i.big != nil {
		return new(big.Int).Set(i.big)
	}
	return big.NewInt(i.small)
}

func (i Int) Sign() int {
	if i.big != nil {
		return i.big.Sign()
	}
	switch {
	case i.small < 0:
		return -1
	case i.small > 0:
		return 1
	}
	return 0
}

func (i Int) String() string {
	if i.big != nil {
		return i.big.String()
	}
	return fmt.Sprint(i.small)
}

// magnitude returns |i| as a uint64 when it fits, otherwise as a big.Int.
func (i Int) magnitude() (uint64, *big.Int) {
	if i.big != nil {
		return 0, new(big.Int).Abs(i.big)
	}
	if i.small < 0 {
		// two's complement negation also covers math.MinInt64
		return uint64(^i.small) + 1, nil
	}
	return uint64(i.small), nil
}

func intFromMagnitude(neg bool, m uint64) Int {
	if !neg {
		return NewUint(m)
	}
	if m <= 1<<63 {
		return Int{small: int64(^m + 1)}
	}
	return Int{big: new(big.Int).Neg(new(big.Int).SetUint64(m))}
}

func intFromBigMagnitude(neg bool, m *big.Int) Int {
	if neg {
		m = new(big.Int).Neg(m)
	}
	return BigInt(m)
}

// TimestampOf truncates t to whole seconds.
func TimestampOf(t time.Time) Timestamp { return Timestamp(t.Unix()) }

// Time returns the timestamp in UTC.
func (ts Timestamp) Time() time.Time { return time.Unix(int64(ts), 0).UTC() }

func NewList(items ...Value) *List { return &List{Items: items} }

func (l *List) Len() int { return len(l.Items) }

func (l *List) Append(vs ...Value) { l.Items = append(l.Items, vs...) }

// Entry is one key/value pair of a Dict.
type Entry struct {
	Key   Value
	Value Value
}

// Dict is an insertion-ordered map keyed by structural equality. Setting an
// existing key replaces its value in place. Keys must not be mutated after
// insertion.
type Dict struct {
	entries []Entry
	index   map[uint64][]int
}

// NewDict builds a dict from entries; later duplicates overwrite earlier ones.
func NewDict(entries ...Entry) *Dict {
	d := &Dict{}
	for _, e := range entries {
		d.Set(e.Key, e.Value)
	}
	return d
}

func (d *Dict) Len() int { return len(d.entries) }

func (d *Dict) Set(k, v Value) {
	if d.index == nil {
		d.index = make(map[uint64][]int)
	}
	h := hashValue(k)
	for _, i := range d.index[h] {
		if Equal(d.entries[i].Key, k) {
			d.entries[i].Value = v
			return
		}
	}
	d.index[h] = append(d.index[h], len(d.entries))
	d.entries = append(d.entries, Entry{Key: k, Value: v})
}

func (d *Dict) Get(k Value) (Value, bool) {
	for _, i := range d.index[hashValue(k)] {
		if Equal(d.entries[i].Key, k) {
			return d.entries[i].Value, true
		}
	}
	return nil, false
}

// Entries returns the pairs in insertion order. The slice must not be
// modified.
func (d *Dict) Entries() []Entry { return d.entries }

func (d *Dict) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range d.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v: %v", e.Key, e.Value)
	}
	sb.WriteByte('}')
	return sb.String()
}

func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range l.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, v)
	}
	sb.WriteByte(']')
	return sb.String()
}

func (Null) String() string { return "null" }

// Equal reports structural equality. Kinds must match exactly, so Int(1)
// and Double(1) differ; doubles compare by bit pattern. Dicts compare as
// maps, ignoring order.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Int:
		y := b.(Int)
		if x.big == nil && y.big == nil {
			return x.small == y.small
		}
		if x.big == nil || y.big == nil {
			return false
		}
		return x.big.Cmp(y.big) == 0
	case Text:
		return x == b.(Text)
	case Bytes:
		return string(x) == string(b.(Bytes))
	case *List:
		y := b.(*List)
		if x == y {
			return true
		}
		if x == nil || y == nil || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *Dict:
		y := b.(*Dict)
		if x == y {
			return true
		}
		if x == nil || y == nil || x.Len() != y.Len() {
			return false
		}
		for _, e := range x.entries {
			v, ok := y.Get(e.Key)
			if !ok || !Equal(e.Value, v) {
				return false
			}
		}
		return true
	case Bool:
		return x == b.(Bool)
	case Double:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Double)))
	case Timestamp:
		return x == b.(Timestamp)
	}
	return false
}
