package boss

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"math/big"
	"reflect"
	"slices"
	"time"
)

// FromGo converts a native Go value into a Value tree:
//
//	nil                      Null
//	Value                    itself
//	signed/unsigned ints     Int
//	*big.Int, big.Int        Int
//	float32, float64         Double
//	string, json.Number      Text, or Int/Double for numbers
//	[]byte                   Bytes
//	bool                     Bool
//	time.Time                Timestamp
//	slices and arrays        *List
//	maps                     *Dict
//
// Anything else, including channels, funcs and structs, yields an
// *UnsupportedValueError.
func FromGo(x any) (Value, error) {
	return fromGo(x, 0)
}

func fromGo(x any, depth int) (Value, error) {
	if depth > defaultMaxDepth {
		return nil, ErrDepthExceeded
	}
	switch v := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case int:
		return NewInt(int64(v)), nil
	case int8:
		return NewInt(int64(v)), nil
	case int16:
		return NewInt(int64(v)), nil
	case int32:
		return NewInt(int64(v)), nil
	case int64:
		return NewInt(v), nil
	case uint:
		return NewUint(uint64(v)), nil
	case uint8:
		return NewInt(int64(v)), nil
	case uint16:
		return NewInt(int64(v)), nil
	case uint32:
		return NewInt(int64(v)), nil
	case uint64:
		return NewUint(v), nil
	case *big.Int:
		if v == nil {
			return Null{}, nil
		}
		return BigInt(v), nil
	case big.Int:
		return BigInt(&v), nil
	case float32:
		return Double(v), nil
	case float64:
		return Double(v), nil
	case string:
		return Text(v), nil
	case json.Number:
		return fromNumber(v)
	case []byte:
		return Bytes(v), nil
	case bool:
		return Bool(v), nil
	case time.Time:
		return TimestampOf(v), nil
	case []any:
		l := &List{Items: make([]Value, 0, len(v))}
		for _, it := range v {
			iv, err := fromGo(it, depth+1)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, iv)
		}
		return l, nil
	case map[string]any:
		d := &Dict{}
		for _, k := range slices.Sorted(maps.Keys(v)) {
			iv, err := fromGo(v[k], depth+1)
			if err != nil {
				return nil, err
			}
			d.Set(Text(k), iv)
		}
		return d, nil
	}
	return fromReflect(reflect.ValueOf(x), depth)
}

func fromNumber(n json.Number) (Value, error) {
	if i, ok := new(big.Int).SetString(n.String(), 10); ok {
		return BigInt(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, &UnsupportedValueError{Value: n, Reason: err.Error()}
	}
	return Double(f), nil
}

func fromReflect(rv reflect.Value, depth int) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return fromGo(rv.Elem().Interface(), depth+1)
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return NewUint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Double(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Bytes(rv.Bytes()), nil
		}
		l := &List{Items: make([]Value, 0, rv.Len())}
		for i := 0; i < rv.Len(); i++ {
			iv, err := fromGo(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, iv)
		}
		return l, nil
	case reflect.Map:
		d := &Dict{}
		keys := rv.MapKeys()
		sortKeys(keys)
		for _, rk := range keys {
			k, err := fromGo(rk.Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			v, err := fromGo(rv.MapIndex(rk).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			d.Set(k, v)
		}
		return d, nil
	}
	return nil, &UnsupportedValueError{Value: rv.Interface(), Reason: fmt.Sprintf("go type %s", rv.Type())}
}

// ToGo converts v into plain Go values: nil, int64 or *big.Int, string,
// []byte, bool, float64, time.Time, []any and map[any]any. Dicts whose keys
// are all Text become map[string]any instead.
func ToGo(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Int:
		if i, ok := x.Int64(); ok {
			return i
		}
		return x.Big()
	case Text:
		return string(x)
	case Bytes:
		return []byte(x)
	case Bool:
		return bool(x)
	case Double:
		return float64(x)
	case Timestamp:
		return x.Time()
	case *List:
		if x == nil {
			return nil
		}
		out := make([]any, len(x.Items))
		for i, it := range x.Items {
			out[i] = ToGo(it)
		}
		return out
	case *Dict:
		if x == nil {
			return nil
		}
		if textKeys(x) {
			out := make(map[string]any, x.Len())
			for _, e := range x.entries {
				out[string(e.Key.(Text))] = ToGo(e.Value)
			}
			return out
		}
		out := make(map[any]any, x.Len())
		for _, e := range x.entries {
			k := ToGo(e.Key)
			if k != nil && !reflect.TypeOf(k).Comparable() {
				// lists, dicts and blobs cannot key a Go map
				k = fmt.Sprint(e.Key)
			}
			out[k] = ToGo(e.Value)
		}
		return out
	}
	return nil
}

func textKeys(d *Dict) bool {
	for _, e := range d.entries {
		if _, ok := e.Key.(Text); !ok {
			return false
		}
	}
	return true
}

// sortKeys orders string, integer and float map keys so that encoding a Go
// map is deterministic. Other key kinds keep map iteration order.
func sortKeys(keys []reflect.Value) {
	if len(keys) < 2 {
		return
	}
	switch keys[0].Kind() {
	case reflect.String:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) })
	case reflect.Float32, reflect.Float64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) })
	}
}
