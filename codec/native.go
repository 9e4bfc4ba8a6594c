package codec

import (
	"fmt"
	"time"

	"github.com/unkn0wn-root/boss"
)

// plainOpts describe what a foreign format cannot carry.
type plainOpts struct {
	stringKeys bool // dicts become map[string]any; only Text and Int keys allowed
	bigText    bool // integers beyond 64 bits become decimal strings
	fitInts    bool // integers beyond 64 bits are rejected
	timeText   bool // timestamps become RFC 3339 strings
}

// plain converts v into the Go values a foreign encoder understands.
func plain(v boss.Value, o plainOpts) (any, error) {
	switch x := v.(type) {
	case boss.Int:
		if i, ok := x.Int64(); ok {
			return i, nil
		}
		b := x.Big()
		switch {
		case b.IsUint64():
			return b.Uint64(), nil
		case o.bigText:
			return b.String(), nil
		case o.fitInts:
			return nil, fmt.Errorf("codec: integer %s does not fit in 64 bits", b)
		}
		return b, nil
	case boss.Double:
		return float64(x), nil
	case boss.Timestamp:
		if o.timeText {
			return x.Time().Format(time.RFC3339), nil
		}
		return x.Time(), nil
	case *boss.List:
		out := make([]any, 0, x.Len())
		for _, it := range x.Items {
			p, err := plain(it, o)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case *boss.Dict:
		if o.stringKeys {
			out := make(map[string]any, x.Len())
			for _, e := range x.Entries() {
				k, err := keyString(e.Key)
				if err != nil {
					return nil, err
				}
				if out[k], err = plain(e.Value, o); err != nil {
					return nil, err
				}
			}
			return out, nil
		}
		out := make(map[any]any, x.Len())
		for _, e := range x.Entries() {
			k, err := plain(e.Key, o)
			if err != nil {
				return nil, err
			}
			if !hashable(k) {
				return nil, fmt.Errorf("codec: %s cannot be a map key", e.Key.Kind())
			}
			if out[k], err = plain(e.Value, o); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return boss.ToGo(v), nil
}

func keyString(k boss.Value) (string, error) {
	switch x := k.(type) {
	case boss.Text:
		return string(x), nil
	case boss.Int:
		return x.String(), nil
	}
	return "", fmt.Errorf("codec: %s cannot be an object key", kindOf(k))
}

func kindOf(v boss.Value) boss.Kind {
	if v == nil {
		return boss.KindNull
	}
	return v.Kind()
}

func hashable(k any) bool {
	switch k.(type) {
	case []any, map[any]any, []byte:
		return false
	}
	return true
}
