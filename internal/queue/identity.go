package queue

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type identityKind int

const (
	identityNone identityKind = iota
	identityScalar
	identityKeyed
)

type identity struct {
	kind  identityKind
	value string
}

// Same reports whether a and b refer to the same queued job: both objects
// with equal "key" fields, or both scalars with equal values.
func Same(a, b Item) bool {
	ia, ib := identityOf(a), identityOf(b)
	return ia.kind != identityNone && ia.kind == ib.kind && ia.value == ib.value
}

// ParseID decodes a scalar numeric item, as pushed by the refresh sweep
func ParseID(item Item) (int64, bool) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return 0, false
		}
		n = json.Number(s)
	}
	id, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return id, true
}

func indexOf(items []Item, item Item) int {
	want := identityOf(item)
	if want.kind == identityNone {
		return -1
	}
	for i, candidate := range items {
		got := identityOf(candidate)
		if got.kind == want.kind && got.value == want.value {
			return i
		}
	}
	return -1
}

func identityOf(raw Item) identity {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return identity{}
	}

	switch t := v.(type) {
	case map[string]any:
		key, ok := t["key"]
		if !ok {
			return identity{}
		}
		return identity{kind: identityKeyed, value: canonical(key)}
	case []any:
		return identity{}
	default:
		return identity{kind: identityScalar, value: canonical(t)}
	}
}

// canonical renders a decoded JSON value so that 5 and 5.0 compare equal
// while the string "5" stays distinct from the number 5.
func canonical(v any) string {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return "n:" + strconv.FormatInt(i, 10)
		}
		if f, err := t.Float64(); err == nil {
			if f == float64(int64(f)) {
				return "n:" + strconv.FormatInt(int64(f), 10)
			}
			return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "n:" + t.String()
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	case nil:
		return "null"
	default:
		b, _ := json.Marshal(t)
		return "j:" + string(b)
	}
}
