package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// RefKey is the reserved object key marking a serialized reference.
// A JSON object of the form {"__ref": "<identity>"} decodes to a Ref.
const RefKey = "__ref"

// TypenameKey is the reserved field carrying the type discriminator in
// GraphQL response payloads.
const TypenameKey = "__typename"

// Value is a sealed interface over the cache value variants.
// Only Null, String, Int, Float, Bool, List, Object, and Ref implement it.
type Value interface {
	value() // Sealed - only types in this package implement it
}

// Null represents a JSON null. A stored Null is a present value,
// distinct from a missing field.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. JSON numbers without a fractional
// part decode as Int, everything else as Float.
type Int int64

func (Int) value() {}

// Float represents a floating-point value.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// List represents an ordered sequence of values. Elements may be a mix
// of scalars, inline objects, and references.
type List []Value

func (List) value() {}

// Object represents a map of response keys to values. Use SortedKeys
// for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Ref is an opaque reference token standing in for an entity record.
// It is a lookup key into the entity store, never an owning pointer:
// the store is the sole owner of the referenced record.
type Ref struct {
	ID string
}

func (Ref) value() {}

// MarshalJSON implements json.Marshaler for Ref.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{RefKey: r.ID})
}

// SortedKeys returns object keys ordered by UTF-16 code units, the
// ordering canonical JSON requires. Go's sort.Strings compares UTF-8
// bytes, which produces a DIFFERENT order for non-BMP keys.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units with correct
// surrogate handling.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Typename returns the type discriminator carried by the object, if any.
func (obj Object) Typename() (string, bool) {
	v, ok := obj[TypenameKey]
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// MarshalJSON implements json.Marshaler for Object with keys in
// canonical order, so plain JSON output is deterministic too.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(obj[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
// An object carrying only the reserved "__ref" key still decodes as an
// Object here; use DecodeValue when references must round-trip as Ref.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := DecodeValue(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = make(List, len(raw))
	for i, v := range raw {
		val, err := DecodeValue(v)
		if err != nil {
			return fmt.Errorf("list index %d: %w", i, err)
		}
		(*l)[i] = val
	}
	return nil
}

// DecodeValue decodes a JSON value into the appropriate variant.
// {"__ref": "<id>"} objects decode to Ref; integral numbers decode to
// Int, all other numbers to Float.
func DecodeValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[':
		var l List
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil

	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		// Reference form: exactly one key, "__ref", string value.
		if len(raw) == 1 {
			if refData, ok := raw[RefKey]; ok {
				var id string
				if err := json.Unmarshal(refData, &id); err == nil {
					return Ref{ID: id}, nil
				}
			}
		}
		obj := make(Object, len(raw))
		for k, v := range raw {
			val, err := DecodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("object key %q: %w", k, err)
			}
			obj[k] = val
		}
		return obj, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", string(data))
		}
		return Float(f), nil
	}
}

// FromAny converts a decoded-JSON / YAML style Go value into a Value.
// Supported inputs: nil, bool, string, int variants, float64, json.Number,
// []any, map[string]any, and existing Values.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case float64:
		// YAML and encoding/json both hand integral numbers over as
		// float64; keep them integral when exact.
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", val.String())
		}
		return Float(f), nil
	case []any:
		l := make(List, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = ev
		}
		return l, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToAny converts a Value back into plain Go values (map[string]any,
// []any, scalars). Refs become {"__ref": id} maps.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Ref:
		return map[string]any{RefKey: val.ID}
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality of two values. Objects compare by key set
// and per-key equality; lists compare element-wise in order.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Ref:
		bv, ok := b.(Ref)
		return ok && av.ID == bv.ID
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !Equal(v, bvv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Copy returns a deep copy of v. Scalars and refs are value types and
// returned as-is; lists and objects are cloned recursively.
func Copy(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = Copy(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Copy(elem)
		}
		return out
	default:
		return v
	}
}
