package ir

import (
	"bytes"
	"fmt"
	"strings"
)

// Well-known root identities. Query and mutation roots are distinct
// records so a mutation payload never aliases query fields.
const (
	RootQueryID    = "ROOT_QUERY"
	RootMutationID = "ROOT_MUTATION"
)

// DefaultKeyFields is the identifying-field list assumed for a type with
// no explicit configuration.
var DefaultKeyFields = []string{"id"}

// IdentityOf computes the stable identity string for an entity payload.
//
// keyFields names the identifying fields in order. A single key field
// with a string value yields the compact form "Type:value"; anything
// else yields "Type:" followed by canonical JSON of the key-field
// object, so compound keys stay order-independent.
//
// Returns ok=false when the payload should be stored inline instead of
// normalized: empty typename, empty keyFields, or any identifying field
// absent (or null) in the payload.
//
// IdentityOf is pure: same inputs always produce the same identity.
func IdentityOf(typename string, keyFields []string, obj Object) (string, bool, error) {
	if typename == "" || len(keyFields) == 0 {
		return "", false, nil
	}

	if len(keyFields) == 1 {
		v, ok := obj[keyFields[0]]
		if !ok || isNull(v) {
			return "", false, nil
		}
		if s, isStr := v.(String); isStr {
			return typename + ":" + string(s), true, nil
		}
		b, err := MarshalCanonical(v)
		if err != nil {
			return "", false, fmt.Errorf("identity of %s: key field %q: %w", typename, keyFields[0], err)
		}
		return typename + ":" + string(b), true, nil
	}

	key := make(Object, len(keyFields))
	for _, f := range keyFields {
		v, ok := obj[f]
		if !ok || isNull(v) {
			return "", false, nil
		}
		key[f] = v
	}
	b, err := MarshalCanonical(key)
	if err != nil {
		return "", false, fmt.Errorf("identity of %s: %w", typename, err)
	}
	return typename + ":" + string(b), true, nil
}

// StorageKeyOf computes the record key for a field call.
//
// With a nil keyArgs filter the arguments are ignored and the key is
// the field name alone (the arguments remain available to read and
// merge functions; they just do not participate in identity). With an
// explicit filter the key is the field name plus a serialization of
// only the filtered argument values, in the filter's declared order,
// independent of the order arguments were supplied. An argument named
// by the filter but absent from the call is omitted, not an error.
func StorageKeyOf(field string, args Object, keyArgs []string) (string, error) {
	if keyArgs == nil {
		return field, nil
	}

	var buf bytes.Buffer
	buf.WriteString(field)
	buf.WriteString("({")
	wrote := false
	for _, name := range keyArgs {
		v, ok := args[name]
		if !ok {
			continue
		}
		if wrote {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(name)
		if err != nil {
			return "", fmt.Errorf("storage key of %s: arg %q: %w", field, name, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalCanonical(v)
		if err != nil {
			return "", fmt.Errorf("storage key of %s: arg %q: %w", field, name, err)
		}
		buf.Write(vb)
		wrote = true
	}
	buf.WriteString("})")
	return buf.String(), nil
}

// FieldOfStorageKey returns the field name portion of a storage key.
// Inverse enough of StorageKeyOf for diagnostics and inspection output.
func FieldOfStorageKey(key string) string {
	if i := strings.IndexByte(key, '('); i >= 0 {
		return key[:i]
	}
	return key
}

func isNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
