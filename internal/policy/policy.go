package policy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/gqlcache/internal/ir"
)

var (
	// ErrEmptyTypename is returned when a policy is registered without
	// a type name.
	ErrEmptyTypename = errors.New("policy: empty type name")
	// ErrEmptyField is returned when a field policy is registered
	// without a field name.
	ErrEmptyField = errors.New("policy: empty field name")
	// ErrDuplicateField indicates a second registration for the same
	// (type, field) pair.
	ErrDuplicateField = errors.New("policy: field already registered")
)

// ReadContext is the capability surface handed to a ReadFunc.
// It exposes the current field call without hidden captured state.
type ReadContext interface {
	// Args returns the field's resolved call arguments.
	Args() ir.Object

	// ToReference synthesizes a reference to an entity from a type
	// discriminator and its identifying fields. It does not touch the
	// store; the returned reference may point at an identity that was
	// never written. ok=false when no identity can be derived.
	ToReference(typename string, keyFields ir.Object) (ir.Ref, bool)

	// ReadField reads another field of the record currently being
	// read, by storage key. ok=false when the record has no value
	// under that key.
	ReadField(storageKey string) (ir.Value, bool)
}

// MergeContext is the capability surface handed to a MergeFunc.
type MergeContext interface {
	// Args returns the incoming field call's resolved arguments.
	Args() ir.Object

	// FieldName returns the schema field name being merged.
	FieldName() string
}

// ReadFunc computes the value a read resolves for a field. existing is
// the stored raw value, nil when nothing is stored under the field's
// storage key. The returned value supersedes the stored one for this
// read; returning nil means the field is missing. An error aborts the
// whole read.
type ReadFunc func(existing ir.Value, ctx ReadContext) (ir.Value, error)

// MergeFunc combines the record's existing value for a storage key with
// an incoming normalized value. existing is nil on first write. An
// error aborts the whole write.
type MergeFunc func(existing, incoming ir.Value, ctx MergeContext) (ir.Value, error)

// FieldPolicy configures one field of one type.
type FieldPolicy struct {
	Read  ReadFunc
	Merge MergeFunc

	// KeyArgs is the ordered list of argument names participating in
	// the field's storage key. nil means arguments are ignored for the
	// key (the default); they stay available to Read and Merge.
	KeyArgs []string
}

// TypePolicy configures one object type.
type TypePolicy struct {
	// KeyFields names the identifying fields, in order. nil falls back
	// to the default ("id" when present in the payload).
	KeyFields []string

	// Fields maps field name to its policy.
	Fields map[string]FieldPolicy
}

// Config is the policy registry for one cache instance.
type Config struct {
	types map[string]TypePolicy
}

// NewConfig returns an empty policy configuration.
func NewConfig() *Config {
	return &Config{types: make(map[string]TypePolicy)}
}

// RegisterType sets the policy for a type, replacing key fields and
// adding its field policies. Registering a field twice is an error.
func (c *Config) RegisterType(typename string, tp TypePolicy) error {
	if typename == "" {
		return ErrEmptyTypename
	}
	existing := c.types[typename]
	if tp.KeyFields != nil {
		existing.KeyFields = tp.KeyFields
	}
	if existing.Fields == nil {
		existing.Fields = make(map[string]FieldPolicy, len(tp.Fields))
	}
	for name, fp := range tp.Fields {
		if name == "" {
			return ErrEmptyField
		}
		if _, dup := existing.Fields[name]; dup {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, typename, name)
		}
		existing.Fields[name] = fp
	}
	c.types[typename] = existing
	return nil
}

// RegisterField sets the policy for a single (type, field) pair.
func (c *Config) RegisterField(typename, field string, fp FieldPolicy) error {
	if field == "" {
		return ErrEmptyField
	}
	return c.RegisterType(typename, TypePolicy{
		Fields: map[string]FieldPolicy{field: fp},
	})
}

// KeyFields returns the identifying fields configured for a type, or
// the default when none are configured.
func (c *Config) KeyFields(typename string) []string {
	if tp, ok := c.types[typename]; ok && tp.KeyFields != nil {
		return tp.KeyFields
	}
	return ir.DefaultKeyFields
}

// Field looks up the policy for an exact (type, field) pair.
func (c *Config) Field(typename, field string) (FieldPolicy, bool) {
	tp, ok := c.types[typename]
	if !ok {
		return FieldPolicy{}, false
	}
	fp, ok := tp.Fields[field]
	return fp, ok
}

// Types returns the configured type names, sorted.
func (c *Config) Types() []string {
	out := make([]string, 0, len(c.types))
	for name := range c.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
