package store

import (
	"log/slog"
	"sort"

	"github.com/roach88/gqlcache/internal/ir"
)

// Record is one entity's flat field map: storage key to value.
type Record map[string]ir.Value

// MergeValueFunc combines an existing stored value with an incoming
// one. existing is nil on first write of the storage key.
type MergeValueFunc func(existing, incoming ir.Value) (ir.Value, error)

// ConflictPolicy decides the default outcome when a write collides with
// an incompatible stored value and no custom merge intervenes.
type ConflictPolicy int

const (
	// ConflictOverwrite lets the incoming value win. The conflict is
	// logged, never silent. This is the default.
	ConflictOverwrite ConflictPolicy = iota

	// ConflictKeepExisting drops the incoming value for the colliding
	// storage key, also logged.
	ConflictKeepExisting
)

// EntityStore maps entity identities to records.
type EntityStore struct {
	records map[string]Record

	dirty      map[string]bool
	seq        int64
	writeToken string

	conflict ConflictPolicy
	logger   *slog.Logger
}

// Option configures an EntityStore.
type Option func(*EntityStore)

// WithLogger sets the logger used for conflict reporting.
// Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *EntityStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConflictPolicy sets the default merge-conflict outcome.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(s *EntityStore) { s.conflict = p }
}

// New creates an empty entity store.
func New(opts ...Option) *EntityStore {
	s := &EntityStore{
		records: make(map[string]Record),
		dirty:   make(map[string]bool),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts a write pass: clears the dirty set, bumps the logical
// write sequence, and records the pass token used in conflict logs.
func (s *EntityStore) Begin(token string) {
	s.dirty = make(map[string]bool)
	s.seq++
	s.writeToken = token
}

// Seq returns the logical write sequence: the number of write passes
// begun since creation (or since the last Restore).
func (s *EntityStore) Seq() int64 {
	return s.seq
}

// LastChanged returns the identities marked dirty in the current write
// pass, sorted for deterministic output.
func (s *EntityStore) LastChanged() []string {
	out := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Get returns the record stored under an identity. The returned record
// is the store's own memory: callers must not mutate it.
func (s *EntityStore) Get(identity string) (Record, bool) {
	rec, ok := s.records[identity]
	return rec, ok
}

// Resolve follows a reference token to its record, distinguishing a
// dangling reference (ok=false) from a present record. Whether a
// present record satisfies a given selection is the reader's call.
func (s *EntityStore) Resolve(ref ir.Ref) (Record, bool) {
	return s.Get(ref.ID)
}

// Contains reports whether an identity has a record.
func (s *EntityStore) Contains(identity string) bool {
	_, ok := s.records[identity]
	return ok
}

// Set replaces the record under an identity wholesale and marks it
// dirty. Most writers want Merge; Set exists for restore-style callers.
func (s *EntityStore) Set(identity string, rec Record) {
	s.records[identity] = rec
	s.dirty[identity] = true
}

// Merge writes a partial record field-by-field into the record under
// identity, creating it if absent. For each storage key, mergeFor (may
// be nil) supplies an optional custom merge function; without one the
// incoming value overwrites, except that incompatible collisions fall
// back to the store's conflict policy.
//
// Returns whether anything actually changed. The identity is marked
// dirty only on change, so an idempotent re-write broadcasts nothing.
func (s *EntityStore) Merge(identity string, partial Record, mergeFor func(storageKey string) MergeValueFunc) (bool, error) {
	rec, ok := s.records[identity]
	if !ok {
		rec = make(Record, len(partial))
		s.records[identity] = rec
	}

	changed := false
	for _, key := range sortedKeys(partial) {
		incoming := partial[key]
		existing, exists := rec[key]

		var merge MergeValueFunc
		if mergeFor != nil {
			merge = mergeFor(key)
		}

		var next ir.Value
		if merge != nil {
			var ex ir.Value
			if exists {
				ex = existing
			}
			merged, err := merge(ex, incoming)
			if err != nil {
				return changed, err
			}
			next = merged
		} else {
			if exists && s.collides(identity, key, existing, incoming) && s.conflict == ConflictKeepExisting {
				continue
			}
			next = incoming
		}

		if !exists || !ir.Equal(existing, next) {
			rec[key] = next
			changed = true
		}
	}

	if changed {
		s.dirty[identity] = true
	}
	return changed, nil
}

// collides reports and logs incompatible overwrites: a stored reference
// replaced by a non-reference (or the reverse), and a type
// discriminator change on the same identity.
func (s *EntityStore) collides(identity, key string, existing, incoming ir.Value) bool {
	_, exRef := existing.(ir.Ref)
	_, inRef := incoming.(ir.Ref)
	if exRef != inRef {
		s.logger.Warn("merge conflict: reference and non-reference under one storage key",
			"identity", identity,
			"storage_key", key,
			"write_token", s.writeToken,
			"seq", s.seq,
		)
		return true
	}

	if key == ir.TypenameKey && !ir.Equal(existing, incoming) {
		s.logger.Warn("identity conflict: type discriminator changed",
			"identity", identity,
			"from", ir.ToAny(existing),
			"to", ir.ToAny(incoming),
			"write_token", s.writeToken,
			"seq", s.seq,
		)
		return true
	}

	return false
}

// Reset clears all records and reinitializes empty. Every identity
// present before the reset lands in the dirty set so subscribers can
// invalidate everything they watch.
func (s *EntityStore) Reset() {
	s.Begin("reset")
	for id := range s.records {
		s.dirty[id] = true
	}
	s.records = make(map[string]Record)
}

// Identities returns all stored identities, sorted.
func (s *EntityStore) Identities() []string {
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of stored records.
func (s *EntityStore) Len() int {
	return len(s.records)
}

func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
