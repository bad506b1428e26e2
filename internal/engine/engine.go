package engine

import (
	"log/slog"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/policy"
	"github.com/roach88/gqlcache/internal/store"
)

// Typenames used for policy lookup on the root records.
const (
	QueryTypename    = "Query"
	MutationTypename = "Mutation"
)

// Cache ties the entity store and the policy configuration together
// into the normalized cache engine.
//
// Thread-safety model:
//   - Write/WriteMutation/Reset/Restore: one caller at a time
//   - Read/ReadFrom: safe concurrently, strictly between writes
type Cache struct {
	store    *store.EntityStore
	policies *policy.Config
	logger   *slog.Logger
	tokens   TokenGenerator
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger for diagnostic output. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenGenerator replaces the write-token generator. Tests use
// NewFixedGenerator for deterministic tokens.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(c *Cache) {
		if g != nil {
			c.tokens = g
		}
	}
}

// New creates a cache engine over the given store and policies.
// A nil policies config behaves as an empty one.
func New(s *store.EntityStore, policies *policy.Config, opts ...Option) *Cache {
	if policies == nil {
		policies = policy.NewConfig()
	}
	c := &Cache{
		store:    s,
		policies: policies,
		logger:   slog.New(slog.DiscardHandler),
		tokens:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying entity store.
func (c *Cache) Store() *store.EntityStore {
	return c.store
}

// Policies returns the policy configuration.
func (c *Cache) Policies() *policy.Config {
	return c.policies
}

// Reset clears the entity store and returns the identities invalidated
// by the reset.
func (c *Cache) Reset() []string {
	c.store.Reset()
	ids := c.store.LastChanged()
	c.logger.Info("cache reset", "invalidated", len(ids))
	return ids
}

// rootTypename maps a well-known root identity to the typename used for
// policy lookup; entity identities resolve their typename from the
// record itself.
func rootTypename(identity string) string {
	switch identity {
	case ir.RootQueryID:
		return QueryTypename
	case ir.RootMutationID:
		return MutationTypename
	default:
		return ""
	}
}

// recordTypename extracts the type discriminator stored on a record,
// falling back to the root mapping.
func recordTypename(identity string, rec store.Record) string {
	if tn := rootTypename(identity); tn != "" {
		return tn
	}
	if rec != nil {
		if obj := ir.Object(rec); obj != nil {
			if tn, ok := obj.Typename(); ok {
				return tn
			}
		}
	}
	return ""
}
