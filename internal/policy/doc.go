// Package policy defines per-(type, field) cache behavior: custom read
// and merge functions, key-argument filters, and per-type identifying
// fields.
//
// A Config is an explicit configuration object handed to the engine at
// construction, never process-global state, so independent cache
// instances can carry different policies. Lookup is by exact
// (typename, field) pair; there is no wildcard or inheritance matching.
//
// Read and merge functions are plain function values. The capabilities
// they historically closed over (current arguments, reference
// synthesis, sibling reads) arrive as an explicit context parameter
// implemented by the engine.
package policy
