// Package engine implements the normalized cache's write and read
// paths.
//
// The write path (Write/WriteMutation) walks a response tree guided by
// a selection shape, decomposes it into flat entity records, replaces
// nested entities with references, and merges the records into the
// entity store. It returns the set of identities whose records changed
// so a collaborator can broadcast invalidation.
//
// The read path (Read/ReadFrom) walks a selection shape against the
// store, following references and applying per-field read policies, and
// reconstructs a denormalized result together with a completeness flag.
// A missing field at any depth makes the result incomplete but never
// aborts the walk: siblings still resolve, and the caller decides
// whether incompleteness means a network fetch.
//
// The engine performs no locking and no I/O. Writes are serialized by
// the caller; reads are safe concurrently strictly between writes.
package engine
