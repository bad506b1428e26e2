// Package store provides the flat entity store at the heart of the
// normalized cache.
//
// The store maps entity identity strings to Records, each a mapping
// from storage key to value. Values nest plain structures and lists but
// never other entities: a nested entity is represented by an ir.Ref
// holding the identity of its own record. The store is the sole owner
// of record memory; everything else holds lookup keys.
//
// # Concurrency model
//
// The store performs no locking. Writes are assumed serialized by the
// caller (one logical writer at a time); concurrent reads are safe
// strictly between writes. Nothing here suspends or does I/O.
//
// # Change tracking
//
// Every write pass is delimited by Begin, which clears the dirty set
// and bumps the logical write sequence. Set and Merge mark identities
// dirty; LastChanged surfaces the dirty set so a collaborator can
// broadcast invalidation. Delivery is the collaborator's problem - the
// store never pushes.
package store
