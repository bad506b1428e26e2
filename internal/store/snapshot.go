package store

import (
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
)

// Snapshot is a serializable copy of the store's full record set.
// External persistence adapters move Snapshots in and out; the store
// itself never touches disk.
type Snapshot map[string]Record

// Extract returns an atomic deep copy of every record. Mutating the
// snapshot never affects the store.
func (s *EntityStore) Extract() Snapshot {
	out := make(Snapshot, len(s.records))
	for id, rec := range s.records {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = ir.Copy(v)
		}
		out[id] = cp
	}
	return out
}

// Restore atomically replaces the store's contents with a deep copy of
// the snapshot. The write sequence restarts and every restored identity
// lands in the dirty set.
func (s *EntityStore) Restore(sn Snapshot) {
	records := make(map[string]Record, len(sn))
	for id, rec := range sn {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = ir.Copy(v)
		}
		records[id] = cp
	}

	s.records = records
	s.seq = 0
	s.Begin("restore")
	for id := range records {
		s.dirty[id] = true
	}
}

// CanonicalJSON serializes the snapshot as canonical JSON: identities
// and storage keys in canonical order, references in {"__ref": ...}
// form. Suitable for golden-file comparison and persistence.
func (sn Snapshot) CanonicalJSON() ([]byte, error) {
	root := make(ir.Object, len(sn))
	for id, rec := range sn {
		root[id] = ir.Object(rec)
	}
	b, err := ir.MarshalCanonical(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return b, nil
}

// SnapshotFromJSON decodes a snapshot previously produced by
// CanonicalJSON (or any JSON of the same shape).
func SnapshotFromJSON(data []byte) (Snapshot, error) {
	v, err := ir.DecodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("snapshot: top level is %T, want object", v)
	}

	sn := make(Snapshot, len(obj))
	for id, recVal := range obj {
		recObj, ok := recVal.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("snapshot: record %q is %T, want object", id, recVal)
		}
		sn[id] = Record(recObj)
	}
	return sn, nil
}
