package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/store"
)

// Load reads the stored snapshot. An empty database yields an empty
// (non-nil) snapshot.
func (f *File) Load(ctx context.Context) (store.Snapshot, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT identity, fields FROM records ORDER BY identity
	`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: query: %w", err)
	}
	defer rows.Close()

	sn := make(store.Snapshot)
	for rows.Next() {
		var identity, fields string
		if err := rows.Scan(&identity, &fields); err != nil {
			return nil, fmt.Errorf("load snapshot: scan: %w", err)
		}

		v, err := ir.DecodeValue([]byte(fields))
		if err != nil {
			return nil, fmt.Errorf("load snapshot: record %q: %w", identity, err)
		}
		obj, ok := v.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("load snapshot: record %q is %T, want object", identity, v)
		}
		sn[identity] = store.Record(obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: rows: %w", err)
	}

	return sn, nil
}

// SavedAt returns the recorded save timestamp (RFC 3339), or an empty
// string if the snapshot has never been saved.
func (f *File) SavedAt(ctx context.Context) (string, error) {
	var value string
	err := f.db.QueryRowContext(ctx, `
		SELECT value FROM meta WHERE key = 'saved_at'
	`).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load snapshot: saved_at: %w", err)
	}
	return value, nil
}
