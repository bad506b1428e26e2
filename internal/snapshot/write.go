package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/store"
)

// Save replaces the stored snapshot with sn. The swap is atomic: a
// reader opening the file mid-save sees either the previous image or
// the new one, never a mix.
//
// Each record is serialized to canonical JSON per RFC 8785, so saving
// the same snapshot twice produces byte-identical rows.
func (f *File) Save(ctx context.Context, sn store.Snapshot) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("save snapshot: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (identity, fields) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for identity, rec := range sn {
		fields, err := ir.MarshalCanonical(ir.Object(rec))
		if err != nil {
			return fmt.Errorf("save snapshot: record %q: %w", identity, err)
		}
		if _, err := stmt.ExecContext(ctx, identity, string(fields)); err != nil {
			return fmt.Errorf("save snapshot: insert %q: %w", identity, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('saved_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save snapshot: meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}
