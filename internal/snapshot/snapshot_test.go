package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/store"
)

// openTestFile creates a snapshot database in a temp dir.
func openTestFile(t *testing.T) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func testSnapshot() store.Snapshot {
	return store.Snapshot{
		"ROOT_QUERY": {
			"book": ir.Ref{ID: "Book:1"},
		},
		"Book:1": {
			ir.TypenameKey: ir.String("Book"),
			"id":           ir.String("1"),
			"title":        ir.String("Dune"),
			"author":       ir.Ref{ID: "Author:7"},
		},
		"Author:7": {
			ir.TypenameKey: ir.String("Author"),
			"id":           ir.String("7"),
			"name":         ir.String("Frank Herbert"),
		},
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer f.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("snapshot file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	for i := 0; i < 3; i++ {
		f, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		f.Close()
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer f.Close()

	for _, table := range []string{"records", "meta"} {
		var name string
		err := f.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/cache.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	f := openTestFile(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
	}
	for name, want := range checks {
		if err := f.verifyPragma(name, want); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	f := openTestFile(t)
	ctx := context.Background()

	in := testSnapshot()
	if err := f.Save(ctx, in); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	out, err := f.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	wantJSON, err := in.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON(in) failed: %v", err)
	}
	gotJSON, err := out.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON(out) failed: %v", err)
	}
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("round trip mismatch:\n got  %s\n want %s", gotJSON, wantJSON)
	}
}

func TestSave_ReplacesPreviousImage(t *testing.T) {
	f := openTestFile(t)
	ctx := context.Background()

	if err := f.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("first Save() failed: %v", err)
	}

	second := store.Snapshot{
		"Book:2": {
			ir.TypenameKey: ir.String("Book"),
			"id":           ir.String("2"),
		},
	}
	if err := f.Save(ctx, second); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	out, err := f.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Load() returned %d records, want 1", len(out))
	}
	if _, ok := out["Book:2"]; !ok {
		t.Error("Book:2 missing after replacing save")
	}
	if _, ok := out["Book:1"]; ok {
		t.Error("Book:1 survived a replacing save")
	}
}

func TestLoad_EmptyDatabase(t *testing.T) {
	f := openTestFile(t)

	out, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if out == nil {
		t.Fatal("Load() returned nil snapshot for empty database")
	}
	if len(out) != 0 {
		t.Errorf("Load() returned %d records, want 0", len(out))
	}
}

func TestSavedAt(t *testing.T) {
	f := openTestFile(t)
	ctx := context.Background()

	at, err := f.SavedAt(ctx)
	if err != nil {
		t.Fatalf("SavedAt() failed: %v", err)
	}
	if at != "" {
		t.Errorf("SavedAt() = %q before any save, want empty", at)
	}

	if err := f.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	at, err = f.SavedAt(ctx)
	if err != nil {
		t.Fatalf("SavedAt() after save failed: %v", err)
	}
	if at == "" {
		t.Error("SavedAt() empty after save")
	}
}

func TestSave_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	f1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := f1.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	f1.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer f2.Close()

	out, err := f2.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after reopen failed: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("Load() returned %d records, want 3", len(out))
	}
}
