package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/gqlcache/internal/ir"
)

func TestMatchSubset(t *testing.T) {
	tests := []struct {
		name     string
		want     ir.Value
		got      ir.Value
		mismatch string // substring of the expected mismatch, "" for match
	}{
		{
			name: "subset object matches",
			want: ir.Object{"title": ir.String("Dune")},
			got:  ir.Object{"title": ir.String("Dune"), "id": ir.String("1")},
		},
		{
			name:     "absent key",
			want:     ir.Object{"title": ir.String("Dune")},
			got:      ir.Object{"id": ir.String("1")},
			mismatch: `key "title" absent`,
		},
		{
			name:     "leaf mismatch",
			want:     ir.Object{"title": ir.String("Dune")},
			got:      ir.Object{"title": ir.String("Neuromancer")},
			mismatch: "title",
		},
		{
			name: "nested subset",
			want: ir.Object{"author": ir.Object{"name": ir.String("Frank Herbert")}},
			got: ir.Object{"author": ir.Object{
				"name": ir.String("Frank Herbert"),
				"id":   ir.String("7"),
			}},
		},
		{
			name: "list element-wise",
			want: ir.List{ir.Object{"id": ir.String("1")}, ir.Object{"id": ir.String("2")}},
			got: ir.List{
				ir.Object{"id": ir.String("1"), "title": ir.String("a")},
				ir.Object{"id": ir.String("2"), "title": ir.String("b")},
			},
		},
		{
			name:     "list length mismatch",
			want:     ir.List{ir.Int(1)},
			got:      ir.List{ir.Int(1), ir.Int(2)},
			mismatch: "list length 2, expected 1",
		},
		{
			name: "ref equality",
			want: ir.Ref{ID: "Book:1"},
			got:  ir.Ref{ID: "Book:1"},
		},
		{
			name:     "ref mismatch",
			want:     ir.Ref{ID: "Book:1"},
			got:      ir.Ref{ID: "Book:2"},
			mismatch: "Book:2",
		},
		{
			name:     "object against scalar",
			want:     ir.Object{"x": ir.Int(1)},
			got:      ir.String("nope"),
			mismatch: "expected object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := matchSubset(tt.want, tt.got, "")
			if tt.mismatch == "" {
				assert.Empty(t, msg)
			} else {
				assert.Contains(t, msg, tt.mismatch)
			}
		})
	}
}

func TestNormalizeRefs(t *testing.T) {
	in := ir.Object{
		"book": ir.Object{ir.RefKey: ir.String("Book:1")},
		"list": ir.List{ir.Object{ir.RefKey: ir.String("Book:2")}},
		"plain": ir.Object{
			ir.RefKey: ir.String("Book:3"),
			"extra":   ir.Int(1),
		},
	}

	out := normalizeRefs(in).(ir.Object)
	assert.Equal(t, ir.Ref{ID: "Book:1"}, out["book"])
	assert.Equal(t, ir.Ref{ID: "Book:2"}, out["list"].(ir.List)[0])
	// A two-key object is data that happens to contain "__ref", not a
	// reference.
	_, isObj := out["plain"].(ir.Object)
	assert.True(t, isObj)
}
