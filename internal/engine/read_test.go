package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/policy"
	"github.com/roach88/gqlcache/internal/selection"
)

func TestReadRoundTrip(t *testing.T) {
	c := newTestCache(t, nil)
	_, err := c.Write(bookShape(), bookPayload(), nil)
	require.NoError(t, err)

	res, err := c.Read(bookShape(), nil)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.Missing)

	want := ir.Object{
		"book": ir.Object{
			"id":       ir.String("1"),
			"title":    ir.String("T"),
			"abstract": ir.String("A"),
		},
	}
	assert.True(t, ir.Equal(want, res.Data), "got %v", ir.ToAny(res.Data))
}

func TestReadEmptyStoreIncomplete(t *testing.T) {
	c := newTestCache(t, nil)

	res, err := c.Read(bookShape(), nil)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Empty(t, res.Data)
	require.NotEmpty(t, res.Missing)
	assert.Equal(t, "book", res.Missing[0].Path)
}

func TestReadMissingFieldKeepsSiblings(t *testing.T) {
	c := newTestCache(t, nil)
	_, err := c.Write(bookShape(), bookPayload(), nil)
	require.NoError(t, err)

	// Same entity, one extra never-written field.
	shape := selection.Shape{{
		Name: "book",
		Args: []selection.Argument{{Name: "id", Value: ir.String("1")}},
		Of: selection.Shape{
			{Name: "id"},
			{Name: "title"},
			{Name: "abstract"},
			{Name: "publisher"},
		},
	}}

	res, err := c.Read(shape, nil)
	require.NoError(t, err)
	assert.False(t, res.Complete, "publisher was never normalized")

	book := res.Data["book"].(ir.Object)
	assert.True(t, ir.Equal(ir.String("T"), book["title"]), "siblings still resolve")
	_, has := book["publisher"]
	assert.False(t, has)

	require.Len(t, res.Missing, 1)
	assert.Equal(t, "book.publisher", res.Missing[0].Path)
	assert.Equal(t, "Book:1", res.Missing[0].Identity)
}

func TestReadRedirectViaToReference(t *testing.T) {
	policies := policy.NewConfig()
	require.NoError(t, policies.RegisterField(QueryTypename, "book", policy.FieldPolicy{
		Read: func(existing ir.Value, ctx policy.ReadContext) (ir.Value, error) {
			if existing != nil {
				return existing, nil
			}
			id, ok := ctx.Args()["id"]
			if !ok {
				return nil, nil
			}
			ref, ok := ctx.ToReference("Book", ir.Object{"id": id})
			if !ok {
				return nil, nil
			}
			return ref, nil
		},
	}))
	c := newTestCache(t, policies)

	// Normalize under a DIFFERENT query: no root entry for "book".
	writeShape := selection.Shape{{
		Name: "featured",
		Of:   selection.Shape{{Name: "id"}, {Name: "title"}, {Name: "abstract"}},
	}}
	writeData := ir.Object{
		"featured": ir.Object{
			"__typename": ir.String("Book"),
			"id":         ir.String("1"),
			"title":      ir.String("T"),
			"abstract":   ir.String("A"),
		},
	}
	_, err := c.Write(writeShape, writeData, nil)
	require.NoError(t, err)

	// The redirect answers book(id:"1") from the existing record.
	res, err := c.Read(bookShape(), nil)
	require.NoError(t, err)
	assert.True(t, res.Complete, "redirect satisfies the whole selection without a fetch")
	book := res.Data["book"].(ir.Object)
	assert.True(t, ir.Equal(ir.String("A"), book["abstract"]))
}

func TestReadRedirectIncompleteWhenFieldsMissing(t *testing.T) {
	policies := policy.NewConfig()
	require.NoError(t, policies.RegisterField(QueryTypename, "book", policy.FieldPolicy{
		Read: func(existing ir.Value, ctx policy.ReadContext) (ir.Value, error) {
			ref, _ := ctx.ToReference("Book", ir.Object{"id": ctx.Args()["id"]})
			return ref, nil
		},
	}))
	c := newTestCache(t, policies)

	writeShape := selection.Shape{{
		Name: "featured",
		Of:   selection.Shape{{Name: "id"}, {Name: "title"}},
	}}
	_, err := c.Write(writeShape, ir.Object{
		"featured": ir.Object{"__typename": ir.String("Book"), "id": ir.String("1"), "title": ir.String("T")},
	}, nil)
	require.NoError(t, err)

	// The redirect target exists but lacks "abstract": incomplete, so
	// the caller must fetch the full selection.
	res, err := c.Read(bookShape(), nil)
	require.NoError(t, err)
	assert.False(t, res.Complete)
}

func TestReadPolicyFabricatesValue(t *testing.T) {
	policies := policy.NewConfig()
	require.NoError(t, policies.RegisterField("Book", "displayTitle", policy.FieldPolicy{
		Read: func(existing ir.Value, ctx policy.ReadContext) (ir.Value, error) {
			title, ok := ctx.ReadField("title")
			if !ok {
				return nil, nil
			}
			return ir.String("» " + string(title.(ir.String))), nil
		},
	}))
	c := newTestCache(t, policies)
	_, err := c.Write(bookShape(), bookPayload(), nil)
	require.NoError(t, err)

	shape := selection.Shape{{
		Name: "book",
		Args: []selection.Argument{{Name: "id", Value: ir.String("1")}},
		Of:   selection.Shape{{Name: "displayTitle"}},
	}}
	res, err := c.Read(shape, nil)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	book := res.Data["book"].(ir.Object)
	assert.True(t, ir.Equal(ir.String("» T"), book["displayTitle"]))
}

func TestReadPolicyErrorPropagates(t *testing.T) {
	policies := policy.NewConfig()
	require.NoError(t, policies.RegisterField(QueryTypename, "book", policy.FieldPolicy{
		Read: func(existing ir.Value, ctx policy.ReadContext) (ir.Value, error) {
			return nil, assert.AnError
		},
	}))
	c := newTestCache(t, policies)

	_, err := c.Read(bookShape(), nil)
	require.Error(t, err)
	assert.True(t, IsPolicyError(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestReadDanglingReferenceIsMissingNotError(t *testing.T) {
	c := newTestCache(t, nil)

	// Plant a reference to an identity that was never written.
	c.Store().Begin("setup")
	_, err := c.Store().Merge(ir.RootQueryID, map[string]ir.Value{
		"book": ir.Ref{ID: "Book:404"},
	}, nil)
	require.NoError(t, err)

	shape := selection.Shape{{Name: "book", Of: selection.Shape{{Name: "id"}}}}
	res, err := c.Read(shape, nil)
	require.NoError(t, err, "malformed reference is data, not an error")
	assert.False(t, res.Complete)
	require.NotEmpty(t, res.Missing)
	assert.Contains(t, res.Missing[0].Reason, "Book:404")
}

func TestReadListMissingElementMarksFieldMissing(t *testing.T) {
	c := newTestCache(t, nil)

	c.Store().Begin("setup")
	_, err := c.Store().Merge(ir.RootQueryID, map[string]ir.Value{
		"books": ir.List{ir.Ref{ID: "Book:1"}, ir.Ref{ID: "Book:404"}},
	}, nil)
	require.NoError(t, err)
	_, err = c.Store().Merge("Book:1", map[string]ir.Value{
		"__typename": ir.String("Book"),
		"id":         ir.String("1"),
	}, nil)
	require.NoError(t, err)

	shape := selection.Shape{{Name: "books", Of: selection.Shape{{Name: "id"}}}}
	res, err := c.Read(shape, nil)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	_, has := res.Data["books"]
	assert.False(t, has, "one missing element drops the whole field")
}

func TestReadNullEntityIsComplete(t *testing.T) {
	c := newTestCache(t, nil)

	shape := selection.Shape{{Name: "book", Of: selection.Shape{{Name: "id"}}}}
	_, err := c.Write(shape, ir.Object{"book": ir.Null{}}, nil)
	require.NoError(t, err)

	res, err := c.Read(shape, nil)
	require.NoError(t, err)
	assert.True(t, res.Complete, "a stored null is a complete answer")
	assert.True(t, ir.Equal(ir.Null{}, res.Data["book"]))
}

func TestReadAliasedFields(t *testing.T) {
	policies := policy.NewConfig()
	require.NoError(t, policies.RegisterField(QueryTypename, "book", policy.FieldPolicy{
		KeyArgs: []string{"id"},
	}))
	c := newTestCache(t, policies)

	shape := selection.Shape{
		{Name: "book", Alias: "first", Args: []selection.Argument{{Name: "id", Value: ir.String("1")}},
			Of: selection.Shape{{Name: "title"}}},
		{Name: "book", Alias: "second", Args: []selection.Argument{{Name: "id", Value: ir.String("2")}},
			Of: selection.Shape{{Name: "title"}}},
	}
	data := ir.Object{
		"first":  ir.Object{"__typename": ir.String("Book"), "id": ir.String("1"), "title": ir.String("A")},
		"second": ir.Object{"__typename": ir.String("Book"), "id": ir.String("2"), "title": ir.String("B")},
	}

	_, err := c.Write(shape, data, nil)
	require.NoError(t, err)

	res, err := c.Read(shape, nil)
	require.NoError(t, err)
	require.True(t, res.Complete)
	assert.True(t, ir.Equal(ir.String("A"), res.Data["first"].(ir.Object)["title"]))
	assert.True(t, ir.Equal(ir.String("B"), res.Data["second"].(ir.Object)["title"]))
}

func TestReadFromEntityIdentity(t *testing.T) {
	c := newTestCache(t, nil)
	_, err := c.Write(bookShape(), bookPayload(), nil)
	require.NoError(t, err)

	shape := selection.Shape{{Name: "title"}, {Name: "abstract"}}
	res, err := c.ReadFrom("Book:1", shape, nil)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.True(t, ir.Equal(ir.String("T"), res.Data["title"]))
}

func TestReadInlineStructure(t *testing.T) {
	c := newTestCache(t, nil)

	shape := selection.Shape{{
		Name: "book",
		Of: selection.Shape{
			{Name: "id"},
			{Name: "dimensions", Of: selection.Shape{{Name: "width"}}},
		},
	}}
	data := ir.Object{
		"book": ir.Object{
			"__typename": ir.String("Book"),
			"id":         ir.String("1"),
			"dimensions": ir.Object{"width": ir.Int(20), "height": ir.Int(30)},
		},
	}
	_, err := c.Write(shape, data, nil)
	require.NoError(t, err)

	res, err := c.Read(shape, nil)
	require.NoError(t, err)
	require.True(t, res.Complete)
	book := res.Data["book"].(ir.Object)
	dims := book["dimensions"].(ir.Object)
	assert.True(t, ir.Equal(ir.Int(20), dims["width"]))
	_, has := dims["height"]
	assert.False(t, has, "only the selected subfields come back")
}

func TestReadNestedEntities(t *testing.T) {
	c := newTestCache(t, nil)

	shape := selection.Shape{{
		Name: "book",
		Of: selection.Shape{
			{Name: "id"},
			{Name: "author", Of: selection.Shape{{Name: "id"}, {Name: "name"}}},
		},
	}}
	data := ir.Object{
		"book": ir.Object{
			"__typename": ir.String("Book"),
			"id":         ir.String("1"),
			"author": ir.Object{
				"__typename": ir.String("Author"),
				"id":         ir.String("7"),
				"name":       ir.String("N"),
			},
		},
	}
	_, err := c.Write(shape, data, nil)
	require.NoError(t, err)

	// The author is its own record, reachable through the reference.
	assert.True(t, c.Store().Contains("Author:7"))

	res, err := c.Read(shape, nil)
	require.NoError(t, err)
	require.True(t, res.Complete)
	author := res.Data["book"].(ir.Object)["author"].(ir.Object)
	assert.True(t, ir.Equal(ir.String("N"), author["name"]))
}
