package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gqlcache/internal/store"
)

func compile(t *testing.T, src string) (*Settings, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileConfig(v.LookupPath(cue.ParsePath("cache")))
}

func TestCompileConfigBasic(t *testing.T) {
	settings, err := compile(t, `
cache: {
	conflict: "keep"
	types: {
		Book: {
			keyFields: ["isbn"]
			fields: {
				reviews: {keyArgs: ["lang"], merge: "append"}
			}
		}
		Query: {
			fields: {
				book: {keyArgs: ["id"]}
			}
		}
	}
}`)
	require.NoError(t, err)

	assert.Equal(t, store.ConflictKeepExisting, settings.Conflict)
	assert.Equal(t, []string{"isbn"}, settings.Policies.KeyFields("Book"))

	fp, ok := settings.Policies.Field("Book", "reviews")
	require.True(t, ok)
	assert.Equal(t, []string{"lang"}, fp.KeyArgs)
	assert.NotNil(t, fp.Merge)

	fp, ok = settings.Policies.Field("Query", "book")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, fp.KeyArgs)
	assert.Nil(t, fp.Merge, "no merge name means default overwrite")
}

func TestCompileConfigDefaults(t *testing.T) {
	settings, err := compile(t, `cache: {}`)
	require.NoError(t, err)
	assert.Equal(t, store.ConflictOverwrite, settings.Conflict)
	assert.Equal(t, []string{"id"}, settings.Policies.KeyFields("Anything"))
}

func TestCompileConfigKeyArgsFalse(t *testing.T) {
	settings, err := compile(t, `
cache: types: Query: fields: books: {keyArgs: false}`)
	require.NoError(t, err)

	fp, ok := settings.Policies.Field("Query", "books")
	require.True(t, ok)
	assert.Nil(t, fp.KeyArgs, "keyArgs false ignores all arguments")
}

func TestCompileConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad conflict", `cache: conflict: "maybe"`, "conflict"},
		{"empty keyFields", `cache: types: Book: keyFields: []`, "keyFields"},
		{"keyArgs true", `cache: types: Query: fields: b: keyArgs: true`, "keyArgs"},
		{"unknown merge", `cache: types: Query: fields: b: merge: "bogus"`, "merge"},
		{"keyArgs not a list", `cache: types: Query: fields: b: keyArgs: "id"`, "keyArgs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileConfigMissing(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: {}`)
	_, err := CompileConfig(v.LookupPath(cue.ParsePath("cache")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache configuration is required")
}

func TestCompileErrorFormat(t *testing.T) {
	e := &CompileError{Field: "keyArgs", Message: "boom"}
	assert.Equal(t, "keyArgs: boom", e.Error())
}
