package harness

import (
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/store"
)

// evalAssertions validates the final store image.
func evalAssertions(s *store.EntityStore, assertions []Assertion, result *Result) {
	for i, a := range assertions {
		switch a.Type {
		case AssertRecord:
			assertRecord(s, i, &a, result)
		case AssertContains:
			if !s.Contains(a.Identity) {
				result.AddError(fmt.Sprintf("assertions[%d]: record %q not found", i, a.Identity))
			}
		case AssertAbsent:
			if s.Contains(a.Identity) {
				result.AddError(fmt.Sprintf("assertions[%d]: record %q unexpectedly present", i, a.Identity))
			}
		case AssertRecordCount:
			if s.Len() != a.Count {
				result.AddError(fmt.Sprintf(
					"assertions[%d]: store holds %d record(s), expected %d", i, s.Len(), a.Count))
			}
		}
	}
}

// assertRecord checks a record exists and its fields subset-match.
func assertRecord(s *store.EntityStore, index int, a *Assertion, result *Result) {
	rec, ok := s.Get(a.Identity)
	if !ok {
		result.AddError(fmt.Sprintf("assertions[%d]: record %q not found", index, a.Identity))
		return
	}

	want, err := toObject(a.Fields)
	if err != nil {
		result.AddError(fmt.Sprintf("assertions[%d]: fields: %v", index, err))
		return
	}

	if msg := matchSubset(want, ir.Object(rec), ""); msg != "" {
		result.AddError(fmt.Sprintf("assertions[%d]: record %q: %s", index, a.Identity, msg))
	}
}

// matchSubset compares expected against actual. Objects subset-match:
// every expected key must be present and match, extra actual keys are
// fine. Lists match element-wise with exact length. Everything else
// compares with ir.Equal. Returns a description of the first mismatch,
// or "" on match.
func matchSubset(want, got ir.Value, path string) string {
	switch w := want.(type) {
	case ir.Object:
		g, ok := got.(ir.Object)
		if !ok {
			return fmt.Sprintf("%s: got %s, expected object", displayPath(path), describe(got))
		}
		for _, k := range w.SortedKeys() {
			gv, ok := g[k]
			if !ok {
				return fmt.Sprintf("%s: key %q absent", displayPath(path), k)
			}
			if msg := matchSubset(w[k], gv, path+"."+k); msg != "" {
				return msg
			}
		}
		return ""
	case ir.List:
		g, ok := got.(ir.List)
		if !ok {
			return fmt.Sprintf("%s: got %s, expected list", displayPath(path), describe(got))
		}
		if len(g) != len(w) {
			return fmt.Sprintf("%s: list length %d, expected %d", displayPath(path), len(g), len(w))
		}
		for i := range w {
			if msg := matchSubset(w[i], g[i], fmt.Sprintf("%s[%d]", path, i)); msg != "" {
				return msg
			}
		}
		return ""
	default:
		if !ir.Equal(want, got) {
			return fmt.Sprintf("%s: got %s, expected %s", displayPath(path), describe(got), describe(want))
		}
		return ""
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	if path[0] == '.' {
		return path[1:]
	}
	return path
}

// describe renders a value for mismatch messages.
func describe(v ir.Value) string {
	if v == nil {
		return "absent"
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	return string(b)
}
