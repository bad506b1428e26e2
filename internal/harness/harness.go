// Package harness provides a conformance testing framework for the
// normalized cache.
//
// Scenarios are YAML files describing a sequence of writes, reads, and
// resets against a fresh cache. Each read can assert on completeness,
// result data, and missing paths; after the last step the scenario's
// assertions run against the final store image. Golden files capture
// the step trace plus the canonical JSON of the final store, so a
// change in normalization behavior shows up as a golden diff.
//
// Write tokens are deterministic ("write-1", "write-2", ...) so traces
// and goldens are stable across runs.
package harness

import (
	"fmt"
	"log/slog"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/gqlcache/internal/compiler"
	"github.com/roach88/gqlcache/internal/engine"
	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/selection"
	"github.com/roach88/gqlcache/internal/store"
)

// Harness executes one scenario against a fresh cache.
type Harness struct {
	cache  *engine.Cache
	logger *slog.Logger
}

// seqTokens generates "write-1", "write-2", ... for deterministic
// traces without predeclaring the write count.
type seqTokens struct {
	n int
}

func (g *seqTokens) Generate() string {
	g.n++
	return fmt.Sprintf("write-%d", g.n)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory cache for isolation.
// Infrastructure problems (malformed shapes, bad config) return an
// error; expectation and assertion failures land in the result.
func Run(scenario *Scenario) (*Result, error) {
	settings, err := compileConfig(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	logger := slog.New(slog.DiscardHandler)
	st := store.New(
		store.WithLogger(logger),
		store.WithConflictPolicy(settings.Conflict),
	)
	cache := engine.New(st, settings.Policies,
		engine.WithLogger(logger),
		engine.WithTokenGenerator(&seqTokens{}),
	)

	h := &Harness{cache: cache, logger: logger}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
	}

	evalAssertions(cache.Store(), scenario.Assertions, result)
	result.snapshot = cache.Store().Extract()

	return result, nil
}

// compileConfig compiles inline CUE policy config into engine settings.
func compileConfig(src string) (*compiler.Settings, error) {
	if src == "" {
		return &compiler.Settings{Conflict: store.ConflictOverwrite}, nil
	}
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return compiler.CompileConfig(value.LookupPath(cue.ParsePath("cache")))
}

// executeStep runs one step and appends its trace event.
func (h *Harness) executeStep(index int, step Step, result *Result) error {
	switch {
	case step.Write != nil:
		return h.executeWrite(index, step.Write, result)
	case step.Read != nil:
		return h.executeRead(index, step.Read, result)
	case step.Reset:
		invalidated := h.cache.Reset()
		result.Trace = append(result.Trace, StepEvent{
			Type:        "reset",
			Invalidated: invalidated,
		})
		return nil
	default:
		return fmt.Errorf("steps[%d]: empty step", index)
	}
}

func (h *Harness) executeWrite(index int, step *WriteStep, result *Result) error {
	shape, err := selection.Parse([]byte(step.Shape))
	if err != nil {
		return fmt.Errorf("steps[%d].write: %w", index, err)
	}
	payload, err := toObject(step.Payload)
	if err != nil {
		return fmt.Errorf("steps[%d].write payload: %w", index, err)
	}
	vars, err := toObject(step.Vars)
	if err != nil {
		return fmt.Errorf("steps[%d].write vars: %w", index, err)
	}

	var change engine.ChangeSet
	if step.Mutation {
		change, err = h.cache.WriteMutation(shape, payload, vars)
	} else {
		change, err = h.cache.Write(shape, payload, vars)
	}
	if err != nil {
		return fmt.Errorf("steps[%d].write: %w", index, err)
	}

	result.Trace = append(result.Trace, StepEvent{
		Type:       "write",
		WriteToken: change.WriteToken,
		Seq:        change.Seq,
		Changed:    change.Identities,
	})

	if step.Expect != nil && !slices.Equal(step.Expect.Changed, change.Identities) {
		result.AddError(fmt.Sprintf("steps[%d].write: changed %v, want %v",
			index, change.Identities, step.Expect.Changed))
	}
	return nil
}

func (h *Harness) executeRead(index int, step *ReadStep, result *Result) error {
	shape, err := selection.Parse([]byte(step.Shape))
	if err != nil {
		return fmt.Errorf("steps[%d].read: %w", index, err)
	}
	vars, err := toObject(step.Vars)
	if err != nil {
		return fmt.Errorf("steps[%d].read vars: %w", index, err)
	}

	var res engine.Result
	if step.From != "" {
		res, err = h.cache.ReadFrom(step.From, shape, vars)
	} else {
		res, err = h.cache.Read(shape, vars)
	}
	if err != nil {
		return fmt.Errorf("steps[%d].read: %w", index, err)
	}

	missing := make([]string, 0, len(res.Missing))
	for _, m := range res.Missing {
		missing = append(missing, m.Path)
	}
	complete := res.Complete
	result.Trace = append(result.Trace, StepEvent{
		Type:     "read",
		Complete: &complete,
		Missing:  missing,
	})

	if step.Expect != nil {
		evalExpect(index, step.Expect, res, result)
	}
	return nil
}

// evalExpect validates a read result against its expect clause.
func evalExpect(index int, expect *ExpectClause, res engine.Result, result *Result) {
	if expect.Complete != nil && res.Complete != *expect.Complete {
		result.AddError(fmt.Sprintf(
			"steps[%d].read: complete = %v, expected %v", index, res.Complete, *expect.Complete))
	}

	if expect.Data != nil {
		want, err := toObject(expect.Data)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d].read expect.data: %v", index, err))
		} else if msg := matchSubset(want, res.Data, ""); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d].read: data mismatch: %s", index, msg))
		}
	}

	for _, path := range expect.Missing {
		found := false
		for _, m := range res.Missing {
			if m.Path == path {
				found = true
				break
			}
		}
		if !found {
			result.AddError(fmt.Sprintf(
				"steps[%d].read: expected path %q to be missing", index, path))
		}
	}
}

// toObject converts a YAML-decoded map into an ir.Object. A nil map
// converts to an empty object.
func toObject(m map[string]interface{}) (ir.Object, error) {
	obj := make(ir.Object, len(m))
	for k, v := range m {
		val, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		obj[k] = normalizeRefs(val)
	}
	return obj, nil
}

// normalizeRefs rewrites {"__ref": "<id>"} objects into Ref values so
// scenario expectations can name references the way snapshots print
// them.
func normalizeRefs(v ir.Value) ir.Value {
	switch val := v.(type) {
	case ir.Object:
		if len(val) == 1 {
			if id, ok := val[ir.RefKey].(ir.String); ok {
				return ir.Ref{ID: string(id)}
			}
		}
		out := make(ir.Object, len(val))
		for k, elem := range val {
			out[k] = normalizeRefs(elem)
		}
		return out
	case ir.List:
		out := make(ir.List, len(val))
		for i, elem := range val {
			out[i] = normalizeRefs(elem)
		}
		return out
	default:
		return v
	}
}
