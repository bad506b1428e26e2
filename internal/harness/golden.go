package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gqlcache/internal/ir"
)

// RunWithGolden executes a scenario and compares its trace plus the
// final store image against a golden file. The golden file is stored
// in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for normalization
// behavior: a change in how payloads split into records shows up as a
// golden diff before it shows up as a bug report.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	data, err := goldenJSON(scenario.Name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}

// goldenJSON builds the canonical JSON image of a scenario run.
func goldenJSON(name string, result *Result) ([]byte, error) {
	trace := make(ir.List, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = eventObject(event)
	}

	storeObj := make(ir.Object, len(result.snapshot))
	for identity, rec := range result.snapshot {
		storeObj[identity] = ir.Object(rec)
	}

	root := ir.Object{
		"scenario_name": ir.String(name),
		"trace":         trace,
		"store":         storeObj,
	}
	return ir.MarshalCanonical(root)
}

// eventObject converts a StepEvent into an ir.Object, omitting unset
// fields so goldens stay compact.
func eventObject(event StepEvent) ir.Object {
	obj := ir.Object{"type": ir.String(event.Type)}
	if event.WriteToken != "" {
		obj["write_token"] = ir.String(event.WriteToken)
		obj["seq"] = ir.Int(event.Seq)
	}
	if event.Changed != nil {
		obj["changed"] = stringList(event.Changed)
	}
	if event.Complete != nil {
		obj["complete"] = ir.Bool(*event.Complete)
		obj["missing"] = stringList(event.Missing)
	}
	if event.Type == "reset" {
		obj["invalidated"] = stringList(event.Invalidated)
	}
	return obj
}

func stringList(values []string) ir.List {
	l := make(ir.List, len(values))
	for i, v := range values {
		l[i] = ir.String(v)
	}
	return l
}
