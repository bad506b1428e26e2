package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: Writes one record.
steps:
  - write:
      shape: '[{"field": "flag"}]'
      payload:
        flag: true
`

func TestLoadScenario(t *testing.T) {
	path := writeScenarioFile(t, minimalScenario)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", scenario.Name)
	require.Len(t, scenario.Steps, 1)
	require.NotNil(t, scenario.Steps[0].Write)
	assert.Equal(t, true, scenario.Steps[0].Write.Payload["flag"])
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
description: Catches field typos.
step:
  - reset: true
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no name",
			content: "description: d\nsteps:\n  - reset: true\n",
			wantErr: "name is required",
		},
		{
			name:    "no description",
			content: "name: n\nsteps:\n  - reset: true\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name: "empty step",
			content: `
name: n
description: d
steps:
  - reset: false
`,
			wantErr: "exactly one of write, read, reset",
		},
		{
			name: "write without shape",
			content: `
name: n
description: d
steps:
  - write:
      payload:
        x: 1
`,
			wantErr: "shape is required",
		},
		{
			name: "write without payload",
			content: `
name: n
description: d
steps:
  - write:
      shape: '[{"field": "x"}]'
`,
			wantErr: "payload is required",
		},
		{
			name: "bad assertion type",
			content: `
name: n
description: d
steps:
  - reset: true
assertions:
  - type: trace_contains
`,
			wantErr: "unknown assertion type",
		},
		{
			name: "record without fields",
			content: `
name: n
description: d
steps:
  - reset: true
assertions:
  - type: record
    identity: "Book:1"
`,
			wantErr: "fields is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenarioFile(t, tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
