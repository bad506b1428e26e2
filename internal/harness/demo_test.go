package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs the canonical YAML scenarios end to end and
// compares each run's trace and final store image against its golden
// file. These serve both as regression fixtures and as reference
// examples of the scenario format.
func TestScenarios(t *testing.T) {
	tests := []struct {
		name         string
		scenarioPath string
	}{
		{
			name:         "write_read_book",
			scenarioPath: "testdata/scenarios/write_read_book.yaml",
		},
		{
			name:         "paginated_books",
			scenarioPath: "testdata/scenarios/paginated_books.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			absPath, err := filepath.Abs(tt.scenarioPath)
			require.NoError(t, err)

			scenario, err := LoadScenario(absPath)
			require.NoError(t, err, "failed to load scenario from %s", tt.scenarioPath)

			assert.Equal(t, tt.name, scenario.Name, "scenario name mismatch")
			assert.NotEmpty(t, scenario.Description)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed: %v", result.Errors)

			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}
