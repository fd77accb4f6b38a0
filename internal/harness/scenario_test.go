package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a dataset model and a scenario into dir and returns
// the scenario path.
func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	model := `dataset: {name: "tiny", dimensions: n: 3, variables: a: {type: "Int32", dims: ["n"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.cue"), []byte(model), 0644))
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: tiny_all
description: "Whole variable"
dataset: tiny.cue
seed: 3
constraint: "/a"
expect:
  constraint: "/a[]"
assertions:
  - type: value_count
    variable: /a
    count: 3
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "tiny_all", scenario.Name)
	assert.Equal(t, filepath.Join(dir, "tiny.cue"), scenario.Dataset)
	assert.Equal(t, SourceSynth, scenario.source())
	assert.Equal(t, uint64(3), scenario.Seed)
	require.NotNil(t, scenario.Expect.Constraint)
	assert.Equal(t, "/a[]", *scenario.Expect.Constraint)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, int64(3), scenario.Assertions[0].Count)
}

func TestLoadScenario_EmptyExpectedConstraint(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: tiny_universal
description: "No constraint"
dataset: tiny.cue
constraint: ""
expect:
  constraint: ""
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	require.NotNil(t, scenario.Expect.Constraint)
	assert.Empty(t, *scenario.Expect.Constraint)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\ndataset: tiny.cue\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\ndataset: tiny.cue\n",
			wantErr: "description is required",
		},
		{
			name:    "missing dataset",
			content: "name: n\ndescription: d\n",
			wantErr: "dataset is required",
		},
		{
			name:    "dataset not found",
			content: "name: n\ndescription: d\ndataset: other.cue\n",
			wantErr: "dataset file not found",
		},
		{
			name:    "unknown field",
			content: "name: n\ndescription: d\ndataset: tiny.cue\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "fixture without data",
			content: "name: n\ndescription: d\ndataset: tiny.cue\nsource: fixture\n",
			wantErr: "source fixture requires data",
		},
		{
			name:    "unknown source",
			content: "name: n\ndescription: d\ndataset: tiny.cue\nsource: ftp\n",
			wantErr: `unknown source "ftp"`,
		},
		{
			name:    "unknown byte order",
			content: "name: n\ndescription: d\ndataset: tiny.cue\nencoding: {byte_order: middle}\n",
			wantErr: `unknown byte order "middle"`,
		},
		{
			name:    "unknown error kind",
			content: "name: n\ndescription: d\ndataset: tiny.cue\nexpect: {error: OOPS}\n",
			wantErr: `unknown error kind "OOPS"`,
		},
		{
			name: "assertions with expected error",
			content: `name: n
description: d
dataset: tiny.cue
expect: {error: RANGE}
assertions:
  - type: value_count
    variable: /a
`,
			wantErr: "assertions cannot be combined",
		},
		{
			name: "unknown assertion",
			content: `name: n
description: d
dataset: tiny.cue
assertions:
  - type: trace_contains
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "references without nodes",
			content: `name: n
description: d
dataset: tiny.cue
assertions:
  - type: references
`,
			wantErr: "nodes list is required for references",
		},
		{
			name: "values without variable",
			content: `name: n
description: d
dataset: tiny.cue
assertions:
  - type: values
    values: [1]
`,
			wantErr: "variable is required for values",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"ce1_bad_slice",
		"ce1_redefinition",
		"ce1_undefined",
		"nested_selection",
		"seq1_filter",
		"seq1_quota",
		"seq1_store",
	}, names)
}

func TestLoadDir_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "name: dup\ndescription: d\ndataset: tiny.cue\n")
	data, err := os.ReadFile(filepath.Join(dir, "test.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.yaml"), data, 0644))

	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "dup" already used by test.yaml`)
}
