package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDataset(t *testing.T) {
	stdout, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), ce1Dataset)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Dataset ce1 is valid")
	assert.Contains(t, stdout, "0 group(s), 2 dimension(s), 0 enumeration(s), 7 variable(s)")
}

func TestValidateDatasetJSON(t *testing.T) {
	stdout, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), ce1Dataset)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, "ce1", result.Dataset)
	assert.Equal(t, []string{"/a", "/b", "/c", "/d", "/e", "/f", "/s"}, result.Variables)
}

func TestValidateVerboseListsVariables(t *testing.T) {
	_, stderr, err := execute(NewValidateCommand(&RootOptions{Format: "text", Verbose: true}), seq1Dataset)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Sequence /s")
}

func TestValidateNonExistentFile(t *testing.T) {
	stdout, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/model.cue")
	requireExit(t, err, ExitCommandError, ErrCodeNotFound)
	assert.Contains(t, stdout, "dataset model not found")
}

func TestValidateDirectory(t *testing.T) {
	_, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	requireExit(t, err, ExitCommandError, ErrCodeNotFound)
}

func TestValidateInvalidModels(t *testing.T) {
	tests := []struct {
		name  string
		model string
		code  string
	}{
		{
			name:  "cue syntax",
			model: "dataset: {\n",
			code:  ErrCodeBuildFailed,
		},
		{
			name:  "unknown type",
			model: "dataset: {\n\tname: \"m\"\n\tvariables: x: type: \"Int33\"\n}\n",
			code:  ErrCodeModelType,
		},
		{
			name:  "undefined dimension",
			model: "dataset: {\n\tname: \"m\"\n\tvariables: x: {type: \"Int32\", dims: [\"nope\"]}\n}\n",
			code:  ErrCodeModelDims,
		},
		{
			name:  "missing name",
			model: "dataset: {\n\tvariables: x: type: \"Int32\"\n}\n",
			code:  ErrCodeModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "model.cue", tt.model)
			stdout, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
			requireExit(t, err, ExitFailure, tt.code)
			assert.Contains(t, stdout, "Error ["+tt.code+"]")
		})
	}
}
