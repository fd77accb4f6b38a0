package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileConstraint(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, seq1Dataset, "s|i1<0")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ /s|i1<0")
	assert.Contains(t, out, "Variable")
	assert.Contains(t, out, "Filter")
	assert.Contains(t, out, "i1<0")
}

func TestCompileConstraintJSON(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, seq1Dataset, "s|0>i1")
	require.NoError(t, err)

	var result CompilationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "/s|i1<0", result.Constraint)
	require.Len(t, result.Segments, 3)
	assert.Equal(t, "/s", result.Segments[0].Variable)
	assert.Equal(t, "i1<0", result.Segments[0].Filter)
	assert.Equal(t, "/s.i1", result.Segments[1].Variable)
	assert.Empty(t, result.Segments[1].Filter)
}

func TestCompileRedefinition(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, ce1Dataset, "/d17=[0:5];/a;/e[1]")
	require.NoError(t, err)

	var result CompilationResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "/d17=[0:5];/a[];/e[1][]", result.Constraint)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, []string{"/d17=5"}, result.Segments[0].Dimensions)
	assert.Equal(t, []string{"1", "/d17=5"}, result.Segments[1].Dimensions)
	assert.Equal(t, []string{"[1]", "[]"}, result.Segments[1].Slices)
}

func TestCompileExpansion(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, ce1Dataset, "/s")
	require.NoError(t, err)
	var expanded CompilationResult
	decodeResponse(t, out, &expanded)
	require.Len(t, expanded.Segments, 3)
	assert.Equal(t, "/s.x", expanded.Segments[1].Variable)
	assert.Equal(t, "/s.y", expanded.Segments[2].Variable)

	cmd = NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err = execute(cmd, ce1Dataset, "/s", "--no-expand")
	require.NoError(t, err)
	var bare CompilationResult
	decodeResponse(t, out, &bare)
	require.Len(t, bare.Segments, 1)
	assert.Equal(t, "/s", bare.Segments[0].Variable)
}

func TestCompileEmptyConstraintIsUniversal(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, ce1Dataset, "  ")
	require.NoError(t, err)
	assert.Equal(t, "✓ <universal>\n", out)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		ce      string
		code    string
	}{
		{"syntax", ce1Dataset, "/a[", ErrCodeSyntax},
		{"undefined name", ce1Dataset, "/a;/zz[1]", ErrCodeNameResolution},
		{"slice out of range", ce1Dataset, "/a[5:40]", ErrCodeRange},
		{"missing dataset", "nonexistent.cue", "/a", ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCompileCommand(&RootOptions{Format: "text"})
			out, _, err := execute(cmd, tt.dataset, tt.ce)
			requireExit(t, err, ExitCommandError, tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestCompileErrorJSON(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, ce1Dataset, "/a;/zz[1]")
	requireExit(t, err, ExitCommandError, ErrCodeNameResolution)

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNameResolution, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "zz")
}

func TestCompileBadModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `dataset: {
	name: "bad"
	variables: x: type: "Int33"
}
`)
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, path, "/x")
	requireExit(t, err, ExitCommandError, ErrCodeModelType)

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "Int33")
	assert.Contains(t, resp.Error.Message, "bad.cue:3:")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeBuildFailed},
		{"dataset", ErrCodeModel},
		{"dataset.dimensions.d10", ErrCodeModelDims},
		{"dataset.variables.a.dims", ErrCodeModelDims},
		{"dataset.variables.a.type", ErrCodeModelType},
		{"dataset.enumerations.colors.basetype", ErrCodeModelType},
		{"dataset.variables.a.attributes.units.type", ErrCodeModelAttr},
		{"dataset.variables.s.fields", ErrCodeModel},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
