package dmrcue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/testutil"
	"github.com/roach88/dap4/internal/view"
)

func universalDMR(t *testing.T, ds *dmr.Dataset) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, generator.PrintDMR(&buf, ds, view.NewUniversal(ds)))
	return buf.String()
}

func TestLoad_MatchesBuiltModels(t *testing.T) {
	tests := []struct {
		file string
		want *dmr.Dataset
	}{
		{"testdata/nested.cue", testutil.Nested()},
		{"testdata/ce1.cue", testutil.CE1()},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			ds, err := Load(tt.file)
			require.NoError(t, err)
			assert.Equal(t, universalDMR(t, tt.want), universalDMR(t, ds))
		})
	}
}

func TestLoad_ResolvesReferences(t *testing.T) {
	ds, err := Load("testdata/nested.cue")
	require.NoError(t, err)

	u := testutil.Variable(ds, "/g/u")
	require.Len(t, u.Dims, 2)
	assert.Same(t, testutil.Dimension(ds, "/n"), u.Dims[0])
	assert.Same(t, testutil.Dimension(ds, "/g/m"), u.Dims[1])

	v := testutil.Variable(ds, "/g/v")
	assert.Equal(t, dmr.TypeEnum, v.Base)
	assert.Equal(t, "/colors", v.Enum.FQN())
	assert.Equal(t, dmr.TypeUInt8, generator.WireType(v))

	seq := testutil.Variable(ds, "/st.seq")
	assert.Equal(t, dmr.SortSequence, seq.Sort())
	assert.Equal(t, []string{"x", "name", "w"}, []string{seq.Fields[0].Name(), seq.Fields[1].Name(), seq.Fields[2].Name()})
}

func TestCompileBytes_AnonymousDimsAndAttributes(t *testing.T) {
	src := `
dataset: {
	name: "attrs"
	dimensions: n: 2
	attributes: title: {values: ["demo"]}
	variables: t: {
		type: "Float32"
		dims: [3, "/n"]
		attributes: {
			units: {type: "String", values: ["m/s"]}
			range: {type: "Int16", values: [-1, 1]}
			flag: {type: "Int8"}
		}
	}
}
`
	ds, err := CompileBytes([]byte(src), "attrs.cue")
	require.NoError(t, err)

	tv := testutil.Variable(ds, "/t")
	require.Len(t, tv.Dims, 2)
	assert.True(t, tv.Dims[0].IsAnonymous())
	assert.Equal(t, int64(3), tv.Dims[0].Size)
	assert.Equal(t, "/n", tv.Dims[1].FQN())

	assert.Equal(t, []dmr.Attribute{
		{Name: "units", Type: dmr.TypeString, Values: []string{"m/s"}},
		{Name: "range", Type: dmr.TypeInt16, Values: []string{"-1", "1"}},
		{Name: "flag", Type: dmr.TypeInt8},
	}, tv.Attributes)
	assert.Equal(t, []dmr.Attribute{{Name: "title", Type: dmr.TypeString, Values: []string{"demo"}}}, ds.Root().Attributes)
}

func TestCompileBytes_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"no dataset", `other: 1`, "dataset"},
		{"no name", `dataset: {}`, "name"},
		{"syntax", `dataset: {name: }`, "cue"},
		{"unknown type", `dataset: {name: "x", variables: a: type: "Int33"}`, "dataset.variables.a.type"},
		{"missing type", `dataset: {name: "x", variables: a: {}}`, "dataset.variables.a"},
		{"undefined dim", `dataset: {name: "x", variables: a: {type: "Int32", dims: ["q"]}}`, "dataset.variables.a.dims"},
		{"undefined enum", `dataset: {name: "x", variables: a: {enum: "q"}}`, "dataset.variables.a.enum"},
		{"negative dim", `dataset: {name: "x", dimensions: n: -1}`, "dataset.dimensions.n"},
		{"float enum", `dataset: {name: "x", enumerations: e: {basetype: "Float32", consts: a: 1}}`, "dataset.enumerations.e.basetype"},
		{"fields on atomic", `dataset: {name: "x", variables: a: {type: "Int32", fields: b: type: "Int32"}}`, "dataset.variables.a.fields"},
		{"compound without fields", `dataset: {name: "x", variables: s: type: "Structure"}`, "dataset.variables.s.fields"},
		{"dim not visible from sibling group", `dataset: {name: "x", groups: {g: dimensions: m: 1, h: variables: a: {type: "Int32", dims: ["m"]}}}`, "dataset.groups.h.variables.a.dims"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileBytes([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileError_Position(t *testing.T) {
	src := "dataset: {\n\tname: \"x\"\n\tvariables: a: {type: \"Int32\", dims: [\"q\"]}\n}\n"
	_, err := CompileBytes([]byte(src), "pos.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pos.cue:3:")
	assert.Contains(t, err.Error(), `undefined dimension "q"`)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.cue")
	assert.ErrorContains(t, err, "failed to read model file")
}
