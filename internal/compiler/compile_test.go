package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dap4/internal/ceast"
	"github.com/roach88/dap4/internal/ceerr"
	"github.com/roach88/dap4/internal/ceparse"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/slice"
	"github.com/roach88/dap4/internal/testutil"
	"github.com/roach88/dap4/internal/view"
)

func compileText(t *testing.T, ds *dmr.Dataset, text string) *view.Constraint {
	t.Helper()
	c, err := Compile(ds, ceparse.MustParse(text))
	require.NoError(t, err)
	return c
}

func TestCompile_CanonicalForms(t *testing.T) {
	tests := []struct {
		name    string
		dataset func() *dmr.Dataset
		input   string
		want    string
	}{
		{"single index", testutil.CE1, "/a[1]", "/a[1]"},
		{"range", testutil.CE1, "/b[10:16]", "/b[10:16]"},
		{"stride", testutil.CE1, "/c[8:2:15]", "/c[8:2:15]"},
		{"three clauses", testutil.CE1, "/a[1];/b[10:16];/c[8:2:15]", "/a[1];/b[10:16];/c[8:2:15]"},
		{"multi-dimensional", testutil.CE1, "/d[1][0:2:2];/a[1];/e[1][0];/f[0][1]", "/d[1][0:2:2];/a[1];/e[1][0];/f[0][1]"},
		{"both fields make the structure whole", testutil.CE1, "/s[0:3][0:2].x;/s[0:3][0:2].y", "/s[0:3][0:2]"},
		{"short slice list is padded", testutil.CE1, "/e[1]", "/e[1][]"},
		{"no slices", testutil.CE1, "a", "/a[]"},
		{"open stop", testutil.CE1, "/a[3:]", "/a[3:17]"},
		{"filter", testutil.Seq1, "s|i1<0", "/s|i1<0"},
		{"constant on the left is mirrored", testutil.Seq1, "s|0>i1", "/s|i1<0"},
		{"two selections are combined", testutil.Seq1, "s|i1<0;s|sh1>1", "/s|i1<0,sh1>1"},
		{"partial sequence with filter", testutil.Seq1, "/s.i1;/s|sh1!=2", "/s.i1;/s|sh1!=2"},
		{"redefinition", testutil.CE1, "/d17=[0:5];/a", "/d17=[0:5];/a[]"},
		{"nested sequence filter", testutil.Nested, "/st[0:2].seq|name~=\"a.*\"", "/st[0:2].seq|name~=\"a.*\""},
		{"fields in braces", testutil.Nested, "/st{t}", "/st[].t"},
		{"group variable", testutil.Nested, "/g/u[1]", "/g/u[1][]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileText(t, tt.dataset(), tt.input)
			assert.Equal(t, tt.want, c.ConstraintString())
		})
	}
}

// Recompiling a rendered view renders the same text.
func TestCompile_RoundTripFixpoint(t *testing.T) {
	inputs := map[string]func() *dmr.Dataset{
		"/a[1]":                                     testutil.CE1,
		"/a[1];/b[10:16];/c[8:2:15]":                testutil.CE1,
		"/d[1][0:2:2];/a[1];/e[1][0];/f[0][1]":      testutil.CE1,
		"/s[0:3][0:2].x;/s[0:3][0:2].y":             testutil.CE1,
		"/s[1].y;/e":                                testutil.CE1,
		"/d10=[2:2:9];/e[3];/s":                     testutil.CE1,
		"s|i1<0":                                    testutil.Seq1,
		"/s.sh1;/s|i1>=0":                           testutil.Seq1,
		"/st.seq{x;w};/st.seq|x>1,w<=2.5;/f64;/g/v": testutil.Nested,
		"/st;/g/u[0:2][1]":                          testutil.Nested,
		"/st{t};/st.seq|x<1":                        testutil.Nested,
		"/st.t;/st.seq|x<1":                         testutil.Nested,
		"/st[1:2];/st.seq|w>0":                      testutil.Nested,
	}
	for input, dataset := range inputs {
		t.Run(input, func(t *testing.T) {
			ds := dataset()
			first := compileText(t, ds, input)
			rendered := first.ConstraintString()

			second := compileText(t, ds, rendered)
			assert.Equal(t, rendered, second.ConstraintString())
			assert.Equal(t, len(first.Segments()), len(second.Segments()))
		})
	}
}

func TestCompile_FilteredFieldOfWholeStructure(t *testing.T) {
	ds := testutil.Nested()
	c := compileText(t, ds, "/st{t};/st.seq|x<1")

	// st, st.t, st.seq and the three sequence fields.
	require.Len(t, c.Segments(), 6)
	assert.Equal(t, "/st[]{t;seq};/st[].seq|x<1", c.ConstraintString())

	again := compileText(t, ds, c.ConstraintString())
	assert.True(t, again.References(testutil.Variable(ds, "/st.t")))
	assert.NotNil(t, again.Filter(testutil.Variable(ds, "/st.seq")))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dataset func() *dmr.Dataset
		input   string
		is      func(error) bool
	}{
		{"undefined variable", testutil.CE1, "/nope", ceerr.IsNameResolution},
		{"undefined field", testutil.CE1, "/s.z", ceerr.IsNameResolution},
		{"dimension used as variable", testutil.CE1, "/d10", ceerr.IsType},
		{"fields of an atomic", testutil.CE1, "/a.x", ceerr.IsType},
		{"selection on atomic", testutil.CE1, "/a|x<0", ceerr.IsType},
		{"selection on structure", testutil.CE1, "/s|x<0", ceerr.IsType},
		{"too many slices", testutil.CE1, "/a[1][2]", ceerr.IsSemantic},
		{"slice out of range", testutil.CE1, "/a[20]", ceerr.IsRange},
		{"empty slice", testutil.CE1, "/a[5:5]", ceerr.IsRange},
		{"undefined filter field", testutil.Seq1, "s|zz<0", ceerr.IsNameResolution},
		{"constant comparison", testutil.Seq1, "s|0<1", ceerr.IsSemantic},
		{"pattern on the left", testutil.Seq1, `s|"x"~=i1`, ceerr.IsSemantic},
		{"invalid pattern", testutil.Nested, `/st.seq|name~="("`, ceerr.IsSemantic},
		{"numeric pattern", testutil.Nested, `/st.seq|name~=1`, ceerr.IsType},
		{"undefined dimension", testutil.CE1, "/nodim=[0:2]", ceerr.IsNameResolution},
		{"redefine a variable", testutil.CE1, "/a=[0:2]", ceerr.IsType},
		{"redefinition out of range", testutil.CE1, "/d10=[0:20]", ceerr.IsRange},
		{"filter on another variable", testutil.Nested, "/st.seq|/f64>0", ceerr.IsSemantic},
		{"selection over several fields", testutil.Nested, "/st{t;seq}|x<0", ceerr.IsSemantic},
		{"field outside the sequence", testutil.Nested, "/st.seq|t<0", ceerr.IsNameResolution},
		{"field to field comparison", testutil.Nested, "/st.seq|x<w", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := ceparse.Parse(tt.input)
			require.NoError(t, err)
			_, err = Compile(tt.dataset(), tree)
			if tt.is == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, tt.is(err), "unexpected error kind: %v", err)
		})
	}
}

func TestCompile_AmbiguousName(t *testing.T) {
	ds := dmr.NewDataset("dup")
	ds.AddStructure("s")
	ds.AddSequence("s")

	_, err := Compile(ds, ceparse.MustParse("/s"))
	assert.True(t, ceerr.IsNameResolution(err))
}

func TestCompile_Expansion(t *testing.T) {
	ds := testutil.CE1()
	s := testutil.Variable(ds, "/s")

	whole := compileText(t, ds, "/s")
	assert.True(t, whole.References(s.Field("x")))
	assert.True(t, whole.References(s.Field("y")))

	partial := compileText(t, ds, "/s.x")
	assert.True(t, partial.References(s.Field("x")))
	assert.False(t, partial.References(s.Field("y")))
}

func TestCompile_WithoutExpansion(t *testing.T) {
	ds := testutil.CE1()
	s := testutil.Variable(ds, "/s")

	c, err := Compile(ds, ceparse.MustParse("/s"), WithoutExpansion())
	require.NoError(t, err)
	assert.True(t, c.References(s))
	assert.False(t, c.References(s.Field("x")))
}

func TestCompile_ScopeResetsPerClause(t *testing.T) {
	ds := testutil.CE1()

	// "x" after ';' is looked up at dataset scope, not inside /s.
	_, err := Compile(ds, ceparse.MustParse("/s.x;x"))
	assert.True(t, ceerr.IsNameResolution(err))
}

func TestCompile_FromTree(t *testing.T) {
	ds := testutil.CE1()
	tree := &ceast.Constraint{Clauses: []ceast.Node{
		&ceast.Projection{Tree: &ceast.Segment{Name: "/a", Slices: []slice.Slice{slice.Index(1)}}},
	}}

	c, err := Compile(ds, tree)
	require.NoError(t, err)
	assert.Equal(t, "/a[1]", c.ConstraintString())

	_, err = Compile(ds, &ceast.Constraint{Clauses: []ceast.Node{&ceast.Projection{}}})
	assert.True(t, ceerr.IsSyntax(err))
}

func TestCompileText_BlankIsUniversal(t *testing.T) {
	ds := testutil.CE1()

	v, err := CompileText(ds, "  ")
	require.NoError(t, err)
	_, ok := v.(*view.Universal)
	assert.True(t, ok)

	_, err = CompileText(ds, "/a[")
	assert.True(t, ceerr.IsSyntax(err))
}
