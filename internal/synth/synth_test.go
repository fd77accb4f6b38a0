package synth

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dap4/internal/chunk"
	"github.com/roach88/dap4/internal/compiler"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/testutil"
	"github.com/roach88/dap4/internal/value"
)

func TestReadAtomic_Deterministic(t *testing.T) {
	ds := testutil.Nested()
	u := testutil.Variable(ds, "/g/u")

	a := New(WithSeed(42))
	b := New(WithSeed(42))
	first, err := a.ReadAtomic(u, []int64{1, 2})
	require.NoError(t, err)

	// reading other positions first does not change the value
	_, err = b.ReadAtomic(u, []int64{0, 0})
	require.NoError(t, err)
	second, err := b.ReadAtomic(u, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValue_Ranges(t *testing.T) {
	ds := dmr.NewDataset("types")
	r := rand.New(rand.NewPCG(1, 2))
	check := func(base dmr.BaseType, ok func(value.Value) bool) {
		v := ds.AddAtomic(base.String(), base)
		for i := 0; i < 200; i++ {
			got, err := Value(v, r)
			require.NoError(t, err)
			require.True(t, ok(got), "%s: %#v", base, got)
		}
	}

	check(dmr.TypeInt8, func(v value.Value) bool { x := v.(value.Int); return x >= -128 && x <= 127 })
	check(dmr.TypeUInt8, func(v value.Value) bool { return v.(value.Uint) <= 255 })
	check(dmr.TypeInt16, func(v value.Value) bool { x := v.(value.Int); return x >= -32768 && x <= 32767 })
	check(dmr.TypeUInt32, func(v value.Value) bool { return v.(value.Uint) <= 1<<32-1 })
	check(dmr.TypeFloat64, func(v value.Value) bool { _, ok := v.(value.Float); return ok })
	check(dmr.TypeString, func(v value.Value) bool { n := len(v.(value.String)); return n >= 1 && n <= 8 })
	check(dmr.TypeOpaque, func(v value.Value) bool { n := len(v.(value.Opaque)); return n >= 1 && n <= 8 })
}

func TestValue_Enum(t *testing.T) {
	ds := testutil.Nested()
	v := testutil.Variable(ds, "/g/v")
	r := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 50; i++ {
		got, err := Value(v, r)
		require.NoError(t, err)
		assert.Contains(t, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, got)
	}
}

func TestValue_NotAtomic(t *testing.T) {
	ds := testutil.CE1()
	_, err := Value(testutil.Variable(ds, "/s"), rand.New(rand.NewPCG(0, 0)))
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	ds := testutil.Seq1()
	seq := testutil.Variable(ds, "/s")

	rs, err := New(WithRowCount(3)).Rows(seq, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rs.Count())
	r, err := rs.Row(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.Index())
	_, err = r.Field("i1")
	assert.NoError(t, err)
	_, err = r.Field("nope")
	assert.Error(t, err)
	_, err = rs.Row(3)
	assert.Error(t, err)

	p := New(WithSeed(9), WithMaxRows(4))
	for i := int64(0); i < 20; i++ {
		rs, err := p.Rows(seq, []int64{i})
		require.NoError(t, err)
		assert.LessOrEqual(t, rs.Count(), int64(4))
	}
}

func TestRows_FieldValuesStable(t *testing.T) {
	ds := testutil.Seq1()
	seq := testutil.Variable(ds, "/s")
	p := New(WithSeed(5), WithRowCount(2))

	read := func() value.Value {
		rs, err := p.Rows(seq, nil)
		require.NoError(t, err)
		r, err := rs.Row(1)
		require.NoError(t, err)
		v, err := r.Field("sh1")
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, read(), read())
}

func TestGeneratedResponseRepeatable(t *testing.T) {
	ds := testutil.Nested()
	v, err := compiler.CompileText(ds, "/st[0:2];/g/u[1][];/f64")
	require.NoError(t, err)

	respond := func() []byte {
		var buf bytes.Buffer
		w := chunk.NewWriter(&buf)
		_, err := generator.New().Generate(context.Background(), ds, v, New(WithSeed(11)), w)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return buf.Bytes()
	}
	assert.Equal(t, respond(), respond())
}
