package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		l, r Value
		want int
	}{
		{"int lt", Int(-5), Int(0), -1},
		{"int eq", Int(3), Int(3), 0},
		{"uint vs int", Uint(4), Int(3), 1},
		{"string lexicographic", String("abc"), String("abd"), -1},
		{"string prefix", String("ab"), String("abc"), -1},
		{"bool false lt true", Bool(false), Bool(true), -1},
		{"bool eq", Bool(true), Bool(true), 0},
		{"float vs float", Float(1.5), Float(1.25), 1},
		{"opaque", Opaque{1}, Opaque{2}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.l, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Mixed int/float comparisons must convert each operand from its own value.
// Converting the left operand twice would make every such comparison equal.
func TestCompare_MixedNumericUsesBothOperands(t *testing.T) {
	got, err := Compare(Int(1), Float(2.5))
	require.NoError(t, err)
	assert.Equal(t, -1, got)

	got, err = Compare(Float(2.5), Int(1))
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = Compare(Int(2), Float(2.0))
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = Compare(Float(-0.5), Int(0))
	require.NoError(t, err)
	assert.Equal(t, -1, got)
}

func TestCompare_UnsignedAboveInt64(t *testing.T) {
	const maxUint64 = ^uint64(0)
	tests := []struct {
		name string
		l, r Value
		want int
	}{
		{"top bit vs zero", Uint(1 << 63), Int(0), 1},
		{"zero vs top bit", Int(0), Uint(1 << 63), -1},
		{"max vs minus one", Uint(maxUint64), Int(-1), 1},
		{"minus one vs max", Int(-1), Uint(maxUint64), -1},
		{"max vs max", Uint(maxUint64), Uint(maxUint64), 0},
		{"top bit vs max", Uint(1 << 63), Uint(maxUint64), -1},
		{"negative vs zero uint", Int(-1), Uint(0), -1},
		{"max int64 vs equal uint", Int(1<<63 - 1), Uint(1<<63 - 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.l, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_Incomparable(t *testing.T) {
	_, err := Compare(String("1"), Int(1))
	assert.Error(t, err)

	_, err = Compare(Int(1), String("1"))
	assert.Error(t, err)

	_, err = Compare(Bool(true), Int(1))
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "-7", Format(Int(-7)))
	assert.Equal(t, "7", Format(Uint(7)))
	assert.Equal(t, "2.5", Format(Float(2.5)))
	assert.Equal(t, "hi", Format(String("hi")))
	assert.Equal(t, "true", Format(Bool(true)))
	assert.Equal(t, "0x0102", Format(Opaque{1, 2}))
}
