package chunk

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dap4/internal/compiler"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/testutil"
	"github.com/roach88/dap4/internal/value"
	"github.com/roach88/dap4/internal/view"
)

func TestWriter_Framing(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteDMR("<D/>"))
	require.NoError(t, w.WriteAtomic(dmr.TypeInt16, value.Int(-2)))
	require.NoError(t, w.Close())

	want := []byte{
		0x00, 0x00, 0x00, 0x06, '<', 'D', '/', '>', '\r', '\n',
		0x01, 0x00, 0x00, 0x02, 0xff, 0xfe,
	}
	assert.Equal(t, want, buf.Bytes())
}

func TestWriter_LittleEndianFlagsEveryChunk(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithLittleEndian())
	require.NoError(t, w.WriteDMR(""))
	require.NoError(t, w.WriteAtomic(dmr.TypeUInt32, value.Uint(1)))
	require.NoError(t, w.Close())

	want := []byte{
		0x04, 0x00, 0x00, 0x02, '\r', '\n',
		0x05, 0x00, 0x00, 0x04, 0x01, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, buf.Bytes())
}

func TestWithByteOrder(t *testing.T) {
	for _, name := range []string{"", "big", "little"} {
		_, err := WithByteOrder(name)
		assert.NoError(t, err, name)
	}
	_, err := WithByteOrder("middle")
	assert.Error(t, err)
}

func TestWriter_Encodings(t *testing.T) {
	tests := []struct {
		name string
		t    dmr.BaseType
		v    value.Value
		want []byte
	}{
		{"int8", dmr.TypeInt8, value.Int(-1), []byte{0xff}},
		{"uint8 from bool", dmr.TypeUInt8, value.Bool(true), []byte{0x01}},
		{"int32", dmr.TypeInt32, value.Int(258), []byte{0, 0, 1, 2}},
		{"uint64", dmr.TypeUInt64, value.Uint(1 << 63), []byte{0x80, 0, 0, 0, 0, 0, 0, 0}},
		{"float32", dmr.TypeFloat32, value.Float(1), []byte{0x3f, 0x80, 0, 0}},
		{"float64 from int", dmr.TypeFloat64, value.Int(2), []byte{0x40, 0, 0, 0, 0, 0, 0, 0}},
		{"string", dmr.TypeString, value.String("hi"), []byte{0, 0, 0, 0, 0, 0, 0, 2, 'h', 'i'}},
		{"opaque", dmr.TypeOpaque, value.Opaque{0xca, 0xfe}, []byte{0, 0, 0, 0, 0, 0, 0, 2, 0xca, 0xfe}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := appendValue(nil, binary.BigEndian, tt.t, tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriter_EncodingErrors(t *testing.T) {
	_, err := appendValue(nil, binary.BigEndian, dmr.TypeInt32, value.String("x"))
	assert.Error(t, err)
	_, err = appendValue(nil, binary.BigEndian, dmr.TypeString, value.Int(1))
	assert.Error(t, err)
	_, err = appendValue(nil, binary.BigEndian, dmr.TypeEnum, value.Int(1))
	assert.Error(t, err)
}

func TestWriter_ChunkSizeSplitsData(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithChunkSize(4))
	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteAtomic(dmr.TypeInt32, value.Int(int64(i))))
	}
	require.NoError(t, w.Close())

	resp, err := ReadResponse(&buf, false)
	require.NoError(t, err)
	require.Len(t, resp.Chunks, 4)
	assert.Equal(t, FlagData, resp.Chunks[0].Flags)
	assert.Empty(t, resp.Chunks[3].Data)
	assert.True(t, resp.Chunks[3].IsEnd())
	assert.Len(t, resp.Body, 12)
}

func TestWriter_Checksums(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithChecksums())
	require.NoError(t, w.WriteAtomic(dmr.TypeInt32, value.Int(7)))
	require.NoError(t, w.WriteCount(1))
	require.NoError(t, w.EndVariable(nil))
	require.NoError(t, w.WriteAtomic(dmr.TypeInt32, value.Int(7)))
	require.NoError(t, w.EndVariable(nil))
	require.NoError(t, w.Close())

	resp, err := ReadResponse(&buf, false)
	require.NoError(t, err)
	d := NewDecoder(resp.Body, resp.Order)

	_, err = d.Atomic(dmr.TypeInt32)
	require.NoError(t, err)
	_, err = d.Count()
	require.NoError(t, err)
	sum, err := d.Checksum()
	require.NoError(t, err)
	assert.Equal(t, crc32.ChecksumIEEE([]byte{0, 0, 0, 7, 0, 0, 0, 0, 0, 0, 0, 1}), sum)

	_, err = d.Atomic(dmr.TypeInt32)
	require.NoError(t, err)
	sum, err = d.Checksum()
	require.NoError(t, err)
	// the checksum restarts for every variable
	assert.Equal(t, crc32.ChecksumIEEE([]byte{0, 0, 0, 7}), sum)
	assert.Zero(t, d.Len())
}

func TestWriter_Abort(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteDMR("<D/>"))
	require.NoError(t, w.WriteAtomic(dmr.TypeInt32, value.Int(1)))
	require.NoError(t, w.Abort(errors.New("provider failed")))

	resp, err := ReadResponse(&buf, true)
	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "provider failed", re.Message)
	assert.Equal(t, "<D/>", resp.DMR)
	assert.Empty(t, resp.Body)

	assert.Error(t, w.WriteCount(1))
	assert.Error(t, w.Close())
}

func TestWriter_DMRMustComeFirst(t *testing.T) {
	w := NewWriter(io.Discard)
	require.NoError(t, w.WriteCount(0))
	assert.Error(t, w.WriteDMR("<D/>"))
}

func TestReader_Truncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x04, 1, 2}))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadResponse(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00}), false)
	assert.EqualError(t, err, "chunk: stream ended without END chunk")

	_, err = ReadResponse(bytes.NewReader([]byte{0x01, 0x00, 0x00, 0x01, 'x'}), true)
	assert.EqualError(t, err, "chunk: DMR is not terminated by CRLF")
}

func TestDecoder_Errors(t *testing.T) {
	d := NewDecoder([]byte{0, 0, 0, 0, 0, 0, 0, 9, 'a'}, binary.BigEndian)
	_, err := d.Atomic(dmr.TypeString)
	assert.Error(t, err)

	d = NewDecoder([]byte{1}, binary.BigEndian)
	_, err = d.Atomic(dmr.TypeInt16)
	assert.Error(t, err)
}

func TestRoundTrip_GeneratedResponse(t *testing.T) {
	for _, order := range []string{"big", "little"} {
		t.Run(order, func(t *testing.T) {
			ds := testutil.Seq1()
			v, err := compiler.CompileText(ds, "s|i1<0")
			require.NoError(t, err)

			opt, err := WithByteOrder(order)
			require.NoError(t, err)
			var buf bytes.Buffer
			w := NewWriter(&buf, opt)
			_, err = generator.New().Generate(context.Background(), ds, v, seqProvider{}, w)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			resp, err := ReadResponse(&buf, true)
			require.NoError(t, err)
			assert.Contains(t, resp.DMR, `<Sequence name="s">`)

			d := NewDecoder(resp.Body, resp.Order)
			n, err := d.Count()
			require.NoError(t, err)
			require.Equal(t, int64(2), n)
			var got []value.Value
			for i := int64(0); i < n; i++ {
				i1, err := d.Atomic(dmr.TypeInt32)
				require.NoError(t, err)
				sh1, err := d.Atomic(dmr.TypeInt16)
				require.NoError(t, err)
				got = append(got, i1, sh1)
			}
			assert.Equal(t, []value.Value{value.Int(-5), value.Int(1), value.Int(-1), value.Int(0)}, got)
			assert.Zero(t, d.Len())
		})
	}
}

type seqProvider struct{}

func (seqProvider) ReadAtomic(*dmr.Variable, []int64) (value.Value, error) {
	return nil, errors.New("no atomics")
}

func (seqProvider) Rows(*dmr.Variable, []int64) (view.RowSource, error) {
	return testutil.NewRows(
		map[string]value.Value{"i1": value.Int(-5), "sh1": value.Int(1)},
		map[string]value.Value{"i1": value.Int(3), "sh1": value.Int(2)},
		map[string]value.Value{"i1": value.Int(-1), "sh1": value.Int(0)},
	), nil
}
