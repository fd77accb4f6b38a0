// Package chunk implements DAP4 chunked response framing.
//
// A response is a sequence of chunks, each prefixed by a 4-byte big-endian
// header holding the chunk flags in the high byte and the payload length in
// the low 24 bits. The first chunk carries the DMR followed by CRLF; the
// remaining chunks carry the serialized values. The last chunk has the END
// flag set, or the ERROR flag when the response was aborted.
package chunk

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"math"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/value"
)

// Chunk flags.
const (
	FlagData         byte = 0
	FlagEnd          byte = 1
	FlagError        byte = 2
	FlagLittleEndian byte = 4
)

// MaxChunkSize is the largest payload a header can describe.
const MaxChunkSize = 1<<24 - 1

// DefaultChunkSize is the payload size at which data chunks are emitted.
const DefaultChunkSize = 64 * 1024

// Writer frames a response onto an io.Writer. It implements the
// generator's Sink interface.
type Writer struct {
	w         io.Writer
	order     binary.AppendByteOrder
	orderFlag byte
	chunkSize int
	crc       hash.Hash32
	buf       []byte
	closed    bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithLittleEndian writes values in little-endian order and sets the
// LITTLE_ENDIAN flag on every chunk.
func WithLittleEndian() Option {
	return func(w *Writer) {
		w.order = binary.LittleEndian
		w.orderFlag = FlagLittleEndian
	}
}

// WithByteOrder selects the value byte order by name: "big" or "little".
func WithByteOrder(name string) (Option, error) {
	switch name {
	case "", "big":
		return func(*Writer) {}, nil
	case "little":
		return WithLittleEndian(), nil
	}
	return nil, fmt.Errorf("unknown byte order %q", name)
}

// WithChunkSize sets the payload size at which data chunks are emitted.
// Values above MaxChunkSize are clamped.
func WithChunkSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.chunkSize = min(n, MaxChunkSize)
		}
	}
}

// WithChecksums appends a CRC32 (IEEE) of the bytes of each top-level
// variable after its last value.
func WithChecksums() Option {
	return func(w *Writer) {
		w.crc = crc32.NewIEEE()
	}
}

// NewWriter creates a Writer. Values are big-endian unless configured.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	cw := &Writer{
		w:         w,
		order:     binary.BigEndian,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(cw)
	}
	return cw
}

// WriteDMR writes the DMR chunk. It must be the first write.
func (w *Writer) WriteDMR(text string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if len(w.buf) > 0 {
		return fmt.Errorf("chunk: DMR written after data")
	}
	return w.emit(FlagData, []byte(text+"\r\n"))
}

// WriteAtomic encodes one value as base type t.
func (w *Writer) WriteAtomic(t dmr.BaseType, v value.Value) error {
	if err := w.usable(); err != nil {
		return err
	}
	start := len(w.buf)
	buf, err := appendValue(w.buf, w.order, t, v)
	if err != nil {
		return err
	}
	w.buf = buf
	w.sum(buf[start:])
	return w.maybeFlush()
}

// WriteCount writes a sequence row count.
func (w *Writer) WriteCount(n int64) error {
	if err := w.usable(); err != nil {
		return err
	}
	start := len(w.buf)
	w.buf = w.order.AppendUint64(w.buf, uint64(n))
	w.sum(w.buf[start:])
	return w.maybeFlush()
}

// EndVariable writes the checksum of the variable just finished when
// checksums are enabled.
func (w *Writer) EndVariable(*dmr.Variable) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.crc == nil {
		return nil
	}
	w.buf = w.order.AppendUint32(w.buf, w.crc.Sum32())
	w.crc.Reset()
	return w.maybeFlush()
}

// Flush emits buffered values as data chunks.
func (w *Writer) Flush() error {
	if err := w.usable(); err != nil {
		return err
	}
	if len(w.buf) == 0 {
		return nil
	}
	err := w.emit(FlagData, w.buf)
	w.buf = w.buf[:0]
	return err
}

// Close emits the buffered values in a final chunk with the END flag.
func (w *Writer) Close() error {
	if err := w.usable(); err != nil {
		return err
	}
	w.closed = true
	return w.emit(FlagEnd, w.buf)
}

// Abort discards buffered values and ends the response with an ERROR chunk
// carrying the error text.
func (w *Writer) Abort(cause error) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.closed = true
	w.buf = nil
	return w.emit(FlagError, []byte(cause.Error()))
}

func (w *Writer) usable() error {
	if w.closed {
		return fmt.Errorf("chunk: write after close")
	}
	return nil
}

func (w *Writer) sum(b []byte) {
	if w.crc != nil {
		w.crc.Write(b)
	}
}

func (w *Writer) maybeFlush() error {
	if len(w.buf) < w.chunkSize {
		return nil
	}
	return w.Flush()
}

// emit writes payload as one or more chunks; flags apply to the last one.
func (w *Writer) emit(flags byte, payload []byte) error {
	for {
		n := min(len(payload), MaxChunkSize)
		f := flags
		if n < len(payload) {
			f = FlagData
		}
		hdr := uint32(f|w.orderFlag)<<24 | uint32(n)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], hdr)
		if _, err := w.w.Write(b[:]); err != nil {
			return err
		}
		if _, err := w.w.Write(payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
		if len(payload) == 0 {
			return nil
		}
	}
}

func appendValue(b []byte, order binary.AppendByteOrder, t dmr.BaseType, v value.Value) ([]byte, error) {
	switch t {
	case dmr.TypeString, dmr.TypeURL, dmr.TypeOpaque:
		var raw []byte
		switch x := v.(type) {
		case value.String:
			raw = []byte(x)
		case value.Opaque:
			raw = x
		default:
			return nil, fmt.Errorf("cannot write %T as %s", v, t)
		}
		b = order.AppendUint64(b, uint64(len(raw)))
		return append(b, raw...), nil
	case dmr.TypeFloat32, dmr.TypeFloat64:
		f, ok := floatOf(v)
		if !ok {
			return nil, fmt.Errorf("cannot write %T as %s", v, t)
		}
		if t == dmr.TypeFloat32 {
			return order.AppendUint32(b, math.Float32bits(float32(f))), nil
		}
		return order.AppendUint64(b, math.Float64bits(f)), nil
	}

	if !t.IsIntegral() {
		return nil, fmt.Errorf("cannot write values of type %s", t)
	}
	var bits uint64
	switch x := v.(type) {
	case value.Int:
		bits = uint64(x)
	case value.Uint:
		bits = uint64(x)
	case value.Bool:
		if x {
			bits = 1
		}
	default:
		return nil, fmt.Errorf("cannot write %T as %s", v, t)
	}
	switch t.Size() {
	case 1:
		return append(b, byte(bits)), nil
	case 2:
		return order.AppendUint16(b, uint16(bits)), nil
	case 4:
		return order.AppendUint32(b, uint32(bits)), nil
	default:
		return order.AppendUint64(b, bits), nil
	}
}

func floatOf(v value.Value) (float64, bool) {
	switch x := v.(type) {
	case value.Float:
		return float64(x), true
	case value.Int:
		return float64(x), true
	case value.Uint:
		return float64(x), true
	}
	return 0, false
}
