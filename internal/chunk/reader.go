package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/value"
)

// Chunk is one decoded chunk.
type Chunk struct {
	Flags byte
	Data  []byte
}

// IsEnd reports whether the END flag is set.
func (c Chunk) IsEnd() bool { return c.Flags&FlagEnd != 0 }

// IsError reports whether the ERROR flag is set.
func (c Chunk) IsError() bool { return c.Flags&FlagError != 0 }

// LittleEndian reports whether the LITTLE_ENDIAN flag is set.
func (c Chunk) LittleEndian() bool { return c.Flags&FlagLittleEndian != 0 }

// Reader reads chunks from a stream.
type Reader struct {
	r io.Reader
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next chunk. It returns io.EOF when the stream ends on a
// chunk boundary and io.ErrUnexpectedEOF when it ends inside one.
func (r *Reader) Next() (Chunk, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return Chunk{}, err
	}
	h := binary.BigEndian.Uint32(hdr[:])
	c := Chunk{Flags: byte(h >> 24), Data: make([]byte, h&MaxChunkSize)}
	if _, err := io.ReadFull(r.r, c.Data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Chunk{}, err
	}
	return c, nil
}

// ResponseError is the content of an ERROR chunk.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string {
	return "response aborted: " + e.Message
}

// Response is a fully read chunked response.
type Response struct {
	DMR    string
	Body   []byte
	Order  binary.ByteOrder
	Chunks []Chunk
}

// ReadResponse reads chunks up to and including the END chunk. When hasDMR
// is set the leading chunks up to the CRLF terminator are the DMR.
//
// An ERROR chunk yields the response read so far and a *ResponseError.
func ReadResponse(r io.Reader, hasDMR bool) (*Response, error) {
	cr := NewReader(r)
	resp := &Response{Order: binary.BigEndian}
	var dmrText, body bytes.Buffer
	inDMR := hasDMR
	for {
		c, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return resp, fmt.Errorf("chunk: stream ended without END chunk")
		}
		if err != nil {
			return resp, err
		}
		resp.Chunks = append(resp.Chunks, c)
		if c.LittleEndian() {
			resp.Order = binary.LittleEndian
		}
		if c.IsError() {
			resp.DMR = trimCRLF(dmrText.Bytes())
			resp.Body = body.Bytes()
			return resp, &ResponseError{Message: string(c.Data)}
		}
		if inDMR {
			dmrText.Write(c.Data)
			if bytes.HasSuffix(dmrText.Bytes(), []byte("\r\n")) {
				inDMR = false
			}
		} else {
			body.Write(c.Data)
		}
		if c.IsEnd() {
			break
		}
	}
	if inDMR {
		return resp, fmt.Errorf("chunk: DMR is not terminated by CRLF")
	}
	resp.DMR = trimCRLF(dmrText.Bytes())
	resp.Body = body.Bytes()
	return resp, nil
}

func trimCRLF(b []byte) string {
	return string(bytes.TrimSuffix(b, []byte("\r\n")))
}

// Decoder reads values back from a response body.
type Decoder struct {
	buf   []byte
	order binary.ByteOrder
}

// NewDecoder creates a Decoder over body.
func NewDecoder(body []byte, order binary.ByteOrder) *Decoder {
	return &Decoder{buf: body, order: order}
}

// Len returns the number of undecoded bytes.
func (d *Decoder) Len() int { return len(d.buf) }

func (d *Decoder) take(n int) ([]byte, error) {
	if n > len(d.buf) {
		return nil, fmt.Errorf("chunk: need %d bytes, have %d", n, len(d.buf))
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b, nil
}

// Count reads a sequence row count.
func (d *Decoder) Count() (int64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return int64(d.order.Uint64(b)), nil
}

// Checksum reads a variable checksum.
func (d *Decoder) Checksum() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

// Atomic reads one value of base type t.
func (d *Decoder) Atomic(t dmr.BaseType) (value.Value, error) {
	switch t {
	case dmr.TypeString, dmr.TypeURL, dmr.TypeOpaque:
		n, err := d.Count()
		if err != nil {
			return nil, err
		}
		if n < 0 || n > int64(len(d.buf)) {
			return nil, fmt.Errorf("chunk: bad %s length %d", t, n)
		}
		b, _ := d.take(int(n))
		if t == dmr.TypeOpaque {
			return value.Opaque(bytes.Clone(b)), nil
		}
		return value.String(b), nil
	case dmr.TypeFloat32:
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Float32frombits(d.order.Uint32(b))), nil
	case dmr.TypeFloat64:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Float64frombits(d.order.Uint64(b))), nil
	}

	if !t.IsIntegral() {
		return nil, fmt.Errorf("cannot read values of type %s", t)
	}
	b, err := d.take(t.Size())
	if err != nil {
		return nil, err
	}
	var bits uint64
	switch len(b) {
	case 1:
		bits = uint64(b[0])
	case 2:
		bits = uint64(d.order.Uint16(b))
	case 4:
		bits = uint64(d.order.Uint32(b))
	default:
		bits = d.order.Uint64(b)
	}
	if t.IsUnsigned() {
		return value.Uint(bits), nil
	}
	switch len(b) {
	case 1:
		return value.Int(int8(bits)), nil
	case 2:
		return value.Int(int16(bits)), nil
	case 4:
		return value.Int(int32(bits)), nil
	}
	return value.Int(int64(bits)), nil
}
