// Package synth fabricates deterministic values for any dataset, so a
// dataset model can be served before real data exists.
//
// Every value is a pure function of the seed, the variable and its
// position: the same request always produces the same bytes, whatever the
// order values are read in.
package synth

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/value"
	"github.com/roach88/dap4/internal/view"
)

// DefaultMaxRows is the upper bound of random sequence row counts.
const DefaultMaxRows = 5

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Provider fabricates values.
type Provider struct {
	seed     uint64
	maxRows  int64
	rowCount int64
}

// Option configures a Provider.
type Option func(*Provider)

// WithSeed sets the seed. Default: 0.
func WithSeed(seed uint64) Option {
	return func(p *Provider) { p.seed = seed }
}

// WithMaxRows bounds random row counts to [0, n]. Default: DefaultMaxRows.
func WithMaxRows(n int64) Option {
	return func(p *Provider) {
		if n >= 0 {
			p.maxRows = n
		}
	}
}

// WithRowCount gives every sequence instance exactly n rows.
func WithRowCount(n int64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.rowCount = n
		}
	}
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{maxRows: DefaultMaxRows}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// rng returns a generator seeded from the provider seed, the node and the
// position.
func (p *Provider) rng(fqn string, pos []int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(fqn))
	var b [8]byte
	for _, i := range pos {
		binary.LittleEndian.PutUint64(b[:], uint64(i))
		h.Write(b[:])
	}
	return rand.New(rand.NewPCG(p.seed, h.Sum64()))
}

// ReadAtomic returns the value of v at pos.
func (p *Provider) ReadAtomic(v *dmr.Variable, pos []int64) (value.Value, error) {
	return Value(v, p.rng(v.FQN(), pos))
}

// Rows returns the rows of one sequence instance.
func (p *Provider) Rows(seq *dmr.Variable, pos []int64) (view.RowSource, error) {
	n := p.rowCount
	if n == 0 {
		n = p.rng(seq.FQN()+"#rows", pos).Int64N(p.maxRows + 1)
	}
	return &rows{p: p, seq: seq, pos: pos, n: n}, nil
}

type rows struct {
	p   *Provider
	seq *dmr.Variable
	pos []int64
	n   int64
}

func (rs *rows) Count() int64 { return rs.n }

func (rs *rows) Row(i int64) (view.Row, error) {
	if i < 0 || i >= rs.n {
		return nil, fmt.Errorf("row %d out of range", i)
	}
	pos := append(append(make([]int64, 0, len(rs.pos)+1), rs.pos...), i)
	return row{rs: rs, idx: i, pos: pos}, nil
}

type row struct {
	rs  *rows
	idx int64
	pos []int64
}

func (r row) Index() int64 { return r.idx }

func (r row) Field(name string) (value.Value, error) {
	f := r.rs.seq.Field(name)
	if f == nil {
		return nil, fmt.Errorf("%s has no field %q", r.rs.seq.FQN(), name)
	}
	return r.rs.p.ReadAtomic(f, r.pos)
}

// Value draws one value of v's type from r.
func Value(v *dmr.Variable, r *rand.Rand) (value.Value, error) {
	if v.Sort() != dmr.SortAtomic {
		return nil, fmt.Errorf("%s is not atomic", v.FQN())
	}
	switch v.Base {
	case dmr.TypeChar:
		return value.Uint(letters[r.IntN(len(letters))]), nil
	case dmr.TypeInt8:
		return value.Int(r.Int64N(1<<8) - 1<<7), nil
	case dmr.TypeUInt8:
		return value.Uint(r.Uint64N(1 << 8)), nil
	case dmr.TypeInt16:
		return value.Int(r.Int64N(1<<16) - 1<<15), nil
	case dmr.TypeUInt16:
		return value.Uint(r.Uint64N(1 << 16)), nil
	case dmr.TypeInt32:
		return value.Int(r.Int64N(1<<32) - 1<<31), nil
	case dmr.TypeUInt32:
		return value.Uint(r.Uint64N(1 << 32)), nil
	case dmr.TypeInt64:
		return value.Int(int64(r.Uint64())), nil
	case dmr.TypeUInt64:
		return value.Uint(r.Uint64()), nil
	case dmr.TypeFloat32:
		return value.Float(float32(r.NormFloat64() * 100)), nil
	case dmr.TypeFloat64:
		return value.Float(r.NormFloat64() * 100), nil
	case dmr.TypeString, dmr.TypeURL:
		b := make([]byte, 1+r.IntN(8))
		for i := range b {
			b[i] = letters[r.IntN(len(letters))]
		}
		if v.Base == dmr.TypeURL {
			return value.String("http://" + string(b) + ".test/"), nil
		}
		return value.String(b), nil
	case dmr.TypeOpaque:
		b := make([]byte, 1+r.IntN(8))
		for i := range b {
			b[i] = byte(r.UintN(math.MaxUint8 + 1))
		}
		return value.Opaque(b), nil
	case dmr.TypeEnum:
		if v.Enum == nil || len(v.Enum.Consts) == 0 {
			return nil, fmt.Errorf("%s: enumeration has no constants", v.FQN())
		}
		return value.Int(v.Enum.Consts[r.IntN(len(v.Enum.Consts))].Value), nil
	}
	return nil, fmt.Errorf("%s: cannot synthesize %s", v.FQN(), v.Base)
}
