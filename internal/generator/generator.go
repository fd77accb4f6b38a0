// Package generator writes a DAP4 response: the DMR for the nodes a view
// references, then the values of every referenced top-level variable in
// dataset declaration order.
//
// Values come from a Provider and are written to a Sink; the generator owns
// neither. Framing, byte order and checksums are the sink's business.
//
// Cancellation is checked between top-level variables and between sequence
// rows. On error the sink is left as written so far; callers that own the
// transport decide how to signal a truncated response.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/slice"
	"github.com/roach88/dap4/internal/value"
	"github.com/roach88/dap4/internal/view"
)

// Provider supplies values for one dataset.
//
// Positions are original-dimension indices. For a top-level variable pos is
// the variable's own index tuple. For a field it is the position of the
// enclosing instance followed by the field's own tuple; inside a sequence
// the row index is appended after the sequence's position.
//
// Scalar atomic fields of a sequence row are read from the Row and never
// reach ReadAtomic. Array atomic fields of a row do reach ReadAtomic, with
// pos holding the sequence position, the row index and the field's tuple.
// A provider that keeps only scalar row fields returns an error wrapping
// ErrRowArrayField for them.
type Provider interface {
	ReadAtomic(v *dmr.Variable, pos []int64) (value.Value, error)
	Rows(seq *dmr.Variable, pos []int64) (view.RowSource, error)
}

// ErrRowArrayField is returned by providers that do not serve array fields
// of sequence rows.
var ErrRowArrayField = errors.New("array fields of sequence rows are not supported")

// Sink receives the serialized response.
type Sink interface {
	WriteDMR(text string) error
	WriteAtomic(t dmr.BaseType, v value.Value) error
	WriteCount(n int64) error

	// EndVariable is called after the last value of each top-level variable.
	EndVariable(v *dmr.Variable) error
	Flush() error
}

// RequestIDGenerator produces ids that correlate the log lines of one
// request. Implemented by UUIDv7Generator and by fixed generators in tests.
type RequestIDGenerator interface {
	Generate() string
}

// DefaultMaxRows bounds the row count of one sequence instance.
const DefaultMaxRows = 1 << 20

// Generator writes responses. It is safe for concurrent use; each Generate
// call keeps its own state.
type Generator struct {
	withDMR bool
	maxRows int64
	ids     RequestIDGenerator
}

// Option configures a Generator.
type Option func(*Generator)

// WithoutDMR omits the DMR and writes values only.
func WithoutDMR() Option {
	return func(g *Generator) {
		g.withDMR = false
	}
}

// WithMaxRows sets the per-instance sequence row limit.
//
// Default: DefaultMaxRows. A limit <= 0 disables the check.
func WithMaxRows(n int64) Option {
	return func(g *Generator) {
		g.maxRows = n
	}
}

// WithRequestIDs replaces the UUIDv7 request id generator.
func WithRequestIDs(ids RequestIDGenerator) Option {
	return func(g *Generator) {
		g.ids = ids
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		withDMR: true,
		maxRows: DefaultMaxRows,
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stats summarizes one Generate call.
type Stats struct {
	RequestID string
	Variables int
	Values    int64
	Rows      int64
}

// Generate writes the response for ds as seen through v.
func (g *Generator) Generate(ctx context.Context, ds *dmr.Dataset, v view.View, p Provider, sink Sink) (Stats, error) {
	w := &walker{
		ctx:   ctx,
		view:  v,
		p:     p,
		sink:  sink,
		quota: NewRowQuota(g.maxRows),
		stats: Stats{RequestID: g.ids.Generate()},
	}

	slog.Info("generate starting",
		"request", w.stats.RequestID,
		"dataset", ds.Name(),
		"constraint", v.ConstraintString(),
	)

	if g.withDMR {
		var buf bytes.Buffer
		if err := PrintDMR(&buf, ds, v); err != nil {
			return w.stats, fmt.Errorf("print dmr: %w", err)
		}
		if err := sink.WriteDMR(buf.String()); err != nil {
			return w.stats, err
		}
		if err := sink.Flush(); err != nil {
			return w.stats, err
		}
	}

	for _, tv := range ds.TopVariables() {
		if err := ctx.Err(); err != nil {
			return w.stats, err
		}
		if !v.References(tv) {
			continue
		}
		if err := w.variable(tv, nil, nil); err != nil {
			slog.Error("generate failed",
				"request", w.stats.RequestID,
				"variable", tv.FQN(),
				"error", err,
			)
			return w.stats, err
		}
		if err := sink.EndVariable(tv); err != nil {
			return w.stats, err
		}
		w.stats.Variables++
	}
	if err := sink.Flush(); err != nil {
		return w.stats, err
	}

	slog.Info("generate finished",
		"request", w.stats.RequestID,
		"variables", w.stats.Variables,
		"values", w.stats.Values,
		"rows", w.stats.Rows,
	)
	return w.stats, nil
}

// walker is the state of one Generate call.
type walker struct {
	ctx   context.Context
	view  view.View
	p     Provider
	sink  Sink
	quota *RowQuota
	stats Stats
}

// variable writes every selected instance of v. prefix is the position of
// the enclosing instance; row is set when v is a field of a sequence row.
func (w *walker) variable(v *dmr.Variable, prefix []int64, row view.Row) error {
	slices, ok := w.view.ConstrainedSlices(v)
	if !ok {
		return nil
	}
	odom, err := slice.NewOdometer(slices)
	if err != nil {
		return fmt.Errorf("%s: %w", v.FQN(), err)
	}

	for odom.HasNext() {
		pos := join(prefix, odom.Next())
		switch v.Sort() {
		case dmr.SortAtomic:
			err = w.atomic(v, pos, row)
		case dmr.SortStructure:
			err = w.fields(v, pos, nil)
		case dmr.SortSequence:
			err = w.sequence(v, pos)
		default:
			err = fmt.Errorf("%s: not a variable", v.FQN())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) atomic(v *dmr.Variable, pos []int64, row view.Row) error {
	var val value.Value
	var err error
	if row != nil && v.Rank() == 0 {
		val, err = row.Field(v.Name())
	} else {
		val, err = w.p.ReadAtomic(v, pos)
	}
	if err != nil {
		return err
	}
	w.stats.Values++
	return w.sink.WriteAtomic(WireType(v), val)
}

// fields writes the referenced fields of one compound instance.
func (w *walker) fields(v *dmr.Variable, pos []int64, row view.Row) error {
	for _, f := range v.Fields {
		if !w.view.References(f) {
			continue
		}
		if err := w.variable(f, pos, row); err != nil {
			return err
		}
	}
	return nil
}

// sequence writes the row count of one sequence instance followed by its
// rows. With a filter the rows are scanned twice so the count can precede
// them without holding the matching rows in memory.
func (w *walker) sequence(seq *dmr.Variable, pos []int64) error {
	rows, err := w.p.Rows(seq, pos)
	if err != nil {
		return err
	}

	if w.view.Filter(seq) == nil {
		n := rows.Count()
		if err := w.quota.Check(seq.FQN(), n); err != nil {
			return err
		}
		if err := w.sink.WriteCount(n); err != nil {
			return err
		}
		for i := int64(0); i < n; i++ {
			if err := w.ctx.Err(); err != nil {
				return err
			}
			r, err := rows.Row(i)
			if err != nil {
				return err
			}
			if err := w.row(seq, pos, r); err != nil {
				return err
			}
		}
		return nil
	}

	// The first pass keeps only the indices of matching rows and stops at
	// the quota; the second pulls those rows again to write them.
	it := w.view.FilterIterator(w.ctx, seq, rows)
	var matched []int64
	for it.Next() {
		matched = append(matched, it.Row().Index())
		if err := w.quota.CheckMatched(seq.FQN(), int64(len(matched))); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	if err := w.sink.WriteCount(int64(len(matched))); err != nil {
		return err
	}
	for _, i := range matched {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		r, err := rows.Row(i)
		if err != nil {
			return err
		}
		if err := w.row(seq, pos, r); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) row(seq *dmr.Variable, pos []int64, r view.Row) error {
	w.stats.Rows++
	return w.fields(seq, join(pos, []int64{r.Index()}), r)
}

// WireType returns the base type a variable's values are written as.
// Enumerations are written as their integral base type.
func WireType(v *dmr.Variable) dmr.BaseType {
	if v.Base == dmr.TypeEnum && v.Enum != nil {
		return v.Enum.Base
	}
	return v.Base
}

func join(prefix, tail []int64) []int64 {
	out := make([]int64, 0, len(prefix)+len(tail))
	out = append(out, prefix...)
	return append(out, tail...)
}
