// Package view holds the compiled form of a constraint expression.
//
// A Builder is populated by the compiler and frozen with Finish into a
// Constraint. A Constraint is immutable and safe for concurrent readers.
// Universal is the view used when a request carries no constraint: every
// node is referenced and every variable is read whole.
//
// Both satisfy View, which is what the generator and the DMR printer consume.
package view

import (
	"context"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/slice"
	"github.com/roach88/dap4/internal/value"
)

// View is the read-only query surface of a compiled constraint.
type View interface {
	// References reports whether a dimension, enumeration, group or
	// variable is part of the response.
	References(n dmr.Node) bool

	// ConstrainedSlices returns one completed slice per dimension of v, in
	// original-dimension indices. ok is false when v is not included.
	ConstrainedSlices(v *dmr.Variable) (slices []slice.Slice, ok bool)

	// Dimensions returns the per-axis dimensions v is written with: the
	// original, its redefinition, or an anonymous dimension for a sliced axis.
	Dimensions(v *dmr.Variable) []*dmr.Dimension

	// Redef returns the redefinition of shared dimension d, if any.
	Redef(d *dmr.Dimension) (*dmr.Dimension, bool)

	// Filter returns the row filter attached to sequence v, or nil.
	Filter(v *dmr.Variable) *Filter

	// FilterIterator returns an iterator over the rows of seq that pass its
	// filter, pulling rows from rows lazily.
	FilterIterator(ctx context.Context, seq *dmr.Variable, rows RowSource) *FilterIterator

	// ConstraintString renders the view as constraint text that compiles
	// back to an identical view.
	ConstraintString() string

	String() string

	// Segments returns the included variables in insertion order. It is nil
	// for the universal view.
	Segments() []*Segment
}

// Row is one record of a sequence.
type Row interface {
	// Index is the row's position in the unfiltered sequence.
	Index() int64

	// Field returns the value of the named scalar field.
	Field(name string) (value.Value, error)
}

// RowSource supplies the rows of one sequence instance. The count is known
// up front; rows are read on demand.
type RowSource interface {
	Count() int64
	Row(i int64) (Row, error)
}

// Segment is one included variable with its resolved slices and dimensions.
// The variable is owned by the dataset, which must outlive the view.
type Segment struct {
	Var *dmr.Variable

	// Slices holds one slice per axis after Finish. Before Finish it holds
	// only the slices given explicitly.
	Slices []slice.Slice

	// Dims holds the per-axis dimensions after Finish.
	Dims []*dmr.Dimension

	Filter *Filter
}

// IsTopLevel reports whether the segment's variable is declared in a group.
func (s *Segment) IsTopLevel() bool { return s.Var.IsTopLevel() }
