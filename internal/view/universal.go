package view

import (
	"context"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/slice"
)

// Universal is the view of an empty constraint. Every node is referenced,
// every variable is read whole and no sequence is filtered.
type Universal struct {
	ds *dmr.Dataset
}

var _ View = (*Universal)(nil)

// NewUniversal returns the universal view of ds.
func NewUniversal(ds *dmr.Dataset) *Universal {
	return &Universal{ds: ds}
}

func (u *Universal) References(dmr.Node) bool { return true }

func (u *Universal) ConstrainedSlices(v *dmr.Variable) ([]slice.Slice, bool) {
	if v.Rank() == 0 {
		return nil, true
	}
	out := make([]slice.Slice, v.Rank())
	for i, d := range v.Dims {
		out[i] = slice.Fill(d.Size)
	}
	return out, true
}

func (u *Universal) Dimensions(v *dmr.Variable) []*dmr.Dimension { return v.Dims }

func (u *Universal) Redef(*dmr.Dimension) (*dmr.Dimension, bool) { return nil, false }

func (u *Universal) Filter(*dmr.Variable) *Filter { return nil }

func (u *Universal) FilterIterator(ctx context.Context, _ *dmr.Variable, rows RowSource) *FilterIterator {
	return newFilterIterator(ctx, rows, nil)
}

func (u *Universal) ConstraintString() string { return "" }

func (u *Universal) String() string { return "<universal>" }

func (u *Universal) Segments() []*Segment { return nil }
