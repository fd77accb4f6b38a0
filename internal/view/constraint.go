package view

import (
	"context"

	"github.com/roach88/dap4/internal/ceast"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/slice"
)

// Constraint is a finished view. It is immutable.
type Constraint struct {
	ds       *dmr.Dataset
	segments []*Segment
	bySeg    map[*dmr.Variable]*Segment
	redefs   []redef
	redefMap map[*dmr.Dimension]*dmr.Dimension

	// dimrefs holds original shared dimensions read whole by some axis.
	dimrefs map[*dmr.Dimension]bool
	enums   map[*dmr.Enumeration]bool
	groups  map[*dmr.Group]bool
}

var _ View = (*Constraint)(nil)

// Dataset returns the dataset the view was compiled against.
func (c *Constraint) Dataset() *dmr.Dataset { return c.ds }

// References reports whether n is part of the response. A redefinition
// dimension is looked up through the dimension it replaces.
func (c *Constraint) References(n dmr.Node) bool {
	switch x := n.(type) {
	case *dmr.Dimension:
		if x.Orig != nil {
			x = x.Orig
		}
		return c.dimrefs[x]
	case *dmr.Enumeration:
		return c.enums[x]
	case *dmr.Variable:
		_, ok := c.bySeg[x]
		return ok
	case *dmr.Group:
		return c.groups[x]
	case *dmr.Dataset:
		return c.groups[x.Root()]
	}
	return false
}

func (c *Constraint) ConstrainedSlices(v *dmr.Variable) ([]slice.Slice, bool) {
	seg, ok := c.bySeg[v]
	if !ok {
		return nil, false
	}
	return seg.Slices, true
}

func (c *Constraint) Dimensions(v *dmr.Variable) []*dmr.Dimension {
	if seg, ok := c.bySeg[v]; ok {
		return seg.Dims
	}
	return nil
}

func (c *Constraint) Redef(d *dmr.Dimension) (*dmr.Dimension, bool) {
	rd, ok := c.redefMap[d]
	return rd, ok
}

func (c *Constraint) Filter(v *dmr.Variable) *Filter {
	if seg, ok := c.bySeg[v]; ok {
		return seg.Filter
	}
	return nil
}

func (c *Constraint) FilterIterator(ctx context.Context, seq *dmr.Variable, rows RowSource) *FilterIterator {
	return newFilterIterator(ctx, rows, c.Filter(seq))
}

func (c *Constraint) Segments() []*Segment { return c.segments }

// Segment returns the segment of v, if included.
func (c *Constraint) Segment(v *dmr.Variable) (*Segment, bool) {
	seg, ok := c.bySeg[v]
	return seg, ok
}

// ConstraintString renders redefinitions first, then one clause per
// top-level segment in insertion order. Unconstrained axes print as "[]".
// Structures and sequences list their included fields in braces unless
// every field is included, recursively. Filters follow their sequence
// after '|'.
func (c *Constraint) ConstraintString() string {
	return ceast.String(c.AST(false))
}

// String is like ConstraintString but prints every axis with its effective
// bounds.
func (c *Constraint) String() string {
	return ceast.String(c.AST(true))
}

// AST returns the view as a constraint tree. With explicit set, every slice
// is rendered with its bounds; the result is then for display only since
// redefined axes lose their link to the redefinition.
func (c *Constraint) AST(explicit bool) *ceast.Constraint {
	out := &ceast.Constraint{}
	for _, r := range c.redefs {
		out.Clauses = append(out.Clauses, &ceast.Define{Name: r.dim.FQN(), Slice: r.slice})
	}

	for _, seg := range c.segments {
		if !seg.IsTopLevel() {
			continue
		}
		var filtered []*Segment
		c.walk(seg, func(s *Segment) {
			if s.Filter != nil {
				filtered = append(filtered, s)
			}
		})

		// Containers of a filtered segment list their fields: the selection
		// names that segment on its own, which would stop a bare container
		// from expanding when the text is compiled again.
		listed := make(map[*dmr.Variable]bool)
		for _, s := range filtered {
			for v := s.Var.Container(); v != nil; v = v.Container() {
				listed[v] = true
			}
		}
		tree := c.segmentTree(seg, explicit, listed)

		// A chain ending at the only filtered segment folds into one clause.
		if len(filtered) == 1 {
			tail, tailSeg := tree, seg
			for len(tail.Subnodes) == 1 {
				tail = tail.Subnodes[0]
				tailSeg = c.bySeg[tailSeg.Var.Field(tail.Name)]
			}
			if tail.Leaf() && tailSeg == filtered[0] {
				out.Clauses = append(out.Clauses, &ceast.Selection{Projection: tree, Filter: filtered[0].Filter.Expr()})
				continue
			}
		}

		out.Clauses = append(out.Clauses, &ceast.Projection{Tree: tree})
		for _, s := range filtered {
			out.Clauses = append(out.Clauses, &ceast.Selection{
				Projection: c.chain(s, explicit),
				Filter:     s.Filter.Expr(),
			})
		}
	}
	return out
}

// segmentTree renders seg and its included fields. A whole compound is
// rendered bare unless it is in listed.
func (c *Constraint) segmentTree(seg *Segment, explicit bool, listed map[*dmr.Variable]bool) *ceast.Segment {
	out := &ceast.Segment{Name: segmentName(seg.Var), Slices: renderSlices(seg.Slices, explicit)}
	if !seg.Var.IsCompound() || (c.isWhole(seg.Var) && !listed[seg.Var]) {
		return out
	}
	for _, f := range seg.Var.Fields {
		if fs, ok := c.bySeg[f]; ok {
			out.Subnodes = append(out.Subnodes, c.segmentTree(fs, explicit, listed))
		}
	}
	return out
}

// chain renders the path from the top-level ancestor of s down to s, each
// element with its slices and no other fields.
func (c *Constraint) chain(s *Segment, explicit bool) *ceast.Segment {
	var path []*Segment
	for v := s.Var; v != nil; v = v.Container() {
		path = append([]*Segment{c.bySeg[v]}, path...)
	}
	var root, cur *ceast.Segment
	for _, p := range path {
		n := &ceast.Segment{Name: segmentName(p.Var), Slices: renderSlices(p.Slices, explicit)}
		if root == nil {
			root = n
		} else {
			cur.Subnodes = []*ceast.Segment{n}
		}
		cur = n
	}
	return root
}

func (c *Constraint) walk(seg *Segment, fn func(*Segment)) {
	fn(seg)
	for _, f := range seg.Var.Fields {
		if fs, ok := c.bySeg[f]; ok {
			c.walk(fs, fn)
		}
	}
}

// isWhole reports whether every field of v is included, recursively.
func (c *Constraint) isWhole(v *dmr.Variable) bool {
	for _, f := range v.Fields {
		if _, ok := c.bySeg[f]; !ok {
			return false
		}
		if f.IsCompound() && !c.isWhole(f) {
			return false
		}
	}
	return true
}

func segmentName(v *dmr.Variable) string {
	if v.IsTopLevel() {
		return v.FQN()
	}
	return v.Name()
}

func renderSlices(slices []slice.Slice, explicit bool) []slice.Slice {
	if len(slices) == 0 {
		return nil
	}
	out := make([]slice.Slice, len(slices))
	copy(out, slices)
	if explicit {
		for i := range out {
			out[i].Constrained = true
		}
	}
	return out
}
