package view

import (
	"errors"
	"fmt"

	"github.com/roach88/dap4/internal/ceerr"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/slice"
)

// ErrFinished is returned by Builder methods called after Finish.
var ErrFinished = errors.New("view: builder already finished")

// Builder accumulates segments, redefinitions and filters for one request.
// It is not safe for concurrent use.
type Builder struct {
	ds       *dmr.Dataset
	segments []*Segment
	bySeg    map[*dmr.Variable]*Segment
	redefs   []redef
	finished bool
}

type redef struct {
	dim   *dmr.Dimension
	slice slice.Slice
}

// NewBuilder returns an empty builder over ds.
func NewBuilder(ds *dmr.Dataset) *Builder {
	return &Builder{ds: ds, bySeg: make(map[*dmr.Variable]*Segment)}
}

// AddVariable includes v with the given explicit slices, which may be fewer
// than v's rank. Slices are completed and validated against v's original
// dimensions. Adding a variable that is already included is a no-op and
// returns the existing segment.
//
// A field can only be added once its container is included.
func (b *Builder) AddVariable(v *dmr.Variable, slices []slice.Slice) (*Segment, error) {
	if b.finished {
		return nil, ErrFinished
	}
	if seg, ok := b.bySeg[v]; ok {
		return seg, nil
	}
	if len(slices) > v.Rank() {
		return nil, ceerr.Semantic(v.FQN(), "%d slices given for a variable of rank %d", len(slices), v.Rank())
	}
	if c := v.Container(); c != nil {
		if _, ok := b.bySeg[c]; !ok {
			return nil, ceerr.Semantic(v.FQN(), "field added before its container")
		}
	}

	completed := make([]slice.Slice, len(slices))
	for i, s := range slices {
		s = s.Complete(v.Dims[i].Size)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s axis %d: %w", v.FQN(), i, err)
		}
		completed[i] = s
	}

	seg := &Segment{Var: v, Slices: completed}
	b.segments = append(b.segments, seg)
	b.bySeg[v] = seg
	return seg, nil
}

// AddRedef redefines shared dimension d to the subset selected by s.
// Unconstrained axes over d then read only that subset.
func (b *Builder) AddRedef(d *dmr.Dimension, s slice.Slice) error {
	if b.finished {
		return ErrFinished
	}
	if !d.Shared {
		return ceerr.Semantic(d.FQN(), "only shared dimensions can be redefined")
	}
	for _, r := range b.redefs {
		if r.dim == d {
			return ceerr.Semantic(d.FQN(), "dimension redefined more than once")
		}
	}
	s = s.Complete(d.Size)
	if err := s.Validate(); err != nil {
		return fmt.Errorf("redefinition of %s: %w", d.FQN(), err)
	}
	b.redefs = append(b.redefs, redef{dim: d, slice: s})
	return nil
}

// SetFilter attaches f to sequence seq, which must already be included.
// A second filter on the same sequence is combined with the first by AND.
func (b *Builder) SetFilter(seq *dmr.Variable, f *Filter) error {
	if b.finished {
		return ErrFinished
	}
	if seq.Sort() != dmr.SortSequence {
		return ceerr.Type(seq.FQN(), "filter target is a %s, not a Sequence", seq.Sort())
	}
	seg, ok := b.bySeg[seq]
	if !ok {
		return ceerr.Semantic(seq.FQN(), "filter on a sequence that is not projected")
	}
	if seg.Filter != nil {
		seg.Filter = NewAnd(seg.Filter, f)
	} else {
		seg.Filter = f
	}
	return nil
}

// Segment returns the segment of v, if included.
func (b *Builder) Segment(v *dmr.Variable) (*Segment, bool) {
	seg, ok := b.bySeg[v]
	return seg, ok
}

// Finish freezes the builder into a Constraint. With expand set, every
// included structure or sequence none of whose fields was named explicitly
// gets all of its fields, transitively. The builder cannot be used again.
func (b *Builder) Finish(expand bool) (*Constraint, error) {
	if b.finished {
		return nil, ErrFinished
	}
	b.finished = true

	c := &Constraint{
		ds:       b.ds,
		segments: b.segments,
		bySeg:    b.bySeg,
		redefs:   b.redefs,
		redefMap: make(map[*dmr.Dimension]*dmr.Dimension, len(b.redefs)),
		dimrefs:  make(map[*dmr.Dimension]bool),
		enums:    make(map[*dmr.Enumeration]bool),
		groups:   make(map[*dmr.Group]bool),
	}
	b.segments, b.bySeg, b.redefs = nil, nil, nil

	if expand {
		c.expand()
	}
	c.computeDimensions()
	c.computeEnums()
	c.computeGroups()
	return c, nil
}

// expand adds the fields of unexpanded compounds breadth first. The queue is
// seeded with every included compound that has no included fields; fields
// that are themselves compounds are queued in turn.
func (c *Constraint) expand() {
	var queue []*dmr.Variable
	for _, seg := range c.segments {
		if seg.Var.IsCompound() && c.includedFields(seg.Var) == 0 {
			queue = append(queue, seg.Var)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, f := range v.Fields {
			if _, ok := c.bySeg[f]; ok {
				continue
			}
			seg := &Segment{Var: f}
			c.segments = append(c.segments, seg)
			c.bySeg[f] = seg
			if f.IsCompound() {
				queue = append(queue, f)
			}
		}
	}
}

func (c *Constraint) includedFields(v *dmr.Variable) int {
	n := 0
	for _, f := range v.Fields {
		if _, ok := c.bySeg[f]; ok {
			n++
		}
	}
	return n
}

// computeDimensions pads each segment's slices to its rank and derives the
// dimension written for every axis. An explicitly sliced axis gets its own
// anonymous dimension; any other axis reads the whole of the dimension's
// redefinition, or of the dimension itself, and marks the original shared
// dimension as referenced.
func (c *Constraint) computeDimensions() {
	for _, r := range c.redefs {
		c.redefMap[r.dim] = r.dim.Redefine(r.slice.Count())
	}

	for _, seg := range c.segments {
		v := seg.Var
		slices := make([]slice.Slice, v.Rank())
		dims := make([]*dmr.Dimension, v.Rank())
		for i, orig := range v.Dims {
			if i < len(seg.Slices) && seg.Slices[i].Constrained {
				slices[i] = seg.Slices[i]
				dims[i] = dmr.NewAnonymousDimension(slices[i].Count())
				continue
			}
			if rd, ok := c.redefMap[orig]; ok {
				s := c.redefSlice(orig)
				s.Constrained = false
				slices[i] = s
				dims[i] = rd
			} else {
				slices[i] = slice.Fill(orig.Size)
				dims[i] = orig
			}
			if orig.Shared {
				c.dimrefs[orig] = true
			}
		}
		seg.Slices = slices
		seg.Dims = dims
	}
}

func (c *Constraint) redefSlice(d *dmr.Dimension) slice.Slice {
	for _, r := range c.redefs {
		if r.dim == d {
			return r.slice
		}
	}
	return slice.Fill(d.Size)
}

func (c *Constraint) computeEnums() {
	for _, seg := range c.segments {
		if seg.Var.Enum != nil {
			c.enums[seg.Var.Enum] = true
		}
	}
}

// computeGroups includes every group enclosing an included variable,
// referenced dimension or enumeration.
func (c *Constraint) computeGroups() {
	mark := func(n dmr.Node) {
		for _, g := range dmr.GroupPath(n) {
			c.groups[g] = true
		}
	}
	for _, seg := range c.segments {
		mark(seg.Var)
	}
	for d := range c.dimrefs {
		mark(d)
	}
	for e := range c.enums {
		mark(e)
	}
	c.groups[c.ds.Root()] = true
}
