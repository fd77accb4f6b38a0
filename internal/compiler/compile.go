// Package compiler resolves a constraint tree against a dataset and builds
// the finished constraint view.
//
// Compilation is a single pass over the clauses in order. It fails fast: the
// first error aborts the whole compile and no partial view is returned.
// Errors are ceerr values (name resolution, type, range, semantic).
//
// Compile holds no state between calls and is safe to call concurrently.
package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/dap4/internal/ceast"
	"github.com/roach88/dap4/internal/ceerr"
	"github.com/roach88/dap4/internal/ceparse"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/view"
)

// Option configures a compile.
type Option func(*config)

type config struct {
	expand bool
}

// WithoutExpansion leaves structures and sequences that were named without
// fields empty instead of including all of their fields.
func WithoutExpansion() Option {
	return func(c *config) {
		c.expand = false
	}
}

// Compile resolves tree against ds and returns the finished view.
func Compile(ds *dmr.Dataset, tree *ceast.Constraint, opts ...Option) (*view.Constraint, error) {
	cfg := config{expand: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if tree == nil {
		tree = &ceast.Constraint{}
	}
	if err := ceast.Check(tree); err != nil {
		return nil, err
	}

	c := &compiler{ds: ds, b: view.NewBuilder(ds)}
	for i, clause := range tree.Clauses {
		slog.Debug("compiling clause",
			"index", i,
			"sort", clause.Sort().String(),
			"clause", ceast.String(clause),
		)

		var err error
		switch x := clause.(type) {
		case *ceast.Projection:
			err = c.projection(x.Tree)
		case *ceast.Selection:
			err = c.selection(x)
		case *ceast.Define:
			err = c.define(x)
		default:
			err = ceerr.Syntax("unexpected clause %s", clause.Sort())
		}
		if err != nil {
			return nil, err
		}
	}
	return c.b.Finish(cfg.expand)
}

// CompileText parses and compiles constraint text. Blank text selects the
// whole dataset and yields the universal view.
func CompileText(ds *dmr.Dataset, text string, opts ...Option) (view.View, error) {
	if strings.TrimSpace(text) == "" {
		return view.NewUniversal(ds), nil
	}
	tree, err := ceparse.Parse(text)
	if err != nil {
		return nil, err
	}
	return Compile(ds, tree, opts...)
}

// compiler is the state of one Compile call.
type compiler struct {
	ds *dmr.Dataset
	b  *view.Builder
}

// projection adds the variables named by a segment tree. The scope stack
// starts empty for every clause.
func (c *compiler) projection(seg *ceast.Segment) error {
	_, err := c.segment(seg, nil)
	return err
}

func (c *compiler) segment(seg *ceast.Segment, scope []*dmr.Variable) (*dmr.Variable, error) {
	v, err := c.resolve(seg.Name, scope)
	if err != nil {
		return nil, err
	}
	if _, err := c.b.AddVariable(v, seg.Slices); err != nil {
		return nil, err
	}
	if seg.Leaf() {
		return v, nil
	}
	if !v.IsCompound() {
		return nil, ceerr.Type(v.FQN(), "fields selected from a %s variable", v.Sort())
	}
	scope = append(scope, v)
	for _, sub := range seg.Subnodes {
		if _, err := c.segment(sub, scope); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// resolve finds a variable: by FQN at dataset scope, otherwise as a field of
// the innermost scope.
func (c *compiler) resolve(name string, scope []*dmr.Variable) (*dmr.Variable, error) {
	if len(scope) == 0 {
		matches := c.ds.FindByFQN(name, dmr.SortAtomic, dmr.SortStructure, dmr.SortSequence)
		switch len(matches) {
		case 0:
			if others := c.ds.FindByFQN(name); len(others) > 0 {
				return nil, ceerr.Type(name, "%s is not a variable", others[0].Sort())
			}
			return nil, ceerr.Undefined("variable", name)
		case 1:
			return matches[0].(*dmr.Variable), nil
		default:
			return nil, ceerr.Ambiguous("variable", name)
		}
	}

	parent := scope[len(scope)-1]
	var found *dmr.Variable
	for _, f := range parent.Fields {
		if f.Name() != name {
			continue
		}
		if found != nil {
			return nil, ceerr.Ambiguous("field", parent.FQN()+"."+name)
		}
		found = f
	}
	if found == nil {
		return nil, ceerr.Undefined("field", parent.FQN()+"."+name)
	}
	return found, nil
}

// selection resolves the sequence path, which must be a single chain of
// segments, and attaches the compiled filter.
func (c *compiler) selection(sel *ceast.Selection) error {
	var scope []*dmr.Variable
	var seq *dmr.Variable
	for seg := sel.Projection; ; seg = seg.Subnodes[0] {
		v, err := c.resolve(seg.Name, scope)
		if err != nil {
			return err
		}
		if _, err := c.b.AddVariable(v, seg.Slices); err != nil {
			return err
		}
		if seg.Leaf() {
			seq = v
			break
		}
		if len(seg.Subnodes) > 1 {
			return ceerr.Semantic(v.FQN(), "selection must name a single sequence")
		}
		if !v.IsCompound() {
			return ceerr.Type(v.FQN(), "fields selected from a %s variable", v.Sort())
		}
		scope = append(scope, v)
	}
	if seq.Sort() != dmr.SortSequence {
		return ceerr.Type(seq.FQN(), "selection target is a %s, not a Sequence", seq.Sort())
	}

	f, err := c.filter(seq, sel.Filter)
	if err != nil {
		return err
	}
	slog.Debug("filter attached", "sequence", seq.FQN(), "filter", f.String())
	return c.b.SetFilter(seq, f)
}

// filter compiles a filter expression over the fields of seq. Comparisons
// with the field on the right are mirrored so that evaluation always reads
// a field on the left.
func (c *compiler) filter(seq *dmr.Variable, n ceast.Node) (*view.Filter, error) {
	e, ok := n.(*ceast.Expr)
	if !ok {
		return nil, ceerr.Syntax("filter must be an expression, got %s", n.Sort())
	}
	if e.Op == ceast.AND {
		l, err := c.filter(seq, e.LHS)
		if err != nil {
			return nil, err
		}
		r, err := c.filter(seq, e.RHS)
		if err != nil {
			return nil, err
		}
		return view.NewAnd(l, r), nil
	}

	lhs, op, rhs := e.LHS, e.Op, e.RHS
	if _, ok := lhs.(*ceast.Segment); !ok {
		if _, ok := rhs.(*ceast.Segment); !ok {
			return nil, ceerr.Semantic(ceast.String(e), "comparison does not name a field")
		}
		mirrored, ok := op.Mirror()
		if !ok {
			return nil, ceerr.Semantic(ceast.String(e), "operator %q needs a field on the left", op)
		}
		lhs, op, rhs = rhs, mirrored, lhs
	}

	field, err := c.filterField(seq, lhs.(*ceast.Segment))
	if err != nil {
		return nil, err
	}
	var operand view.Operand
	switch r := rhs.(type) {
	case *ceast.Segment:
		rf, err := c.filterField(seq, r)
		if err != nil {
			return nil, err
		}
		operand = view.FieldOperand(rf)
	case *ceast.Constant:
		operand = view.ConstOperand(r)
	default:
		return nil, ceerr.Semantic(ceast.String(e), "nested expression used as a comparison operand")
	}
	return view.NewCompare(field, op, operand)
}

// filterField resolves a filter operand to a direct field of seq.
func (c *compiler) filterField(seq *dmr.Variable, seg *ceast.Segment) (*dmr.Variable, error) {
	if len(seg.Slices) > 0 || !seg.Leaf() {
		return nil, ceerr.Semantic(ceast.String(seg), "filter operand must be a plain field name")
	}
	if strings.HasPrefix(seg.Name, "/") {
		if len(c.ds.FindByFQN(seg.Name)) > 0 {
			return nil, ceerr.Semantic(seg.Name, "filter on %s references a variable outside the sequence", seq.FQN())
		}
		return nil, ceerr.Undefined("field", seg.Name)
	}
	f := seq.Field(seg.Name)
	if f == nil {
		return nil, ceerr.Undefined("field", seq.FQN()+"."+seg.Name)
	}
	return f, nil
}

// define records a dimension redefinition.
func (c *compiler) define(d *ceast.Define) error {
	matches := c.ds.FindByFQN(d.Name, dmr.SortDimension)
	switch len(matches) {
	case 0:
		if others := c.ds.FindByFQN(d.Name); len(others) > 0 {
			return ceerr.Type(d.Name, "%s is not a dimension", others[0].Sort())
		}
		return ceerr.Undefined("dimension", d.Name)
	case 1:
	default:
		return ceerr.Ambiguous("dimension", d.Name)
	}
	dim := matches[0].(*dmr.Dimension)
	if err := c.b.AddRedef(dim, d.Slice); err != nil {
		return fmt.Errorf("compile %s: %w", ceast.String(d), err)
	}
	return nil
}
