package ceast

import (
	"github.com/roach88/dap4/internal/ceerr"
)

// Check verifies that a tree has the shape the compiler expects: clauses are
// Projection, Selection or Define; segments are named; filters are
// expressions whose operands are Expr, Segment or Constant, with AND taking
// expressions on both sides.
//
// Check is a pure function; it does not resolve names.
func Check(node Node) error {
	c := &checker{}
	c.node(node)
	return c.err
}

// checker records the first error found during traversal.
type checker struct {
	err error
}

func (c *checker) fail(format string, args ...any) {
	if c.err == nil {
		c.err = ceerr.Syntax(format, args...)
	}
}

func (c *checker) node(n Node) {
	if c.err != nil {
		return
	}
	switch x := n.(type) {
	case nil:
		c.fail("nil node")
	case *Constraint:
		for _, clause := range x.Clauses {
			c.clause(clause)
		}
	case *Projection, *Selection, *Define:
		c.clause(n)
	case *Segment:
		c.segment(x)
	case *Expr:
		c.expr(x)
	case *Constant:
		if x.Value == nil {
			c.fail("constant without value")
		}
	default:
		c.fail("unknown node type %T", n)
	}
}

func (c *checker) clause(n Node) {
	switch x := n.(type) {
	case *Projection:
		if x.Tree == nil {
			c.fail("projection without segment")
			return
		}
		c.segment(x.Tree)
	case *Selection:
		if x.Projection == nil {
			c.fail("selection without projection")
			return
		}
		c.segment(x.Projection)
		if x.Filter == nil {
			c.fail("selection without filter")
			return
		}
		if _, ok := x.Filter.(*Expr); !ok {
			c.fail("selection filter must be an expression, got %s", x.Filter.Sort())
			return
		}
		c.node(x.Filter)
	case *Define:
		if x.Name == "" {
			c.fail("dimension redefinition without name")
		}
	case nil:
		c.fail("nil clause")
	default:
		c.fail("unexpected clause %s", n.Sort())
	}
}

func (c *checker) segment(s *Segment) {
	if s.Name == "" {
		c.fail("segment without name")
		return
	}
	for _, sub := range s.Subnodes {
		if sub == nil {
			c.fail("nil subnode under %s", s.Name)
			return
		}
		c.segment(sub)
	}
}

func (c *checker) expr(e *Expr) {
	if e.LHS == nil || e.RHS == nil {
		c.fail("expression %s missing operand", e.Op)
		return
	}
	if e.Op == AND {
		_, lok := e.LHS.(*Expr)
		_, rok := e.RHS.(*Expr)
		if !lok || !rok {
			c.fail("operands of %q must be expressions", e.Op)
			return
		}
	}
	for _, operand := range []Node{e.LHS, e.RHS} {
		switch operand.(type) {
		case *Expr, *Segment, *Constant:
			c.node(operand)
		default:
			c.fail("illegal filter operand %s", operand.Sort())
		}
	}
}
