package view

import (
	"context"
	"fmt"
	"regexp"

	"github.com/roach88/dap4/internal/ceast"
	"github.com/roach88/dap4/internal/ceerr"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/value"
)

// Operand is the right-hand side of a comparison: another field of the same
// row, or a constant.
type Operand struct {
	Field *dmr.Variable
	Const *ceast.Constant
}

// FieldOperand returns an operand reading field f.
func FieldOperand(f *dmr.Variable) Operand { return Operand{Field: f} }

// ConstOperand returns a constant operand.
func ConstOperand(c *ceast.Constant) Operand { return Operand{Const: c} }

// Filter is a compiled row predicate: either a comparison whose left side is
// a scalar field, or the conjunction of two filters.
type Filter struct {
	op ceast.Operator

	// AND
	left, right *Filter

	// comparison
	field *dmr.Variable
	rhs   Operand
	re    *regexp.Regexp // REQ against a constant
}

// NewCompare builds a comparison of field against rhs. Both fields must be
// scalar atomics. A REQ constant must be a string holding a valid regular
// expression; it matches the whole of the field's text.
func NewCompare(field *dmr.Variable, op ceast.Operator, rhs Operand) (*Filter, error) {
	if op == ceast.AND {
		return nil, ceerr.Syntax("%q is not a comparison operator", op)
	}
	if err := checkScalarField(field); err != nil {
		return nil, err
	}
	switch {
	case rhs.Field != nil:
		if err := checkScalarField(rhs.Field); err != nil {
			return nil, err
		}
	case rhs.Const != nil:
	default:
		return nil, ceerr.Syntax("comparison on %s has no right operand", field.Name())
	}

	f := &Filter{op: op, field: field, rhs: rhs}
	if op == ceast.REQ && rhs.Const != nil {
		if rhs.Const.Kind != ceast.ConstString {
			return nil, ceerr.Type(field.Name(), "pattern for %q must be a string", op)
		}
		re, err := compilePattern(value.Format(rhs.Const.Value))
		if err != nil {
			return nil, ceerr.Semantic(field.Name(), "bad regular expression: %v", err)
		}
		f.re = re
	}
	return f, nil
}

// NewAnd returns the conjunction of l and r.
func NewAnd(l, r *Filter) *Filter {
	return &Filter{op: ceast.AND, left: l, right: r}
}

func checkScalarField(v *dmr.Variable) error {
	if v == nil {
		return ceerr.Syntax("nil filter field")
	}
	if v.Sort() != dmr.SortAtomic {
		return ceerr.Type(v.FQN(), "filter field must be atomic, not %s", v.Sort())
	}
	if v.Rank() != 0 {
		return ceerr.Type(v.FQN(), "filter field must be scalar, has rank %d", v.Rank())
	}
	return nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

// Eval evaluates the filter against one row.
func (f *Filter) Eval(row Row) (bool, error) {
	if f.op == ceast.AND {
		ok, err := f.left.Eval(row)
		if err != nil || !ok {
			return false, err
		}
		return f.right.Eval(row)
	}

	lv, err := row.Field(f.field.Name())
	if err != nil {
		return false, fmt.Errorf("filter field %s: %w", f.field.Name(), err)
	}
	var rv value.Value
	if f.rhs.Field != nil {
		rv, err = row.Field(f.rhs.Field.Name())
		if err != nil {
			return false, fmt.Errorf("filter field %s: %w", f.rhs.Field.Name(), err)
		}
	} else {
		rv = f.rhs.Const.Value
	}

	if f.op == ceast.REQ {
		re := f.re
		if re == nil {
			re, err = compilePattern(value.Format(rv))
			if err != nil {
				return false, fmt.Errorf("filter pattern from %s: %w", f.rhs.Field.Name(), err)
			}
		}
		return re.MatchString(value.Format(lv)), nil
	}

	c, err := value.Compare(lv, rv)
	if err != nil {
		return false, fmt.Errorf("filter %s: %w", f, err)
	}
	switch f.op {
	case ceast.LT:
		return c < 0, nil
	case ceast.LE:
		return c <= 0, nil
	case ceast.GT:
		return c > 0, nil
	case ceast.GE:
		return c >= 0, nil
	case ceast.EQ:
		return c == 0, nil
	case ceast.NEQ:
		return c != 0, nil
	}
	return false, fmt.Errorf("unknown filter operator %d", f.op)
}

// Expr returns the filter as an expression tree in canonical form.
func (f *Filter) Expr() *ceast.Expr {
	if f.op == ceast.AND {
		return &ceast.Expr{Op: ceast.AND, LHS: f.left.Expr(), RHS: f.right.Expr()}
	}
	var rhs ceast.Node
	if f.rhs.Field != nil {
		rhs = ceast.Field(f.rhs.Field.Name())
	} else {
		rhs = f.rhs.Const
	}
	return ceast.Compare(ceast.Field(f.field.Name()), f.op, rhs)
}

func (f *Filter) String() string { return ceast.String(f.Expr()) }

// FilterIterator yields the rows of a sequence that pass a filter, in their
// original order. Use it like bufio.Scanner:
//
//	for it.Next() {
//		row := it.Row()
//	}
//	if err := it.Err(); err != nil {
//	}
type FilterIterator struct {
	ctx    context.Context
	rows   RowSource
	filter *Filter
	count  int64
	next   int64
	row    Row
	err    error
}

func newFilterIterator(ctx context.Context, rows RowSource, filter *Filter) *FilterIterator {
	return &FilterIterator{ctx: ctx, rows: rows, filter: filter, count: rows.Count()}
}

// Next advances to the next matching row. It returns false when the rows
// are exhausted, the context is done or an error occurs.
func (it *FilterIterator) Next() bool {
	it.row = nil
	for it.err == nil && it.next < it.count {
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}
		r, err := it.rows.Row(it.next)
		it.next++
		if err != nil {
			it.err = err
			return false
		}
		if it.filter == nil {
			it.row = r
			return true
		}
		ok, err := it.filter.Eval(r)
		if err != nil {
			it.err = err
			return false
		}
		if ok {
			it.row = r
			return true
		}
	}
	return false
}

// Row returns the current row. It is nil before the first call to Next and
// after Next returns false.
func (it *FilterIterator) Row() Row { return it.row }

// Err returns the first error encountered.
func (it *FilterIterator) Err() error { return it.err }

// Collect drains the iterator.
func (it *FilterIterator) Collect() ([]Row, error) {
	var out []Row
	for it.Next() {
		out = append(out, it.Row())
	}
	return out, it.Err()
}
