package ceast

import (
	"github.com/roach88/dap4/internal/slice"
	"github.com/roach88/dap4/internal/value"
)

// Sort identifies the variant of a Node.
type Sort int

const (
	SortConstraint Sort = iota
	SortProjection
	SortSegment
	SortSelection
	SortExpr
	SortConstant
	SortDefine
)

func (s Sort) String() string {
	switch s {
	case SortConstraint:
		return "Constraint"
	case SortProjection:
		return "Projection"
	case SortSegment:
		return "Segment"
	case SortSelection:
		return "Selection"
	case SortExpr:
		return "Expr"
	case SortConstant:
		return "Constant"
	case SortDefine:
		return "Define"
	}
	return "Unknown"
}

// Node is a sealed interface implemented by every AST variant.
type Node interface {
	Sort() Sort
	astNode() // Marker method - seals interface to this package
}

// Operator is a filter operator.
type Operator int

const (
	LT Operator = iota
	LE
	GT
	GE
	EQ
	NEQ
	REQ // regular-expression match
	AND
)

var operatorText = [...]string{
	LT:  "<",
	LE:  "<=",
	GT:  ">",
	GE:  ">=",
	EQ:  "==",
	NEQ: "!=",
	REQ: "~=",
	AND: ",",
}

func (op Operator) String() string {
	if op < 0 || int(op) >= len(operatorText) {
		return "?"
	}
	return operatorText[op]
}

// Mirror returns the operator that gives the same result with the operands
// swapped. REQ and AND have no mirror; ok is false for them.
func (op Operator) Mirror() (mirrored Operator, ok bool) {
	switch op {
	case LT:
		return GT, true
	case LE:
		return GE, true
	case GT:
		return LT, true
	case GE:
		return LE, true
	case EQ, NEQ:
		return op, true
	}
	return op, false
}

// ConstantKind is the lexical kind of a filter constant.
type ConstantKind int

const (
	ConstString ConstantKind = iota
	ConstLong
	ConstDouble
	ConstBoolean
)

// Constraint is the root: an ordered list of Projection, Selection and
// Define clauses.
type Constraint struct {
	Clauses []Node
}

func (*Constraint) Sort() Sort { return SortConstraint }
func (*Constraint) astNode()   {}

// Projection selects the variables named by a segment tree.
type Projection struct {
	Tree *Segment
}

func (*Projection) Sort() Sort { return SortProjection }
func (*Projection) astNode()   {}

// Segment is one path element: a name with optional per-dimension slices and
// optional nested field segments.
type Segment struct {
	Name     string
	Slices   []slice.Slice
	Subnodes []*Segment
}

func (*Segment) Sort() Sort { return SortSegment }
func (*Segment) astNode()   {}

// Leaf reports whether the segment has no nested fields.
func (s *Segment) Leaf() bool { return len(s.Subnodes) == 0 }

// Selection applies a row filter to the sequence named by Projection.
type Selection struct {
	Projection *Segment
	Filter     Node
}

func (*Selection) Sort() Sort { return SortSelection }
func (*Selection) astNode()   {}

// Expr is a comparison, or the conjunction of two expressions when Op is AND.
// Operands are Expr, Segment or Constant nodes.
type Expr struct {
	Op  Operator
	LHS Node
	RHS Node
}

func (*Expr) Sort() Sort { return SortExpr }
func (*Expr) astNode()   {}

// Constant is a literal operand in a filter.
type Constant struct {
	Kind  ConstantKind
	Value value.Value
}

func (*Constant) Sort() Sort { return SortConstant }
func (*Constant) astNode()   {}

// Define redefines the shared dimension Name to the given slice.
type Define struct {
	Name  string
	Slice slice.Slice
}

func (*Define) Sort() Sort { return SortDefine }
func (*Define) astNode()   {}

// StringConst constructs a string constant.
func StringConst(s string) *Constant {
	return &Constant{Kind: ConstString, Value: value.String(s)}
}

// LongConst constructs an integer constant.
func LongConst(n int64) *Constant {
	return &Constant{Kind: ConstLong, Value: value.Int(n)}
}

// DoubleConst constructs a floating-point constant.
func DoubleConst(f float64) *Constant {
	return &Constant{Kind: ConstDouble, Value: value.Float(f)}
}

// BoolConst constructs a boolean constant.
func BoolConst(b bool) *Constant {
	return &Constant{Kind: ConstBoolean, Value: value.Bool(b)}
}

// Field constructs a filter operand naming a sequence field.
func Field(name string) *Segment {
	return &Segment{Name: name}
}

// Compare constructs a comparison expression.
func Compare(lhs Node, op Operator, rhs Node) *Expr {
	return &Expr{Op: op, LHS: lhs, RHS: rhs}
}

// And constructs the conjunction of two or more expressions, left-nested.
func And(first *Expr, rest ...*Expr) *Expr {
	acc := first
	for _, e := range rest {
		acc = &Expr{Op: AND, LHS: acc, RHS: e}
	}
	return acc
}
