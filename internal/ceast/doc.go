// Package ceast defines the abstract syntax tree of a DAP4 constraint
// expression.
//
// The tree is a tagged variant. Node is a sealed interface using the marker
// method pattern, so only the types in this package implement it and
// consumers can switch exhaustively:
//
//	switch n := node.(type) {
//	case *Constraint:
//	case *Projection:
//	case *Segment:
//	case *Selection:
//	case *Expr:
//	case *Constant:
//	case *Define:
//	}
//
// A Constraint is a list of clauses. Each clause is a Projection (a variable
// path with optional slices and nested field lists), a Selection (a sequence
// path plus a row filter) or a Define (a dimension redefinition).
//
// Text form, as produced by String and accepted by package ceparse:
//
//	/a[1];/b[10:16];/c[8:2:15]       projections
//	/s[0:3]{x;y}                     structure with two fields
//	/s.x                             single nested field
//	/seq|i1<0,sh1!=2                 selection; "," is AND
//	d17=[0:5]                        dimension redefinition
//
// The tree carries data only. Name resolution happens in package compiler.
package ceast
