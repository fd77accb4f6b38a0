package ceast

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/dap4/internal/value"
)

// String renders node in canonical constraint-expression text. The output
// parses back (package ceparse) to an equivalent tree.
func String(node Node) string {
	var b strings.Builder
	write(&b, node)
	return b.String()
}

func write(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case nil:
		return
	case *Constraint:
		for i, clause := range n.Clauses {
			if i > 0 {
				b.WriteByte(';')
			}
			write(b, clause)
		}
	case *Projection:
		writeSegment(b, n.Tree)
	case *Segment:
		writeSegment(b, n)
	case *Selection:
		writeSegment(b, n.Projection)
		b.WriteByte('|')
		write(b, n.Filter)
	case *Expr:
		write(b, n.LHS)
		b.WriteString(n.Op.String())
		write(b, n.RHS)
	case *Constant:
		b.WriteString(FormatConstant(n))
	case *Define:
		b.WriteString(n.Name)
		b.WriteByte('=')
		b.WriteString(n.Slice.String())
	}
}

func writeSegment(b *strings.Builder, seg *Segment) {
	if seg == nil {
		return
	}
	b.WriteString(seg.Name)
	for _, s := range seg.Slices {
		b.WriteString(s.String())
	}
	switch len(seg.Subnodes) {
	case 0:
	case 1:
		b.WriteByte('.')
		writeSegment(b, seg.Subnodes[0])
	default:
		b.WriteByte('{')
		for i, sub := range seg.Subnodes {
			if i > 0 {
				b.WriteByte(';')
			}
			writeSegment(b, sub)
		}
		b.WriteByte('}')
	}
}

// FormatConstant renders a constant so that it lexes back to the same kind:
// strings are quoted and doubles always carry a '.' or exponent.
func FormatConstant(c *Constant) string {
	switch c.Kind {
	case ConstString:
		return strconv.Quote(value.Format(c.Value))
	case ConstDouble:
		f, _ := c.Value.(value.Float)
		s := strconv.FormatFloat(float64(f), 'g', -1, 64)
		if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
			return s
		}
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return value.Format(c.Value)
	}
}
