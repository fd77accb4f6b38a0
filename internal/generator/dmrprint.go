package generator

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/view"
)

// DAP4Namespace is the XML namespace of a DMR document.
const DAP4Namespace = "http://xml.opendap.org/ns/DAP/4.0#"

// PrintDMR writes the DMR of ds restricted to the nodes v references.
// Redefined dimensions print with their redefined size; variables print
// with the dimensions the view assigns them, anonymous ones by size.
func PrintDMR(w io.Writer, ds *dmr.Dataset, v view.View) error {
	p := &dmrPrinter{w: bufio.NewWriter(w), view: v}
	p.line(0, `<?xml version="1.0" encoding="UTF-8"?>`)
	p.line(0, `<Dataset name="%s" dapVersion="%s" dmrVersion="%s" xmlns="%s">`,
		esc(ds.Name()), esc(ds.DapVersion), esc(ds.DMRVersion), DAP4Namespace)
	p.groupBody(ds.Root(), 1)
	p.line(0, "</Dataset>")
	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}

type dmrPrinter struct {
	w    *bufio.Writer
	view view.View
	err  error
}

func (p *dmrPrinter) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	if _, err := p.w.WriteString(strings.Repeat("  ", depth)); err != nil {
		p.err = err
		return
	}
	if _, err := fmt.Fprintf(p.w, format+"\n", args...); err != nil {
		p.err = err
	}
}

func (p *dmrPrinter) groupBody(g *dmr.Group, depth int) {
	for _, d := range g.Dimensions {
		if !p.view.References(d) {
			continue
		}
		size := d.Size
		if rd, ok := p.view.Redef(d); ok {
			size = rd.Size
		}
		p.line(depth, `<Dimension name="%s" size="%d"/>`, esc(d.Name()), size)
	}
	for _, e := range g.Enums {
		if !p.view.References(e) {
			continue
		}
		p.line(depth, `<Enumeration name="%s" basetype="%s">`, esc(e.Name()), e.Base)
		for _, c := range e.Consts {
			p.line(depth+1, `<EnumConst name="%s" value="%d"/>`, esc(c.Name), c.Value)
		}
		p.line(depth, "</Enumeration>")
	}
	for _, v := range g.Variables {
		if p.view.References(v) {
			p.variable(v, depth)
		}
	}
	for _, sub := range g.Groups {
		if !p.view.References(sub) {
			continue
		}
		p.line(depth, `<Group name="%s">`, esc(sub.Name()))
		p.groupBody(sub, depth+1)
		p.line(depth, "</Group>")
	}
	for _, a := range g.Attributes {
		p.attribute(a, depth)
	}
}

func (p *dmrPrinter) variable(v *dmr.Variable, depth int) {
	var tag, extra string
	switch v.Sort() {
	case dmr.SortStructure:
		tag = "Structure"
	case dmr.SortSequence:
		tag = "Sequence"
	default:
		tag = v.Base.String()
		if v.Base == dmr.TypeEnum && v.Enum != nil {
			extra = fmt.Sprintf(` enum="%s"`, esc(v.Enum.FQN()))
		}
	}

	dims := p.view.Dimensions(v)
	var fields []*dmr.Variable
	for _, f := range v.Fields {
		if p.view.References(f) {
			fields = append(fields, f)
		}
	}
	if len(dims) == 0 && len(fields) == 0 && len(v.Attributes) == 0 {
		p.line(depth, `<%s name="%s"%s/>`, tag, esc(v.Name()), extra)
		return
	}

	p.line(depth, `<%s name="%s"%s>`, tag, esc(v.Name()), extra)
	for _, f := range fields {
		p.variable(f, depth+1)
	}
	for _, d := range dims {
		if d.IsAnonymous() {
			p.line(depth+1, `<Dim size="%d"/>`, d.Size)
		} else {
			p.line(depth+1, `<Dim name="%s"/>`, esc(d.FQN()))
		}
	}
	for _, a := range v.Attributes {
		p.attribute(a, depth+1)
	}
	p.line(depth, "</%s>", tag)
}

func (p *dmrPrinter) attribute(a dmr.Attribute, depth int) {
	if len(a.Values) == 0 {
		p.line(depth, `<Attribute name="%s" type="%s"/>`, esc(a.Name), a.Type)
		return
	}
	p.line(depth, `<Attribute name="%s" type="%s">`, esc(a.Name), a.Type)
	for _, val := range a.Values {
		p.line(depth+1, "<Value>%s</Value>", esc(val))
	}
	p.line(depth, "</Attribute>")
}

func esc(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
