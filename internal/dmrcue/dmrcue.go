// Package dmrcue loads dataset models written in CUE.
//
// A model file declares a single top-level dataset:
//
//	dataset: {
//		name: "example"
//		dimensions: {n: 4}
//		enumerations: colors: {basetype: "UInt8", consts: {red: 1, green: 2}}
//		variables: {
//			t: {type: "Float64", dims: ["n"]}
//			c: {enum: "colors", dims: [2]}
//			st: {type: "Structure", dims: ["n"], fields: {
//				x: {type: "Int32"}
//			}}
//		}
//		attributes: title: {type: "String", values: ["demo"]}
//		groups: g: {dimensions: {m: 3}, variables: {u: {type: "UInt16", dims: ["/n", "m"]}}}
//	}
//
// Declaration order is the order fields appear in the source. A dimension
// reference is a name looked up in the enclosing groups from the innermost
// outwards, an absolute FQN, or an integer giving an anonymous dimension.
// Enumerations are referenced the same way.
package dmrcue

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dap4/internal/dmr"
)

// CompileError represents a model error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// Load reads and compiles a model file.
func Load(path string) (*dmr.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return CompileBytes(data, path)
}

// CompileBytes compiles model source. filename is used in error positions.
func CompileBytes(src []byte, filename string) (*dmr.Dataset, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	dsVal := v.LookupPath(cue.ParsePath("dataset"))
	if !dsVal.Exists() {
		return nil, &CompileError{Field: "dataset", Message: "dataset is required", Pos: v.Pos()}
	}
	return Compile(dsVal)
}

// Compile builds a dataset from the CUE value of a dataset declaration.
func Compile(v cue.Value) (*dmr.Dataset, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	ds := dmr.NewDataset(name)
	c := &modelCompiler{ds: ds}
	if err := c.group(ds.Root(), v, "dataset"); err != nil {
		return nil, err
	}
	return ds, nil
}

type modelCompiler struct {
	ds *dmr.Dataset
}

// group compiles the declarations of one group body.
func (c *modelCompiler) group(g *dmr.Group, v cue.Value, path string) error {
	if err := c.dimensions(g, v, path); err != nil {
		return err
	}
	if err := c.enumerations(g, v, path); err != nil {
		return err
	}

	vars := v.LookupPath(cue.ParsePath("variables"))
	if vars.Exists() {
		iter, err := vars.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			if err := c.variable(g, groupScope{g}, iter.Label(), iter.Value(), path+".variables"); err != nil {
				return err
			}
		}
	}

	attrs, err := c.attributes(v, path)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		g.AddAttribute(a)
	}

	groups := v.LookupPath(cue.ParsePath("groups"))
	if groups.Exists() {
		iter, err := groups.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			sub := g.AddGroup(iter.Label())
			if err := c.group(sub, iter.Value(), path+".groups."+iter.Label()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *modelCompiler) dimensions(g *dmr.Group, v cue.Value, path string) error {
	dims := v.LookupPath(cue.ParsePath("dimensions"))
	if !dims.Exists() {
		return nil
	}
	iter, err := dims.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		size, err := iter.Value().Int64()
		if err != nil {
			return formatCUEError(err)
		}
		if size < 0 {
			return &CompileError{
				Field:   path + ".dimensions." + iter.Label(),
				Message: fmt.Sprintf("size %d is negative", size),
				Pos:     iter.Value().Pos(),
			}
		}
		g.AddDimension(iter.Label(), size)
	}
	return nil
}

func (c *modelCompiler) enumerations(g *dmr.Group, v cue.Value, path string) error {
	enums := v.LookupPath(cue.ParsePath("enumerations"))
	if !enums.Exists() {
		return nil
	}
	iter, err := enums.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		field := path + ".enumerations." + iter.Label()
		ev := iter.Value()

		baseName := "Int32"
		if bv := ev.LookupPath(cue.ParsePath("basetype")); bv.Exists() {
			if baseName, err = bv.String(); err != nil {
				return formatCUEError(err)
			}
		}
		base, ok := dmr.ParseBaseType(baseName)
		if !ok || !base.IsIntegral() {
			return &CompileError{Field: field + ".basetype", Message: fmt.Sprintf("%q is not an integral type", baseName), Pos: ev.Pos()}
		}

		constsVal := ev.LookupPath(cue.ParsePath("consts"))
		if !constsVal.Exists() {
			return &CompileError{Field: field + ".consts", Message: "consts is required", Pos: ev.Pos()}
		}
		var consts []dmr.EnumConst
		constIter, err := constsVal.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for constIter.Next() {
			n, err := constIter.Value().Int64()
			if err != nil {
				return formatCUEError(err)
			}
			consts = append(consts, dmr.EnumConst{Name: constIter.Label(), Value: n})
		}
		if len(consts) == 0 {
			return &CompileError{Field: field + ".consts", Message: "at least one constant is required", Pos: ev.Pos()}
		}
		g.AddEnum(iter.Label(), base, consts...)
	}
	return nil
}

// scope declares variables either in a group or as fields of a compound.
type scope interface {
	atomic(name string, base dmr.BaseType, dims []*dmr.Dimension) *dmr.Variable
	enum(name string, e *dmr.Enumeration, dims []*dmr.Dimension) *dmr.Variable
	structure(name string, dims []*dmr.Dimension) *dmr.Variable
	sequence(name string, dims []*dmr.Dimension) *dmr.Variable
}

type groupScope struct{ g *dmr.Group }

func (s groupScope) atomic(name string, base dmr.BaseType, dims []*dmr.Dimension) *dmr.Variable {
	return s.g.AddAtomic(name, base, dims...)
}
func (s groupScope) enum(name string, e *dmr.Enumeration, dims []*dmr.Dimension) *dmr.Variable {
	return s.g.AddEnumVariable(name, e, dims...)
}
func (s groupScope) structure(name string, dims []*dmr.Dimension) *dmr.Variable {
	return s.g.AddStructure(name, dims...)
}
func (s groupScope) sequence(name string, dims []*dmr.Dimension) *dmr.Variable {
	return s.g.AddSequence(name, dims...)
}

type fieldScope struct{ v *dmr.Variable }

func (s fieldScope) atomic(name string, base dmr.BaseType, dims []*dmr.Dimension) *dmr.Variable {
	return s.v.AddAtomic(name, base, dims...)
}
func (s fieldScope) enum(name string, e *dmr.Enumeration, dims []*dmr.Dimension) *dmr.Variable {
	return s.v.AddEnumField(name, e, dims...)
}
func (s fieldScope) structure(name string, dims []*dmr.Dimension) *dmr.Variable {
	return s.v.AddStructure(name, dims...)
}
func (s fieldScope) sequence(name string, dims []*dmr.Dimension) *dmr.Variable {
	return s.v.AddSequence(name, dims...)
}

// variable compiles one variable declaration. g is the group that lexically
// encloses it and resolves its dimension and enumeration references.
func (c *modelCompiler) variable(g *dmr.Group, sc scope, name string, v cue.Value, path string) error {
	field := path + "." + name

	dims, err := c.dimRefs(g, v, field)
	if err != nil {
		return err
	}

	var out *dmr.Variable
	enumVal := v.LookupPath(cue.ParsePath("enum"))
	typeVal := v.LookupPath(cue.ParsePath("type"))
	switch {
	case enumVal.Exists():
		ref, err := enumVal.String()
		if err != nil {
			return formatCUEError(err)
		}
		e := c.resolveEnum(g, ref)
		if e == nil {
			return &CompileError{Field: field + ".enum", Message: fmt.Sprintf("undefined enumeration %q", ref), Pos: enumVal.Pos()}
		}
		out = sc.enum(name, e, dims)
	case typeVal.Exists():
		typeName, err := typeVal.String()
		if err != nil {
			return formatCUEError(err)
		}
		switch typeName {
		case "Structure":
			out = sc.structure(name, dims)
		case "Sequence":
			out = sc.sequence(name, dims)
		default:
			base, ok := dmr.ParseBaseType(typeName)
			if !ok || base == dmr.TypeEnum {
				return &CompileError{Field: field + ".type", Message: fmt.Sprintf("unknown type %q", typeName), Pos: typeVal.Pos()}
			}
			out = sc.atomic(name, base, dims)
		}
	default:
		return &CompileError{Field: field, Message: "type or enum is required", Pos: v.Pos()}
	}

	fields := v.LookupPath(cue.ParsePath("fields"))
	if out.IsCompound() {
		if !fields.Exists() {
			return &CompileError{Field: field + ".fields", Message: "a compound needs fields", Pos: v.Pos()}
		}
		iter, err := fields.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			if err := c.variable(g, fieldScope{out}, iter.Label(), iter.Value(), field+".fields"); err != nil {
				return err
			}
		}
	} else if fields.Exists() {
		return &CompileError{Field: field + ".fields", Message: "only structures and sequences have fields", Pos: fields.Pos()}
	}

	attrs, err := c.attributes(v, field)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		out.AddAttribute(a)
	}
	return nil
}

func (c *modelCompiler) dimRefs(g *dmr.Group, v cue.Value, field string) ([]*dmr.Dimension, error) {
	dimsVal := v.LookupPath(cue.ParsePath("dims"))
	if !dimsVal.Exists() {
		return nil, nil
	}
	iter, err := dimsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var dims []*dmr.Dimension
	for iter.Next() {
		item := iter.Value()
		if n, err := item.Int64(); err == nil {
			if n < 0 {
				return nil, &CompileError{Field: field + ".dims", Message: fmt.Sprintf("size %d is negative", n), Pos: item.Pos()}
			}
			dims = append(dims, dmr.NewAnonymousDimension(n))
			continue
		}
		ref, err := item.String()
		if err != nil {
			return nil, &CompileError{Field: field + ".dims", Message: "a dimension is a name or a size", Pos: item.Pos()}
		}
		d := c.resolveDim(g, ref)
		if d == nil {
			return nil, &CompileError{Field: field + ".dims", Message: fmt.Sprintf("undefined dimension %q", ref), Pos: item.Pos()}
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func (c *modelCompiler) resolveDim(g *dmr.Group, ref string) *dmr.Dimension {
	if strings.HasPrefix(ref, "/") {
		for _, n := range c.ds.FindByFQN(ref, dmr.SortDimension) {
			return n.(*dmr.Dimension)
		}
		return nil
	}
	path := dmr.GroupPath(g)
	for i := len(path) - 1; i >= 0; i-- {
		for _, d := range path[i].Dimensions {
			if d.Name() == ref {
				return d
			}
		}
	}
	return nil
}

func (c *modelCompiler) resolveEnum(g *dmr.Group, ref string) *dmr.Enumeration {
	if strings.HasPrefix(ref, "/") {
		for _, n := range c.ds.FindByFQN(ref, dmr.SortEnumeration) {
			return n.(*dmr.Enumeration)
		}
		return nil
	}
	path := dmr.GroupPath(g)
	for i := len(path) - 1; i >= 0; i-- {
		for _, e := range path[i].Enums {
			if e.Name() == ref {
				return e
			}
		}
	}
	return nil
}

func (c *modelCompiler) attributes(v cue.Value, path string) ([]dmr.Attribute, error) {
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}
	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var attrs []dmr.Attribute
	for iter.Next() {
		field := path + ".attributes." + iter.Label()
		av := iter.Value()

		typeName := "String"
		if tv := av.LookupPath(cue.ParsePath("type")); tv.Exists() {
			if typeName, err = tv.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		base, ok := dmr.ParseBaseType(typeName)
		if !ok || base == dmr.TypeEnum {
			return nil, &CompileError{Field: field + ".type", Message: fmt.Sprintf("unknown type %q", typeName), Pos: av.Pos()}
		}

		attr := dmr.Attribute{Name: iter.Label(), Type: base}
		if vals := av.LookupPath(cue.ParsePath("values")); vals.Exists() {
			list, err := vals.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for list.Next() {
				text, err := scalarText(list.Value())
				if err != nil {
					return nil, &CompileError{Field: field + ".values", Message: err.Error(), Pos: list.Value().Pos()}
				}
				attr.Values = append(attr.Values, text)
			}
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// scalarText renders a concrete CUE scalar as attribute text.
func scalarText(v cue.Value) (string, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		n, err := v.Int64()
		return fmt.Sprint(n), err
	case cue.FloatKind:
		f, err := v.Float64()
		return fmt.Sprint(f), err
	case cue.BoolKind:
		b, err := v.Bool()
		return fmt.Sprint(b), err
	}
	return "", fmt.Errorf("attribute values must be scalars, not %s", v.Kind())
}
