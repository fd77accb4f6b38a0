package dmr

import (
	"fmt"
	"strings"
)

// Sort discriminates the kinds of node in a dataset model.
type Sort int

const (
	SortDataset Sort = iota
	SortGroup
	SortDimension
	SortEnumeration
	SortAtomic
	SortStructure
	SortSequence
)

func (s Sort) String() string {
	switch s {
	case SortDataset:
		return "Dataset"
	case SortGroup:
		return "Group"
	case SortDimension:
		return "Dimension"
	case SortEnumeration:
		return "Enumeration"
	case SortAtomic:
		return "Atomic"
	case SortStructure:
		return "Structure"
	case SortSequence:
		return "Sequence"
	}
	return fmt.Sprintf("Sort(%d)", int(s))
}

// IsVariable reports whether s is one of the variable sorts.
func (s Sort) IsVariable() bool {
	return s == SortAtomic || s == SortStructure || s == SortSequence
}

// Node is implemented by every declaration in a dataset model.
type Node interface {
	Sort() Sort
	Name() string
	FQN() string
	Parent() Node
}

// node carries the fields common to all declarations.
type node struct {
	name   string
	fqn    string
	parent Node
}

func (n *node) Name() string { return n.name }
func (n *node) FQN() string  { return n.fqn }

// Parent returns the enclosing group or, for fields, the enclosing variable.
// It is nil for the dataset and for anonymous dimensions.
func (n *node) Parent() Node { return n.parent }

// Attribute is a named, typed list of values attached to a group or variable.
type Attribute struct {
	Name   string
	Type   BaseType
	Values []string
}

// Group is a container of dimensions, enumerations, variables and subgroups.
// The dataset itself is the root group.
type Group struct {
	node
	Dimensions []*Dimension
	Enums      []*Enumeration
	Variables  []*Variable
	Groups     []*Group
	Attributes []Attribute

	// index is only set on the root group; it maps FQN to every node
	// declared under that name.
	index map[string][]Node
}

func (g *Group) Sort() Sort {
	if g.parent == nil {
		return SortDataset
	}
	return SortGroup
}

// Dimension is a named, sized, shared dimension, or an anonymous dimension
// synthesized for one sliced axis.
type Dimension struct {
	node
	Size   int64
	Shared bool

	// Orig is set on redefinition dimensions and refers to the dimension
	// they replace.
	Orig *Dimension
}

func (d *Dimension) Sort() Sort { return SortDimension }

// NewAnonymousDimension returns an unnamed, unshared dimension of the given size.
func NewAnonymousDimension(size int64) *Dimension {
	return &Dimension{Size: size}
}

// Redefine returns a copy of d with a new size whose Orig points back at d.
func (d *Dimension) Redefine(size int64) *Dimension {
	return &Dimension{
		node:   d.node,
		Size:   size,
		Shared: d.Shared,
		Orig:   d,
	}
}

// IsAnonymous reports whether d has no name.
func (d *Dimension) IsAnonymous() bool { return d.name == "" }

// EnumConst is one named value of an enumeration.
type EnumConst struct {
	Name  string
	Value int64
}

// Enumeration is a named set of integer constants over an integral base type.
type Enumeration struct {
	node
	Base   BaseType
	Consts []EnumConst
}

func (e *Enumeration) Sort() Sort { return SortEnumeration }

// Variable is an atomic, structure or sequence variable. Structures and
// sequences own an ordered list of field variables.
type Variable struct {
	node
	kind       Sort
	Base       BaseType
	Enum       *Enumeration
	Dims       []*Dimension
	Fields     []*Variable
	Attributes []Attribute
}

func (v *Variable) Sort() Sort { return v.kind }

// Rank returns the number of dimensions.
func (v *Variable) Rank() int { return len(v.Dims) }

// IsCompound reports whether v is a structure or sequence.
func (v *Variable) IsCompound() bool {
	return v.kind == SortStructure || v.kind == SortSequence
}

// IsTopLevel reports whether v is declared directly in a group.
func (v *Variable) IsTopLevel() bool {
	_, ok := v.parent.(*Group)
	return ok
}

// Field returns the field with the given short name, or nil.
func (v *Variable) Field(name string) *Variable {
	for _, f := range v.Fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Container returns the structure or sequence that owns field v, or nil for
// top-level variables.
func (v *Variable) Container() *Variable {
	p, _ := v.parent.(*Variable)
	return p
}

// Shape returns the sizes of the position tuple a provider receives for v:
// the dimensions of every enclosing structure, outermost first, followed by
// v's own. ok is false when v lies inside a sequence, whose positions also
// carry row indices.
func (v *Variable) Shape() (sizes []int64, ok bool) {
	var chain []*Variable
	for cur := v; cur != nil; cur = cur.Container() {
		if cur != v && cur.kind == SortSequence {
			return nil, false
		}
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, d := range chain[i].Dims {
			sizes = append(sizes, d.Size)
		}
	}
	return sizes, true
}

// Dataset is the root of a dataset model.
type Dataset struct {
	Group
	DapVersion string
	DMRVersion string
}

// NewDataset creates an empty dataset.
func NewDataset(name string) *Dataset {
	ds := &Dataset{DapVersion: "4.0", DMRVersion: "1.0"}
	ds.name = name
	ds.fqn = "/"
	ds.index = make(map[string][]Node)
	return ds
}

// Root returns the dataset's root group.
func (ds *Dataset) Root() *Group { return &ds.Group }

// FindByFQN returns every node with the given fully qualified name whose sort
// is in sorts (all sorts if none are given). A leading "/" is optional.
func (ds *Dataset) FindByFQN(fqn string, sorts ...Sort) []Node {
	if !strings.HasPrefix(fqn, "/") {
		fqn = "/" + fqn
	}
	var matches []Node
	for _, n := range ds.index[fqn] {
		if len(sorts) == 0 || containsSort(sorts, n.Sort()) {
			matches = append(matches, n)
		}
	}
	return matches
}

// TopVariables returns all group-level variables in declaration order,
// visiting the root group first and then subgroups depth first.
func (ds *Dataset) TopVariables() []*Variable {
	var out []*Variable
	var walk func(g *Group)
	walk = func(g *Group) {
		out = append(out, g.Variables...)
		for _, sub := range g.Groups {
			walk(sub)
		}
	}
	walk(&ds.Group)
	return out
}

// GroupPath returns the groups enclosing n, outermost (the dataset) first.
// For a group the path ends with the group itself.
func GroupPath(n Node) []*Group {
	var path []*Group
	for cur := n; cur != nil; cur = cur.Parent() {
		if g, ok := cur.(*Group); ok {
			path = append(path, g)
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func containsSort(sorts []Sort, s Sort) bool {
	for _, x := range sorts {
		if x == s {
			return true
		}
	}
	return false
}
