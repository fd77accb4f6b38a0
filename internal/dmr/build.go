package dmr

// Builder methods append declarations in order and register them in the
// dataset's FQN index. Duplicate names are accepted; FindByFQN reports them
// as multiple matches.

// AddGroup declares a subgroup.
func (g *Group) AddGroup(name string) *Group {
	sub := &Group{node: node{name: name, fqn: childFQN(g, name), parent: g}}
	g.Groups = append(g.Groups, sub)
	register(g, sub)
	return sub
}

// AddDimension declares a shared dimension.
func (g *Group) AddDimension(name string, size int64) *Dimension {
	d := &Dimension{node: node{name: name, fqn: childFQN(g, name), parent: g}, Size: size, Shared: true}
	g.Dimensions = append(g.Dimensions, d)
	register(g, d)
	return d
}

// AddEnum declares an enumeration.
func (g *Group) AddEnum(name string, base BaseType, consts ...EnumConst) *Enumeration {
	e := &Enumeration{node: node{name: name, fqn: childFQN(g, name), parent: g}, Base: base, Consts: consts}
	g.Enums = append(g.Enums, e)
	register(g, e)
	return e
}

// AddAtomic declares a top-level atomic variable.
func (g *Group) AddAtomic(name string, base BaseType, dims ...*Dimension) *Variable {
	return g.addVariable(SortAtomic, name, base, dims)
}

// AddEnumVariable declares a top-level atomic variable typed by an enumeration.
func (g *Group) AddEnumVariable(name string, enum *Enumeration, dims ...*Dimension) *Variable {
	v := g.addVariable(SortAtomic, name, TypeEnum, dims)
	v.Enum = enum
	return v
}

// AddStructure declares a top-level structure.
func (g *Group) AddStructure(name string, dims ...*Dimension) *Variable {
	return g.addVariable(SortStructure, name, TypeNone, dims)
}

// AddSequence declares a top-level sequence.
func (g *Group) AddSequence(name string, dims ...*Dimension) *Variable {
	return g.addVariable(SortSequence, name, TypeNone, dims)
}

// AddAttribute attaches an attribute to the group.
func (g *Group) AddAttribute(attr Attribute) {
	g.Attributes = append(g.Attributes, attr)
}

func (g *Group) addVariable(kind Sort, name string, base BaseType, dims []*Dimension) *Variable {
	v := &Variable{node: node{name: name, fqn: childFQN(g, name), parent: g}, kind: kind, Base: base, Dims: dims}
	g.Variables = append(g.Variables, v)
	register(g, v)
	return v
}

// AddAtomic declares an atomic field of structure or sequence v.
func (v *Variable) AddAtomic(name string, base BaseType, dims ...*Dimension) *Variable {
	return v.addField(SortAtomic, name, base, dims)
}

// AddEnumField declares an enumeration-typed field of v.
func (v *Variable) AddEnumField(name string, enum *Enumeration, dims ...*Dimension) *Variable {
	f := v.addField(SortAtomic, name, TypeEnum, dims)
	f.Enum = enum
	return f
}

// AddStructure declares a structure field of v.
func (v *Variable) AddStructure(name string, dims ...*Dimension) *Variable {
	return v.addField(SortStructure, name, TypeNone, dims)
}

// AddSequence declares a sequence field of v.
func (v *Variable) AddSequence(name string, dims ...*Dimension) *Variable {
	return v.addField(SortSequence, name, TypeNone, dims)
}

// AddAttribute attaches an attribute to the variable.
func (v *Variable) AddAttribute(attr Attribute) {
	v.Attributes = append(v.Attributes, attr)
}

func (v *Variable) addField(kind Sort, name string, base BaseType, dims []*Dimension) *Variable {
	f := &Variable{node: node{name: name, fqn: v.fqn + "." + name, parent: v}, kind: kind, Base: base, Dims: dims}
	v.Fields = append(v.Fields, f)
	register(v, f)
	return f
}

func childFQN(g *Group, name string) string {
	if g.parent == nil {
		return "/" + name
	}
	return g.fqn + "/" + name
}

// register records n in the index of the root group above parent.
func register(parent Node, n Node) {
	var root *Group
	for cur := parent; cur != nil; cur = cur.Parent() {
		if g, ok := cur.(*Group); ok && g.parent == nil {
			root = g
		}
	}
	if root == nil || root.index == nil {
		return
	}
	root.index[n.FQN()] = append(root.index[n.FQN()], n)
}
