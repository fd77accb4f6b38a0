// Package testutil holds datasets and fakes shared by package tests.
package testutil

import (
	"github.com/roach88/dap4/internal/dmr"
)

// CE1 builds the dataset used by the projection tests:
//
//	Dimensions: d10 = 10; d17 = 17;
//	Int32 a[d17]; Int32 b[d17]; Int32 c[d17];
//	Int32 d[d10][d17]; Int32 e[d10][d17]; Int32 f[d10][d17];
//	Structure { Int32 x; Int32 y; } s[d10][d10];
func CE1() *dmr.Dataset {
	ds := dmr.NewDataset("ce1")
	d10 := ds.AddDimension("d10", 10)
	d17 := ds.AddDimension("d17", 17)
	for _, name := range []string{"a", "b", "c"} {
		ds.AddAtomic(name, dmr.TypeInt32, d17)
	}
	for _, name := range []string{"d", "e", "f"} {
		ds.AddAtomic(name, dmr.TypeInt32, d10, d17)
	}
	s := ds.AddStructure("s", d10, d10)
	s.AddAtomic("x", dmr.TypeInt32)
	s.AddAtomic("y", dmr.TypeInt32)
	return ds
}

// Seq1 builds a dataset holding one scalar sequence:
//
//	Sequence { Int32 i1; Int16 sh1; } s;
func Seq1() *dmr.Dataset {
	ds := dmr.NewDataset("seq1")
	s := ds.AddSequence("s")
	s.AddAtomic("i1", dmr.TypeInt32)
	s.AddAtomic("sh1", dmr.TypeInt16)
	return ds
}

// Nested builds a dataset exercising groups, enumerations, nested compounds
// and every base type family:
//
//	Dimensions: n = 4;
//	Enumeration colors: UInt8 { red = 1; green = 2; blue = 3; };
//	Float64 f64;
//	Structure {
//	    Int32 t;
//	    Sequence { Int32 x; String name; Float32 w; } seq;
//	} st[n];
//	Group g {
//	    Dimensions: m = 3;
//	    colors v[m];
//	    UInt16 u[n][m];
//	    Opaque blob;
//	};
func Nested() *dmr.Dataset {
	ds := dmr.NewDataset("nested")
	n := ds.AddDimension("n", 4)
	colors := ds.AddEnum("colors", dmr.TypeUInt8,
		dmr.EnumConst{Name: "red", Value: 1},
		dmr.EnumConst{Name: "green", Value: 2},
		dmr.EnumConst{Name: "blue", Value: 3},
	)
	ds.AddAtomic("f64", dmr.TypeFloat64)

	st := ds.AddStructure("st", n)
	st.AddAtomic("t", dmr.TypeInt32)
	seq := st.AddSequence("seq")
	seq.AddAtomic("x", dmr.TypeInt32)
	seq.AddAtomic("name", dmr.TypeString)
	seq.AddAtomic("w", dmr.TypeFloat32)

	g := ds.AddGroup("g")
	m := g.AddDimension("m", 3)
	g.AddEnumVariable("v", colors, m)
	g.AddAtomic("u", dmr.TypeUInt16, n, m)
	g.AddAtomic("blob", dmr.TypeOpaque)
	return ds
}

// Variable looks up a variable by FQN and panics if it is missing.
func Variable(ds *dmr.Dataset, fqn string) *dmr.Variable {
	for _, n := range ds.FindByFQN(fqn) {
		if v, ok := n.(*dmr.Variable); ok {
			return v
		}
	}
	panic("testutil: no variable " + fqn)
}

// Dimension looks up a shared dimension by FQN and panics if it is missing.
func Dimension(ds *dmr.Dataset, fqn string) *dmr.Dimension {
	for _, n := range ds.FindByFQN(fqn, dmr.SortDimension) {
		return n.(*dmr.Dimension)
	}
	panic("testutil: no dimension " + fqn)
}
