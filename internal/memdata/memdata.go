// Package memdata serves dataset values from a YAML fixture held in memory.
//
// A fixture lists the values of atomic variables flattened in row-major
// order over the variable's position (enclosing structure dimensions first)
// and, for every sequence, one list of rows per sequence instance:
//
//	variables:
//	  /a: [0, 1, 2]
//	  /s.x: [10, 11, 12, 13]
//	sequences:
//	  /seq:
//	    - - {i1: -5, sh1: 1}
//	      - {i1: 3, sh1: 2}
package memdata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/slice"
	"github.com/roach88/dap4/internal/value"
	"github.com/roach88/dap4/internal/view"
)

// Fixture is the YAML form of a data file.
type Fixture struct {
	Variables map[string][]any              `yaml:"variables"`
	Sequences map[string][][]map[string]any `yaml:"sequences"`
}

// Provider serves the values of one fixture.
type Provider struct {
	values map[*dmr.Variable][]value.Value
	rows   map[*dmr.Variable][][]map[string]value.Value
}

// Load reads a fixture file for ds.
func Load(path string, ds *dmr.Dataset) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	p, err := Decode(bytes.NewReader(data), ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode parses a fixture. Unknown top-level keys are rejected.
func Decode(r io.Reader, ds *dmr.Dataset) (*Provider, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return New(ds, &fx)
}

// New validates fx against ds and converts every value to its variable's
// base type.
func New(ds *dmr.Dataset, fx *Fixture) (*Provider, error) {
	p := &Provider{
		values: make(map[*dmr.Variable][]value.Value),
		rows:   make(map[*dmr.Variable][][]map[string]value.Value),
	}

	for _, fqn := range sortedKeys(fx.Variables) {
		v, err := lookup(ds, fqn, dmr.SortAtomic)
		if err != nil {
			return nil, err
		}
		shape, ok := v.Shape()
		if !ok {
			return nil, fmt.Errorf("variables: %s is inside a sequence; give its values as row fields", fqn)
		}
		raw := fx.Variables[fqn]
		if want := count(shape); int64(len(raw)) != want {
			return nil, fmt.Errorf("variables: %s has %d values, want %d", fqn, len(raw), want)
		}
		vals := make([]value.Value, len(raw))
		for i, r := range raw {
			vals[i], err = dmr.Coerce(v.Base, r)
			if err != nil {
				return nil, fmt.Errorf("variables: %s[%d]: %w", fqn, i, err)
			}
		}
		p.values[v] = vals
	}

	for _, fqn := range sortedKeys(fx.Sequences) {
		seq, err := lookup(ds, fqn, dmr.SortSequence)
		if err != nil {
			return nil, err
		}
		shape, ok := seq.Shape()
		if !ok {
			return nil, fmt.Errorf("sequences: %s is nested in another sequence", fqn)
		}
		instances := fx.Sequences[fqn]
		if want := count(shape); int64(len(instances)) != want {
			return nil, fmt.Errorf("sequences: %s has %d instances, want %d", fqn, len(instances), want)
		}
		out := make([][]map[string]value.Value, len(instances))
		for i, rows := range instances {
			out[i] = make([]map[string]value.Value, len(rows))
			for j, rec := range rows {
				out[i][j], err = coerceRow(seq, rec)
				if err != nil {
					return nil, fmt.Errorf("sequences: %s instance %d row %d: %w", fqn, i, j, err)
				}
			}
		}
		p.rows[seq] = out
	}
	return p, nil
}

func coerceRow(seq *dmr.Variable, rec map[string]any) (map[string]value.Value, error) {
	row := make(map[string]value.Value, len(rec))
	for name, raw := range rec {
		f := seq.Field(name)
		if f == nil {
			return nil, fmt.Errorf("no field %q", name)
		}
		if f.Sort() != dmr.SortAtomic || f.Rank() > 0 {
			return nil, fmt.Errorf("field %q is not a scalar", name)
		}
		v, err := dmr.Coerce(f.Base, raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		row[name] = v
	}
	return row, nil
}

// ReadAtomic returns the value of v at pos.
func (p *Provider) ReadAtomic(v *dmr.Variable, pos []int64) (value.Value, error) {
	shape, ok := v.Shape()
	if !ok {
		return nil, fmt.Errorf("%s: %w", v.FQN(), generator.ErrRowArrayField)
	}
	vals, ok := p.values[v]
	if !ok {
		return nil, fmt.Errorf("no data for %s", v.FQN())
	}
	if len(pos) != len(shape) {
		return nil, fmt.Errorf("%s: position %v has rank %d, want %d", v.FQN(), pos, len(pos), len(shape))
	}
	return vals[slice.Flatten(pos, shape)], nil
}

// Rows returns the rows of the instance of seq at pos. A sequence without
// fixture data has no rows.
func (p *Provider) Rows(seq *dmr.Variable, pos []int64) (view.RowSource, error) {
	instances, ok := p.rows[seq]
	if !ok {
		return rowSource(nil), nil
	}
	shape, _ := seq.Shape()
	if len(pos) != len(shape) {
		return nil, fmt.Errorf("%s: position %v has rank %d, want %d", seq.FQN(), pos, len(pos), len(shape))
	}
	return rowSource(instances[slice.Flatten(pos, shape)]), nil
}

type rowSource []map[string]value.Value

func (rs rowSource) Count() int64 { return int64(len(rs)) }

func (rs rowSource) Row(i int64) (view.Row, error) {
	if i < 0 || i >= int64(len(rs)) {
		return nil, fmt.Errorf("row %d out of range", i)
	}
	return row{idx: i, values: rs[i]}, nil
}

type row struct {
	idx    int64
	values map[string]value.Value
}

func (r row) Index() int64 { return r.idx }

func (r row) Field(name string) (value.Value, error) {
	v, ok := r.values[name]
	if !ok {
		return nil, fmt.Errorf("row %d has no value for %q", r.idx, name)
	}
	return v, nil
}

func lookup(ds *dmr.Dataset, fqn string, kind dmr.Sort) (*dmr.Variable, error) {
	matches := ds.FindByFQN(fqn, kind)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no %s variable %s in dataset %s", kind, fqn, ds.Name())
	case 1:
		return matches[0].(*dmr.Variable), nil
	}
	return nil, fmt.Errorf("%s is ambiguous in dataset %s", fqn, ds.Name())
}

func count(shape []int64) int64 {
	n := int64(1)
	for _, s := range shape {
		n *= s
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
