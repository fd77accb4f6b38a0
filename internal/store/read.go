package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/slice"
	"github.com/roach88/dap4/internal/value"
	"github.com/roach88/dap4/internal/view"
)

// Datasets returns the names of the datasets holding values, sorted.
func (s *Store) Datasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dataset FROM atomic_values
		UNION
		SELECT dataset FROM sequence_instances
		ORDER BY dataset COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return names, nil
}

// Provider serves the values stored for one dataset. Queries run under the
// context it was created with.
type Provider struct {
	ctx     context.Context
	s       *Store
	dataset string
}

// Provider returns a value provider for the named dataset.
func (s *Store) Provider(ctx context.Context, dataset string) *Provider {
	return &Provider{ctx: ctx, s: s, dataset: dataset}
}

// ReadAtomic returns the value of v at pos.
func (p *Provider) ReadAtomic(v *dmr.Variable, pos []int64) (value.Value, error) {
	shape, ok := v.Shape()
	if !ok {
		return nil, fmt.Errorf("%s: %w", v.FQN(), generator.ErrRowArrayField)
	}
	if len(pos) != len(shape) {
		return nil, fmt.Errorf("%s: position %v has rank %d, want %d", v.FQN(), pos, len(pos), len(shape))
	}
	flat := slice.Flatten(pos, shape)

	var raw any
	err := p.s.db.QueryRowContext(p.ctx, `
		SELECT value FROM atomic_values
		WHERE dataset = ? AND variable = ? AND pos = ?
	`, p.dataset, v.FQN(), flat).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no value for %s%v in dataset %s", v.FQN(), pos, p.dataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", v.FQN(), err)
	}
	return fromSQL(v.Base, raw)
}

// Rows returns the rows of the instance of seq at pos. An instance with no
// stored row count has no rows.
func (p *Provider) Rows(seq *dmr.Variable, pos []int64) (view.RowSource, error) {
	shape, ok := seq.Shape()
	if !ok {
		return nil, fmt.Errorf("%s: nested sequences are not stored", seq.FQN())
	}
	if len(pos) != len(shape) {
		return nil, fmt.Errorf("%s: position %v has rank %d, want %d", seq.FQN(), pos, len(pos), len(shape))
	}
	instance := slice.Flatten(pos, shape)

	var n int64
	err := p.s.db.QueryRowContext(p.ctx, `
		SELECT row_count FROM sequence_instances
		WHERE dataset = ? AND sequence = ? AND instance = ?
	`, p.dataset, seq.FQN(), instance).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read %s: %w", seq.FQN(), err)
	}
	return &rowSource{p: p, seq: seq, instance: instance, n: n}, nil
}

type rowSource struct {
	p        *Provider
	seq      *dmr.Variable
	instance int64
	n        int64
}

func (rs *rowSource) Count() int64 { return rs.n }

// Row reads every stored field of row i in one query.
func (rs *rowSource) Row(i int64) (view.Row, error) {
	if i < 0 || i >= rs.n {
		return nil, fmt.Errorf("row %d out of range", i)
	}
	rows, err := rs.p.s.db.QueryContext(rs.p.ctx, `
		SELECT field, value FROM sequence_rows
		WHERE dataset = ? AND sequence = ? AND instance = ? AND row = ?
		ORDER BY field COLLATE BINARY ASC
	`, rs.p.dataset, rs.seq.FQN(), rs.instance, i)
	if err != nil {
		return nil, fmt.Errorf("query %s row %d: %w", rs.seq.FQN(), i, err)
	}
	defer rows.Close()

	values := make(map[string]value.Value)
	for rows.Next() {
		var name string
		var raw any
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", rs.seq.FQN(), i, err)
		}
		f := rs.seq.Field(name)
		if f == nil {
			return nil, fmt.Errorf("%s row %d: stored field %q is not in the dataset", rs.seq.FQN(), i, name)
		}
		v, err := fromSQL(f.Base, raw)
		if err != nil {
			return nil, fmt.Errorf("%s row %d field %s: %w", rs.seq.FQN(), i, name, err)
		}
		values[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s row %d: %w", rs.seq.FQN(), i, err)
	}
	return row{idx: i, values: values}, nil
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
