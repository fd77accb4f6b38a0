package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/slice"
	"github.com/roach88/dap4/internal/value"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteValue stores the value of atomic variable v at the flattened
// position pos. An existing value is replaced.
func (s *Store) WriteValue(ctx context.Context, dataset string, v *dmr.Variable, pos int64, val value.Value) error {
	return writeValue(ctx, s.db, dataset, v, pos, val)
}

func writeValue(ctx context.Context, db execer, dataset string, v *dmr.Variable, pos int64, val value.Value) error {
	raw, err := toSQL(val)
	if err != nil {
		return fmt.Errorf("write value %s[%d]: %w", v.FQN(), pos, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO atomic_values (dataset, variable, pos, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(dataset, variable, pos) DO UPDATE SET value = excluded.value
	`, dataset, v.FQN(), pos, raw)
	if err != nil {
		return fmt.Errorf("write value %s[%d]: %w", v.FQN(), pos, err)
	}
	return nil
}

// WriteInstance replaces the rows of one sequence instance. Each row maps
// scalar field names to values.
func (s *Store) WriteInstance(ctx context.Context, dataset string, seq *dmr.Variable, instance int64, rows []map[string]value.Value) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write instance: %w", err)
	}
	defer tx.Rollback()

	if err := writeInstance(ctx, tx, dataset, seq, instance, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write instance: %w", err)
	}
	return nil
}

func writeInstance(ctx context.Context, db execer, dataset string, seq *dmr.Variable, instance int64, rows []map[string]value.Value) error {
	if _, err := db.ExecContext(ctx, `
		DELETE FROM sequence_rows WHERE dataset = ? AND sequence = ? AND instance = ?
	`, dataset, seq.FQN(), instance); err != nil {
		return fmt.Errorf("write instance %s[%d]: %w", seq.FQN(), instance, err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO sequence_instances (dataset, sequence, instance, row_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(dataset, sequence, instance) DO UPDATE SET row_count = excluded.row_count
	`, dataset, seq.FQN(), instance, len(rows)); err != nil {
		return fmt.Errorf("write instance %s[%d]: %w", seq.FQN(), instance, err)
	}

	for i, row := range rows {
		for name, val := range row {
			if seq.Field(name) == nil {
				return fmt.Errorf("write instance %s[%d]: no field %q", seq.FQN(), instance, name)
			}
			raw, err := toSQL(val)
			if err != nil {
				return fmt.Errorf("write instance %s[%d] row %d: %w", seq.FQN(), instance, i, err)
			}
			if _, err := db.ExecContext(ctx, `
				INSERT INTO sequence_rows (dataset, sequence, instance, row, field, value)
				VALUES (?, ?, ?, ?, ?, ?)
			`, dataset, seq.FQN(), instance, i, name, raw); err != nil {
				return fmt.Errorf("write instance %s[%d] row %d: %w", seq.FQN(), instance, i, err)
			}
		}
	}
	return nil
}

// ImportStats counts what Import stored.
type ImportStats struct {
	Values    int64
	Instances int64
	Rows      int64
}

// Import copies every value src serves for ds into the store under the
// dataset's name, in one transaction. Array fields of sequence rows are not
// stored.
func (s *Store) Import(ctx context.Context, ds *dmr.Dataset, src generator.Provider) (ImportStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportStats{}, fmt.Errorf("import: %w", err)
	}
	defer tx.Rollback()

	im := &importer{ctx: ctx, tx: tx, dataset: ds.Name(), src: src}
	for _, v := range ds.TopVariables() {
		if err := im.variable(v, nil); err != nil {
			return im.stats, fmt.Errorf("import %s: %w", v.FQN(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return im.stats, fmt.Errorf("import: %w", err)
	}
	return im.stats, nil
}

type importer struct {
	ctx     context.Context
	tx      *sql.Tx
	dataset string
	src     generator.Provider
	stats   ImportStats
}

func (im *importer) variable(v *dmr.Variable, prefix []int64) error {
	slices := make([]slice.Slice, v.Rank())
	for i, d := range v.Dims {
		slices[i] = slice.Fill(d.Size)
	}
	odom, err := slice.NewOdometer(slices)
	if err != nil {
		return err
	}
	shape, _ := v.Shape()

	for odom.HasNext() {
		if err := im.ctx.Err(); err != nil {
			return err
		}
		pos := append(append([]int64(nil), prefix...), odom.Next()...)
		switch v.Sort() {
		case dmr.SortAtomic:
			val, err := im.src.ReadAtomic(v, pos)
			if err != nil {
				return err
			}
			if err := writeValue(im.ctx, im.tx, im.dataset, v, slice.Flatten(pos, shape), val); err != nil {
				return err
			}
			im.stats.Values++
		case dmr.SortStructure:
			for _, f := range v.Fields {
				if err := im.variable(f, pos); err != nil {
					return err
				}
			}
		case dmr.SortSequence:
			if err := im.sequence(v, pos, slice.Flatten(pos, shape)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (im *importer) sequence(seq *dmr.Variable, pos []int64, instance int64) error {
	rs, err := im.src.Rows(seq, pos)
	if err != nil {
		return err
	}
	rows := make([]map[string]value.Value, rs.Count())
	for i := range rows {
		r, err := rs.Row(int64(i))
		if err != nil {
			return err
		}
		rows[i] = make(map[string]value.Value)
		for _, f := range seq.Fields {
			if f.Sort() != dmr.SortAtomic || f.Rank() > 0 {
				continue
			}
			val, err := r.Field(f.Name())
			if err != nil {
				return err
			}
			rows[i][f.Name()] = val
		}
	}
	if err := writeInstance(im.ctx, im.tx, im.dataset, seq, instance, rows); err != nil {
		return err
	}
	im.stats.Instances++
	im.stats.Rows += int64(len(rows))
	return nil
}

// toSQL converts a value to a driver value. Unsigned values above the int64
// range are stored as their two's complement bit pattern.
func toSQL(v value.Value) (any, error) {
	switch x := v.(type) {
	case value.Int:
		return int64(x), nil
	case value.Uint:
		return int64(uint64(x)), nil
	case value.Float:
		return float64(x), nil
	case value.String:
		return string(x), nil
	case value.Opaque:
		return []byte(x), nil
	case value.Bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("cannot store %T", v)
}

// fromSQL converts a scanned driver value back to base type t.
func fromSQL(t dmr.BaseType, raw any) (value.Value, error) {
	if n, ok := raw.(int64); ok && t.IsUnsigned() && n < 0 {
		return value.Uint(uint64(n)), nil
	}
	return dmr.Coerce(t, raw)
}
