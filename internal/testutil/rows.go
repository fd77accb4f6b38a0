package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/dap4/internal/value"
	"github.com/roach88/dap4/internal/view"
)

// Row is an in-memory sequence row.
type Row struct {
	Idx    int64
	Values map[string]value.Value
}

func (r Row) Index() int64 { return r.Idx }

func (r Row) Field(name string) (value.Value, error) {
	v, ok := r.Values[name]
	if !ok {
		return nil, fmt.Errorf("row %d has no field %q", r.Idx, name)
	}
	return v, nil
}

// Rows is an in-memory row source that records how many rows were read.
type Rows struct {
	rows  []Row
	reads int
}

var _ view.RowSource = (*Rows)(nil)

// NewRows builds a row source from field maps, numbering rows from 0.
func NewRows(records ...map[string]value.Value) *Rows {
	rs := &Rows{rows: make([]Row, len(records))}
	for i, rec := range records {
		rs.rows[i] = Row{Idx: int64(i), Values: rec}
	}
	return rs
}

func (rs *Rows) Count() int64 { return int64(len(rs.rows)) }

func (rs *Rows) Row(i int64) (view.Row, error) {
	if i < 0 || i >= int64(len(rs.rows)) {
		return nil, fmt.Errorf("row %d out of range", i)
	}
	rs.reads++
	return rs.rows[i], nil
}

// Reads returns the number of rows read so far.
func (rs *Rows) Reads() int { return rs.reads }

// FixedRequestIDs returns predetermined request ids for deterministic logs
// and golden output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedRequestIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRequestIDs creates a generator that returns ids in order and
// then repeats the last one. With no ids it returns "test-request".
func NewFixedRequestIDs(ids ...string) *FixedRequestIDs {
	if len(ids) == 0 {
		ids = []string{"test-request"}
	}
	return &FixedRequestIDs{ids: ids}
}

// Generate returns the next id.
func (g *FixedRequestIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
