package generator

import (
	"errors"
	"fmt"
)

// RowQuota bounds the number of rows written for one sequence instance.
//
// Providers backed by external tables can report arbitrarily large counts;
// the quota stops a single instance from producing an unbounded response.
type RowQuota struct {
	maxRows int64
}

// NewRowQuota creates a quota. A limit <= 0 disables it.
func NewRowQuota(maxRows int64) *RowQuota {
	return &RowQuota{maxRows: maxRows}
}

// Check validates the row count of one instance of seq.
//
// Returns RowsExceededError if rows is over the limit.
func (q *RowQuota) Check(seq string, rows int64) error {
	if q.maxRows > 0 && rows > q.maxRows {
		return &RowsExceededError{Sequence: seq, Rows: rows, Limit: q.maxRows}
	}
	return nil
}

// CheckMatched is Check for a count still being taken: matched is the
// number of matching rows seen so far, so an error reports a lower bound.
func (q *RowQuota) CheckMatched(seq string, matched int64) error {
	if q.maxRows > 0 && matched > q.maxRows {
		return &RowsExceededError{Sequence: seq, Rows: matched, Limit: q.maxRows, AtLeast: true}
	}
	return nil
}

// MaxRows returns the limit.
func (q *RowQuota) MaxRows() int64 { return q.maxRows }

// RowsExceededError is returned when a sequence instance has more rows than
// the quota allows. It aborts the response.
type RowsExceededError struct {
	Sequence string
	Rows     int64
	Limit    int64

	// AtLeast is set when counting stopped at the limit and Rows is a
	// lower bound.
	AtLeast bool
}

func (e *RowsExceededError) Error() string {
	if e.AtLeast {
		return fmt.Sprintf("sequence %s has at least %d matching rows, over the limit of %d", e.Sequence, e.Rows, e.Limit)
	}
	return fmt.Sprintf("sequence %s has %d rows, over the limit of %d", e.Sequence, e.Rows, e.Limit)
}

// IsRowsExceededError reports whether err is a RowsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRowsExceededError(err error) bool {
	var re *RowsExceededError
	return errors.As(err, &re)
}
