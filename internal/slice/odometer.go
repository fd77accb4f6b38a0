package slice

import (
	"fmt"

	"github.com/roach88/dap4/internal/ceerr"
)

// Odometer enumerates the index tuples selected by an ordered list of
// slices in row-major order: the last slice varies fastest.
//
// HasNext and Index only observe the position; Next returns the current
// tuple and advances. Calling Next after the last tuple panics.
type Odometer struct {
	slices []Slice
	index  []int64
	done   bool
}

// NewOdometer returns an odometer over complete slices. An empty slice list
// is the scalar case and yields exactly one empty tuple.
func NewOdometer(slices []Slice) (*Odometer, error) {
	for i, s := range slices {
		if s.Incomplete() {
			return nil, ceerr.Range("odometer slice %d is incomplete", i)
		}
		if s.Stride < 1 {
			return nil, ceerr.Range("odometer slice %d has stride %d", i, s.Stride)
		}
	}
	o := &Odometer{slices: slices, index: make([]int64, len(slices))}
	o.Reset()
	return o, nil
}

// NewOdometerFor is NewOdometer with a rank check against the sizes of the
// variable's dimensions; each slice must also fit its dimension.
func NewOdometerFor(slices []Slice, sizes []int64) (*Odometer, error) {
	if len(slices) != len(sizes) {
		return nil, ceerr.Range("odometer rank mismatch: %d slices for %d dimensions", len(slices), len(sizes))
	}
	for i, s := range slices {
		if s.Count() > 0 && s.Last() >= sizes[i] {
			return nil, ceerr.Range("odometer slice %d (%s) exceeds dimension size %d", i, s, sizes[i])
		}
	}
	return NewOdometer(slices)
}

// ScalarOdometer returns an odometer yielding a single empty tuple.
func ScalarOdometer() *Odometer {
	o, _ := NewOdometer(nil)
	return o
}

// Reset rewinds the odometer to its first tuple.
func (o *Odometer) Reset() {
	o.done = false
	for i, s := range o.slices {
		o.index[i] = s.Start
		if s.Count() == 0 {
			o.done = true
		}
	}
}

// Rank returns the number of slices.
func (o *Odometer) Rank() int { return len(o.slices) }

// Total returns the number of tuples the odometer yields from a reset.
func (o *Odometer) Total() int64 {
	n := int64(1)
	for _, s := range o.slices {
		n *= s.Count()
	}
	return n
}

// HasNext reports whether another tuple is available.
func (o *Odometer) HasNext() bool { return !o.done }

// Index returns a copy of the current tuple without advancing.
func (o *Odometer) Index() []int64 {
	if o.done {
		panic("odometer: Index called after exhaustion")
	}
	return append([]int64(nil), o.index...)
}

// Next returns the current tuple and advances to the following one.
func (o *Odometer) Next() []int64 {
	if o.done {
		panic(fmt.Sprintf("odometer: Next called after exhaustion (rank %d)", len(o.slices)))
	}
	cur := append([]int64(nil), o.index...)
	o.advance()
	return cur
}

func (o *Odometer) advance() {
	for i := len(o.slices) - 1; i >= 0; i-- {
		s := o.slices[i]
		o.index[i] += s.Stride
		if o.index[i] < s.Stop {
			return
		}
		o.index[i] = s.Start
	}
	// every axis wrapped (or rank 0): exhausted
	o.done = true
}
