// Package slice implements stride projections over one dimension and the
// odometer that walks the cartesian product of several of them.
package slice

import (
	"fmt"

	"github.com/roach88/dap4/internal/ceerr"
)

// Unknown marks a stop or maximum that has not been fixed yet.
const Unknown int64 = -1

// Slice is the half-open projection [Start:Stride:Stop) over one dimension.
//
// Constrained is true when the slice was written explicitly in a constraint
// expression and false for the default whole-dimension slice. A Stop of
// Unknown makes the slice incomplete until it is matched against a
// dimension with Complete.
type Slice struct {
	Start       int64
	Stride      int64
	Stop        int64
	Max         int64 // size of the dimension the slice applies to, or Unknown
	Constrained bool
}

// New returns an explicit [start:stride:stop) slice.
func New(start, stride, stop int64) Slice {
	return Slice{Start: start, Stride: stride, Stop: stop, Max: Unknown, Constrained: true}
}

// Index returns an explicit slice selecting the single index i.
func Index(i int64) Slice {
	return New(i, 1, i+1)
}

// Open returns an explicit slice whose stop is the end of the dimension.
func Open(start, stride int64) Slice {
	return New(start, stride, Unknown)
}

// Whole returns the default, unconstrained whole-dimension slice.
func Whole() Slice {
	return Slice{Start: 0, Stride: 1, Stop: Unknown, Max: Unknown}
}

// Fill returns the canonical unconstrained slice covering a dimension of the
// given size.
func Fill(size int64) Slice {
	return Slice{Start: 0, Stride: 1, Stop: size, Max: size}
}

// Incomplete reports whether the stop is still unknown.
func (s Slice) Incomplete() bool { return s.Stop == Unknown }

// Complete fixes an unknown stop to the dimension size and records the size
// as the slice's maximum.
func (s Slice) Complete(size int64) Slice {
	if s.Stop == Unknown {
		s.Stop = size
	}
	s.Max = size
	return s
}

// IsWhole reports whether s selects the entire dimension with stride 1.
// An incomplete slice starting at 0 with stride 1 is whole by construction.
func (s Slice) IsWhole() bool {
	if s.Start != 0 || s.Stride != 1 {
		return false
	}
	if s.Stop == Unknown {
		return true
	}
	return s.Max != Unknown && s.Stop == s.Max
}

// Count returns the number of indices selected; zero for incomplete or empty
// slices.
func (s Slice) Count() int64 {
	if s.Stop == Unknown || s.Stride < 1 || s.Stop <= s.Start {
		return 0
	}
	return (s.Stop - s.Start + s.Stride - 1) / s.Stride
}

// Last returns the largest index selected, or -1 if the slice is empty.
func (s Slice) Last() int64 {
	n := s.Count()
	if n == 0 {
		return -1
	}
	return s.Start + (n-1)*s.Stride
}

// Validate checks the bounds of s. Once the maximum is known the stop may
// not exceed it.
func (s Slice) Validate() error {
	if s.Start < 0 {
		return ceerr.Range("slice start %d is negative", s.Start)
	}
	if s.Stride < 1 {
		return ceerr.Range("slice stride %d must be >= 1", s.Stride)
	}
	if s.Stop == Unknown {
		if s.Max != Unknown && s.Start >= s.Max {
			return ceerr.Range("slice start %d beyond dimension size %d", s.Start, s.Max)
		}
		return nil
	}
	if s.Max != Unknown && s.Stop > s.Max {
		return ceerr.Range("slice stop %d exceeds dimension size %d", s.Stop, s.Max)
	}
	if s.Start >= s.Stop {
		return ceerr.Range("slice start %d must be less than stop %d", s.Start, s.Stop)
	}
	return nil
}

// String renders s in constraint notation: "[]" for an unconstrained slice,
// otherwise "[i]", "[start:stop]", "[start:stride:stop]" or, when
// incomplete, "[start:]" / "[start:stride:]".
func (s Slice) String() string {
	if !s.Constrained {
		return "[]"
	}
	if s.Stop == Unknown {
		if s.Stride == 1 {
			return fmt.Sprintf("[%d:]", s.Start)
		}
		return fmt.Sprintf("[%d:%d:]", s.Start, s.Stride)
	}
	if s.Stride == 1 {
		if s.Stop == s.Start+1 {
			return fmt.Sprintf("[%d]", s.Start)
		}
		return fmt.Sprintf("[%d:%d]", s.Start, s.Stop)
	}
	return fmt.Sprintf("[%d:%d:%d]", s.Start, s.Stride, s.Stop)
}

// Flatten converts a multi-dimensional index into a row-major offset over
// dimensions of the given sizes.
func Flatten(index []int64, sizes []int64) int64 {
	var off int64
	for i, ix := range index {
		off = off*sizes[i] + ix
	}
	return off
}
