// Package value provides the sealed set of scalar values read from data
// providers, written to the response stream and compared by filters.
package value

import (
	"bytes"
	"fmt"
	"strings"
)

// Value is a sealed interface representing one scalar.
// Only Int, Uint, Float, String, Bool and Opaque implement it.
type Value interface {
	scalar() // Sealed - only these types implement it
}

// Int holds any signed integer or enumeration value.
type Int int64

func (Int) scalar() {}

// Uint holds any unsigned integer or char value.
type Uint uint64

func (Uint) scalar() {}

// Float holds a Float32 or Float64 value.
type Float float64

func (Float) scalar() {}

// String holds a String or URL value.
type String string

func (String) scalar() {}

// Bool is produced by boolean constants in filters.
type Bool bool

func (Bool) scalar() {}

// Opaque holds an uninterpreted byte string.
type Opaque []byte

func (Opaque) scalar() {}

// Format renders v the way it is matched by regular-expression filters and
// shown by the dump command.
func Format(v Value) string {
	switch x := v.(type) {
	case Int:
		return fmt.Sprintf("%d", int64(x))
	case Uint:
		return fmt.Sprintf("%d", uint64(x))
	case Float:
		return fmt.Sprintf("%g", float64(x))
	case String:
		return string(x)
	case Bool:
		if x {
			return "true"
		}
		return "false"
	case Opaque:
		return fmt.Sprintf("0x%x", []byte(x))
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Compare orders two values.
//
// Strings compare lexicographically and booleans as 0/1. Numbers compare as
// float64 when either side is a Float, each side converted from its own
// value; otherwise both sides compare as int64. Mixed categories (string
// against number) are an error.
func Compare(l, r Value) (int, error) {
	switch lv := l.(type) {
	case String:
		rv, ok := r.(String)
		if !ok {
			return 0, incomparable(l, r)
		}
		return strings.Compare(string(lv), string(rv)), nil
	case Bool:
		rv, ok := r.(Bool)
		if !ok {
			return 0, incomparable(l, r)
		}
		return cmpInt(boolInt(bool(lv)), boolInt(bool(rv))), nil
	case Opaque:
		rv, ok := r.(Opaque)
		if !ok {
			return 0, incomparable(l, r)
		}
		return bytes.Compare(lv, rv), nil
	}

	if !isNumber(l) || !isNumber(r) {
		return 0, incomparable(l, r)
	}
	_, lf := l.(Float)
	_, rf := r.(Float)
	if lf || rf {
		return cmpFloat(toFloat(l), toFloat(r)), nil
	}
	return cmpInteger(l, r), nil
}

func incomparable(l, r Value) error {
	return fmt.Errorf("cannot compare %T with %T", l, r)
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, Uint, Float:
		return true
	}
	return false
}

func toFloat(v Value) float64 {
	switch x := v.(type) {
	case Int:
		return float64(x)
	case Uint:
		return float64(x)
	case Float:
		return float64(x)
	}
	return 0
}

// cmpInteger compares two integers of either signedness without wrapping:
// a negative Int sorts below every Uint.
func cmpInteger(l, r Value) int {
	switch lv := l.(type) {
	case Int:
		switch rv := r.(type) {
		case Int:
			return cmpInt(int64(lv), int64(rv))
		case Uint:
			if lv < 0 {
				return -1
			}
			return cmpUint(uint64(lv), uint64(rv))
		}
	case Uint:
		switch rv := r.(type) {
		case Int:
			if rv < 0 {
				return 1
			}
			return cmpUint(uint64(lv), uint64(rv))
		case Uint:
			return cmpUint(uint64(lv), uint64(rv))
		}
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
