package dmr

import (
	"fmt"
	"math"

	"github.com/roach88/dap4/internal/value"
)

// BaseType is the atomic type of a variable or enumeration.
type BaseType int

const (
	TypeNone BaseType = iota
	TypeChar
	TypeInt8
	TypeUInt8
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeURL
	TypeOpaque
	TypeEnum
)

var baseTypeNames = map[BaseType]string{
	TypeChar:    "Char",
	TypeInt8:    "Int8",
	TypeUInt8:   "UInt8",
	TypeInt16:   "Int16",
	TypeUInt16:  "UInt16",
	TypeInt32:   "Int32",
	TypeUInt32:  "UInt32",
	TypeInt64:   "Int64",
	TypeUInt64:  "UInt64",
	TypeFloat32: "Float32",
	TypeFloat64: "Float64",
	TypeString:  "String",
	TypeURL:     "URL",
	TypeOpaque:  "Opaque",
	TypeEnum:    "Enum",
}

func (t BaseType) String() string {
	if s, ok := baseTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("BaseType(%d)", int(t))
}

// ParseBaseType maps a DMR type name ("Int32", "Float64", ...) to a BaseType.
// Byte is accepted as an alias for UInt8.
func ParseBaseType(name string) (BaseType, bool) {
	if name == "Byte" {
		return TypeUInt8, true
	}
	for t, s := range baseTypeNames {
		if s == name {
			return t, true
		}
	}
	return TypeNone, false
}

// Size returns the encoded width in bytes of fixed-size types, or 0 for
// variable-length types (String, URL, Opaque).
func (t BaseType) Size() int {
	switch t {
	case TypeChar, TypeInt8, TypeUInt8:
		return 1
	case TypeInt16, TypeUInt16:
		return 2
	case TypeInt32, TypeUInt32, TypeFloat32:
		return 4
	case TypeInt64, TypeUInt64, TypeFloat64:
		return 8
	}
	return 0
}

// IsIntegral reports whether t holds integers.
func (t BaseType) IsIntegral() bool {
	switch t {
	case TypeChar, TypeInt8, TypeUInt8, TypeInt16, TypeUInt16,
		TypeInt32, TypeUInt32, TypeInt64, TypeUInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integral type.
func (t BaseType) IsUnsigned() bool {
	switch t {
	case TypeChar, TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64:
		return true
	}
	return false
}

// Coerce converts a loosely typed scalar (as decoded from YAML, JSON or SQL)
// into the value representation of base type t.
func Coerce(t BaseType, raw any) (value.Value, error) {
	switch t {
	case TypeString, TypeURL:
		switch x := raw.(type) {
		case string:
			return value.String(x), nil
		case []byte:
			return value.String(x), nil
		}
	case TypeOpaque:
		switch x := raw.(type) {
		case []byte:
			return value.Opaque(x), nil
		case string:
			return value.Opaque(x), nil
		}
	case TypeFloat32, TypeFloat64:
		switch x := raw.(type) {
		case float64:
			return value.Float(x), nil
		case float32:
			return value.Float(x), nil
		case int:
			return value.Float(x), nil
		case int64:
			return value.Float(x), nil
		}
	case TypeEnum:
		return coerceInt(t, raw, math.MinInt64, math.MaxInt64)
	default:
		if t.IsUnsigned() {
			n, err := coerceInt(t, raw, 0, math.MaxInt64)
			if err != nil {
				if u, ok := raw.(uint64); ok {
					return value.Uint(u), nil
				}
				return nil, err
			}
			return value.Uint(n.(value.Int)), nil
		}
		if t.IsIntegral() {
			return coerceInt(t, raw, math.MinInt64, math.MaxInt64)
		}
	}
	return nil, fmt.Errorf("cannot use %T (%v) as %s", raw, raw, t)
}

func coerceInt(t BaseType, raw any, lo, hi int64) (value.Value, error) {
	var n int64
	switch x := raw.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case int32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows %s", x, t)
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("%v is not an integer (%s)", x, t)
		}
		n = int64(x)
	case bool:
		if x {
			n = 1
		}
	default:
		return nil, fmt.Errorf("cannot use %T (%v) as %s", raw, raw, t)
	}
	if n < lo || n > hi {
		return nil, fmt.Errorf("%d out of range for %s", n, t)
	}
	return value.Int(n), nil
}
