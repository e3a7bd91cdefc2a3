// types.go - Datentypen fuer Parameter und Aktivierungen
// Dieses Modul definiert den internen numerischen Typ (DType) der Laufzeit,
// seine Byte-Groesse und das Parsen aus Konfigurationswerten.
package ml

import (
	"fmt"
	"strings"
)

// DType is the runtime numeric kind of a tensor's elements.
type DType int

const (
	DTypeBool DType = iota
	DTypeUint8
	DTypeUint16
	DTypeUint32
	DTypeUint64
	DTypeInt8
	DTypeInt16
	DTypeInt32
	DTypeInt64
	DTypeFloat16
	DTypeBfloat16
	DTypeFloat32
	DTypeFloat64
)

// Size returns the number of bytes of one element.
func (t DType) Size() int {
	switch t {
	case DTypeBool, DTypeUint8, DTypeInt8:
		return 1
	case DTypeUint16, DTypeInt16, DTypeFloat16, DTypeBfloat16:
		return 2
	case DTypeUint32, DTypeInt32, DTypeFloat32:
		return 4
	case DTypeUint64, DTypeInt64, DTypeFloat64:
		return 8
	default:
		panic(fmt.Sprintf("ml: unknown dtype %d", int(t)))
	}
}

// IsFloat reports whether t is a floating point kind.
func (t DType) IsFloat() bool {
	switch t {
	case DTypeFloat16, DTypeBfloat16, DTypeFloat32, DTypeFloat64:
		return true
	default:
		return false
	}
}

func (t DType) isSigned() bool {
	switch t {
	case DTypeInt8, DTypeInt16, DTypeInt32, DTypeInt64:
		return true
	default:
		return false
	}
}

func (t DType) String() string {
	switch t {
	case DTypeBool:
		return "bool"
	case DTypeUint8:
		return "u8"
	case DTypeUint16:
		return "u16"
	case DTypeUint32:
		return "u32"
	case DTypeUint64:
		return "u64"
	case DTypeInt8:
		return "i8"
	case DTypeInt16:
		return "i16"
	case DTypeInt32:
		return "i32"
	case DTypeInt64:
		return "i64"
	case DTypeFloat16:
		return "f16"
	case DTypeBfloat16:
		return "bf16"
	case DTypeFloat32:
		return "f32"
	case DTypeFloat64:
		return "f64"
	default:
		return fmt.Sprintf("DType(%d)", int(t))
	}
}

// ParseDType parses a user supplied dtype name. Only floating point kinds
// are valid targets for model parameters.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f16", "fp16", "float16", "half":
		return DTypeFloat16, nil
	case "bf16", "bfloat16":
		return DTypeBfloat16, nil
	case "f32", "fp32", "float32", "float":
		return DTypeFloat32, nil
	case "f64", "fp64", "float64", "double":
		return DTypeFloat64, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", s)
	}
}

// AllDTypes lists every runtime kind.
var AllDTypes = []DType{
	DTypeBool,
	DTypeUint8, DTypeUint16, DTypeUint32, DTypeUint64,
	DTypeInt8, DTypeInt16, DTypeInt32, DTypeInt64,
	DTypeFloat16, DTypeBfloat16, DTypeFloat32, DTypeFloat64,
}
