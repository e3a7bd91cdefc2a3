// convert.go - Typkonvertierung zwischen numerischen Datentypen
// Dieses Modul enthaelt die Kopier-Konvertierung von Little-Endian Puffern
// zwischen allen DType-Kombinationen. Ganzzahlen werden ueber int64/uint64
// konvertiert, alle anderen Kombinationen ueber float64.
package ml

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Convert copies the elements of src, stored as srcType, into dst as dstType.
// Both buffers must hold the same number of elements.
//
// Float to integer conversion truncates toward zero and maps NaN to 0.
// Conversion to bool maps any nonzero value, NaN included, to 1.
//
// F16 results round to nearest even. BF16 results are truncated from
// float32. Values from F64 pass through float32 first, so F64 to F16 or BF16
// may round twice; the result stays within one unit in the last place.
func Convert(dst []byte, dstType DType, src []byte, srcType DType) error {
	if len(src)%srcType.Size() != 0 {
		return fmt.Errorf("ml: source length %d is not a multiple of %v size", len(src), srcType)
	}
	n := len(src) / srcType.Size()
	if len(dst) != n*dstType.Size() {
		return fmt.Errorf("ml: destination holds %d bytes, need %d for %d %v elements", len(dst), n*dstType.Size(), n, dstType)
	}

	if srcType == dstType {
		copy(dst, src)
		return nil
	}

	if !srcType.IsFloat() && !dstType.IsFloat() {
		for i := range n {
			putInt(dst, dstType, i, getInt(src, srcType, i))
		}
		return nil
	}

	var f32 []float32
	if srcType == DTypeBfloat16 {
		f32 = bfloat16.DecodeFloat32(src)
	}

	var out []float32
	if dstType == DTypeBfloat16 {
		out = make([]float32, n)
	}

	for i := range n {
		var v float64
		switch {
		case f32 != nil:
			v = float64(f32[i])
		case srcType.IsFloat():
			v = getFloat(src, srcType, i)
		case srcType.isSigned():
			v = float64(getInt(src, srcType, i).i)
		default:
			v = float64(getInt(src, srcType, i).u)
		}

		switch {
		case out != nil:
			out[i] = float32(v)
		case dstType.IsFloat():
			putFloat(dst, dstType, i, v)
		case dstType == DTypeBool:
			dst[i] = 0
			if v != 0 {
				dst[i] = 1
			}
		default:
			putInt(dst, dstType, i, fromFloat(v))
		}
	}

	if out != nil {
		copy(dst, bfloat16.EncodeFloat32(out))
	}
	return nil
}

// integer carries an integer element with its signedness preserved.
type integer struct {
	i      int64
	u      uint64
	signed bool
}

func fromFloat(v float64) integer {
	if v < 0 {
		return integer{i: int64(v), signed: true}
	}
	if math.IsNaN(v) {
		return integer{}
	}
	return integer{u: uint64(v), i: int64(v)}
}

func (x integer) int64() int64 {
	if x.signed {
		return x.i
	}
	return int64(x.u)
}

func (x integer) uint64() uint64 {
	if x.signed {
		return uint64(x.i)
	}
	return x.u
}

func (x integer) nonzero() bool {
	return x.i != 0 || x.u != 0
}

func getInt(b []byte, t DType, i int) integer {
	le := binary.LittleEndian
	switch t {
	case DTypeBool:
		if b[i] != 0 {
			return integer{i: 1, u: 1}
		}
		return integer{}
	case DTypeUint8:
		v := uint64(b[i])
		return integer{i: int64(v), u: v}
	case DTypeUint16:
		v := uint64(le.Uint16(b[2*i:]))
		return integer{i: int64(v), u: v}
	case DTypeUint32:
		v := uint64(le.Uint32(b[4*i:]))
		return integer{i: int64(v), u: v}
	case DTypeUint64:
		v := le.Uint64(b[8*i:])
		return integer{i: int64(v), u: v}
	case DTypeInt8:
		return signed(int64(int8(b[i])))
	case DTypeInt16:
		return signed(int64(int16(le.Uint16(b[2*i:]))))
	case DTypeInt32:
		return signed(int64(int32(le.Uint32(b[4*i:]))))
	case DTypeInt64:
		return signed(int64(le.Uint64(b[8*i:])))
	default:
		panic(fmt.Sprintf("ml: %v is not an integer kind", t))
	}
}

func signed(v int64) integer {
	return integer{i: v, u: uint64(v), signed: true}
}

func putInt(b []byte, t DType, i int, x integer) {
	le := binary.LittleEndian
	switch t {
	case DTypeBool:
		if x.nonzero() {
			b[i] = 1
		} else {
			b[i] = 0
		}
	case DTypeUint8:
		b[i] = uint8(x.uint64())
	case DTypeUint16:
		le.PutUint16(b[2*i:], uint16(x.uint64()))
	case DTypeUint32:
		le.PutUint32(b[4*i:], uint32(x.uint64()))
	case DTypeUint64:
		le.PutUint64(b[8*i:], x.uint64())
	case DTypeInt8:
		b[i] = uint8(int8(x.int64()))
	case DTypeInt16:
		le.PutUint16(b[2*i:], uint16(int16(x.int64())))
	case DTypeInt32:
		le.PutUint32(b[4*i:], uint32(int32(x.int64())))
	case DTypeInt64:
		le.PutUint64(b[8*i:], uint64(x.int64()))
	default:
		panic(fmt.Sprintf("ml: %v is not an integer kind", t))
	}
}

func getFloat(b []byte, t DType, i int) float64 {
	le := binary.LittleEndian
	switch t {
	case DTypeFloat16:
		return float64(float16.Frombits(le.Uint16(b[2*i:])).Float32())
	case DTypeFloat32:
		return float64(math.Float32frombits(le.Uint32(b[4*i:])))
	case DTypeFloat64:
		return math.Float64frombits(le.Uint64(b[8*i:]))
	default:
		panic(fmt.Sprintf("ml: %v is not a float kind", t))
	}
}

func putFloat(b []byte, t DType, i int, v float64) {
	le := binary.LittleEndian
	switch t {
	case DTypeFloat16:
		le.PutUint16(b[2*i:], float16.Fromfloat32(float32(v)).Bits())
	case DTypeFloat32:
		le.PutUint32(b[4*i:], math.Float32bits(float32(v)))
	case DTypeFloat64:
		le.PutUint64(b[8*i:], math.Float64bits(v))
	default:
		panic(fmt.Sprintf("ml: %v is not a float kind", t))
	}
}
