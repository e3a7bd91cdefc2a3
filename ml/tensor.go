// tensor.go - Host-Tensoren
// Dieses Modul enthaelt den Tensor-Typ der Laufzeit: eine Form, einen
// numerischen Typ und einen zusammenhaengenden Little-Endian Byte-Puffer.
package ml

import (
	"fmt"
	"slices"
	"unsafe"
)

// Tensor is a dense, row-major tensor stored in little-endian byte order.
// Tensors are created through a Device so their memory is accounted for.
type Tensor struct {
	shape []int
	dtype DType
	data  []byte
}

// NewTensor creates a zeroed tensor that is not owned by any device.
func NewTensor(dtype DType, shape ...int) *Tensor {
	return &Tensor{
		shape: slices.Clone(shape),
		dtype: dtype,
		data:  make([]byte, Elements(shape)*dtype.Size()),
	}
}

// Elements returns the product of the dimensions in shape.
func Elements(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("ml: negative dimension in shape %v", shape))
		}
		n *= d
	}
	return n
}

func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }
func (t *Tensor) DType() DType { return t.dtype }
func (t *Tensor) Bytes() []byte { return t.data }

// Dim returns the size of dimension n.
func (t *Tensor) Dim(n int) int {
	return t.shape[n]
}

// Elements returns the number of elements of t.
func (t *Tensor) Elements() int {
	return Elements(t.shape)
}

// Size returns the size of the backing buffer in bytes.
func (t *Tensor) Size() uint64 {
	return uint64(len(t.data))
}

// Floats returns a float32 copy of the contents.
func (t *Tensor) Floats() []float32 {
	if t.dtype == DTypeFloat32 {
		return slices.Clone(View[float32](t))
	}
	out := make([]float32, t.Elements())
	if err := Convert(Raw(out), DTypeFloat32, t.data, t.dtype); err != nil {
		panic(err)
	}
	return out
}

// FromFloats overwrites the contents of t, converting from float32.
func (t *Tensor) FromFloats(s []float32) error {
	if len(s) != t.Elements() {
		return fmt.Errorf("ml: %d values for tensor of shape %v", len(s), t.shape)
	}
	return Convert(t.data, t.dtype, Raw(s), DTypeFloat32)
}

// FromBytes overwrites the contents of t with src of kind srcType.
func (t *Tensor) FromBytes(src []byte, srcType DType) error {
	return Convert(t.data, t.dtype, src, srcType)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%v, %v)", t.dtype, t.shape)
}

// Numeric is the set of Go types that back a DType.
type Numeric interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// View reinterprets the tensor buffer as a slice of T without copying.
// The caller is responsible for choosing a T matching the tensor's kind.
func View[T Numeric](t *Tensor) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(t.data) == 0 {
		return nil
	}
	if len(t.data)%size != 0 {
		panic(fmt.Sprintf("ml: %d bytes are not a multiple of element size %d", len(t.data), size))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&t.data[0])), len(t.data)/size)
}

// Raw reinterprets a typed slice as its underlying bytes without copying.
func Raw[T Numeric](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
