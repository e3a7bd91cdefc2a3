// Package safetensorstest schreibt safetensors-Dateien fuer Tests.
package safetensorstest

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"testing"

	"github.com/EchoCog/aphroditecho/ml"
)

// Tensor is one tensor to be written.
type Tensor struct {
	Name  string
	DType string
	Shape []int
	Data  []byte
}

// Floats returns a tensor holding values encoded as kind.
func Floats(name string, kind ml.DType, values []float32, shape ...int) Tensor {
	data := make([]byte, len(values)*kind.Size())
	if err := ml.Convert(data, kind, ml.Raw(values), ml.DTypeFloat32); err != nil {
		panic(err)
	}
	return Tensor{Name: name, DType: tag(kind), Shape: shape, Data: data}
}

func tag(kind ml.DType) string {
	switch kind {
	case ml.DTypeBool:
		return "BOOL"
	case ml.DTypeFloat16:
		return "F16"
	case ml.DTypeBfloat16:
		return "BF16"
	case ml.DTypeFloat32:
		return "F32"
	case ml.DTypeFloat64:
		return "F64"
	default:
		// u8 -> U8, i32 -> I32
		s := []byte(kind.String())
		s[0] -= 'a' - 'A'
		return string(s)
	}
}

// Write writes tensors, in order, to a safetensors file at path.
func Write(t testing.TB, path string, tensors []Tensor, metadata map[string]string) {
	t.Helper()

	header := make(map[string]any, len(tensors)+1)
	if metadata != nil {
		header["__metadata__"] = metadata
	}

	var data []byte
	for _, tt := range tensors {
		header[tt.Name] = map[string]any{
			"dtype":        tt.DType,
			"shape":        tt.Shape,
			"data_offsets": []int{len(data), len(data) + len(tt.Data)},
		}
		data = append(data, tt.Data...)
	}

	bts, err := json.Marshal(header)
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint64(len(bts))); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(bts); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatal(err)
	}
}
