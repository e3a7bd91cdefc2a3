// Package safetensors - Lesen von safetensors-Containern ueber mmap
//
// Dieses Paket oeffnet eine safetensors-Datei, bildet sie schreibgeschuetzt
// in den Speicher ab und stellt die enthaltenen Tensoren als geliehene
// Ansichten (TensorView) bereit. Eine Ansicht ist nur gueltig, solange die
// Datei geoeffnet ist.
//
// Dateiformat:
//
//	[8 Bytes: Header-Groesse (uint64 LE)]
//	[Header-Groesse Bytes: JSON-Header]
//	[Tensor-Daten]
package safetensors

import (
	"cmp"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/EchoCog/aphroditecho/ml"
)

// maxHeaderSize bounds the JSON header to keep corrupt files from
// triggering huge allocations.
const maxHeaderSize = 100 * 1024 * 1024

var ErrClosed = errors.New("safetensors: file already closed")

// DTypeTag is the element type label stored with every tensor.
type DTypeTag string

const (
	BOOL DTypeTag = "BOOL"
	U8   DTypeTag = "U8"
	I8   DTypeTag = "I8"
	U16  DTypeTag = "U16"
	I16  DTypeTag = "I16"
	U32  DTypeTag = "U32"
	I32  DTypeTag = "I32"
	U64  DTypeTag = "U64"
	I64  DTypeTag = "I64"
	F16  DTypeTag = "F16"
	BF16 DTypeTag = "BF16"
	F32  DTypeTag = "F32"
	F64  DTypeTag = "F64"
)

var kinds = map[DTypeTag]ml.DType{
	BOOL: ml.DTypeBool,
	U8:   ml.DTypeUint8,
	I8:   ml.DTypeInt8,
	U16:  ml.DTypeUint16,
	I16:  ml.DTypeInt16,
	U32:  ml.DTypeUint32,
	I32:  ml.DTypeInt32,
	U64:  ml.DTypeUint64,
	I64:  ml.DTypeInt64,
	F16:  ml.DTypeFloat16,
	BF16: ml.DTypeBfloat16,
	F32:  ml.DTypeFloat32,
	F64:  ml.DTypeFloat64,
}

// Known reports whether the tag maps to a runtime kind.
func (t DTypeTag) Known() bool {
	_, ok := kinds[t]
	return ok
}

// Kind maps the tag to the runtime kind. It panics for tags without a
// runtime equivalent, e.g. the 8-bit float variants.
func (t DTypeTag) Kind() ml.DType {
	k, ok := kinds[t]
	if !ok {
		panic(fmt.Sprintf("safetensors: unsupported dtype %q", string(t)))
	}
	return k
}

// TagOf returns the tag used to store kind.
func TagOf(kind ml.DType) DTypeTag {
	for tag, k := range kinds {
		if k == kind {
			return tag
		}
	}
	panic(fmt.Sprintf("safetensors: no tag for %v", kind))
}

// TensorInfo is one entry of the header.
type TensorInfo struct {
	Name        string   `json:"-"`
	DType       DTypeTag `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int   `json:"data_offsets"`
}

func (i TensorInfo) Elements() int {
	return ml.Elements(i.Shape)
}

// File is a memory-mapped safetensors container.
type File struct {
	path     string
	data     []byte
	unmap    func() error
	start    int
	tensors  []TensorInfo
	index    map[string]int
	metadata map[string]string
	closed   bool
}

// Open maps the file at path and parses its header.
func Open(path string) (*File, error) {
	//nolint:gosec // G304: model paths come from the user
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	stat, err := fh.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() < 8 {
		return nil, fmt.Errorf("safetensors: %s: file too small: %d bytes", path, stat.Size())
	}

	data, unmap, err := mmapFile(fh, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("safetensors: %s: mmap failed: %w", path, err)
	}

	f := &File{path: path, data: data, unmap: unmap}
	if err := f.parseHeader(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("safetensors: %s: %w", path, err)
	}
	return f, nil
}

func (f *File) parseHeader() error {
	n := binary.LittleEndian.Uint64(f.data[:8])
	if n > maxHeaderSize {
		return fmt.Errorf("header size %d too large", n)
	}
	if 8+n > uint64(len(f.data)) {
		return fmt.Errorf("header extends beyond file: header_end=%d, file_size=%d", 8+n, len(f.data))
	}
	f.start = 8 + int(n)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(f.data[8:f.start], &raw); err != nil {
		return fmt.Errorf("invalid header: %w", err)
	}

	size := len(f.data) - f.start
	f.index = make(map[string]int, len(raw))
	for name, value := range raw {
		if name == "__metadata__" {
			if err := json.Unmarshal(value, &f.metadata); err != nil {
				return fmt.Errorf("invalid metadata: %w", err)
			}
			continue
		}

		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("invalid entry for tensor %s: %w", name, err)
		}
		info.Name = name

		begin, end := info.DataOffsets[0], info.DataOffsets[1]
		if begin < 0 || end < begin || end > size {
			return fmt.Errorf("tensor %s: invalid data offsets [%d, %d] for %d data bytes", name, begin, end, size)
		}
		for _, d := range info.Shape {
			if d < 0 {
				return fmt.Errorf("tensor %s: invalid shape %v", name, info.Shape)
			}
		}
		if info.DType.Known() {
			if want := info.Elements() * info.DType.Kind().Size(); want != end-begin {
				return fmt.Errorf("tensor %s: %d bytes for shape %v of %s, want %d", name, end-begin, info.Shape, info.DType, want)
			}
		}
		f.tensors = append(f.tensors, info)
	}

	slices.SortFunc(f.tensors, func(a, b TensorInfo) int {
		return cmp.Or(cmp.Compare(a.DataOffsets[0], b.DataOffsets[0]), cmp.Compare(a.Name, b.Name))
	})
	for i, info := range f.tensors {
		f.index[info.Name] = i
	}
	return nil
}

// Close unmaps the file. Views obtained from f must not be used afterwards.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.data = nil
	if f.unmap != nil {
		return f.unmap()
	}
	return nil
}

func (f *File) Path() string { return f.path }

// Metadata returns the free-form string map stored under __metadata__.
func (f *File) Metadata() map[string]string { return f.metadata }

// Len returns the number of tensors in the file.
func (f *File) Len() int { return len(f.tensors) }

// Tensors returns the header entries ordered by their data offset.
func (f *File) Tensors() []TensorInfo {
	return slices.Clone(f.tensors)
}

// Lookup returns the header entry for name.
func (f *File) Lookup(name string) (TensorInfo, bool) {
	i, ok := f.index[name]
	if !ok {
		return TensorInfo{}, false
	}
	return f.tensors[i], true
}

// View returns a borrowed view of the tensor called name.
func (f *File) View(name string) (*TensorView, error) {
	if f.closed {
		return nil, ErrClosed
	}
	info, ok := f.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("safetensors: tensor %s not found in %s", name, f.path)
	}
	return &TensorView{file: f, info: info}, nil
}

// TensorView is a read-only view into the mapped bytes of one tensor. It
// does not own the memory; it is valid only while its File is open.
type TensorView struct {
	file *File
	info TensorInfo
}

func (v *TensorView) Name() string  { return v.info.Name }
func (v *TensorView) Tag() DTypeTag { return v.info.DType }
func (v *TensorView) Shape() []int  { return slices.Clone(v.info.Shape) }

// DType maps the stored tag to the runtime kind, panicking on unknown tags.
func (v *TensorView) DType() ml.DType { return v.info.DType.Kind() }

func (v *TensorView) Elements() int { return v.info.Elements() }

// Data returns the raw little-endian bytes of the tensor. It panics if the
// file has been closed.
func (v *TensorView) Data() []byte {
	if v.file.closed {
		panic(fmt.Sprintf("safetensors: tensor %s used after %s was closed", v.info.Name, v.file.path))
	}
	begin, end := v.info.DataOffsets[0], v.info.DataOffsets[1]
	return v.file.data[v.file.start+begin : v.file.start+end : v.file.start+end]
}

// CopyTo converts the contents of the view into dst.
func (v *TensorView) CopyTo(dst *ml.Tensor) error {
	if v.Elements() != dst.Elements() {
		return fmt.Errorf("safetensors: tensor %s has %d elements, destination %d", v.info.Name, v.Elements(), dst.Elements())
	}
	return dst.FromBytes(v.Data(), v.DType())
}
