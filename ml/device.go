// device.go - Geraete und Speicherbuchhaltung
// Dieses Modul enthaelt die Device-Schnittstelle sowie eine Implementierung,
// die jede Allokation verbucht und den Spitzenwert des belegten Speichers
// festhaelt. Der Profiler liest diesen Spitzenwert nach einem Testlauf aus.
package ml

import (
	"log/slog"
	"sync"

	"github.com/EchoCog/aphroditecho/format"
)

// Device allocates tensors and accounts for their memory.
type Device interface {
	Info() DeviceInfo

	// Alloc returns a zeroed tensor owned by the device.
	Alloc(dtype DType, shape ...int) *Tensor

	// Free releases the memory of t. Freeing a tensor twice is a no-op.
	Free(t *Tensor)

	// Cast changes the kind of t in place. The contents are zeroed.
	Cast(t *Tensor, dtype DType)

	// Allocated returns the number of bytes currently allocated.
	Allocated() uint64

	// ResetPeak sets the peak statistic to the current allocation.
	ResetPeak()

	// PeakAllocated returns the highest allocation since the last ResetPeak.
	PeakAllocated() uint64
}

// MemoryDevice is a Device that keeps allocations in host memory while
// enforcing nothing and recording everything. With a nonzero total it
// stands in for an accelerator whose memory budget is known.
type MemoryDevice struct {
	mu        sync.Mutex
	info      DeviceInfo
	allocated uint64
	peak      uint64
	owned     map[*Tensor]uint64
}

// NewHostDevice returns the host device. It reports no accelerator memory.
func NewHostDevice() *MemoryDevice {
	return &MemoryDevice{
		info: DeviceInfo{
			DeviceID:    DeviceID{Library: "CPU"},
			Name:        "cpu",
			Description: "host memory",
		},
		owned: make(map[*Tensor]uint64),
	}
}

// NewAcceleratorDevice returns a device with a memory budget of total bytes.
func NewAcceleratorDevice(id DeviceID, name string, total uint64) *MemoryDevice {
	return &MemoryDevice{
		info: DeviceInfo{
			DeviceID:    id,
			Name:        name,
			Description: id.Library + " device " + id.ID,
			TotalMemory: total,
		},
		owned: make(map[*Tensor]uint64),
	}
}

func (d *MemoryDevice) Info() DeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	info := d.info
	if info.TotalMemory > d.allocated {
		info.FreeMemory = info.TotalMemory - d.allocated
	}
	return info
}

func (d *MemoryDevice) Alloc(dtype DType, shape ...int) *Tensor {
	t := NewTensor(dtype, shape...)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reserve(t)
	return t
}

func (d *MemoryDevice) Free(t *Tensor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.release(t)
}

func (d *MemoryDevice) Cast(t *Tensor, dtype DType) {
	if t.dtype == dtype {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.owned[t]
	if ok {
		d.release(t)
	}
	t.dtype = dtype
	t.data = make([]byte, t.Elements()*dtype.Size())
	if ok {
		d.reserve(t)
	}
}

func (d *MemoryDevice) reserve(t *Tensor) {
	size := t.Size()
	d.owned[t] = size
	d.allocated += size
	d.peak = max(d.peak, d.allocated)
}

func (d *MemoryDevice) release(t *Tensor) {
	size, ok := d.owned[t]
	if !ok {
		return
	}
	delete(d.owned, t)
	d.allocated -= size
}

func (d *MemoryDevice) Allocated() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated
}

func (d *MemoryDevice) ResetPeak() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peak = d.allocated
}

func (d *MemoryDevice) PeakAllocated() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peak
}

// LogMemory writes the current allocation statistics of d at debug level.
func LogMemory(d Device, stage string) {
	slog.Debug("device memory", "stage", stage,
		"device", d.Info(),
		"allocated", format.HumanBytes2(d.Allocated()),
		"peak", format.HumanBytes2(d.PeakAllocated()))
}
