// device_info.go
// Dieses Modul enthaelt die DeviceInfo-Strukturen fuer die Beschreibung
// eines Rechengeraets (Host oder Beschleuniger) und seines Speichers.

package ml

import (
	"log/slog"

	"github.com/EchoCog/aphroditecho/format"
)

// Minimal unique device identification
type DeviceID struct {
	// ID is an identifier for the device, e.g. "0" for the first CUDA device.
	ID string `json:"id"`

	// Library identifies which library drives the device (e.g. CUDA, Metal, CPU)
	Library string `json:"backend,omitempty"`
}

type DeviceInfo struct {
	DeviceID

	// Name is the name of the device as requested by the user
	Name string `json:"name"`

	// Description is the longer user-friendly identification of the device
	Description string `json:"description"`

	// TotalMemory is the total amount of memory the device can use. A value
	// of zero means the device is not an accelerator and memory is not profiled.
	TotalMemory uint64 `json:"total_memory"`

	// FreeMemory is the amount of memory currently not allocated
	FreeMemory uint64 `json:"free_memory,omitempty"`
}

// Accelerator reports whether the device has its own bounded memory.
func (d DeviceInfo) Accelerator() bool {
	return d.TotalMemory > 0
}

func (d DeviceInfo) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("name", d.Name),
		slog.String("library", d.Library),
	}
	if d.ID != "" {
		attrs = append(attrs, slog.String("id", d.ID))
	}
	if d.Accelerator() {
		attrs = append(attrs,
			slog.String("total", format.HumanBytes2(d.TotalMemory)),
			slog.String("free", format.HumanBytes2(d.FreeMemory)),
		)
	}
	return slog.GroupValue(attrs...)
}
