// Modul: device.go
// Beschreibung: Auswahl des Rechengeraets anhand seines Namens.
// Enthaelt Device und das Zerlegen von Namen wie "cuda:1".

package discover

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/EchoCog/aphroditecho/envconfig"
	"github.com/EchoCog/aphroditecho/format"
	"github.com/EchoCog/aphroditecho/ml"
)

// libraries maps device name prefixes to the library reported in DeviceID.
var libraries = map[string]string{
	"cuda":  "CUDA",
	"gpu":   "CUDA",
	"metal": "Metal",
}

// Device returns the device called name. "cpu" selects host memory.
// Accelerator names ("cuda", "cuda:N", "gpu", "metal") get a memory budget
// of APHRODITE_DEVICE_MEMORY bytes; without one they fall back to the host.
func Device(name string) (ml.Device, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "cpu" {
		return ml.NewHostDevice(), nil
	}

	kind, index, err := parseName(name)
	if err != nil {
		return nil, err
	}

	total := envconfig.DeviceMemory()
	if total == 0 {
		slog.Warn("no accelerator memory configured, using host memory", "device", name, "hint", "set APHRODITE_DEVICE_MEMORY")
		return ml.NewHostDevice(), nil
	}

	dev := ml.NewAcceleratorDevice(ml.DeviceID{ID: strconv.Itoa(index), Library: libraries[kind]}, name, total)
	slog.Info("selected device", "device", dev.Info(), "total", format.HumanBytes2(total))
	return dev, nil
}

func parseName(name string) (kind string, index int, err error) {
	kind, ordinal, found := strings.Cut(name, ":")
	if _, ok := libraries[kind]; !ok {
		return "", 0, fmt.Errorf("unknown device %q", name)
	}
	if !found {
		return kind, 0, nil
	}

	index, err = strconv.Atoi(ordinal)
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("invalid device ordinal in %q", name)
	}
	return kind, index, nil
}
