// bytes.go - Byte-Einheiten und menschenlesbare Formatierung
//
// Enthaelt:
// - Konstanten fuer dezimale (KB, MB, GB) und binaere (KiB, MiB, GiB) Einheiten
// - HumanBytes: Formatierung mit dezimalen Einheiten
// - HumanBytes2: Formatierung mit binaeren Einheiten
// - ParseBytes: Parst Groessenangaben wie "24GiB" oder "512MB"
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	Byte = 1

	KiloByte = Byte * 1000
	MegaByte = KiloByte * 1000
	GigaByte = MegaByte * 1000
	TeraByte = GigaByte * 1000

	KibiByte = Byte * 1024
	MebiByte = KibiByte * 1024
	GibiByte = MebiByte * 1024
	TebiByte = GibiByte * 1024
)

// HumanBytes formatiert b mit dezimalen Einheiten
func HumanBytes(b int64) string {
	var value float64
	var unit string

	switch {
	case b >= TeraByte:
		value = float64(b) / TeraByte
		unit = "TB"
	case b >= GigaByte:
		value = float64(b) / GigaByte
		unit = "GB"
	case b >= MegaByte:
		value = float64(b) / MegaByte
		unit = "MB"
	case b >= KiloByte:
		value = float64(b) / KiloByte
		unit = "KB"
	default:
		return fmt.Sprintf("%d B", b)
	}

	switch {
	case value >= 10:
		return fmt.Sprintf("%d %s", int(value), unit)
	case value != math.Trunc(value):
		return fmt.Sprintf("%.1f %s", value, unit)
	default:
		return fmt.Sprintf("%d %s", int(value), unit)
	}
}

// HumanBytes2 formatiert b mit binaeren Einheiten
func HumanBytes2(b uint64) string {
	switch {
	case b >= TebiByte:
		return fmt.Sprintf("%.1f TiB", float64(b)/TebiByte)
	case b >= GibiByte:
		return fmt.Sprintf("%.1f GiB", float64(b)/GibiByte)
	case b >= MebiByte:
		return fmt.Sprintf("%.1f MiB", float64(b)/MebiByte)
	case b >= KibiByte:
		return fmt.Sprintf("%.1f KiB", float64(b)/KibiByte)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

var units = []struct {
	suffix string
	size   uint64
}{
	// laengere Suffixe zuerst, sonst matcht "B" vor "GiB"
	{"TiB", TebiByte},
	{"GiB", GibiByte},
	{"MiB", MebiByte},
	{"KiB", KibiByte},
	{"TB", TeraByte},
	{"GB", GigaByte},
	{"MB", MegaByte},
	{"KB", KiloByte},
	{"B", Byte},
}

// ParseBytes parst eine Groessenangabe wie "24GiB", "512 MB" oder "1048576"
func ParseBytes(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	for _, u := range units {
		if head, ok := strings.CutSuffix(s, u.suffix); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(head), 64)
			if err != nil || f < 0 {
				return 0, fmt.Errorf("invalid size %q", s)
			}
			return uint64(f * float64(u.size)), nil
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}
