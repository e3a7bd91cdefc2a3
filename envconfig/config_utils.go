// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String: String-Getter
// - Uint/Float: Zahlen-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// String-Getter
// =============================================================================

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// =============================================================================
// Zahlen-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Float gibt eine Funktion zurueck, die einen float64 mit Default-Wert liest
func Float(key string, defaultValue float64) func() float64 {
	return func() float64 {
		if s := Var(key); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return f
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"APHRODITE_DEBUG":                  {"APHRODITE_DEBUG", LogLevel(), "Show additional debug information (e.g. APHRODITE_DEBUG=1)"},
		"APHRODITE_DTYPE":                  {"APHRODITE_DTYPE", DType(), "Numeric type of the loaded parameters (default: f16)"},
		"APHRODITE_DEVICE":                 {"APHRODITE_DEVICE", Device(), "Device to load the model on (default: cpu)"},
		"APHRODITE_DEVICE_MEMORY":          {"APHRODITE_DEVICE_MEMORY", DeviceMemory(), "Total accelerator memory, 0 for host-only execution"},
		"APHRODITE_GPU_MEMORY_UTILIZATION": {"APHRODITE_GPU_MEMORY_UTILIZATION", GPUMemoryUtilization(), "Fraction of device memory for model and KV cache (default: 0.9)"},
		"APHRODITE_BLOCK_SIZE":             {"APHRODITE_BLOCK_SIZE", BlockSize(), "Tokens per KV cache block (default: 16)"},
		"APHRODITE_MAX_NUM_BATCHED_TOKENS": {"APHRODITE_MAX_NUM_BATCHED_TOKENS", MaxBatchedTokens(), "Tokens in the profiling batch (default: 2048)"},
		"APHRODITE_MAX_NUM_SEQS":           {"APHRODITE_MAX_NUM_SEQS", MaxSequences(), "Sequences in the profiling batch (default: 64)"},
		"APHRODITE_PROFILE_STEP":           {"APHRODITE_PROFILE_STEP", ProfileStep(), "Profiling step number"},
		"APHRODITE_NOPROGRESS":             {"APHRODITE_NOPROGRESS", NoProgress(), "Do not show a progress bar while loading"},
		"HF_HUB_CACHE":                     {"HF_HUB_CACHE", HubCache(), "Hugging Face hub cache directory"},
		"HF_HOME":                          {"HF_HOME", HFHome(), "Hugging Face home directory"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
