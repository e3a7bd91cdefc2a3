// config.go - Haupt-Konfigurationsfunktionen fuer den Loader
//
// Dieses Modul enthaelt:
// - LogLevel: Gibt Log-Level zurueck (APHRODITE_DEBUG)
// - DType: Gibt den Ziel-Datentyp zurueck (APHRODITE_DTYPE)
// - Device: Gibt das Zielgeraet zurueck (APHRODITE_DEVICE)
// - DeviceMemory: Gibt den Geraetespeicher zurueck (APHRODITE_DEVICE_MEMORY)
// - GPUMemoryUtilization: Gibt den nutzbaren Speicheranteil zurueck
// - Var: Liest eine Environment-Variable
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Feature-Flags und Cache-Variablen
// - config_utils.go: Utility-Funktionen und AsMap/Values
// - file.go: Defaults aus YAML/TOML-Datei
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/EchoCog/aphroditecho/format"
)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via APHRODITE_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("APHRODITE_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// DType gibt den Ziel-Datentyp der Parameter zurueck
// Konfigurierbar via APHRODITE_DTYPE
// Default: f16
func DType() string {
	if s := Var("APHRODITE_DTYPE"); s != "" {
		return strings.ToLower(s)
	}
	return "f16"
}

// Device gibt das Zielgeraet zurueck
// Konfigurierbar via APHRODITE_DEVICE (cpu, cuda, cuda:N, gpu, metal)
// Default: cpu
func Device() string {
	if s := Var("APHRODITE_DEVICE"); s != "" {
		return strings.ToLower(s)
	}
	return "cpu"
}

// DeviceMemory gibt den Gesamtspeicher des Beschleunigers in Bytes zurueck
// Konfigurierbar via APHRODITE_DEVICE_MEMORY (z.B. "24GiB" oder Bytes)
// 0 bedeutet: kein Beschleuniger vorhanden
func DeviceMemory() uint64 {
	s := Var("APHRODITE_DEVICE_MEMORY")
	if s == "" {
		return 0
	}

	n, err := format.ParseBytes(s)
	if err != nil {
		slog.Warn("invalid device memory, ignoring", "value", s, "error", err)
		return 0
	}
	return n
}

// GPUMemoryUtilization gibt den Anteil des Geraetespeichers zurueck,
// den Modell, Aktivierungen und KV-Cache zusammen belegen duerfen
// Konfigurierbar via APHRODITE_GPU_MEMORY_UTILIZATION (0 < f <= 1)
// Default: 0.9
func GPUMemoryUtilization() float64 {
	return Float("APHRODITE_GPU_MEMORY_UTILIZATION", 0.9)()
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
