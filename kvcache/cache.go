// Package kvcache - Groesse und Layout des Key/Value-Caches
//
// Dieses Paket enthaelt:
// - CacheSize: Anzahl Cache-Bloecke auf dem Geraet und im Host-Speicher
// - BlockBytes: Bytes eines Cache-Blocks fuer eine Modellkonfiguration
// - Layout: austauschbare Berechnung der Blockgroesse
package kvcache

import (
	"fmt"
	"log/slog"

	"github.com/EchoCog/aphroditecho/model"
)

// CacheSize is the number of cache blocks the engine may allocate. It is
// computed once at startup and not changed afterwards.
type CacheSize struct {
	Device int `json:"device"`
	Host   int `json:"host"`
}

func (c CacheSize) String() string {
	return fmt.Sprintf("device=%d host=%d", c.Device, c.Host)
}

func (c CacheSize) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("device", c.Device),
		slog.Int("host", c.Host),
	)
}

// Layout returns the size in bytes of one cache block for cfg.
type Layout func(cfg *model.Config) int64

// BlockBytes is the default Layout: one key and one value vector per layer,
// key/value head and token of a block, stored in the model's dtype.
func BlockBytes(cfg *model.Config) int64 {
	return 2 *
		int64(cfg.Arch.NumLayers()) *
		int64(cfg.Arch.NumKVHeads()) *
		int64(cfg.Arch.HeadDim()) *
		int64(cfg.Cache.BlockSize) *
		int64(cfg.DType.Size())
}

// TokenBytes returns the cache bytes needed per token.
func TokenBytes(cfg *model.Config, layout Layout) float64 {
	return float64(layout(cfg)) / float64(cfg.Cache.BlockSize)
}
