// Package llm - Profiling des Speicherbedarfs und Groesse des KV-Caches
//
// Funktionen:
// - Profile/ProfileCache: misst den Spitzenverbrauch eines maximalen
//   Batches und leitet daraus die Anzahl der Cache-Bloecke ab
// - CacheCapacity: reine Arithmetik von Budget zu Bloecken
// - InsufficientMemoryError: Modell und Aktivierungen passen nicht ins Budget
package llm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/EchoCog/aphroditecho/format"
	"github.com/EchoCog/aphroditecho/kvcache"
	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/input"
)

const (
	// NoAcceleratorBudget is the cache budget when the device reports no
	// memory of its own.
	NoAcceleratorBudget = 512 * format.MebiByte

	// MaxHostBudget caps the host (swap) cache.
	MaxHostBudget = 2 * format.GibiByte
)

var errBlockBytes = errors.New("cache block size must be positive")

// InsufficientMemoryError is returned when the peak usage of the profiling
// pass exceeds the usable fraction of device memory.
type InsufficientMemoryError struct {
	Total    uint64
	Fraction float64
	Peak     uint64
}

func (e *InsufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient device memory: peak usage %s exceeds %.0f%% of %s",
		format.HumanBytes2(e.Peak), e.Fraction*100, format.HumanBytes2(e.Total))
}

// ProfileOptions configures the profiler.
type ProfileOptions struct {
	// Layout computes the bytes of one cache block. Defaults to
	// kvcache.BlockBytes.
	Layout kvcache.Layout
}

// Capacity is the outcome of profiling.
type Capacity struct {
	Peak         uint64
	DeviceBudget int64
	HostBudget   int64
	BlockBytes   int64
	Blocks       kvcache.CacheSize
}

// CacheCapacity converts the usable memory floor(total*fraction) minus peak
// into device and host block counts.
func CacheCapacity(total uint64, fraction float64, peak uint64, blockBytes int64) (Capacity, error) {
	usable := int64(math.Floor(float64(total) * fraction))
	remaining := usable - int64(peak)
	if remaining < 0 {
		return Capacity{}, &InsufficientMemoryError{Total: total, Fraction: fraction, Peak: peak}
	}

	c, err := capacityFor(remaining, blockBytes)
	c.Peak = peak
	return c, err
}

func capacityFor(budget, blockBytes int64) (Capacity, error) {
	if blockBytes <= 0 {
		return Capacity{}, errBlockBytes
	}

	host := min(MaxHostBudget, budget)
	return Capacity{
		DeviceBudget: budget,
		HostBudget:   host,
		BlockBytes:   blockBytes,
		Blocks: kvcache.CacheSize{
			Device: int(budget / blockBytes),
			Host:   int(host / blockBytes),
		},
	}, nil
}

// ProfileCache returns the number of cache blocks for m on dev.
func ProfileCache(cfg *model.Config, m model.Model, dev ml.Device, opts ProfileOptions) (kvcache.CacheSize, error) {
	c, err := Profile(cfg, m, dev, opts)
	if err != nil {
		return kvcache.CacheSize{}, err
	}
	return c.Blocks, nil
}

// Profile runs one forward pass over the largest configured batch and
// derives the cache capacity from the peak memory it used. Devices without
// memory of their own are not profiled and get NoAcceleratorBudget.
func Profile(cfg *model.Config, m model.Model, dev ml.Device, opts ProfileOptions) (*Capacity, error) {
	layout := opts.Layout
	if layout == nil {
		layout = kvcache.BlockBytes
	}
	blockBytes := layout(cfg)

	info := dev.Info()
	var (
		c   Capacity
		err error
	)
	if !info.Accelerator() {
		slog.Debug("no accelerator memory, skipping profiling", "device", info)
		c, err = capacityFor(NoAcceleratorBudget, blockBytes)
	} else {
		var peak uint64
		peak, err = peakUsage(cfg, m, dev)
		if err != nil {
			return nil, err
		}
		c, err = CacheCapacity(info.TotalMemory, cfg.Cache.GPUMemoryUtilization, peak, blockBytes)
	}
	if err != nil {
		return nil, err
	}

	logCapacity(cfg, &c)
	return &c, nil
}

// peakUsage returns the peak allocation of dev while running the profiling
// batch. The output is discarded.
func peakUsage(cfg *model.Config, m model.Model, dev ml.Device) (uint64, error) {
	batch := input.ProfileBatch(cfg.Cache.MaxBatchedTokens, cfg.Cache.MaxSequences)
	slog.Debug("profiling", "tokens", batch.Len(), "sequences", len(batch.Outputs), "step", cfg.ProfileStepNo)

	dev.ResetPeak()
	ctx := ml.NewContext(dev)
	_, err := model.Forward(ctx, m, batch)
	ctx.Close()
	if err != nil {
		return 0, fmt.Errorf("profiling forward pass: %w", err)
	}

	peak := dev.PeakAllocated()
	ml.LogMemory(dev, "after profiling")
	return peak, nil
}

func logCapacity(cfg *model.Config, c *Capacity) {
	blockSize := cfg.Cache.BlockSize
	slog.Info("cache capacity",
		"device", fmt.Sprintf("%.2f GiB", gib(c.DeviceBudget)),
		"host", fmt.Sprintf("%.2f GiB", gib(c.HostBudget)),
		"device_blocks", c.Blocks.Device,
		"host_blocks", c.Blocks.Host,
		"device_tokens", c.Blocks.Device*blockSize,
		"host_tokens", c.Blocks.Host*blockSize,
		"kib_per_token", fmt.Sprintf("%.2f", float64(c.BlockBytes)/float64(blockSize)/format.KibiByte))
}

func gib(n int64) float64 {
	return float64(n) / format.GibiByte
}
