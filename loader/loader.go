// Package loader - Laden der Gewichte aus safetensors-Shards
//
// Dieses Paket enthaelt:
// - Load: baut das Modell, fuellt jeden Parameter aus den Shards und
//   ruft einmalig Finalize auf
// - ShapeMismatchError, MissingParametersError: typisierte Ladefehler
//
// Es ist immer genau eine Datei gemappt. Sie wird geschlossen, bevor die
// naechste geoeffnet wird.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/EchoCog/aphroditecho/envconfig"
	"github.com/EchoCog/aphroditecho/format"
	"github.com/EchoCog/aphroditecho/fs/safetensors"
	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/progress"
)

// ShapeMismatchError is returned when a stored tensor and its parameter
// disagree on the number of elements.
type ShapeMismatchError struct {
	Name   string
	File   string
	Stored []int
	Want   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("tensor %s in %s has shape %v, parameter has shape %v", e.Name, e.File, e.Stored, e.Want)
}

// MissingParametersError lists the parameters no shard provided, in
// declaration order.
type MissingParametersError struct {
	Names []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("%d parameter(s) not found in model files: %s", len(e.Names), strings.Join(e.Names, ", "))
}

type options struct {
	progress func(total int) progress.Indicator
}

type Option func(*options)

// WithProgress replaces the default progress indicator.
func WithProgress(fn func(total int) progress.Indicator) Option {
	return func(o *options) { o.progress = fn }
}

// WithProgressWriter draws the default indicator on w.
func WithProgressWriter(w io.Writer) Option {
	return func(o *options) {
		o.progress = func(total int) progress.Indicator {
			return progress.New(w, "loading weights", total, envconfig.NoProgress())
		}
	}
}

// Load builds the model described by cfg on dev and fills its parameters
// from filenames, in order.
func Load(cfg *model.Config, dev ml.Device, filenames []string, opts ...Option) (model.Model, error) {
	o := options{}
	WithProgressWriter(os.Stderr)(&o)
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	ml.LogMemory(dev, "initial")

	m, err := cfg.Arch.Build(cfg, dev)
	if err != nil {
		return nil, fmt.Errorf("building %s model: %w", cfg.Schema, err)
	}

	table := m.Parameters()
	table.SetKind(dev, cfg.DType)
	slog.Debug("model parameters", "count", table.Len(), "size", format.HumanBytes2(table.Size()))

	// the first declared parameter is dumped at debug level once loaded
	var sample string
	if names := table.Names(); len(names) > 0 {
		sample = names[0]
	}
	sampleTensor, _ := table.Get(sample)

	bar := o.progress(table.Len())
	defer bar.Close()

	for _, filename := range filenames {
		if err := loadFile(filename, table, bar); err != nil {
			return nil, err
		}
	}

	if table.Len() > 0 {
		return nil, &MissingParametersError{Names: table.Names()}
	}

	if err := m.Finalize(); err != nil {
		return nil, fmt.Errorf("finalizing model: %w", err)
	}

	ml.LogMemory(dev, "model fully loaded")
	if sampleTensor != nil && slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("sample parameter", "name", sample, "dtype", sampleTensor.DType(),
			"values", ml.Dump(sampleTensor, ml.DumpWithThreshold(16), ml.DumpWithEdgeItems(2)))
	}
	slog.Info("model loaded", "model", cfg.ID, "shards", len(filenames), "elapsed", time.Since(start).Round(time.Millisecond))
	return m, nil
}

func loadFile(filename string, table *model.ParameterTable, bar progress.Indicator) error {
	f, err := safetensors.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	slog.Debug("loading shard", "file", filename, "tensors", f.Len(), "metadata", f.Metadata())
	for _, info := range f.Tensors() {
		if _, ok := table.Get(info.Name); !ok {
			unexpected(info.Name, table)
			continue
		}

		view, err := f.View(info.Name)
		if err != nil {
			return err
		}

		// maps the stored tag, panicking on kinds the runtime does not know
		_ = view.DType()
		dst, _ := table.Get(info.Name)
		if view.Elements() != dst.Elements() {
			return &ShapeMismatchError{Name: info.Name, File: filename, Stored: view.Shape(), Want: dst.Shape()}
		}

		table.Take(info.Name)
		if err := view.CopyTo(dst); err != nil {
			return fmt.Errorf("converting %s: %w", info.Name, err)
		}
		bar.Add(1)
	}

	return f.Close()
}

// unexpected reports a stored tensor the model does not declare. Rotary
// frequency buffers are recomputed by the model and skipped silently.
func unexpected(name string, table *model.ParameterTable) {
	if strings.HasSuffix(name, ".inv_freq") {
		return
	}

	args := []any{"name", name}
	if hint, ok := closest(name, table.Names()); ok {
		args = append(args, "closest", hint)
	}
	slog.Warn("skipping tensor not used by the model", args...)
}

// closest returns the candidate nearest to name if it is within a third of
// the length of name.
func closest(name string, candidates []string) (string, bool) {
	best, score := "", len(name)/3+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < score {
			best, score = c, d
		}
	}
	return best, best != ""
}
