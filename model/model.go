// Package model - Model-Interface und gemeinsame Typen
//
// Dieses Paket definiert das Model-Interface, die Modellkonfiguration und
// die Parametertabelle.
//
// Hauptkomponenten:
// - Model: Interface fuer alle Modell-Architekturen
// - Config/LoadConfig: Abgleich von config.json gegen die Architektur-Schemas
// - ParameterTable: geordnete Abbildung Parametername -> Tensor
// - Collect: sammelt Parameter anhand von weight-Tags ein
package model

import (
	"errors"
	"fmt"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model/input"
)

// Fehler-Definitionen
var (
	ErrUnsupportedModel = errors.New("model not supported")
	ErrEmptyBatch       = errors.New("batch size cannot be less than 1")
	ErrNotFinalized     = errors.New("model used before Finalize")
)

// Model definiert das Interface fuer spezifische Modell-Architekturen
type Model interface {
	// Parameters returns every parameter of the model in declaration order.
	Parameters() *ParameterTable

	// Forward computes the logits of batch.Outputs. Intermediate tensors
	// are allocated through ctx.
	Forward(ctx *ml.Context, batch input.Batch) (*ml.Tensor, error)

	// Finalize is called once after every parameter has been loaded.
	Finalize() error
}

// Forward validates batch and runs the forward pass of m.
func Forward(ctx *ml.Context, m Model, batch input.Batch) (*ml.Tensor, error) {
	if len(batch.Positions) != len(batch.Inputs) || len(batch.Sequences) != len(batch.Inputs) {
		return nil, fmt.Errorf("length of inputs (%v), positions (%v) and seqs (%v) must match", len(batch.Inputs), len(batch.Positions), len(batch.Sequences))
	}

	if len(batch.Inputs) < 1 {
		return nil, ErrEmptyBatch
	}

	for _, o := range batch.Outputs {
		if o < 0 || int(o) >= len(batch.Inputs) {
			return nil, fmt.Errorf("output index %d out of range for %d inputs", o, len(batch.Inputs))
		}
	}

	return m.Forward(ctx, batch)
}

// Allocator creates the zeroed parameters of a model on a device. Floating
// point parameters are created in the configured kind.
type Allocator struct {
	dev   ml.Device
	dtype ml.DType
}

func NewAllocator(dev ml.Device, dtype ml.DType) *Allocator {
	return &Allocator{dev: dev, dtype: dtype}
}

func (a *Allocator) Tensor(shape ...int) *ml.Tensor {
	return a.dev.Alloc(a.dtype, shape...)
}

func (a *Allocator) Device() ml.Device { return a.dev }

// Rows gathers the given rows of the [rows, cols] float32 tensor t.
func Rows(ctx *ml.Context, t *ml.Tensor, rows []int32) *ml.Tensor {
	cols := t.Dim(1)
	src := ml.View[float32](t)
	out := ctx.Empty(ml.DTypeFloat32, len(rows), cols)
	dst := ml.View[float32](out)
	for i, r := range rows {
		copy(dst[i*cols:(i+1)*cols], src[int(r)*cols:(int(r)+1)*cols])
	}
	return out
}
