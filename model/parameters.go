// parameters.go - Parametertabelle
// Die ParameterTable bildet voll qualifizierte Parameternamen auf die
// Tensoren eines Modells ab und behaelt dabei die Deklarationsreihenfolge.
// Der Loader entfernt Eintraege, sobald sie befuellt sind.
package model

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/EchoCog/aphroditecho/ml"
)

type ParameterTable struct {
	m *orderedmap.OrderedMap[string, *ml.Tensor]
}

func NewParameterTable() *ParameterTable {
	return &ParameterTable{m: orderedmap.New[string, *ml.Tensor]()}
}

// Set declares a parameter. Declaring a name twice panics.
func (t *ParameterTable) Set(name string, tensor *ml.Tensor) {
	if _, present := t.m.Set(name, tensor); present {
		panic(fmt.Sprintf("model: parameter %s declared twice", name))
	}
}

func (t *ParameterTable) Get(name string) (*ml.Tensor, bool) {
	return t.m.Get(name)
}

// Take removes name from the table and returns its tensor.
func (t *ParameterTable) Take(name string) (*ml.Tensor, bool) {
	return t.m.Delete(name)
}

func (t *ParameterTable) Len() int {
	return t.m.Len()
}

// Names returns the remaining names in declaration order.
func (t *ParameterTable) Names() []string {
	names := make([]string, 0, t.m.Len())
	for pair := t.m.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Each calls fn for every remaining parameter in declaration order.
func (t *ParameterTable) Each(fn func(name string, tensor *ml.Tensor)) {
	for pair := t.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// SetKind retypes every floating point parameter to kind. Integer and
// boolean buffers keep their kind.
func (t *ParameterTable) SetKind(dev ml.Device, kind ml.DType) {
	t.Each(func(_ string, tensor *ml.Tensor) {
		if tensor.DType().IsFloat() {
			dev.Cast(tensor, kind)
		}
	})
}

// Size returns the number of bytes held by the remaining parameters.
func (t *ParameterTable) Size() uint64 {
	var size uint64
	t.Each(func(_ string, tensor *ml.Tensor) {
		size += tensor.Size()
	})
	return size
}
