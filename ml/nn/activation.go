// activation.go - Aktivierungsfunktionen und elementweise Operationen
// Alle Funktionen arbeiten in-place auf float32-Tensoren.
package nn

import (
	"math"

	"github.com/EchoCog/aphroditecho/ml"
)

// SILU applies x·sigmoid(x).
func SILU(x *ml.Tensor) *ml.Tensor {
	xs := ml.View[float32](x)
	for i, v := range xs {
		xs[i] = v / (1 + float32(math.Exp(-float64(v))))
	}
	return x
}

// GELU applies the tanh approximation of the Gaussian error linear unit.
func GELU(x *ml.Tensor) *ml.Tensor {
	const c = 0.7978845608028654 // sqrt(2/pi)
	xs := ml.View[float32](x)
	for i, v := range xs {
		f := float64(v)
		xs[i] = float32(0.5 * f * (1 + math.Tanh(c*(f+0.044715*f*f*f))))
	}
	return x
}

// Mul multiplies a by b elementwise.
func Mul(a, b *ml.Tensor) *ml.Tensor {
	as, bs := ml.View[float32](a), ml.View[float32](b)
	for i := range as {
		as[i] *= bs[i]
	}
	return a
}

// Add adds b to a elementwise.
func Add(a, b *ml.Tensor) *ml.Tensor {
	as, bs := ml.View[float32](a), ml.View[float32](b)
	for i := range as {
		as[i] += bs[i]
	}
	return a
}
