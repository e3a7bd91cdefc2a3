// rope.go - Rotary Position Embeddings
// Dieses Modul enthaelt die Berechnung der Rotationstabellen und deren
// Anwendung im NeoX-Stil (erste und zweite Haelfte der Rotationsdimension).
package nn

import (
	"math"

	"github.com/EchoCog/aphroditecho/ml"
)

// Rotary holds precomputed cos/sin tables of shape [positions, dim/2].
type Rotary struct {
	Dim      int
	Cos, Sin *ml.Tensor
}

// NewRotary allocates rotary tables on dev for positions [0, maxPositions).
func NewRotary(dev ml.Device, maxPositions, dim int, base float32) *Rotary {
	half := dim / 2
	r := &Rotary{
		Dim: dim,
		Cos: dev.Alloc(ml.DTypeFloat32, maxPositions, half),
		Sin: dev.Alloc(ml.DTypeFloat32, maxPositions, half),
	}

	cos, sin := ml.View[float32](r.Cos), ml.View[float32](r.Sin)
	for i := range half {
		invFreq := 1 / math.Pow(float64(base), float64(2*i)/float64(dim))
		for p := range maxPositions {
			angle := float64(p) * invFreq
			cos[p*half+i] = float32(math.Cos(angle))
			sin[p*half+i] = float32(math.Sin(angle))
		}
	}
	return r
}

// Forward rotates the first r.Dim features of every head of x in place.
// x has shape [tokens, heads*headDim].
func (r *Rotary) Forward(x *ml.Tensor, positions []int32, headDim int) *ml.Tensor {
	half := r.Dim / 2
	maxPositions := r.Cos.Dim(0)
	cos, sin := ml.View[float32](r.Cos), ml.View[float32](r.Sin)
	xs := ml.View[float32](x)
	width := x.Dim(1)

	for t, pos := range positions {
		p := min(int(pos), maxPositions-1)
		for h := 0; h < width; h += headDim {
			head := xs[t*width+h : t*width+h+headDim]
			for i := range half {
				c, s := cos[p*half+i], sin[p*half+i]
				x0, x1 := head[i], head[i+half]
				head[i] = x0*c - x1*s
				head[i+half] = x1*c + x0*s
			}
		}
	}
	return x
}
