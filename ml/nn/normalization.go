// normalization.go - Normalisierungsschichten (RMSNorm, LayerNorm)
package nn

import (
	"math"

	"github.com/EchoCog/aphroditecho/ml"
)

type RMSNorm struct {
	Weight *ml.Tensor `weight:"weight"`
}

func (n *RMSNorm) Forward(ctx *ml.Context, x *ml.Tensor, eps float32) *ml.Tensor {
	rows, cols := x.Dim(0), x.Dim(1)
	w := Float32s(ctx, n.Weight)
	xs := ml.View[float32](x)

	y := ctx.Empty(ml.DTypeFloat32, rows, cols)
	ys := ml.View[float32](y)
	for i := range rows {
		row := xs[i*cols : (i+1)*cols]
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		scale := float32(1 / math.Sqrt(sum/float64(cols)+float64(eps)))
		for j, v := range row {
			ys[i*cols+j] = v * scale * w[j]
		}
	}
	return y
}

type LayerNorm struct {
	Weight *ml.Tensor `weight:"weight"`
	Bias   *ml.Tensor `weight:"bias"`
}

func (n *LayerNorm) Forward(ctx *ml.Context, x *ml.Tensor, eps float32) *ml.Tensor {
	rows, cols := x.Dim(0), x.Dim(1)
	w := Float32s(ctx, n.Weight)
	var b []float32
	if n.Bias != nil {
		b = Float32s(ctx, n.Bias)
	}
	xs := ml.View[float32](x)

	y := ctx.Empty(ml.DTypeFloat32, rows, cols)
	ys := ml.View[float32](y)
	for i := range rows {
		row := xs[i*cols : (i+1)*cols]
		var mean, variance float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(cols)
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		scale := 1 / math.Sqrt(variance/float64(cols)+float64(eps))
		for j, v := range row {
			out := float32((float64(v)-mean)*scale) * w[j]
			if b != nil {
				out += b[j]
			}
			ys[i*cols+j] = out
		}
	}
	return y
}
