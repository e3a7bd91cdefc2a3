// linear.go - Lineare Schichten und Embeddings
// Dieses Modul enthaelt Linear und Embedding. Aktivierungen sind immer
// float32 mit der Form [tokens, features]; Gewichte duerfen in jedem
// Gleitkommatyp vorliegen und werden fuer die Multiplikation nach float32
// konvertiert.
package nn

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/EchoCog/aphroditecho/ml"
)

// Linear computes x·Wᵀ + b with W of shape [out, in].
type Linear struct {
	Weight *ml.Tensor `weight:"weight"`
	Bias   *ml.Tensor `weight:"bias"`
}

func (l *Linear) Forward(ctx *ml.Context, x *ml.Tensor) *ml.Tensor {
	out, in := l.Weight.Dim(0), l.Weight.Dim(1)
	n := x.Dim(0)
	if x.Dim(1) != in {
		panic(fmt.Sprintf("nn: linear input %v does not match weight %v", x.Shape(), l.Weight.Shape()))
	}

	y := ctx.Empty(ml.DTypeFloat32, n, out)
	ys := ml.View[float32](y)
	if l.Bias != nil {
		bias := Float32s(ctx, l.Bias)
		for i := range n {
			copy(ys[i*out:(i+1)*out], bias)
		}
	}

	blas32.Gemm(blas.NoTrans, blas.Trans, 1,
		blas32.General{Rows: n, Cols: in, Stride: in, Data: ml.View[float32](x)},
		blas32.General{Rows: out, Cols: in, Stride: in, Data: Float32s(ctx, l.Weight)},
		1,
		blas32.General{Rows: n, Cols: out, Stride: out, Data: ys},
	)
	return y
}

// Embedding looks up rows of a [vocab, hidden] table.
type Embedding struct {
	Weight *ml.Tensor `weight:"weight"`
}

func (e *Embedding) Forward(ctx *ml.Context, ids []int32) (*ml.Tensor, error) {
	vocab, hidden := e.Weight.Dim(0), e.Weight.Dim(1)
	dtype := e.Weight.DType()
	row := hidden * dtype.Size()
	src := e.Weight.Bytes()

	y := ctx.Empty(ml.DTypeFloat32, len(ids), hidden)
	dst := y.Bytes()
	for i, id := range ids {
		if id < 0 || int(id) >= vocab {
			return nil, fmt.Errorf("nn: token id %d out of range for vocabulary of %d", id, vocab)
		}
		if err := ml.Convert(dst[i*hidden*4:(i+1)*hidden*4], ml.DTypeFloat32, src[int(id)*row:(int(id)+1)*row], dtype); err != nil {
			return nil, err
		}
	}
	return y, nil
}

// Float32s returns the contents of t as float32. Non float32 tensors are
// converted into a temporary owned by ctx.
func Float32s(ctx *ml.Context, t *ml.Tensor) []float32 {
	if t.DType() == ml.DTypeFloat32 {
		return ml.View[float32](t)
	}
	tmp := ctx.Empty(ml.DTypeFloat32, t.Shape()...)
	if err := ml.Convert(tmp.Bytes(), ml.DTypeFloat32, t.Bytes(), t.DType()); err != nil {
		panic(err)
	}
	return ml.View[float32](tmp)
}
