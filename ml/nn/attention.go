// attention.go - Kausale Multi-Head-Attention ohne Cache
// Dieses Modul berechnet Attention getrennt pro Sequenz eines Batches.
// Key/Value-Koepfe werden bei Grouped-Query-Attention geteilt.
package nn

import (
	"math"

	"github.com/EchoCog/aphroditecho/ml"
)

// Attention computes causal softmax(q·kᵀ/sqrt(d))·v. q has shape
// [tokens, heads*headDim], k and v [tokens, kvHeads*headDim]. Tokens of
// different sequences never attend to each other; within a sequence, a token
// attends to every token at the same or a lower position.
func Attention(ctx *ml.Context, q, k, v *ml.Tensor, sequences []int, positions []int32, heads, kvHeads, headDim int) *ml.Tensor {
	n := q.Dim(0)
	qs, ks, vs := ml.View[float32](q), ml.View[float32](k), ml.View[float32](v)
	qWidth, kvWidth := heads*headDim, kvHeads*headDim
	group := heads / kvHeads
	scale := float32(1 / math.Sqrt(float64(headDim)))

	out := ctx.Empty(ml.DTypeFloat32, n, qWidth)
	os := ml.View[float32](out)

	bySeq := make(map[int][]int)
	var order []int
	for i, s := range sequences {
		if _, ok := bySeq[s]; !ok {
			order = append(order, s)
		}
		bySeq[s] = append(bySeq[s], i)
	}

	for _, s := range order {
		tokens := bySeq[s]
		scores := ctx.Empty(ml.DTypeFloat32, heads, len(tokens), len(tokens))
		ss := ml.View[float32](scores)

		for h := range heads {
			kvh := h / group
			for a, ta := range tokens {
				row := ss[(h*len(tokens)+a)*len(tokens) : (h*len(tokens)+a+1)*len(tokens)]
				qa := qs[ta*qWidth+h*headDim : ta*qWidth+(h+1)*headDim]

				maxScore := float32(math.Inf(-1))
				for b, tb := range tokens {
					if positions[tb] > positions[ta] {
						row[b] = float32(math.Inf(-1))
						continue
					}
					kb := ks[tb*kvWidth+kvh*headDim : tb*kvWidth+(kvh+1)*headDim]
					var dot float32
					for i := range headDim {
						dot += qa[i] * kb[i]
					}
					row[b] = dot * scale
					maxScore = max(maxScore, row[b])
				}

				var sum float64
				for b := range row {
					e := math.Exp(float64(row[b] - maxScore))
					row[b] = float32(e)
					sum += e
				}

				oa := os[ta*qWidth+h*headDim : ta*qWidth+(h+1)*headDim]
				for b, tb := range tokens {
					w := row[b] / float32(sum)
					if w == 0 {
						continue
					}
					vb := vs[tb*kvWidth+kvh*headDim : tb*kvWidth+(kvh+1)*headDim]
					for i := range headDim {
						oa[i] += w * vb[i]
					}
				}
			}
		}
		ctx.Release(scores)
	}
	return out
}
