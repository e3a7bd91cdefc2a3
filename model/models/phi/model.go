// Modul: model.go
// Beschreibung: Phi (MixFormer) Modell-Definition und Vorwaertsdurchlauf
// Hauptstrukturen:
//   - Model: Embedding, parallele Bloecke und Kopf
//   - Block: Attention und MLP teilen sich eine LayerNorm
//
// Die Parameter sind unter "layers.N" durchnummeriert: layers.0 ist das
// Embedding, layers.1..n die Bloecke, layers.n+1 der Kopf.

package phi

import (
	"strconv"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/ml/nn"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/input"
)

type Model struct {
	Embedding *Embedding `weight:"layers.0"`
	Blocks    []Block    `weight:"-"`
	Head      *Head      `weight:"-"`

	config *Config
	dev    ml.Device
	rotary *nn.Rotary
}

type Embedding struct {
	Wte *nn.Embedding `weight:"wte"`
}

type Block struct {
	Norm  *nn.LayerNorm `weight:"ln"`
	Mixer *Mixer        `weight:"mixer"`
	MLP   *MLP          `weight:"mlp"`
}

type Mixer struct {
	QKV    *nn.Linear `weight:"Wqkv"`
	Output *nn.Linear `weight:"out_proj"`
}

type MLP struct {
	Up   *nn.Linear `weight:"fc1"`
	Down *nn.Linear `weight:"fc2"`
}

type Head struct {
	Norm   *nn.LayerNorm `weight:"ln"`
	Linear *nn.Linear    `weight:"linear"`
}

func New(c *Config, cfg *model.Config, dev ml.Device) *Model {
	a := model.NewAllocator(dev, cfg.DType)
	linear := func(out, in int) *nn.Linear {
		return &nn.Linear{Weight: a.Tensor(out, in), Bias: a.Tensor(out)}
	}
	layerNorm := func() *nn.LayerNorm {
		return &nn.LayerNorm{Weight: a.Tensor(c.NEmbd), Bias: a.Tensor(c.NEmbd)}
	}

	m := &Model{
		Embedding: &Embedding{Wte: &nn.Embedding{Weight: a.Tensor(c.VocabSizeField, c.NEmbd)}},
		Blocks:    make([]Block, c.NLayer),
		config:    c,
		dev:       dev,
	}
	for i := range m.Blocks {
		m.Blocks[i] = Block{
			Norm: layerNorm(),
			Mixer: &Mixer{
				QKV:    linear(3*c.NEmbd, c.NEmbd),
				Output: linear(c.NEmbd, c.NEmbd),
			},
			MLP: &MLP{
				Up:   linear(c.NInner, c.NEmbd),
				Down: linear(c.NEmbd, c.NInner),
			},
		}
	}
	m.Head = &Head{Norm: layerNorm(), Linear: linear(c.VocabSizeField, c.NEmbd)}
	return m
}

// Parameters nummeriert Bloecke und Kopf fortlaufend hinter dem Embedding
func (m *Model) Parameters() *model.ParameterTable {
	table := model.Collect(m)
	add := func(layer int, v any) {
		prefix := "layers." + strconv.Itoa(layer) + "."
		model.Collect(v).Each(func(name string, t *ml.Tensor) {
			table.Set(prefix+name, t)
		})
	}
	for i := range m.Blocks {
		add(i+1, &m.Blocks[i])
	}
	add(len(m.Blocks)+1, m.Head)
	return table
}

func (m *Model) Finalize() error {
	m.rotary = nn.NewRotary(m.dev, m.config.NPositions, m.config.RotaryDim, 10000)
	return nil
}

func (m *Model) Forward(ctx *ml.Context, batch input.Batch) (*ml.Tensor, error) {
	if m.rotary == nil {
		return nil, model.ErrNotFinalized
	}

	hiddenStates, err := m.Embedding.Wte.Forward(ctx, batch.Inputs)
	if err != nil {
		return nil, err
	}

	for i := range m.Blocks {
		hiddenStates = m.Blocks[i].Forward(ctx, hiddenStates, batch, m)
	}

	hiddenStates = model.Rows(ctx, hiddenStates, batch.Outputs)
	hiddenStates = m.Head.Norm.Forward(ctx, hiddenStates, m.config.LayerNormEpsilon)
	return m.Head.Linear.Forward(ctx, hiddenStates), nil
}

// Forward berechnet x + attn(ln(x)) + mlp(ln(x))
func (b *Block) Forward(ctx *ml.Context, hiddenStates *ml.Tensor, batch input.Batch, m *Model) *ml.Tensor {
	c := m.config
	normed := b.Norm.Forward(ctx, hiddenStates, c.LayerNormEpsilon)

	attention := b.Mixer.Forward(ctx, normed, batch, m)
	ff := b.MLP.Up.Forward(ctx, normed)
	ff = b.MLP.Down.Forward(ctx, nn.GELU(ff))

	return nn.Add(nn.Add(attention, ff), hiddenStates)
}

func (mx *Mixer) Forward(ctx *ml.Context, hiddenStates *ml.Tensor, batch input.Batch, m *Model) *ml.Tensor {
	c := m.config
	n, width := hiddenStates.Dim(0), c.NEmbd
	headDim := width / c.NHead

	qkv := ml.View[float32](mx.QKV.Forward(ctx, hiddenStates))
	q := ctx.Empty(ml.DTypeFloat32, n, width)
	k := ctx.Empty(ml.DTypeFloat32, n, width)
	v := ctx.Empty(ml.DTypeFloat32, n, width)
	qs, ks, vs := ml.View[float32](q), ml.View[float32](k), ml.View[float32](v)
	for t := range n {
		row := qkv[t*3*width : (t+1)*3*width]
		copy(qs[t*width:(t+1)*width], row[:width])
		copy(ks[t*width:(t+1)*width], row[width:2*width])
		copy(vs[t*width:(t+1)*width], row[2*width:])
	}

	m.rotary.Forward(q, batch.Positions, headDim)
	m.rotary.Forward(k, batch.Positions, headDim)

	attention := nn.Attention(ctx, q, k, v, batch.Sequences, batch.Positions, c.NHead, c.NHead, headDim)
	return mx.Output.Forward(ctx, attention)
}
