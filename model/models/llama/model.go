// Modul: model.go
// Beschreibung: Llama Modell-Definition und Vorwaertsdurchlauf
// Hauptstrukturen:
//   - Model: Hauptstruktur des Llama-Modells
//   - New: Erstellt ein Modell mit leeren Parametern
//   - Forward: Fuehrt den Vorwaertsdurchlauf des gesamten Modells durch

package llama

import (
	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/ml/nn"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/input"
)

// Model repraesentiert das vollstaendige Llama-Modell
type Model struct {
	TokenEmbedding *nn.Embedding `weight:"model.embed_tokens"`
	Layers         []Layer       `weight:"model.layers"`
	OutputNorm     *nn.RMSNorm   `weight:"model.norm"`
	Output         *nn.Linear    `weight:"lm_head"`

	config *Config
	dev    ml.Device
	rotary *nn.Rotary
}

// Layer ist ein Decoder-Block
type Layer struct {
	AttentionNorm *nn.RMSNorm    `weight:"input_layernorm"`
	SelfAttention *SelfAttention `weight:"self_attn"`
	MLPNorm       *nn.RMSNorm    `weight:"post_attention_layernorm"`
	MLP           *MLP           `weight:"mlp"`
}

type SelfAttention struct {
	Query  *nn.Linear `weight:"q_proj"`
	Key    *nn.Linear `weight:"k_proj"`
	Value  *nn.Linear `weight:"v_proj"`
	Output *nn.Linear `weight:"o_proj"`
}

type MLP struct {
	Gate *nn.Linear `weight:"gate_proj"`
	Up   *nn.Linear `weight:"up_proj"`
	Down *nn.Linear `weight:"down_proj"`
}

// New erstellt ein Llama-Modell mit leeren Parametern auf dev
func New(c *Config, cfg *model.Config, dev ml.Device) *Model {
	a := model.NewAllocator(dev, cfg.DType)
	hidden, kv := c.HiddenSize, c.NumKeyValueHeads*c.HeadDimension
	linear := func(out, in int) *nn.Linear { return &nn.Linear{Weight: a.Tensor(out, in)} }

	m := &Model{
		TokenEmbedding: &nn.Embedding{Weight: a.Tensor(c.VocabSizeField, hidden)},
		Layers:         make([]Layer, c.NumHiddenLayers),
		OutputNorm:     &nn.RMSNorm{Weight: a.Tensor(hidden)},
		config:         c,
		dev:            dev,
	}

	for i := range m.Layers {
		m.Layers[i] = Layer{
			AttentionNorm: &nn.RMSNorm{Weight: a.Tensor(hidden)},
			SelfAttention: &SelfAttention{
				Query:  linear(c.NumAttentionHeads*c.HeadDimension, hidden),
				Key:    linear(kv, hidden),
				Value:  linear(kv, hidden),
				Output: linear(hidden, c.NumAttentionHeads*c.HeadDimension),
			},
			MLPNorm: &nn.RMSNorm{Weight: a.Tensor(hidden)},
			MLP: &MLP{
				Gate: linear(c.IntermediateSize, hidden),
				Up:   linear(c.IntermediateSize, hidden),
				Down: linear(hidden, c.IntermediateSize),
			},
		}
	}

	if !c.TieWordEmbeddings {
		m.Output = linear(c.VocabSizeField, hidden)
	}
	return m
}

func (m *Model) Parameters() *model.ParameterTable {
	return model.Collect(m)
}

// Finalize berechnet die Rotationstabellen und bindet bei geteilten
// Embeddings die Ausgabeschicht an die Token-Embeddings
func (m *Model) Finalize() error {
	m.rotary = nn.NewRotary(m.dev, m.config.MaxPositionEmbeddings, m.config.HeadDimension, m.config.RopeTheta)
	if m.Output == nil {
		m.Output = &nn.Linear{Weight: m.TokenEmbedding.Weight}
	}
	return nil
}

// Forward fuehrt den Vorwaertsdurchlauf durch und gibt die Logits der
// angeforderten Ausgaben zurueck
func (m *Model) Forward(ctx *ml.Context, batch input.Batch) (*ml.Tensor, error) {
	if m.rotary == nil {
		return nil, model.ErrNotFinalized
	}

	hiddenStates, err := m.TokenEmbedding.Forward(ctx, batch.Inputs)
	if err != nil {
		return nil, err
	}

	for i := range m.Layers {
		hiddenStates = m.Layers[i].Forward(ctx, hiddenStates, batch, m)
	}

	hiddenStates = model.Rows(ctx, hiddenStates, batch.Outputs)
	hiddenStates = m.OutputNorm.Forward(ctx, hiddenStates, m.config.RMSNormEps)
	return m.Output.Forward(ctx, hiddenStates), nil
}

func (l *Layer) Forward(ctx *ml.Context, hiddenStates *ml.Tensor, batch input.Batch, m *Model) *ml.Tensor {
	residual := hiddenStates

	hiddenStates = l.AttentionNorm.Forward(ctx, hiddenStates, m.config.RMSNormEps)
	hiddenStates = l.SelfAttention.Forward(ctx, hiddenStates, batch, m)
	hiddenStates = nn.Add(hiddenStates, residual)
	residual = hiddenStates

	hiddenStates = l.MLPNorm.Forward(ctx, hiddenStates, m.config.RMSNormEps)
	hiddenStates = l.MLP.Forward(ctx, hiddenStates)
	return nn.Add(hiddenStates, residual)
}

func (sa *SelfAttention) Forward(ctx *ml.Context, hiddenStates *ml.Tensor, batch input.Batch, m *Model) *ml.Tensor {
	c := m.config
	q := sa.Query.Forward(ctx, hiddenStates)
	k := sa.Key.Forward(ctx, hiddenStates)
	v := sa.Value.Forward(ctx, hiddenStates)

	m.rotary.Forward(q, batch.Positions, c.HeadDimension)
	m.rotary.Forward(k, batch.Positions, c.HeadDimension)

	attention := nn.Attention(ctx, q, k, v, batch.Sequences, batch.Positions, c.NumAttentionHeads, c.NumKeyValueHeads, c.HeadDimension)
	return sa.Output.Forward(ctx, attention)
}

func (mlp *MLP) Forward(ctx *ml.Context, hiddenStates *ml.Tensor) *ml.Tensor {
	gate := nn.SILU(mlp.Gate.Forward(ctx, hiddenStates))
	up := mlp.Up.Forward(ctx, hiddenStates)
	return mlp.Down.Forward(ctx, nn.Mul(gate, up))
}
