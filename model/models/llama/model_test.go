package llama

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/input"
)

const tinyConfig = `{
	"architectures": ["LlamaForCausalLM"],
	"hidden_size": 8,
	"intermediate_size": 16,
	"num_hidden_layers": 2,
	"num_attention_heads": 4,
	"num_key_value_heads": 2,
	"vocab_size": 32,
	"rms_norm_eps": 1e-6,
	"max_position_embeddings": 64
}`

func build(t *testing.T, raw string) (*Model, ml.Device) {
	t.Helper()
	arch, err := Parse([]byte(raw))
	require.NoError(t, err)

	dev := ml.NewHostDevice()
	m, err := arch.Build(&model.Config{Arch: arch, DType: ml.DTypeFloat32}, dev)
	require.NoError(t, err)
	return m.(*Model), dev
}

func TestParse(t *testing.T) {
	arch, err := Parse([]byte(tinyConfig))
	require.NoError(t, err)

	assert.Equal(t, "llama", arch.Architecture())
	assert.Equal(t, 2, arch.NumLayers())
	assert.Equal(t, 2, arch.NumKVHeads())
	assert.Equal(t, 2, arch.HeadDim())
	assert.Equal(t, 32, arch.VocabSize())
	assert.Equal(t, 64, arch.MaxSequenceLength())

	c := arch.(*Config)
	assert.EqualValues(t, 10000, c.RopeTheta)

	_, err = Parse([]byte(`{"n_embd": 8, "n_layer": 2, "n_head": 2, "vocab_size": 32, "n_positions": 64}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"hidden_size":8,"intermediate_size":16,"num_hidden_layers":1,"num_attention_heads":3,"num_key_value_heads":2,"vocab_size":4,"rms_norm_eps":1e-5}`))
	assert.Error(t, err)
}

func TestParameters(t *testing.T) {
	m, _ := build(t, tinyConfig)

	names := m.Parameters().Names()
	assert.Len(t, names, 1+2*9+1+1)
	assert.Equal(t, "model.embed_tokens.weight", names[0])
	assert.Contains(t, names, "model.layers.1.self_attn.k_proj.weight")
	assert.Contains(t, names, "model.layers.0.mlp.down_proj.weight")
	assert.Contains(t, names, "model.layers.1.post_attention_layernorm.weight")
	assert.Equal(t, "model.norm.weight", names[len(names)-2])
	assert.Equal(t, "lm_head.weight", names[len(names)-1])

	k, ok := m.Parameters().Get("model.layers.0.self_attn.k_proj.weight")
	require.True(t, ok)
	assert.Equal(t, []int{4, 8}, k.Shape())
}

func TestTiedEmbeddings(t *testing.T) {
	raw := `{"hidden_size":8,"intermediate_size":16,"num_hidden_layers":1,"num_attention_heads":2,
		"vocab_size":32,"rms_norm_eps":1e-6,"tie_word_embeddings":true}`
	m, _ := build(t, raw)

	assert.NotContains(t, m.Parameters().Names(), "lm_head.weight")
	require.NoError(t, m.Finalize())
	assert.Same(t, m.TokenEmbedding.Weight, m.Output.Weight)
}

func TestForward(t *testing.T) {
	m, dev := build(t, tinyConfig)
	m.Parameters().Each(func(_ string, tt *ml.Tensor) {
		values := make([]float32, tt.Elements())
		for i := range values {
			values[i] = float32(i%7) * 0.01
		}
		require.NoError(t, tt.FromFloats(values))
	})

	ctx := ml.NewContext(dev)
	_, err := m.Forward(ctx, input.ProfileBatch(4, 2))
	assert.ErrorIs(t, err, model.ErrNotFinalized)

	require.NoError(t, m.Finalize())
	before := dev.Allocated()

	logits, err := model.Forward(ctx, m, input.ProfileBatch(6, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 32}, logits.Shape())
	for _, v := range logits.Floats() {
		assert.False(t, math.IsNaN(float64(v)), "NaN in logits")
	}

	ctx.Close()
	assert.Equal(t, before, dev.Allocated())
}
