package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/ml/nn"
)

type testLayer struct {
	Norm  *nn.RMSNorm `weight:"input_layernorm"`
	Proj  *nn.Linear  `weight:"self_attn.q_proj"`
	Cache *ml.Tensor
}

type testModel struct {
	Embed  *nn.Embedding `weight:"model.embed_tokens"`
	Layers []testLayer   `weight:"model.layers"`
	Mask   *ml.Tensor    `weight:"mask,suf:_unused"`
	Skip   *ml.Tensor    `weight:"-"`
	Output *nn.Linear    `weight:"lm_head"`
	hidden *ml.Tensor
}

func TestCollect(t *testing.T) {
	dev := ml.NewHostDevice()
	a := NewAllocator(dev, ml.DTypeFloat32)

	m := &testModel{
		Embed: &nn.Embedding{Weight: a.Tensor(4, 2)},
		Layers: []testLayer{
			{Norm: &nn.RMSNorm{Weight: a.Tensor(2)}, Proj: &nn.Linear{Weight: a.Tensor(2, 2), Bias: a.Tensor(2)}, Cache: a.Tensor(1)},
			{Norm: &nn.RMSNorm{Weight: a.Tensor(2)}, Proj: &nn.Linear{Weight: a.Tensor(2, 2)}},
		},
		Mask:   dev.Alloc(ml.DTypeBool, 3),
		Skip:   a.Tensor(1),
		Output: &nn.Linear{Weight: a.Tensor(4, 2)},
		hidden: a.Tensor(1),
	}

	table := Collect(m)
	assert.Equal(t, []string{
		"model.embed_tokens.weight",
		"model.layers.0.input_layernorm.weight",
		"model.layers.0.self_attn.q_proj.weight",
		"model.layers.0.self_attn.q_proj.bias",
		"model.layers.1.input_layernorm.weight",
		"model.layers.1.self_attn.q_proj.weight",
		"mask",
		"lm_head.weight",
	}, table.Names())

	w, ok := table.Get("model.layers.1.self_attn.q_proj.weight")
	require.True(t, ok)
	assert.Same(t, m.Layers[1].Proj.Weight, w)
}

func TestParameterTable(t *testing.T) {
	dev := ml.NewHostDevice()
	table := NewParameterTable()
	table.Set("b", dev.Alloc(ml.DTypeFloat32, 4))
	table.Set("a", dev.Alloc(ml.DTypeFloat32, 2, 2))
	table.Set("ids", dev.Alloc(ml.DTypeInt64, 2))

	assert.Panics(t, func() { table.Set("a", ml.NewTensor(ml.DTypeFloat32, 1)) })

	table.SetKind(dev, ml.DTypeBfloat16)
	a, _ := table.Get("a")
	ids, _ := table.Get("ids")
	assert.Equal(t, ml.DTypeBfloat16, a.DType())
	assert.Equal(t, ml.DTypeInt64, ids.DType())
	assert.EqualValues(t, 8+8+16, table.Size())
	assert.EqualValues(t, 32, dev.Allocated())

	taken, ok := table.Take("b")
	require.True(t, ok)
	assert.Equal(t, []int{4}, taken.Shape())
	_, ok = table.Take("b")
	assert.False(t, ok)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"a", "ids"}, table.Names())
}
