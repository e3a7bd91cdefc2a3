package loader

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoCog/aphroditecho/fs/safetensors/safetensorstest"
	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/input"
	"github.com/EchoCog/aphroditecho/progress"
)

// toyArch declares two layers of a 2x2 weight plus an integer step
// counter, and an embedding of 4x2.
type toyArch struct {
	built *toyModel
}

func (a *toyArch) Architecture() string   { return "toy" }
func (a *toyArch) VocabSize() int         { return 4 }
func (a *toyArch) MaxSequenceLength() int { return 8 }
func (a *toyArch) NumLayers() int         { return 2 }
func (a *toyArch) NumKVHeads() int        { return 1 }
func (a *toyArch) HeadDim() int           { return 2 }

func (a *toyArch) Build(cfg *model.Config, dev ml.Device) (model.Model, error) {
	alloc := model.NewAllocator(dev, ml.DTypeFloat32)
	m := &toyModel{Embed: alloc.Tensor(4, 2)}
	for range a.NumLayers() {
		m.Layers = append(m.Layers, toyLayer{W: alloc.Tensor(2, 2), Steps: dev.Alloc(ml.DTypeInt32, 1)})
	}
	a.built = m
	return m, nil
}

type toyLayer struct {
	W     *ml.Tensor `weight:"w"`
	Steps *ml.Tensor `weight:"steps"`
}

type toyModel struct {
	Embed  *ml.Tensor `weight:"embed"`
	Layers []toyLayer `weight:"layers"`

	table     *model.ParameterTable
	finalized int
}

func (m *toyModel) Parameters() *model.ParameterTable {
	if m.table == nil {
		m.table = model.Collect(m)
	}
	return m.table
}

func (m *toyModel) Forward(*ml.Context, input.Batch) (*ml.Tensor, error) { return nil, nil }

func (m *toyModel) Finalize() error {
	m.finalized++
	return nil
}

func toyConfig(arch *toyArch, dtype ml.DType) *model.Config {
	return &model.Config{Meta: model.Meta{ID: "toy"}, Arch: arch, Schema: "toy", DType: dtype}
}

func quiet() Option {
	return WithProgress(func(int) progress.Indicator { return progress.Nop{} })
}

func layer(i int, kind ml.DType, w []float32) []safetensorstest.Tensor {
	p := "layers." + string(rune('0'+i))
	steps := safetensorstest.Floats(p+".steps", ml.DTypeInt64, []float32{float32(10 + i)}, 1)
	return []safetensorstest.Tensor{safetensorstest.Floats(p+".w", kind, w, 2, 2), steps}
}

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoadTwoShards(t *testing.T) {
	logs := captureLogs(t, slog.LevelWarn)
	dir := t.TempDir()

	first := append(layer(0, ml.DTypeBfloat16, []float32{0.5, -1.25, 2, 3}),
		safetensorstest.Floats("layers.0.rotary.inv_freq", ml.DTypeFloat32, []float32{1}, 1))
	second := append(layer(1, ml.DTypeFloat16, []float32{-0.5, 1.5, 8, -4}),
		safetensorstest.Floats("embed", ml.DTypeFloat32, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 4, 2))

	a := filepath.Join(dir, "model-00001-of-00002.safetensors")
	b := filepath.Join(dir, "model-00002-of-00002.safetensors")
	safetensorstest.Write(t, a, first, map[string]string{"format": "pt"})
	safetensorstest.Write(t, b, second, nil)

	for _, dtype := range []ml.DType{ml.DTypeFloat32, ml.DTypeFloat16, ml.DTypeBfloat16} {
		t.Run(dtype.String(), func(t *testing.T) {
			arch := &toyArch{}
			dev := ml.NewHostDevice()
			m, err := Load(toyConfig(arch, dtype), dev, []string{a, b}, quiet())
			require.NoError(t, err)

			toy := m.(*toyModel)
			assert.Equal(t, 1, toy.finalized)
			assert.Equal(t, 0, toy.table.Len())

			assert.Equal(t, dtype, toy.Embed.DType())
			assert.Equal(t, ml.DTypeInt32, toy.Layers[0].Steps.DType())

			if diff := cmp.Diff([]float32{0.5, -1.25, 2, 3}, toy.Layers[0].W.Floats()); diff != "" {
				t.Errorf("layers.0.w (-erwartet +erhalten):\n%s", diff)
			}
			if diff := cmp.Diff([]float32{-0.5, 1.5, 8, -4}, toy.Layers[1].W.Floats()); diff != "" {
				t.Errorf("layers.1.w (-erwartet +erhalten):\n%s", diff)
			}
			if diff := cmp.Diff([]float32{1, 2, 3, 4, 5, 6, 7, 8}, toy.Embed.Floats()); diff != "" {
				t.Errorf("embed (-erwartet +erhalten):\n%s", diff)
			}
			assert.Equal(t, []int32{10}, ml.View[int32](toy.Layers[0].Steps))
			assert.Equal(t, []int32{11}, ml.View[int32](toy.Layers[1].Steps))
		})
	}

	assert.Empty(t, logs.String())
}

func TestLoadSourceBytes(t *testing.T) {
	// with matching kinds the parameter holds the stored bytes unchanged
	dir := t.TempDir()
	tensors := append(layer(0, ml.DTypeFloat16, []float32{1, 2, 3, 4}), layer(1, ml.DTypeFloat16, []float32{5, 6, 7, 8})...)
	embed := safetensorstest.Floats("embed", ml.DTypeFloat16, []float32{1, 1, 2, 2, 3, 3, 4, 4}, 4, 2)
	tensors = append(tensors, embed)
	path := filepath.Join(dir, "model.safetensors")
	safetensorstest.Write(t, path, tensors, nil)

	arch := &toyArch{}
	m, err := Load(toyConfig(arch, ml.DTypeFloat16), ml.NewHostDevice(), []string{path}, quiet())
	require.NoError(t, err)
	assert.Equal(t, embed.Data, m.(*toyModel).Embed.Bytes())
	assert.Equal(t, tensors[0].Data, m.(*toyModel).Layers[0].W.Bytes())
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	tensors := append(layer(0, ml.DTypeFloat32, []float32{1, 2, 3, 4}), layer(1, ml.DTypeFloat32, []float32{5, 6, 7, 8})[1])
	path := filepath.Join(dir, "model.safetensors")
	safetensorstest.Write(t, path, tensors, nil)

	arch := &toyArch{}
	_, err := Load(toyConfig(arch, ml.DTypeFloat32), ml.NewHostDevice(), []string{path}, quiet())

	var missing *MissingParametersError
	require.True(t, errors.As(err, &missing), "erwartet MissingParametersError, erhalten %v", err)
	assert.Equal(t, []string{"embed", "layers.1.w"}, missing.Names)
	assert.Equal(t, 0, arch.built.finalized)
}

func TestLoadShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	tensors := []safetensorstest.Tensor{
		safetensorstest.Floats("layers.0.w", ml.DTypeFloat32, []float32{1, 2, 3}, 3),
	}
	path := filepath.Join(dir, "model.safetensors")
	safetensorstest.Write(t, path, tensors, nil)

	arch := &toyArch{}
	_, err := Load(toyConfig(arch, ml.DTypeFloat32), ml.NewHostDevice(), []string{path}, quiet())

	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch), "erwartet ShapeMismatchError, erhalten %v", err)
	assert.Equal(t, "layers.0.w", mismatch.Name)
	assert.Equal(t, []int{3}, mismatch.Stored)
	assert.Equal(t, []int{2, 2}, mismatch.Want)

	_, ok := arch.built.table.Get("layers.0.w")
	assert.True(t, ok, "parameter darf nicht entfernt werden")
	assert.Equal(t, 0, arch.built.finalized)
}

func TestLoadUnexpected(t *testing.T) {
	logs := captureLogs(t, slog.LevelWarn)
	dir := t.TempDir()
	tensors := append(layer(0, ml.DTypeFloat32, []float32{1, 2, 3, 4}), layer(1, ml.DTypeFloat32, []float32{5, 6, 7, 8})...)
	tensors = append(tensors,
		safetensorstest.Floats("embed", ml.DTypeFloat32, make([]float32, 8), 4, 2),
		safetensorstest.Floats("model.rotary_emb.inv_freq", ml.DTypeFloat32, []float32{1, 2}, 2),
		safetensorstest.Floats("layers.1.ww", ml.DTypeFloat32, []float32{1}, 1),
		safetensorstest.Floats("completely.unrelated.tensor", ml.DTypeFloat32, []float32{1}, 1),
	)
	path := filepath.Join(dir, "model.safetensors")
	safetensorstest.Write(t, path, tensors, nil)

	_, err := Load(toyConfig(&toyArch{}, ml.DTypeFloat32), ml.NewHostDevice(), []string{path}, quiet())
	require.NoError(t, err)

	out := logs.String()
	assert.NotContains(t, out, "inv_freq")
	assert.Contains(t, out, "name=completely.unrelated.tensor")
	assert.Equal(t, 2, strings.Count(out, "level=WARN"), out)
}

func TestLoadDebugLog(t *testing.T) {
	logs := captureLogs(t, slog.LevelDebug)
	dir := t.TempDir()
	tensors := append(layer(0, ml.DTypeFloat32, []float32{1, 2, 3, 4}), layer(1, ml.DTypeFloat32, []float32{5, 6, 7, 8})...)
	tensors = append(tensors, safetensorstest.Floats("embed", ml.DTypeFloat32, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 4, 2))
	path := filepath.Join(dir, "model.safetensors")
	safetensorstest.Write(t, path, tensors, map[string]string{"format": "pt"})

	_, err := Load(toyConfig(&toyArch{}, ml.DTypeFloat32), ml.NewHostDevice(), []string{path}, quiet())
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "metadata=map[format:pt]")
	assert.Contains(t, out, `msg="sample parameter" name=embed dtype=f32`)
	assert.Contains(t, out, "1.0000")
	assert.Contains(t, out, "8.0000")
}

func TestLoadUnknownTag(t *testing.T) {
	dir := t.TempDir()
	tensors := []safetensorstest.Tensor{
		{Name: "layers.0.w", DType: "F8_E4M3", Shape: []int{2, 2}, Data: make([]byte, 4)},
	}
	path := filepath.Join(dir, "model.safetensors")
	safetensorstest.Write(t, path, tensors, nil)

	assert.Panics(t, func() {
		Load(toyConfig(&toyArch{}, ml.DTypeFloat32), ml.NewHostDevice(), []string{path}, quiet())
	})
}

func TestLoadOpenError(t *testing.T) {
	_, err := Load(toyConfig(&toyArch{}, ml.DTypeFloat32), ml.NewHostDevice(), []string{filepath.Join(t.TempDir(), "absent.safetensors")}, quiet())
	assert.Error(t, err)
}

func TestClosest(t *testing.T) {
	cases := []struct {
		name       string
		candidates []string
		want       string
		ok         bool
	}{
		{"layers.0.w", []string{"layers.0.w", "layers.1.w"}, "layers.0.w", true},
		{"layers.2.w", []string{"embed", "layers.1.w"}, "layers.1.w", true},
		{"xyz", []string{"embed", "layers.1.w"}, "", false},
		{"embed", nil, "", false},
	}

	for _, tt := range cases {
		got, ok := closest(tt.name, tt.candidates)
		if got != tt.want || ok != tt.ok {
			t.Errorf("closest(%q): erwartet %q/%v, erhalten %q/%v", tt.name, tt.want, tt.ok, got, ok)
		}
	}
}
