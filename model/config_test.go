package model

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoCog/aphroditecho/ml"
)

type fakeArch struct {
	name  string
	Vocab int `json:"vocab"`
}

func (a *fakeArch) Architecture() string   { return a.name }
func (a *fakeArch) VocabSize() int         { return a.Vocab }
func (a *fakeArch) MaxSequenceLength() int { return 128 }
func (a *fakeArch) NumLayers() int         { return 1 }
func (a *fakeArch) NumKVHeads() int        { return 1 }
func (a *fakeArch) HeadDim() int           { return 4 }
func (a *fakeArch) Build(*Config, ml.Device) (Model, error) {
	return nil, ErrUnsupportedModel
}

func schema(name string, required ...string) Schema {
	return Schema{
		Name: name,
		Parse: func(raw []byte) (ArchConfig, error) {
			a := &fakeArch{name: name}
			if err := DecodeRequired(raw, a, required...); err != nil {
				return nil, err
			}
			return a, nil
		},
	}
}

type vocabSizer struct {
	n   int
	err error
}

func (v vocabSizer) VocabSize() (int, error) { return v.n, v.err }

func testArgs() LoaderArgs {
	return LoaderArgs{
		ModelID:              "org/model",
		DType:                ml.DTypeFloat16,
		Device:               "cuda",
		ProfileStepNo:        3,
		BlockSize:            16,
		GPUMemoryUtilization: 0.9,
		MaxBatchedTokens:     64,
		MaxSequences:         4,
	}
}

func TestLoadConfigOrder(t *testing.T) {
	schemas := []Schema{
		schema("first", "a"),
		schema("second", "b"),
		schema("third", "b"),
	}

	cfg, err := LoadConfig([]byte(`{"b":1,"vocab":100}`), schemas, testArgs(), vocabSizer{n: 102})
	require.NoError(t, err)

	assert.Equal(t, "second", cfg.Schema)
	assert.Equal(t, "second", cfg.Arch.Architecture())
	assert.Equal(t, "org/model", cfg.ID)
	assert.Equal(t, 100, cfg.VocabSize)
	assert.Equal(t, 102, cfg.TokVocabSize)
	assert.Equal(t, 128, cfg.MaxSequenceLength)
	assert.Equal(t, ml.DTypeFloat16, cfg.DType)
	assert.Equal(t, "cuda", cfg.Device)
	assert.Equal(t, 3, cfg.ProfileStepNo)
	assert.Equal(t, CacheConfig{BlockSize: 16, GPUMemoryUtilization: 0.9, MaxBatchedTokens: 64, MaxSequences: 4}, cfg.Cache)

	// both match, the earlier one wins
	cfg, err = LoadConfig([]byte(`{"a":1,"b":1}`), schemas, testArgs(), nil)
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Schema)
	assert.Equal(t, cfg.VocabSize, cfg.TokVocabSize)
}

func TestLoadConfigNoMatch(t *testing.T) {
	schemas := []Schema{schema("llama", "hidden_size"), schema("phi", "n_embd")}

	_, err := LoadConfig([]byte(`{"vocab_size":1}`), schemas, testArgs(), nil)

	var noMatch *NoMatchingSchemaError
	require.ErrorAs(t, err, &noMatch)
	assert.Len(t, noMatch.Errors, 2)

	lines := strings.Split(strings.TrimSuffix(err.Error(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "failed to load model config:", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "llama: "), lines[1])
	assert.Contains(t, lines[1], "hidden_size")
	assert.True(t, strings.HasPrefix(lines[2], "phi: "), lines[2])

	_, err = LoadConfig([]byte(`not json`), schemas, testArgs(), nil)
	require.ErrorAs(t, err, &noMatch)
}

func TestLoadConfigTokenizer(t *testing.T) {
	schemas := []Schema{schema("only")}

	cfg, err := LoadConfig([]byte(`{"vocab":10}`), schemas, testArgs(), vocabSizer{err: fmt.Errorf("read: %w", fs.ErrNotExist)})
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.TokVocabSize)

	boom := errors.New("boom")
	_, err = LoadConfig([]byte(`{"vocab":10}`), schemas, testArgs(), vocabSizer{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestLoaderArgsValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*LoaderArgs)
	}{
		{"utilization null", func(a *LoaderArgs) { a.GPUMemoryUtilization = 0 }},
		{"utilization ueber eins", func(a *LoaderArgs) { a.GPUMemoryUtilization = 1.01 }},
		{"blockgroesse", func(a *LoaderArgs) { a.BlockSize = 0 }},
		{"integer dtype", func(a *LoaderArgs) { a.DType = ml.DTypeInt32 }},
		{"batch", func(a *LoaderArgs) { a.MaxBatchedTokens = 0 }},
		{"sequenzen", func(a *LoaderArgs) { a.MaxSequences = 0 }},
		{"profile step", func(a *LoaderArgs) { a.ProfileStepNo = -1 }},
	}

	require.NoError(t, testArgs().Validate())
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			args := testArgs()
			tt.modify(&args)
			assert.Error(t, args.Validate())

			_, err := LoadConfig([]byte(`{}`), []Schema{schema("any")}, args, nil)
			assert.Error(t, err)
		})
	}

	args := testArgs()
	args.GPUMemoryUtilization = 1
	assert.NoError(t, args.Validate())
}

func TestDefaultLoaderArgs(t *testing.T) {
	t.Setenv("APHRODITE_DTYPE", "bf16")
	t.Setenv("APHRODITE_BLOCK_SIZE", "32")
	t.Setenv("APHRODITE_GPU_MEMORY_UTILIZATION", "0.5")

	args, err := DefaultLoaderArgs("org/model")
	require.NoError(t, err)
	assert.Equal(t, ml.DTypeBfloat16, args.DType)
	assert.Equal(t, 32, args.BlockSize)
	assert.InDelta(t, 0.5, args.GPUMemoryUtilization, 1e-9)
	assert.NoError(t, args.Validate())

	t.Setenv("APHRODITE_DTYPE", "int4")
	_, err = DefaultLoaderArgs("org/model")
	assert.Error(t, err)
}

func TestDecodeRequired(t *testing.T) {
	var v struct {
		A int `json:"a"`
		B int `json:"b"`
	}

	require.NoError(t, DecodeRequired([]byte(`{"a":1,"b":2}`), &v, "a", "b"))
	assert.Equal(t, 2, v.B)

	err := DecodeRequired([]byte(`{"a":null}`), &v, "b", "a")
	require.Error(t, err)
	assert.Equal(t, "missing field(s) a, b", err.Error())

	assert.Error(t, DecodeRequired([]byte(`{"a":"x"}`), &v, "a"))
	assert.Error(t, DecodeRequired([]byte(`[]`), &v))
}
