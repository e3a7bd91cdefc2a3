package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoCog/aphroditecho/format"
	"github.com/EchoCog/aphroditecho/fs/safetensors/safetensorstest"
	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/models/phi"
)

const tinyPhi = `{
	"n_embd": 8,
	"n_layer": 2,
	"n_head": 2,
	"n_positions": 32,
	"vocab_size": 16,
	"rotary_dim": 2
}`

// writeSharded writes a tiny phi model split into one shard per layer
// group, with an index.
func writeSharded(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(tinyPhi), 0o644))

	arch, err := phi.Parse([]byte(tinyPhi))
	require.NoError(t, err)
	m, err := arch.Build(&model.Config{Arch: arch, DType: ml.DTypeFloat32}, ml.NewHostDevice())
	require.NoError(t, err)

	shards := map[string][]safetensorstest.Tensor{}
	weightMap := map[string]string{}
	i := 0
	m.Parameters().Each(func(name string, p *ml.Tensor) {
		shard := "model-00001-of-00002.safetensors"
		if i%2 == 1 {
			shard = "model-00002-of-00002.safetensors"
		}
		i++
		weightMap[name] = shard
		shards[shard] = append(shards[shard], safetensorstest.Floats(name, ml.DTypeFloat16, make([]float32, p.Elements()), p.Shape()...))
	})
	for shard, tensors := range shards {
		safetensorstest.Write(t, filepath.Join(dir, shard), tensors, nil)
	}

	bts, err := json.Marshal(map[string]any{"metadata": map[string]any{}, "weight_map": weightMap})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.safetensors.index.json"), bts, 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cli := NewCLI()
	cli.SetOut(&stdout)
	cli.SetErr(&stderr)
	cli.SetArgs(args)
	err := cli.Execute()
	return stdout.String(), err
}

func TestManifestCommand(t *testing.T) {
	dir := writeSharded(t)

	out, err := run(t, "manifest", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, out)
	assert.True(t, strings.HasPrefix(lines[1], "model-00001-of-00002.safetensors"))
	assert.True(t, strings.HasPrefix(lines[2], "model-00002-of-00002.safetensors"))
	assert.Contains(t, lines[2], filepath.Join(dir, "model-00002-of-00002.safetensors"))

	stat, err := os.Stat(filepath.Join(dir, "model-00001-of-00002.safetensors"))
	require.NoError(t, err)
	assert.Contains(t, lines[1], format.HumanBytes(stat.Size()))
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("APHRODITE_DTYPE", "")
	dir := writeSharded(t)

	out, err := run(t, "config", dir, "--dtype", "bf16", "--block-size", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "phi")
	assert.Contains(t, out, "bf16")

	_, err = run(t, "config", dir, "--gpu-memory-utilization", "1.5")
	assert.ErrorContains(t, err, "gpu memory utilization")

	_, err = run(t, "config", dir, "--dtype", "i8")
	assert.Error(t, err)
}

func TestLoadCommand(t *testing.T) {
	t.Setenv("APHRODITE_NOPROGRESS", "1")
	t.Setenv("APHRODITE_DEVICE_MEMORY", "32MiB")
	dir := writeSharded(t)
	metrics := filepath.Join(t.TempDir(), "aphrodite.prom")

	out, err := run(t, "load", dir, "--device", "cuda", "--max-num-batched-tokens", "16", "--max-num-seqs", "2", "--metrics-file", metrics)
	require.NoError(t, err)
	assert.Contains(t, out, "phi")
	assert.Contains(t, out, "blocks")

	bts, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(bts), "aphrodite_kvcache_blocks")
}

func TestEnvCommand(t *testing.T) {
	t.Setenv("APHRODITE_BLOCK_SIZE", "32")

	out, err := run(t, "env")
	require.NoError(t, err)
	assert.Contains(t, out, "APHRODITE_BLOCK_SIZE")
	assert.Contains(t, out, "32")
}

func TestConfigFileFlag(t *testing.T) {
	t.Setenv("APHRODITE_BLOCK_SIZE", "")
	os.Unsetenv("APHRODITE_BLOCK_SIZE")
	path := filepath.Join(t.TempDir(), "aphrodite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("APHRODITE_BLOCK_SIZE: 64\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("APHRODITE_BLOCK_SIZE") })

	out, err := run(t, "env", "--config", path)
	require.NoError(t, err)

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "APHRODITE_BLOCK_SIZE") {
			assert.Contains(t, line, "64")
			return
		}
	}
	t.Errorf("APHRODITE_BLOCK_SIZE nicht in der Ausgabe:\n%s", out)
}
