package kvcache

import (
	"testing"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/models/llama"
)

func TestBlockBytes(t *testing.T) {
	arch, err := llama.Parse([]byte(`{"hidden_size":4096,"intermediate_size":11008,"num_hidden_layers":32,
		"num_attention_heads":32,"num_key_value_heads":8,"vocab_size":32000,"rms_norm_eps":1e-5}`))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		dtype     ml.DType
		blockSize int
		want      int64
	}{
		// 2 * 32 layers * 8 heads * 128 dims * 16 tokens * 2 bytes
		{ml.DTypeFloat16, 16, 2 * 32 * 8 * 128 * 16 * 2},
		{ml.DTypeFloat32, 16, 2 * 32 * 8 * 128 * 16 * 4},
		{ml.DTypeBfloat16, 32, 2 * 32 * 8 * 128 * 32 * 2},
	}

	for _, tt := range cases {
		cfg := &model.Config{Arch: arch, DType: tt.dtype, Cache: model.CacheConfig{BlockSize: tt.blockSize}}
		if got := BlockBytes(cfg); got != tt.want {
			t.Errorf("%v/%d: erwartet %d, erhalten %d", tt.dtype, tt.blockSize, tt.want, got)
		}
		if got := TokenBytes(cfg, BlockBytes); got != float64(tt.want)/float64(tt.blockSize) {
			t.Errorf("TokenBytes: erhalten %v", got)
		}
	}
}
