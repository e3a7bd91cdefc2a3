// Modul: config.go
// Beschreibung: Konfiguration des Llama-Modells aus einer HF config.json
// Hauptstrukturen:
//   - Config: Felder der config.json mit Voreinstellungen
//   - Schema: Eintrag fuer die geordnete Schema-Liste

package llama

import (
	"cmp"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
)

// Config entspricht den benoetigten Feldern von LlamaConfig
type Config struct {
	HiddenSize            int     `json:"hidden_size"`
	IntermediateSize      int     `json:"intermediate_size"`
	NumHiddenLayers       int     `json:"num_hidden_layers"`
	NumAttentionHeads     int     `json:"num_attention_heads"`
	NumKeyValueHeads      int     `json:"num_key_value_heads"`
	HeadDimension         int     `json:"head_dim"`
	VocabSizeField        int     `json:"vocab_size"`
	RMSNormEps            float32 `json:"rms_norm_eps"`
	MaxPositionEmbeddings int     `json:"max_position_embeddings"`
	RopeTheta             float32 `json:"rope_theta"`
	TieWordEmbeddings     bool    `json:"tie_word_embeddings"`
}

// required sind die Felder, ohne die ein Dokument keine Llama-Konfiguration ist
var required = []string{
	"hidden_size",
	"intermediate_size",
	"num_hidden_layers",
	"num_attention_heads",
	"vocab_size",
	"rms_norm_eps",
}

// Schema parst Llama-Konfigurationen
var Schema = model.Schema{Name: "llama", Parse: Parse}

func Parse(raw []byte) (model.ArchConfig, error) {
	var c Config
	if err := model.DecodeRequired(raw, &c, required...); err != nil {
		return nil, err
	}

	c.NumKeyValueHeads = cmp.Or(c.NumKeyValueHeads, c.NumAttentionHeads)
	c.MaxPositionEmbeddings = cmp.Or(c.MaxPositionEmbeddings, 2048)
	c.RopeTheta = cmp.Or(c.RopeTheta, 10000)
	if c.HeadDimension == 0 && c.NumAttentionHeads > 0 {
		c.HeadDimension = c.HiddenSize / c.NumAttentionHeads
	}
	return &c, c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.HiddenSize <= 0, c.IntermediateSize <= 0, c.NumHiddenLayers <= 0, c.VocabSizeField <= 0:
		return errInvalid("sizes must be positive")
	case c.NumAttentionHeads <= 0 || c.NumKeyValueHeads <= 0:
		return errInvalid("head counts must be positive")
	case c.NumAttentionHeads%c.NumKeyValueHeads != 0:
		return errInvalid("num_attention_heads must be a multiple of num_key_value_heads")
	case c.HeadDimension <= 0 || c.HeadDimension%2 != 0:
		return errInvalid("head dimension must be positive and even")
	}
	return nil
}

func (c *Config) Architecture() string   { return "llama" }
func (c *Config) VocabSize() int         { return c.VocabSizeField }
func (c *Config) MaxSequenceLength() int { return c.MaxPositionEmbeddings }
func (c *Config) NumLayers() int         { return c.NumHiddenLayers }
func (c *Config) NumKVHeads() int        { return c.NumKeyValueHeads }
func (c *Config) HeadDim() int           { return c.HeadDimension }

func (c *Config) Build(cfg *model.Config, dev ml.Device) (model.Model, error) {
	return New(c, cfg, dev), nil
}
