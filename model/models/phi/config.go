// Modul: config.go
// Beschreibung: Konfiguration des Phi-Modells (MixFormer, phi-1/phi-1.5)
// Hauptstrukturen:
//   - Config: Felder der config.json mit Voreinstellungen
//   - Schema: Eintrag fuer die geordnete Schema-Liste

package phi

import (
	"cmp"
	"fmt"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
)

// Config entspricht den benoetigten Feldern der MixFormer-Konfiguration
type Config struct {
	NEmbd            int     `json:"n_embd"`
	NLayer           int     `json:"n_layer"`
	NHead            int     `json:"n_head"`
	NInner           int     `json:"n_inner"`
	NPositions       int     `json:"n_positions"`
	VocabSizeField   int     `json:"vocab_size"`
	RotaryDim        int     `json:"rotary_dim"`
	LayerNormEpsilon float32 `json:"layer_norm_epsilon"`
}

var required = []string{"n_embd", "n_layer", "n_head", "n_positions", "vocab_size"}

// Schema parst Phi-Konfigurationen
var Schema = model.Schema{Name: "phi", Parse: Parse}

func Parse(raw []byte) (model.ArchConfig, error) {
	var c Config
	if err := model.DecodeRequired(raw, &c, required...); err != nil {
		return nil, err
	}

	c.NInner = cmp.Or(c.NInner, 4*c.NEmbd)
	c.RotaryDim = cmp.Or(c.RotaryDim, 32)
	c.LayerNormEpsilon = cmp.Or(c.LayerNormEpsilon, 1e-5)

	switch {
	case c.NEmbd <= 0, c.NLayer <= 0, c.NHead <= 0, c.NPositions <= 0, c.VocabSizeField <= 0:
		return nil, fmt.Errorf("invalid phi config: sizes must be positive")
	case c.NEmbd%c.NHead != 0:
		return nil, fmt.Errorf("invalid phi config: n_embd %d is not a multiple of n_head %d", c.NEmbd, c.NHead)
	case c.RotaryDim%2 != 0 || c.RotaryDim > c.NEmbd/c.NHead:
		return nil, fmt.Errorf("invalid phi config: rotary_dim %d", c.RotaryDim)
	}
	return &c, nil
}

func (c *Config) Architecture() string   { return "phi" }
func (c *Config) VocabSize() int         { return c.VocabSizeField }
func (c *Config) MaxSequenceLength() int { return c.NPositions }
func (c *Config) NumLayers() int         { return c.NLayer }
func (c *Config) NumKVHeads() int        { return c.NHead }
func (c *Config) HeadDim() int           { return c.NEmbd / c.NHead }

func (c *Config) Build(cfg *model.Config, dev ml.Device) (model.Model, error) {
	return New(c, cfg, dev), nil
}
