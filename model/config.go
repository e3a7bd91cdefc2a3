// config.go - Modellkonfiguration und Abgleich der Architektur-Schemas
//
// Dieses Modul enthaelt:
// - Config: die abgeglichene Architektur-Konfiguration plus Metadaten
// - Schema: ein benanntes Parse-Verfahren fuer eine Architektur
// - LoadConfig: probiert die Schemas der Reihe nach, das erste passende gewinnt
// - DecodeRequired: JSON-Dekodierung mit Pflichtfeldern
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"github.com/EchoCog/aphroditecho/ml"
)

// ArchConfig is the architecture specific part of a model configuration.
type ArchConfig interface {
	Architecture() string

	VocabSize() int
	MaxSequenceLength() int

	// NumLayers, NumKVHeads and HeadDim describe the key/value cache shape.
	NumLayers() int
	NumKVHeads() int
	HeadDim() int

	// Build constructs the model with zeroed parameters allocated on dev.
	Build(cfg *Config, dev ml.Device) (Model, error)
}

// Schema parses a raw configuration document as one architecture.
type Schema struct {
	Name  string
	Parse func(raw []byte) (ArchConfig, error)
}

// VocabSizer reports the vocabulary size of the tokenizer.
type VocabSizer interface {
	VocabSize() (int, error)
}

// Meta holds the configuration shared by every architecture.
type Meta struct {
	ID                string
	VocabSize         int
	TokVocabSize      int
	MaxSequenceLength int
}

// CacheConfig holds the settings of the key/value cache and of profiling.
type CacheConfig struct {
	BlockSize            int
	GPUMemoryUtilization float64
	MaxBatchedTokens     int
	MaxSequences         int
}

// Config is created once by LoadConfig and shared read-only afterwards.
type Config struct {
	Meta
	Arch          ArchConfig
	Schema        string
	DType         ml.DType
	Device        string
	ProfileStepNo int
	Cache         CacheConfig
}

func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", c.ID),
		slog.String("architecture", c.Schema),
		slog.String("dtype", c.DType.String()),
		slog.String("device", c.Device),
		slog.Int("vocab_size", c.VocabSize),
		slog.Int("tok_vocab_size", c.TokVocabSize),
		slog.Int("max_sequence_length", c.MaxSequenceLength),
		slog.Int("layers", c.Arch.NumLayers()),
	)
}

// SchemaError records why a schema rejected a document.
type SchemaError struct {
	Schema string
	Err    error
}

// NoMatchingSchemaError is returned when no schema accepts a document.
type NoMatchingSchemaError struct {
	Errors []SchemaError
}

func (e *NoMatchingSchemaError) Error() string {
	var sb strings.Builder
	sb.WriteString("failed to load model config:\n")
	for _, se := range e.Errors {
		fmt.Fprintf(&sb, "%s: %v\n", se.Schema, se.Err)
	}
	return sb.String()
}

// LoadConfig parses raw with the first schema, in order, that accepts it and
// merges the loader arguments and the tokenizer vocabulary size into the
// result. The order of schemas decides between documents more than one
// schema could accept.
//
// A repository without a tokenizer is accepted: when vocab reports
// fs.ErrNotExist, a warning is logged and the tokenizer vocabulary size
// falls back to the vocabulary size of the config. Any other tokenizer
// error fails the load.
func LoadConfig(raw []byte, schemas []Schema, args LoaderArgs, vocab VocabSizer) (*Config, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	var (
		arch   ArchConfig
		schema string
		errs   []SchemaError
	)
	for _, s := range schemas {
		a, err := s.Parse(raw)
		if err != nil {
			slog.Debug("config schema rejected", "schema", s.Name, "error", err)
			errs = append(errs, SchemaError{Schema: s.Name, Err: err})
			continue
		}
		arch, schema = a, s.Name
		break
	}
	if arch == nil {
		return nil, &NoMatchingSchemaError{Errors: errs}
	}

	cfg := &Config{
		Meta: Meta{
			ID:                args.ModelID,
			VocabSize:         arch.VocabSize(),
			MaxSequenceLength: arch.MaxSequenceLength(),
		},
		Arch:          arch,
		Schema:        schema,
		DType:         args.DType,
		Device:        args.Device,
		ProfileStepNo: args.ProfileStepNo,
		Cache: CacheConfig{
			BlockSize:            args.BlockSize,
			GPUMemoryUtilization: args.GPUMemoryUtilization,
			MaxBatchedTokens:     args.MaxBatchedTokens,
			MaxSequences:         args.MaxSequences,
		},
	}

	cfg.TokVocabSize = cfg.VocabSize
	if vocab != nil {
		n, err := vocab.VocabSize()
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Warn("no tokenizer found, using vocabulary size of the model config", "vocab_size", cfg.VocabSize)
		case err != nil:
			return nil, fmt.Errorf("tokenizer vocabulary size: %w", err)
		default:
			cfg.TokVocabSize = n
		}
	}

	return cfg, nil
}

// DecodeRequired decodes the JSON object raw into v after checking that
// every key in required is present and not null.
func DecodeRequired(raw []byte, v any, required ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	var missing []string
	for _, k := range required {
		if f, ok := fields[k]; !ok || string(f) == "null" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing field(s) %s", strings.Join(missing, ", "))
	}

	return json.Unmarshal(raw, v)
}
