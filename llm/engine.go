// Package llm - Zusammenbau der Engine
//
// LoadEngine verbindet Repository, Konfiguration, Gewichte, Geraet und
// Profiling. Eigene Logik enthaelt es nicht.
package llm

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/EchoCog/aphroditecho/discover"
	"github.com/EchoCog/aphroditecho/huggingface"
	"github.com/EchoCog/aphroditecho/kvcache"
	"github.com/EchoCog/aphroditecho/loader"
	"github.com/EchoCog/aphroditecho/manifest"
	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/models"
	"github.com/EchoCog/aphroditecho/tokenizer"
)

// ConfigFile is the model configuration inside a repository.
const ConfigFile = "config.json"

// Engine is a loaded model with its cache capacity.
type Engine struct {
	ID        uuid.UUID
	Config    *model.Config
	Model     model.Model
	Device    ml.Device
	Capacity  *Capacity
	CacheSize kvcache.CacheSize
}

type EngineOptions struct {
	// Registry receives the engine metrics when set.
	Registry prometheus.Registerer

	// Progress is where the loading progress is drawn. Defaults to stderr.
	Progress io.Writer

	Profile ProfileOptions
}

// LoadConfig reads and reconciles the configuration of the model in args.
func LoadConfig(args model.LoaderArgs) (huggingface.Repo, *model.Config, error) {
	repo, err := huggingface.Open(args.ModelID, args.Revision)
	if err != nil {
		return nil, nil, err
	}

	raw, err := repo.Read(ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := model.LoadConfig(raw, models.Schemas(), args, tokenizer.Repo{Repo: repo})
	if err != nil {
		return nil, nil, err
	}
	return repo, cfg, nil
}

// LoadEngine loads the model named in args and sizes its cache.
func LoadEngine(args model.LoaderArgs, opts EngineOptions) (*Engine, error) {
	start := time.Now()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	repo, cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}
	slog.Info("loading model", "engine", id, "repo", repo, "config", cfg)

	files, err := manifest.ShardFiles(repo)
	if err != nil {
		return nil, err
	}

	dev, err := discover.Device(cfg.Device)
	if err != nil {
		return nil, err
	}

	w := opts.Progress
	if w == nil {
		w = os.Stderr
	}
	m, err := loader.Load(cfg, dev, files, loader.WithProgressWriter(w))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.ID, err)
	}

	c, err := Profile(cfg, m, dev, opts.Profile)
	if err != nil {
		return nil, err
	}

	if opts.Registry != nil {
		NewMetrics(opts.Registry).Observe(cfg.ID, c, time.Since(start))
	}

	return &Engine{
		ID:        id,
		Config:    cfg,
		Model:     m,
		Device:    dev,
		Capacity:  c,
		CacheSize: c.Blocks,
	}, nil
}
