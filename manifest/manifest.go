// Package manifest - Aufloesung der Gewichtsdateien eines Modells
//
// Ein Modell liegt entweder als einzelne model.safetensors-Datei oder in
// mehrere Shards aufgeteilt vor. Bei Shards beschreibt
// model.safetensors.index.json, welcher Parameter in welcher Datei liegt.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/emirpasic/gods/v2/sets/treeset"

	"github.com/EchoCog/aphroditecho/huggingface"
)

const (
	IndexFile   = "model.safetensors.index.json"
	DefaultFile = "model.safetensors"

	// LocalFile is a single-file variant written for this runtime. It is
	// only considered for local directories.
	LocalFile = "model.safetensors-go"
)

var ErrEmptyIndex = errors.New("index has an empty weight_map")

type index struct {
	Metadata  map[string]any    `json:"metadata"`
	WeightMap map[string]string `json:"weight_map"`
}

// ShardNames returns the sorted, distinct shard names of the repo without
// resolving them.
func ShardNames(r huggingface.Repo) ([]string, error) {
	bts, err := r.Read(IndexFile)
	if errors.Is(err, fs.ErrNotExist) {
		if r.IsLocal() {
			if _, err := r.Get(LocalFile); err == nil {
				return []string{LocalFile}, nil
			}
		}
		return []string{DefaultFile}, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading %s: %w", IndexFile, err)
	}

	var idx index
	if err := json.Unmarshal(bts, &idx); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", IndexFile, err)
	}
	if len(idx.WeightMap) == 0 {
		return nil, fmt.Errorf("parsing %s: %w", IndexFile, ErrEmptyIndex)
	}

	set := treeset.New[string]()
	for _, shard := range idx.WeightMap {
		set.Add(shard)
	}
	return set.Values(), nil
}

// ShardFiles returns the local paths of every shard of the repo, in the
// order of ShardNames. A shard that cannot be resolved fails the whole
// manifest.
func ShardFiles(r huggingface.Repo) ([]string, error) {
	names, err := ShardNames(r)
	if err != nil {
		return nil, err
	}

	files := make([]string, len(names))
	for i, name := range names {
		p, err := r.Get(name)
		if err != nil {
			return nil, fmt.Errorf("resolving shard %s: %w", name, err)
		}
		files[i] = p
	}
	return files, nil
}
