// cache.go - Cache-Verzeichnis fuer HuggingFace Modelle
// Kompatibel mit der Cache-Struktur von Python huggingface_hub:
//
//	<cache>/models--<org>--<name>/refs/<revision>      enthaelt den Commit-Hash
//	<cache>/models--<org>--<name>/snapshots/<commit>/  enthaelt die Dateien
package huggingface

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/EchoCog/aphroditecho/envconfig"
)

// Cache-Konstanten
const (
	DefaultCacheSubdir = "huggingface/hub"
	CacheRefDir        = "refs"
	CacheSnapshotDir   = "snapshots"
	CacheModelPrefix   = "models--"
	DefaultRevision    = "main"
)

// Cache-Fehler
var (
	ErrModelNotInCache = errors.New("model not in cache")
	ErrCacheCorrupted  = errors.New("cache structure corrupted")
)

// GetCacheDir gibt das Cache-Verzeichnis zurueck
func GetCacheDir() string {
	if cacheDir := envconfig.HubCache(); cacheDir != "" {
		return cacheDir
	}
	if hfHome := envconfig.HFHome(); hfHome != "" {
		return filepath.Join(hfHome, "hub")
	}
	return getDefaultCacheDir()
}

func getDefaultCacheDir() string {
	var baseDir string
	switch runtime.GOOS {
	case "windows":
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			baseDir = filepath.Join(userProfile, ".cache")
		} else {
			baseDir = filepath.Join(os.TempDir(), "huggingface_cache")
		}
	default:
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			baseDir = xdgCache
		} else if home, err := os.UserHomeDir(); err == nil {
			baseDir = filepath.Join(home, ".cache")
		} else {
			baseDir = filepath.Join(os.TempDir(), "huggingface_cache")
		}
	}
	return filepath.Join(baseDir, DefaultCacheSubdir)
}

// snapshotDir resolves revision to a snapshot directory of modelID. A
// revision may be a ref name (resolved through refs/) or a commit hash.
func snapshotDir(cacheDir, modelID, revision string) (string, error) {
	modelDir := filepath.Join(cacheDir, modelIDToCacheDir(modelID))
	if _, err := os.Stat(modelDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrModelNotInCache, modelID)
		}
		return "", err
	}

	commit := revision
	if bts, err := os.ReadFile(filepath.Join(modelDir, CacheRefDir, revision)); err == nil {
		commit = strings.TrimSpace(string(bts))
		if commit == "" {
			return "", fmt.Errorf("%w: empty ref %s for %s", ErrCacheCorrupted, revision, modelID)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	dir := filepath.Join(modelDir, CacheSnapshotDir, commit)
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		return "", fmt.Errorf("%w: %s@%s", ErrModelNotInCache, modelID, revision)
	}
	return dir, nil
}

// ListCachedModels gibt eine Liste aller gecachten Modelle zurueck
func ListCachedModels() ([]string, error) {
	cacheDir := GetCacheDir()
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		return []string{}, nil
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	var models []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), CacheModelPrefix) {
			models = append(models, cacheDirToModelID(entry.Name()))
		}
	}
	return models, nil
}

func modelIDToCacheDir(modelID string) string {
	return CacheModelPrefix + strings.ReplaceAll(modelID, "/", "--")
}

func cacheDirToModelID(cacheDir string) string {
	return strings.Replace(strings.TrimPrefix(cacheDir, CacheModelPrefix), "--", "/", 1)
}
