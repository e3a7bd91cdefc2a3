// repo.go - Zugriff auf Modell-Repositories
// Ein Repo liefert die Dateien eines Modells: entweder aus einem lokalen
// Verzeichnis oder aus einem Snapshot im HuggingFace-Cache. Downloads
// werden hier nicht durchgefuehrt.
package huggingface

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Repo resolves model files by name.
type Repo interface {
	// Read returns the contents of name. Missing files wrap fs.ErrNotExist.
	Read(name string) ([]byte, error)

	// Get returns the local path of name.
	Get(name string) (string, error)

	// IsLocal reports whether the repo is a plain local directory.
	IsLocal() bool

	String() string
}

// RepoError repraesentiert einen Fehler beim Zugriff auf eine Datei
type RepoError struct {
	Op   string
	Repo string
	Name string
	Err  error
}

func (e *RepoError) Error() string {
	return "huggingface " + e.Op + " [" + e.Repo + "] " + e.Name + ": " + e.Err.Error()
}

// Unwrap ermoeglicht errors.Is/As
func (e *RepoError) Unwrap() error {
	return e.Err
}

type dirRepo struct {
	id    string
	dir   string
	local bool
}

// NewLocalRepo returns a repo backed by the directory dir.
func NewLocalRepo(dir string) Repo {
	return &dirRepo{id: dir, dir: dir, local: true}
}

// NewCacheRepo returns a repo backed by the cached snapshot of modelID at
// revision in cacheDir.
func NewCacheRepo(cacheDir, modelID, revision string) (Repo, error) {
	if revision == "" {
		revision = DefaultRevision
	}
	dir, err := snapshotDir(cacheDir, modelID, revision)
	if err != nil {
		return nil, err
	}
	return &dirRepo{id: modelID + "@" + revision, dir: dir}, nil
}

// Open returns a local repo when ref is an existing directory, and the
// cached snapshot of the model id ref otherwise.
func Open(ref, revision string) (Repo, error) {
	if stat, err := os.Stat(ref); err == nil && stat.IsDir() {
		return NewLocalRepo(ref), nil
	}
	if strings.Count(ref, "/") != 1 || strings.HasPrefix(ref, ".") || filepath.IsAbs(ref) {
		return nil, fmt.Errorf("%s is neither a directory nor a model id", ref)
	}
	return NewCacheRepo(GetCacheDir(), ref, revision)
}

func (r *dirRepo) path(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &RepoError{Op: "get", Repo: r.id, Name: name, Err: fs.ErrInvalid}
	}
	return filepath.Join(r.dir, filepath.FromSlash(name)), nil
}

func (r *dirRepo) Read(name string) ([]byte, error) {
	p, err := r.path(name)
	if err != nil {
		return nil, err
	}
	bts, err := os.ReadFile(p)
	if err != nil {
		return nil, &RepoError{Op: "read", Repo: r.id, Name: name, Err: err}
	}
	return bts, nil
}

func (r *dirRepo) Get(name string) (string, error) {
	p, err := r.path(name)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(p)
	if err != nil {
		return "", &RepoError{Op: "get", Repo: r.id, Name: name, Err: err}
	}
	if stat.IsDir() {
		return "", &RepoError{Op: "get", Repo: r.id, Name: name, Err: errors.New("is a directory")}
	}
	return p, nil
}

func (r *dirRepo) IsLocal() bool { return r.local }

func (r *dirRepo) String() string { return r.id }
