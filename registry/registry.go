// Package registry records which environment file is active, in a small JSON
// file beside the environment files.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dasanik2001/manage-env/backup"
	"github.com/dasanik2001/manage-env/envfile"
	"github.com/dasanik2001/manage-env/prompt"
)

const (
	DefaultFilename = "config.json"
	DefaultPrefix   = ".env"
)

var (
	ErrNoEnvFilesFound = errors.New("no .env files found in the current directory")
	ErrNoActiveFile    = errors.New(`no environment file selected, use the "select" command first`)
)

type Selection struct {
	SelectedEnvFile string `json:"selectedEnvFile"`
}

type Registry struct {
	Path string
}

func New(path string) *Registry {
	return &Registry{Path: path}
}

func (rr *Registry) Save(filename string) error {
	data, err := json.MarshalIndent(Selection{SelectedEnvFile: filename}, "", "  ")
	if err != nil {
		return err
	}
	return envfile.WriteAtomic(rr.Path, data, 0o644)
}

// Load returns the selected file name. A missing registry file, or one with
// an empty selection, is reported as ok == false with no error.
func (rr *Registry) Load() (string, bool, error) {
	data, err := os.ReadFile(rr.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	selection := Selection{}
	if err := json.Unmarshal(data, &selection); err != nil {
		return "", false, fmt.Errorf("parsing %s: %w", rr.Path, err)
	}
	if selection.SelectedEnvFile == "" {
		return "", false, nil
	}
	return selection.SelectedEnvFile, true, nil
}

// Active is Load with a missing selection turned into ErrNoActiveFile.
func (rr *Registry) Active() (string, error) {
	filename, ok, err := rr.Load()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoActiveFile
	}
	return filename, nil
}

// Discover lists regular files (or links to them) in dir starting with prefix, sorted by name.
// Backup copies are not candidates.
func Discover(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || strings.HasSuffix(name, backup.Suffix) {
			continue
		}
		if !isRegular(dir, entry) {
			continue
		}
		candidates = append(candidates, name)
	}
	sort.Strings(candidates)
	return candidates, nil
}

// isRegular follows symlinks, a link to a regular file counts.
func isRegular(dir string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Resolve picks one candidate: a single candidate is taken as is, several
// are handed to chooser.
func Resolve(ctx context.Context, candidates []string, chooser prompt.Chooser) (string, error) {
	switch len(candidates) {
	case 0:
		return "", ErrNoEnvFilesFound
	case 1:
		return candidates[0], nil
	}
	return chooser.Choose(ctx, "Select an environment file:", candidates)
}
