// Package workspace finds the root of the project whose binaries are under test.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	ManifestName   = "Cargo.toml"
	ManifestDirEnv = "CARGO_MANIFEST_DIR"
)

// ErrNoManifest is returned when no manifest exists in the start directory or above it
var ErrNoManifest = errors.New("no " + ManifestName + " found")

// Project is a located project root
type Project struct {
	Root        string   // directory holding Manifest, the build working directory
	Manifest    string   // absolute path of the root manifest
	PackageName string   // empty for a virtual workspace manifest
	Workspace   bool     // the root manifest has a [workspace] table
	Members     []string // workspace member globs, as written
}

type manifest struct {
	Package *struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// Locate walks up from start to the nearest manifest. If an enclosing directory holds a
// workspace manifest, that workspace is the project instead, since builds run from the
// workspace root.
func Locate(start string) (*Project, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		start = wd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	var nearest *Project
	for dir := abs; ; dir = filepath.Dir(dir) {
		path := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			p, err := load(path)
			if err != nil {
				return nil, err
			}
			if p.Workspace {
				return p, nil
			}
			if nearest == nil {
				nearest = p
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	if nearest == nil {
		return nil, fmt.Errorf("%w in %s or any parent directory", ErrNoManifest, abs)
	}
	return nearest, nil
}

// FromEnv locates the project starting at $CARGO_MANIFEST_DIR, or the working
// directory when it is unset
func FromEnv() (*Project, error) {
	return Locate(os.Getenv(ManifestDirEnv))
}

func load(path string) (*Project, error) {
	var m manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	p := &Project{
		Root:     filepath.Dir(path),
		Manifest: path,
	}
	if m.Package != nil {
		p.PackageName = m.Package.Name
	}
	if m.Workspace != nil {
		p.Workspace = true
		p.Members = m.Workspace.Members
	}
	return p, nil
}
