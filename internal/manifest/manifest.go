// Package manifest reads the embedded manifest of the installed loom
// package. The manifest travels inside the package artifact itself, so it is
// only ever as trustworthy as the release that was last verified and
// installed. That property makes it the second root of trust: local edits to
// the install record cannot reach it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loomworks/loom/internal/semver"
)

// AppName is the package name loom is published under.
const AppName = "loom"

// FileName is the manifest file name inside the installed package root.
const FileName = "package.json"

// maxAscent bounds how far Locate walks up from the executable. Global npm
// installs place the binary at most a few levels below the package root.
const maxAscent = 6

// Manifest is the subset of the package manifest the updater relies on.
type Manifest struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Publisher string `json:"publisher"`
}

// Reader reads the installed package's manifest. The zero value reads from
// the live installation; tests point Root at a fixture directory.
type Reader struct {
	// Root overrides package root discovery when non-empty.
	Root string
}

// Read parses and validates a manifest file at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if m.Name != AppName {
		return nil, fmt.Errorf("manifest %s is for package %q, expected %q", path, m.Name, AppName)
	}
	if !semver.IsValid(m.Version) {
		return nil, fmt.Errorf("manifest %s has invalid version %q", path, m.Version)
	}
	if m.Publisher == "" {
		return nil, fmt.Errorf("manifest %s has no publisher identity", path)
	}

	return &m, nil
}

// PackageRoot returns the directory containing the installed package's
// manifest, found by resolving the running executable and walking up.
func (r *Reader) PackageRoot() (string, error) {
	if r.Root != "" {
		return r.Root, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}

	dir := filepath.Dir(exe)
	for i := 0; i < maxAscent; i++ {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			if m, err := Read(candidate); err == nil && m.Name == AppName {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no %s manifest found above %s", AppName, exe)
}

// ReadInstalled locates and parses the installed package's manifest.
// It re-reads from disk on every call; callers must not cache the result
// across a verification boundary.
func (r *Reader) ReadInstalled() (*Manifest, error) {
	root, err := r.PackageRoot()
	if err != nil {
		return nil, err
	}
	return Read(filepath.Join(root, FileName))
}
