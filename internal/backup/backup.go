// Package backup manages Backup Artifacts: installer-compatible archives of
// the release that was current immediately before an apply. A raw
// filesystem copy would not do. The archive must be installable by the
// same package manager used for updates, or rollback cannot work.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loomworks/loom/internal/manifest"
	"github.com/loomworks/loom/internal/store"
)

// Packer archives an installed package directory into an
// installer-compatible artifact. Implemented by *pm.Backend.
type Packer interface {
	Pack(ctx context.Context, pkgDir, destDir string) (string, error)
}

// Manager creates and locates backup artifacts, registering each in the
// sqlite store. Artifacts are not pruned automatically.
type Manager struct {
	store     *store.Store
	backupDir string
	packer    Packer
	mechanism string
}

// New creates a backup Manager. store may be nil, in which case artifacts
// are still created but not registered.
func New(st *store.Store, backupDir string, p Packer, mechanism string) *Manager {
	return &Manager{
		store:     st,
		backupDir: backupDir,
		packer:    p,
		mechanism: mechanism,
	}
}

// Path returns the deterministic artifact path for a version.
func (m *Manager) Path(version string) string {
	return filepath.Join(m.backupDir, fmt.Sprintf("%s-%s.tgz", manifest.AppName, version))
}

// Create produces a backup artifact for the currently installed version by
// packing pkgDir. An existing artifact for the same version is reused:
// exactly one artifact per version is required, and a prior one is already
// installable.
func (m *Manager) Create(ctx context.Context, version, pkgDir string) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	dest := m.Path(version)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	packed, err := m.packer.Pack(ctx, pkgDir, m.backupDir)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s: %w", version, err)
	}

	if packed != dest {
		if err := os.Rename(packed, dest); err != nil {
			os.Remove(packed)
			return "", fmt.Errorf("failed to place backup artifact: %w", err)
		}
	}

	if m.store != nil {
		if _, err := m.store.InsertBackup(version, m.mechanism, dest); err != nil {
			// The artifact itself is what rollback needs; a registry
			// failure is a warning, not a lost backup.
			fmt.Fprintf(os.Stderr, "Warning: failed to register backup for %s: %v\n", version, err)
		}
	}

	return dest, nil
}

// Find returns the backup artifact path for version, or an error naming the
// expected path when no artifact exists on disk.
func (m *Manager) Find(version string) (string, error) {
	path := m.Path(version)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no backup artifact for version %s at %s", version, path)
		}
		return "", fmt.Errorf("failed to stat backup artifact %s: %w", path, err)
	}
	return path, nil
}

// List returns registered backups, newest first.
func (m *Manager) List() ([]*store.Backup, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.ListBackups()
}
