// Package config resolves loom's environment-driven settings and state
// paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Settings holds every environment override the updater honors. All fields
// have working defaults; a clean environment yields a usable configuration.
type Settings struct {
	// Gateway overrides the default public ledger gateway.
	Gateway string `env:"LOOM_GATEWAY"`
	// StateDir overrides the private state directory (default ~/.loom).
	StateDir string `env:"LOOM_STATE_DIR"`
	// DisableAutoUpdater suppresses the startup update check entirely.
	DisableAutoUpdater bool `env:"LOOM_DISABLE_AUTOUPDATER"`
	// CI is the conventional continuous-integration indicator; any value
	// other than empty/"false"/"0" suppresses the startup check.
	CI string `env:"CI"`
	// RequireBackup makes a failed backup abort the update instead of
	// proceeding with degraded rollback safety.
	RequireBackup bool `env:"LOOM_REQUIRE_BACKUP"`
	// CheckIntervalDays is the startup check cadence.
	CheckIntervalDays int `env:"LOOM_CHECK_INTERVAL_DAYS" envDefault:"1"`
}

// Load parses settings from the environment and fills in the default state
// directory when none is set.
func Load() (*Settings, error) {
	s, err := env.ParseAs[Settings]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if s.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		s.StateDir = filepath.Join(home, ".loom")
	}

	return &s, nil
}

// StartupCheckSuppressed reports whether the environment opts out of the
// startup update check.
func (s *Settings) StartupCheckSuppressed() bool {
	if s.DisableAutoUpdater {
		return true
	}
	switch s.CI {
	case "", "false", "0":
		return false
	default:
		return true
	}
}

// RecordPath returns the install record file path.
func (s *Settings) RecordPath() string {
	return filepath.Join(s.StateDir, "install.json")
}

// BackupDir returns the backup artifact directory.
func (s *Settings) BackupDir() string {
	return filepath.Join(s.StateDir, "backups")
}

// DBPath returns the sqlite database path for the backup registry and
// update history.
func (s *Settings) DBPath() string {
	return filepath.Join(s.StateDir, "loom.db")
}

// EnsureStateDir creates the state directory if it does not exist.
func (s *Settings) EnsureStateDir() error {
	if err := os.MkdirAll(s.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}
