// Package record persists the local installation's identity: what is
// installed, who published it, and whether a rollback is pending. The record
// file is the updater's single piece of durable state and is only ever
// replaced whole, never patched in place.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loomworks/loom/internal/manifest"
)

// Mechanism identifies the package-manager backend that installed loom.
type Mechanism string

const (
	MechanismNPM Mechanism = "npm"
	MechanismBun Mechanism = "bun"
)

// ReleaseRef names one release: its version and ledger content identifier.
// ContentID may be empty for installs that predate ledger distribution.
type ReleaseRef struct {
	Version   string `json:"version"`
	ContentID string `json:"contentId,omitempty"`
}

// Record is the persisted install record.
//
// Publisher is captured once at first run from the installed package's own
// manifest and is immutable afterward except by a full manual reinstall.
// PendingRollback exists only while an apply is in flight; it is cleared on
// both successful commit and successful rollback.
type Record struct {
	Version         string      `json:"version"`
	Publisher       string      `json:"publisher"`
	ContentID       string      `json:"contentId,omitempty"`
	InstalledAt     time.Time   `json:"installedAt"`
	LastCheck       time.Time   `json:"lastCheck"`
	Mechanism       Mechanism   `json:"mechanism"`
	Previous        *ReleaseRef `json:"previous,omitempty"`
	PendingRollback *ReleaseRef `json:"pendingRollback,omitempty"`
}

// Current returns the ReleaseRef for the currently installed release.
func (r *Record) Current() ReleaseRef {
	return ReleaseRef{Version: r.Version, ContentID: r.ContentID}
}

// IsCheckDue reports whether the last update check is older than interval.
func (r *Record) IsCheckDue(interval time.Duration) bool {
	return time.Since(r.LastCheck) > interval
}

// Store reads and writes the install record file.
type Store struct {
	path string
}

// NewStore creates a Store backed by the record file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the record file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted record. A missing file returns (nil, nil). A
// corrupt file is logged as a warning and also returns (nil, nil): the
// caller re-bootstraps rather than failing the host process.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read install record: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: install record %s is corrupt, reinitializing: %v\n", s.path, err)
		return nil, nil
	}
	return &r, nil
}

// Save writes the full record atomically: marshal, write to a temp file in
// the same directory, fsync, rename over the old file. A concurrent reader
// sees either the old record or the new one, never a torn write.
func (s *Store) Save(r *Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal install record: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".install-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp record file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write install record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync install record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp record file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace install record: %w", err)
	}
	return nil
}

// FirstRunInit bootstraps the install record from the currently installed
// package's own manifest. This is where Root-of-Trust #1 is established: the
// publisher identity read here is pinned until a full manual reinstall.
func (s *Store) FirstRunInit(m *manifest.Manifest, mech Mechanism) (*Record, error) {
	now := time.Now().UTC()
	r := &Record{
		Version:     m.Version,
		Publisher:   m.Publisher,
		InstalledAt: now,
		LastCheck:   now,
		Mechanism:   mech,
	}
	if err := s.Save(r); err != nil {
		return nil, fmt.Errorf("failed to persist initial install record: %w", err)
	}
	return r, nil
}

// TouchLastCheck refreshes the persisted record's last-check timestamp. It
// re-loads before writing so a commit that happened during the check
// sequence is never clobbered by stale in-memory state. Called exactly once
// per check attempt, after the attempt concludes by any path.
func (s *Store) TouchLastCheck() error {
	r, err := s.Load()
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	r.LastCheck = time.Now().UTC()
	return s.Save(r)
}
