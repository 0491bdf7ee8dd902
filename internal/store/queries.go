package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Backup operations

// InsertBackup registers a backup artifact and returns its ID.
func (s *Store) InsertBackup(version, mechanism, artifactPath string) (int64, error) {
	query := `
		INSERT INTO backups (created_at, version, mechanism, artifact_path)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.Exec(query, time.Now().UTC().Format(time.RFC3339), version, mechanism, artifactPath)
	if err != nil {
		return 0, fmt.Errorf("failed to insert backup for %s: %w", version, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get backup ID: %w", err)
	}
	return id, nil
}

// GetBackupByVersion returns the most recent backup registered for version.
func (s *Store) GetBackupByVersion(version string) (*Backup, error) {
	query := `
		SELECT id, created_at, version, mechanism, artifact_path
		FROM backups
		WHERE version = ?
		ORDER BY id DESC
		LIMIT 1
	`

	b, err := scanBackup(s.db.QueryRow(query, version))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no backup registered for version %s", version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backup for %s: %w", version, err)
	}
	return b, nil
}

// ListBackups returns all backups, newest first.
func (s *Store) ListBackups() ([]*Backup, error) {
	query := `
		SELECT id, created_at, version, mechanism, artifact_path
		FROM backups
		ORDER BY id DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var backups []*Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBackup(row rowScanner) (*Backup, error) {
	var b Backup
	var createdAt string
	if err := row.Scan(&b.ID, &createdAt, &b.Version, &b.Mechanism, &b.ArtifactPath); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	b.CreatedAt = t
	return &b, nil
}

// Update event operations

// InsertEvent appends an update event to the history.
func (s *Store) InsertEvent(e *UpdateEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO update_events (timestamp, outcome, from_version, to_version, content_id, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		e.Timestamp.Format(time.RFC3339),
		e.Outcome,
		e.FromVersion,
		e.ToVersion,
		e.ContentID,
		e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert update event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent update events, newest first, bounded
// by limit (0 means no bound).
func (s *Store) ListEvents(limit int) ([]*UpdateEvent, error) {
	query := `
		SELECT id, timestamp, outcome, from_version, to_version, content_id, detail
		FROM update_events
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list update events: %w", err)
	}
	defer rows.Close()

	var events []*UpdateEvent
	for rows.Next() {
		var e UpdateEvent
		var timestamp string
		if err := rows.Scan(&e.ID, &timestamp, &e.Outcome, &e.FromVersion, &e.ToVersion, &e.ContentID, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan update event: %w", err)
		}
		t, err := time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp: %w", err)
		}
		e.Timestamp = t
		events = append(events, &e)
	}
	return events, rows.Err()
}
