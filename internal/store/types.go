package store

import "time"

// Backup is one registered backup artifact: an installable archive of a
// release that was current immediately before an apply.
type Backup struct {
	ID           int64
	CreatedAt    time.Time
	Version      string
	Mechanism    string
	ArtifactPath string
}

// UpdateEvent is one entry in the append-only update history.
type UpdateEvent struct {
	ID          int64
	Timestamp   time.Time
	Outcome     string
	FromVersion string
	ToVersion   string
	ContentID   string
	Detail      string
}
