package updater

import "fmt"

// IntegrityError reports a staged artifact whose computed digest did not
// match the release descriptor's declared digest, after the one permitted
// re-download.
type IntegrityError struct {
	ContentID string
	Declared  string
	Computed  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("content %s failed integrity verification: declared sha256 %s, computed %s",
		e.ContentID, e.Declared, e.Computed)
}

// RollbackError reports a failed rollback: the one unrecoverable failure
// mode. It carries the backup path and the exact command the user must run.
type RollbackError struct {
	Version         string
	BackupPath      string
	RecoveryCommand string
	Err             error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback to %s failed: %v; recover manually with: %s",
		e.Version, e.Err, e.RecoveryCommand)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}
