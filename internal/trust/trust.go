// Package trust cross-checks a candidate release's publisher identity
// against two independent roots: the identity pinned in the install record
// at first run, and the identity re-read from the installed package's own
// manifest at verification time. Both must agree with the candidate and
// with each other; any disagreement fails closed.
//
// The two-root design exists so that an attacker who can edit the local
// install record cannot silently redirect future updates: the manifest root
// lives inside the previously-verified installed artifact, out of reach of
// record edits.
package trust

import (
	"fmt"

	"github.com/loomworks/loom/internal/manifest"
	"github.com/loomworks/loom/internal/record"
)

// MismatchKind names which comparison failed.
type MismatchKind int

const (
	// KindRootsDisagree: the install record and the installed manifest
	// carry different publisher identities. One of them has been tampered
	// with or the installation is inconsistent.
	KindRootsDisagree MismatchKind = iota
	// KindRecordMismatch: the candidate's publisher differs from the
	// identity pinned in the install record.
	KindRecordMismatch
	// KindManifestMismatch: the candidate's publisher differs from the
	// identity in the installed package's manifest.
	KindManifestMismatch
)

func (k MismatchKind) String() string {
	switch k {
	case KindRootsDisagree:
		return "trust roots disagree"
	case KindRecordMismatch:
		return "install record publisher mismatch"
	case KindManifestMismatch:
		return "installed manifest publisher mismatch"
	default:
		return "unknown mismatch"
	}
}

// MismatchError reports a failed publisher verification. It carries all
// three identities so the failure can be reported without re-deriving them.
type MismatchError struct {
	Kind              MismatchKind
	Candidate         string
	RecordPublisher   string
	ManifestPublisher string
}

func (e *MismatchError) Error() string {
	switch e.Kind {
	case KindRootsDisagree:
		return fmt.Sprintf("%s: install record has %q, installed manifest has %q",
			e.Kind, e.RecordPublisher, e.ManifestPublisher)
	case KindRecordMismatch:
		return fmt.Sprintf("%s: candidate published by %q, record trusts %q",
			e.Kind, e.Candidate, e.RecordPublisher)
	case KindManifestMismatch:
		return fmt.Sprintf("%s: candidate published by %q, manifest trusts %q",
			e.Kind, e.Candidate, e.ManifestPublisher)
	default:
		return e.Kind.String()
	}
}

// Verify checks candidatePublisher against both trust roots. It returns nil
// only when the record, the manifest, and the candidate all carry the same
// identity. Verification is never retried; a mismatch is fatal to the
// update attempt.
func Verify(candidatePublisher string, rec *record.Record, m *manifest.Manifest) error {
	if rec.Publisher != m.Publisher {
		return &MismatchError{
			Kind:              KindRootsDisagree,
			Candidate:         candidatePublisher,
			RecordPublisher:   rec.Publisher,
			ManifestPublisher: m.Publisher,
		}
	}
	if candidatePublisher != rec.Publisher {
		return &MismatchError{
			Kind:              KindRecordMismatch,
			Candidate:         candidatePublisher,
			RecordPublisher:   rec.Publisher,
			ManifestPublisher: m.Publisher,
		}
	}
	if candidatePublisher != m.Publisher {
		return &MismatchError{
			Kind:              KindManifestMismatch,
			Candidate:         candidatePublisher,
			RecordPublisher:   rec.Publisher,
			ManifestPublisher: m.Publisher,
		}
	}
	return nil
}
