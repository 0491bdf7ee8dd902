// Package updater sequences the update pipeline: check, stage, verify,
// back up, apply, verify, and commit or roll back. It owns the install
// record and the backup artifacts; no other component mutates them.
package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/loom/internal/ledger"
	"github.com/loomworks/loom/internal/manifest"
	"github.com/loomworks/loom/internal/pm"
	"github.com/loomworks/loom/internal/record"
	"github.com/loomworks/loom/internal/semver"
	"github.com/loomworks/loom/internal/store"
	"github.com/loomworks/loom/internal/trust"
)

// startupDeadline bounds the whole startup check-through-apply sequence.
const startupDeadline = 5 * time.Second

// rollbackTimeout bounds the restore attempt. Rollback never inherits the
// forward apply's context: its deadline may already have expired, and
// abandoning the apply must not forfeit the restore.
const rollbackTimeout = 2 * time.Minute

// LedgerClient is the ledger read surface the updater consumes.
type LedgerClient interface {
	QueryLatestRelease(ctx context.Context, publisher string) (*ledger.Descriptor, error)
	Download(ctx context.Context, contentID string, progress func(read, total int64)) ([]byte, error)
}

// Installer is the package-manager backend surface.
type Installer interface {
	GlobalInstall(ctx context.Context, artifactPath string) error
	InstalledVersion(ctx context.Context) (string, error)
	RecoveryCommand(artifactPath string) string
}

// BackupStore creates and locates backup artifacts.
type BackupStore interface {
	Create(ctx context.Context, version, pkgDir string) (string, error)
	Find(version string) (string, error)
	Path(version string) string
}

// ManifestSource reads the installed package's manifest and locates its
// root directory.
type ManifestSource interface {
	ReadInstalled() (*manifest.Manifest, error)
	PackageRoot() (string, error)
}

// EventSink receives update history entries. May be nil; history failures
// never affect update control flow.
type EventSink interface {
	InsertEvent(e *store.UpdateEvent) error
}

// Plan is the ephemeral product of a successful check: everything Apply
// needs, consumed once and never persisted.
type Plan struct {
	CurrentVersion   string
	CandidateVersion string
	ContentID        string
	SHA256           string
	Publisher        string
}

// CheckResult is the outcome of a check. Plan is non-nil only for
// OutcomeUpdateAvailable.
type CheckResult struct {
	Outcome Outcome
	Plan    *Plan
	// Latest is the ledger's newest version string, when one was found.
	Latest string
	// Reason is a human-readable explanation for terminal non-success
	// outcomes.
	Reason string
}

// ApplyResult is the outcome of an apply attempt.
type ApplyResult struct {
	Outcome Outcome
	Reason  string
	// BackupPath is where the pre-update backup artifact is (or was
	// expected to be, for OutcomeManualIntervention).
	BackupPath string
	// RecoveryCommand is the exact command to run by hand, set only for
	// OutcomeManualIntervention.
	RecoveryCommand string
}

// Updater wires the pipeline's collaborators together.
type Updater struct {
	Ledger    LedgerClient
	Records   *record.Store
	Installer Installer
	Backups   BackupStore
	Manifests ManifestSource
	// Events may be nil.
	Events EventSink

	// DetectMech overrides mechanism detection at first run. Nil uses
	// pm.Detect.
	DetectMech func() record.Mechanism

	// RequireBackup aborts the update when backup creation fails, instead
	// of proceeding with degraded rollback safety.
	RequireBackup bool

	// Progress receives download progress. May be nil.
	Progress func(read, total int64)

	// Out and Errout default to os.Stdout and os.Stderr.
	Out    io.Writer
	Errout io.Writer
}

func (u *Updater) out() io.Writer {
	if u.Out != nil {
		return u.Out
	}
	return os.Stdout
}

func (u *Updater) errout() io.Writer {
	if u.Errout != nil {
		return u.Errout
	}
	return os.Stderr
}

// ensureRecord loads the install record, bootstrapping it from the
// installed package's manifest on first run.
func (u *Updater) ensureRecord() (*record.Record, error) {
	rec, err := u.Records.Load()
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	man, err := u.Manifests.ReadInstalled()
	if err != nil {
		return nil, fmt.Errorf("cannot bootstrap install record: %w", err)
	}

	detect := u.DetectMech
	if detect == nil {
		detect = pm.Detect
	}

	return u.Records.FirstRunInit(man, detect())
}

// logEvent appends to the update history; failures are warnings only.
func (u *Updater) logEvent(outcome Outcome, from, to, contentID, detail string) {
	if u.Events == nil {
		return
	}
	err := u.Events.InsertEvent(&store.UpdateEvent{
		Outcome:     outcome.String(),
		FromVersion: from,
		ToVersion:   to,
		ContentID:   contentID,
		Detail:      detail,
	})
	if err != nil {
		fmt.Fprintf(u.errout(), "Warning: failed to record update event: %v\n", err)
	}
}

// Check resolves the trusted publisher, queries the ledger, and decides
// whether a strictly-newer, trust-verified release exists. It never mutates
// the installation; the last-check timestamp is the caller's concern.
func (u *Updater) Check(ctx context.Context) (*CheckResult, error) {
	rec, err := u.ensureRecord()
	if err != nil {
		return nil, err
	}

	if rec.Publisher == "" {
		res := &CheckResult{
			Outcome: OutcomeNoTrustedPublisher,
			Reason:  "install record has no trusted publisher; reinstall loom to re-establish trust",
		}
		u.logEvent(res.Outcome, rec.Version, "", "", res.Reason)
		return res, nil
	}

	desc, err := u.Ledger.QueryLatestRelease(ctx, rec.Publisher)
	if err != nil {
		if netErr, ok := asNetError(err); ok {
			res := &CheckResult{Outcome: OutcomeNetworkUnavailable, Reason: netErr.Error()}
			u.logEvent(res.Outcome, rec.Version, "", "", res.Reason)
			return res, nil
		}
		return nil, err
	}

	if desc == nil {
		res := &CheckResult{Outcome: OutcomeUpToDate}
		u.logEvent(res.Outcome, rec.Version, "", "", "no release found on ledger")
		return res, nil
	}

	current, err := semver.Parse(rec.Version)
	if err != nil {
		return nil, fmt.Errorf("install record has invalid version: %w", err)
	}
	candidate, err := semver.Parse(desc.Version)
	if err != nil {
		// The ledger client filters these; reaching here is a bug.
		return nil, fmt.Errorf("ledger returned invalid version: %w", err)
	}

	if !semver.IsStrictlyNewer(candidate, current) {
		if semver.Compare(candidate, current) == 0 {
			res := &CheckResult{Outcome: OutcomeUpToDate, Latest: desc.Version}
			u.logEvent(res.Outcome, rec.Version, desc.Version, desc.ContentID, "")
			return res, nil
		}
		res := &CheckResult{
			Outcome: OutcomeDowngradeRejected,
			Latest:  desc.Version,
			Reason: fmt.Sprintf("ledger's latest release %s is older than installed %s; downgrades are not applied",
				desc.Version, rec.Version),
		}
		u.logEvent(res.Outcome, rec.Version, desc.Version, desc.ContentID, res.Reason)
		return res, nil
	}

	if err := u.verifyTrust(desc.Publisher, rec); err != nil {
		res := &CheckResult{Outcome: OutcomeTrustRejected, Latest: desc.Version, Reason: err.Error()}
		u.logEvent(res.Outcome, rec.Version, desc.Version, desc.ContentID, res.Reason)
		return res, nil
	}

	return &CheckResult{
		Outcome: OutcomeUpdateAvailable,
		Latest:  desc.Version,
		Plan: &Plan{
			CurrentVersion:   rec.Version,
			CandidateVersion: desc.Version,
			ContentID:        desc.ContentID,
			SHA256:           desc.SHA256,
			Publisher:        desc.Publisher,
		},
	}, nil
}

// verifyTrust re-reads the installed manifest (root #2) and cross-checks
// both roots against the candidate publisher. A manifest that cannot be
// read fails closed.
func (u *Updater) verifyTrust(candidatePublisher string, rec *record.Record) error {
	man, err := u.Manifests.ReadInstalled()
	if err != nil {
		return fmt.Errorf("cannot read installed manifest to verify trust: %w", err)
	}
	return trust.Verify(candidatePublisher, rec, man)
}

// Apply drives staging, integrity verification, backup, install, post-install
// verification, and commit or rollback for the given plan.
func (u *Updater) Apply(ctx context.Context, plan *Plan) (*ApplyResult, error) {
	rec, err := u.ensureRecord()
	if err != nil {
		return nil, err
	}

	// Staging: download and verify before anything touches the live
	// installation.
	stageDir := filepath.Join(os.TempDir(), "loom-stage-"+uuid.NewString())
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stageDir)

	data, err := u.downloadVerified(ctx, plan)
	if err != nil {
		if netErr, ok := asNetError(err); ok {
			res := &ApplyResult{Outcome: OutcomeNetworkUnavailable, Reason: netErr.Error()}
			u.logEvent(res.Outcome, plan.CurrentVersion, plan.CandidateVersion, plan.ContentID, res.Reason)
			return res, nil
		}
		if intErr, ok := err.(*IntegrityError); ok {
			res := &ApplyResult{Outcome: OutcomeAborted, Reason: intErr.Error()}
			u.logEvent(res.Outcome, plan.CurrentVersion, plan.CandidateVersion, plan.ContentID, res.Reason)
			return res, nil
		}
		return nil, err
	}

	stagedPath := filepath.Join(stageDir, fmt.Sprintf("%s-%s.tgz", manifest.AppName, plan.CandidateVersion))
	if err := os.WriteFile(stagedPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write staged artifact: %w", err)
	}

	// Backing up: produce an installable archive of the current release
	// before any mutation.
	backupPath, err := u.backupCurrent(ctx, rec)
	if err != nil {
		if u.RequireBackup {
			res := &ApplyResult{
				Outcome: OutcomeAborted,
				Reason:  fmt.Sprintf("backup required but failed: %v", err),
			}
			u.logEvent(res.Outcome, plan.CurrentVersion, plan.CandidateVersion, plan.ContentID, res.Reason)
			return res, nil
		}
		fmt.Fprintf(u.errout(), "Warning: backup of %s failed, continuing with degraded rollback safety: %v\n",
			rec.Version, err)
	}

	// Mark the apply in flight so a rollback target survives a crash.
	pending := rec.Current()
	rec.PendingRollback = &pending
	if err := u.Records.Save(rec); err != nil {
		return nil, fmt.Errorf("failed to record pending rollback: %w", err)
	}

	// Applying: replace the live installation.
	if err := u.Installer.GlobalInstall(ctx, stagedPath); err != nil {
		fmt.Fprintf(u.errout(), "Install of %s failed: %v\n", plan.CandidateVersion, err)
		return u.rollback(rec, plan, fmt.Sprintf("install failed: %v", err)), nil
	}

	// Verifying: the installed binary itself must report the candidate
	// version. The package manager's exit code alone is not proof.
	reported, err := u.Installer.InstalledVersion(ctx)
	if err != nil {
		fmt.Fprintf(u.errout(), "Post-install verification failed: %v\n", err)
		return u.rollback(rec, plan, fmt.Sprintf("version probe failed: %v", err)), nil
	}
	if reported != plan.CandidateVersion {
		fmt.Fprintf(u.errout(), "Post-install verification failed: binary reports %s, expected %s\n",
			reported, plan.CandidateVersion)
		return u.rollback(rec, plan,
			fmt.Sprintf("installed binary reports %s, expected %s", reported, plan.CandidateVersion)), nil
	}

	// Commit.
	prev := rec.Current()
	rec.Previous = &prev
	rec.Version = plan.CandidateVersion
	rec.ContentID = plan.ContentID
	rec.InstalledAt = time.Now().UTC()
	rec.PendingRollback = nil
	if err := u.Records.Save(rec); err != nil {
		return nil, fmt.Errorf("update applied but commit failed: %w", err)
	}

	res := &ApplyResult{Outcome: OutcomeCommitted, BackupPath: backupPath}
	u.logEvent(res.Outcome, plan.CurrentVersion, plan.CandidateVersion, plan.ContentID, "")
	return res, nil
}

// downloadVerified downloads the candidate and checks its digest. A
// mismatch retries the full download once; a second mismatch returns an
// IntegrityError.
func (u *Updater) downloadVerified(ctx context.Context, plan *Plan) ([]byte, error) {
	var lastComputed string
	for attempt := 0; attempt < 2; attempt++ {
		data, err := u.Ledger.Download(ctx, plan.ContentID, u.Progress)
		if err != nil {
			return nil, err
		}
		if VerifySHA256(data, plan.SHA256) {
			return data, nil
		}
		lastComputed = computeSHA256(data)
		if attempt == 0 {
			fmt.Fprintf(u.errout(), "Warning: downloaded content hash mismatch for %s, retrying download\n",
				plan.ContentID)
		}
	}
	return nil, &IntegrityError{ContentID: plan.ContentID, Declared: plan.SHA256, Computed: lastComputed}
}

// backupCurrent packs the installed package into the backup directory.
func (u *Updater) backupCurrent(ctx context.Context, rec *record.Record) (string, error) {
	pkgRoot, err := u.Manifests.PackageRoot()
	if err != nil {
		return "", fmt.Errorf("cannot locate installed package: %w", err)
	}
	return u.Backups.Create(ctx, rec.Version, pkgRoot)
}

// rollback restores the pre-update release from its backup artifact. On
// success the pending-rollback pair is cleared and the restored version
// persisted; on failure the result carries the exact recovery command.
func (u *Updater) rollback(rec *record.Record, plan *Plan, detail string) *ApplyResult {
	// The apply that got us here may have failed because its context
	// expired; the restore runs on a fresh one.
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()

	pending := rec.PendingRollback
	if pending == nil {
		// Defensive: rollback is only reachable with the pair set.
		pending = &record.ReleaseRef{Version: rec.Version, ContentID: rec.ContentID}
	}

	fmt.Fprintf(u.out(), "Rolling back to %s...\n", pending.Version)

	artifactPath, err := u.Backups.Find(pending.Version)
	if err != nil {
		expected := u.Backups.Path(pending.Version)
		return u.manualIntervention(rec, plan, pending.Version, expected,
			fmt.Sprintf("%s; %v", detail, err))
	}

	if err := u.Installer.GlobalInstall(ctx, artifactPath); err != nil {
		return u.manualIntervention(rec, plan, pending.Version, artifactPath,
			fmt.Sprintf("%s; reinstall of backup failed: %v", detail, err))
	}

	rec.Version = pending.Version
	rec.ContentID = pending.ContentID
	rec.PendingRollback = nil
	if err := u.Records.Save(rec); err != nil {
		fmt.Fprintf(u.errout(), "Warning: rollback succeeded but the install record could not be updated: %v\n", err)
	}

	res := &ApplyResult{Outcome: OutcomeRolledBack, Reason: detail, BackupPath: artifactPath}
	u.logEvent(res.Outcome, plan.CandidateVersion, pending.Version, pending.ContentID, detail)
	return res
}

func (u *Updater) manualIntervention(rec *record.Record, plan *Plan, version, artifactPath, detail string) *ApplyResult {
	rbErr := &RollbackError{
		Version:         version,
		BackupPath:      artifactPath,
		RecoveryCommand: u.Installer.RecoveryCommand(artifactPath),
		Err:             errors.New(detail),
	}
	res := &ApplyResult{
		Outcome:         OutcomeManualIntervention,
		Reason:          rbErr.Error(),
		BackupPath:      rbErr.BackupPath,
		RecoveryCommand: rbErr.RecoveryCommand,
	}
	u.logEvent(res.Outcome, plan.CurrentVersion, plan.CandidateVersion, plan.ContentID, res.Reason)
	return res
}

// ForceReinstall re-fetches and reapplies the ledger's latest release for
// the trusted publisher, even when it equals the installed version. Trust
// and integrity verification are not bypassed.
func (u *Updater) ForceReinstall(ctx context.Context) (*ApplyResult, error) {
	rec, err := u.ensureRecord()
	if err != nil {
		return nil, err
	}

	if rec.Publisher == "" {
		return &ApplyResult{
			Outcome: OutcomeNoTrustedPublisher,
			Reason:  "install record has no trusted publisher; reinstall loom to re-establish trust",
		}, nil
	}

	desc, err := u.Ledger.QueryLatestRelease(ctx, rec.Publisher)
	if err != nil {
		if netErr, ok := asNetError(err); ok {
			return &ApplyResult{Outcome: OutcomeNetworkUnavailable, Reason: netErr.Error()}, nil
		}
		return nil, err
	}
	if desc == nil {
		return &ApplyResult{Outcome: OutcomeUpToDate, Reason: "no release found on ledger"}, nil
	}

	if err := u.verifyTrust(desc.Publisher, rec); err != nil {
		res := &ApplyResult{Outcome: OutcomeTrustRejected, Reason: err.Error()}
		u.logEvent(res.Outcome, rec.Version, desc.Version, desc.ContentID, res.Reason)
		return res, nil
	}

	return u.Apply(ctx, &Plan{
		CurrentVersion:   rec.Version,
		CandidateVersion: desc.Version,
		ContentID:        desc.ContentID,
		SHA256:           desc.SHA256,
		Publisher:        desc.Publisher,
	})
}

// StartupCheck runs the check-through-apply sequence under one hard
// deadline. The last-check timestamp is refreshed exactly once, after the
// attempt concludes by any path: success, decline, error, or timeout.
// confirm is consulted only when an update is available.
func (u *Updater) StartupCheck(ctx context.Context, interval time.Duration, confirm func(plan *Plan) bool) Outcome {
	rec, err := u.ensureRecord()
	if err != nil {
		fmt.Fprintf(u.errout(), "Warning: update check skipped: %v\n", err)
		return OutcomeSkipped
	}

	if !rec.IsCheckDue(interval) {
		return OutcomeSkipped
	}

	ctx, cancel := context.WithTimeout(ctx, startupDeadline)
	defer cancel()

	defer func() {
		if err := u.Records.TouchLastCheck(); err != nil {
			fmt.Fprintf(u.errout(), "Warning: failed to record update check time: %v\n", err)
		}
	}()

	res, err := u.Check(ctx)
	if err != nil {
		fmt.Fprintf(u.errout(), "Warning: update check failed: %v\n", err)
		return OutcomeSkipped
	}

	if res.Outcome != OutcomeUpdateAvailable {
		return res.Outcome
	}

	if confirm == nil || !confirm(res.Plan) {
		u.logEvent(OutcomeDeclined, res.Plan.CurrentVersion, res.Plan.CandidateVersion, res.Plan.ContentID, "")
		return OutcomeDeclined
	}

	applyRes, err := u.Apply(ctx, res.Plan)
	if err != nil {
		fmt.Fprintf(u.errout(), "Warning: update failed: %v\n", err)
		return OutcomeSkipped
	}
	return applyRes.Outcome
}

func asNetError(err error) (*ledger.NetError, bool) {
	var netErr *ledger.NetError
	if errors.As(err, &netErr) {
		return netErr, true
	}
	return nil, false
}
