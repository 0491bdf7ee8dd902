package updater

// Outcome is the closed set of terminal results the update pipeline can
// produce. Every caller branches on Outcome values, never on message text.
type Outcome int

const (
	// OutcomeSkipped: the check was not attempted (cadence not due, or
	// suppressed by environment).
	OutcomeSkipped Outcome = iota
	// OutcomeUpToDate: no release strictly newer than the installed one.
	OutcomeUpToDate
	// OutcomeUpdateAvailable: a verified, strictly-newer release exists;
	// the CheckResult carries its Plan.
	OutcomeUpdateAvailable
	// OutcomeDowngradeRejected: the ledger's latest release is older than
	// the installed version. Terminal, non-error.
	OutcomeDowngradeRejected
	// OutcomeNoTrustedPublisher: the install record carries no publisher
	// identity; a full manual reinstall is required. Non-retryable.
	OutcomeNoTrustedPublisher
	// OutcomeNetworkUnavailable: the ledger could not be reached after
	// retries. The check is skipped; the host process continues.
	OutcomeNetworkUnavailable
	// OutcomeTrustRejected: a trust root disagreed with the candidate's
	// publisher identity. Fatal to the attempt, never retried.
	OutcomeTrustRejected
	// OutcomeDeclined: the user declined the interactive prompt.
	OutcomeDeclined
	// OutcomeAborted: staging failed integrity verification twice, or a
	// required precondition failed before any mutation. No side effects.
	OutcomeAborted
	// OutcomeCommitted: the update applied, verified, and was durably
	// recorded.
	OutcomeCommitted
	// OutcomeRolledBack: the apply failed and the previous release was
	// restored from its backup artifact.
	OutcomeRolledBack
	// OutcomeManualIntervention: rollback itself failed; the installation
	// needs the recovery command run by hand. The one unrecoverable
	// terminal failure mode.
	OutcomeManualIntervention
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUpToDate:
		return "up-to-date"
	case OutcomeUpdateAvailable:
		return "update-available"
	case OutcomeDowngradeRejected:
		return "downgrade-rejected"
	case OutcomeNoTrustedPublisher:
		return "no-trusted-publisher"
	case OutcomeNetworkUnavailable:
		return "network-unavailable"
	case OutcomeTrustRejected:
		return "trust-rejected"
	case OutcomeDeclined:
		return "declined"
	case OutcomeAborted:
		return "aborted"
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled-back"
	case OutcomeManualIntervention:
		return "manual-intervention-required"
	default:
		return "unknown"
	}
}
