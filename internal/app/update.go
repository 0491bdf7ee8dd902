package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/output"
	"github.com/loomworks/loom/internal/updater"
)

var (
	updateCheckOnly bool
	updateForce     bool
	updateYes       bool
	updateHistory   bool

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Check for and install a newer release from the ledger",
		Long: `Query the trusted publisher's releases on the ledger and, when a
strictly newer verified release exists, download, verify, and install it.

The update is staged and hash-verified before the live installation is
touched, and the current release is archived first so a failed update
rolls back automatically.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			switch {
			case updateHistory:
				return runHistory(e)
			case updateCheckOnly:
				return runCheck(e)
			case updateForce:
				return runForce(e)
			default:
				return runUpdate(e)
			}
		},
	}
)

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "check for a newer release without installing")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "reinstall the latest release even if already current")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "install without prompting")
	updateCmd.Flags().BoolVar(&updateHistory, "history", false, "show past update outcomes")
}

// touchLastCheck stamps the record's last-check time after an explicit
// check concludes by any path, so the next launch does not repeat the
// startup check. Failures are warnings only.
func touchLastCheck(e *env) {
	if err := e.records.TouchLastCheck(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record update check time: %v\n", err)
	}
}

func runCheck(e *env) error {
	defer touchLastCheck(e)

	spinner := output.NewSpinner("Checking for updates")
	res, err := e.updater.Check(context.Background())
	spinner.Stop()
	if err != nil {
		return err
	}

	switch res.Outcome {
	case updater.OutcomeUpdateAvailable:
		fmt.Printf("Update available: %s -> %s\n", res.Plan.CurrentVersion, res.Plan.CandidateVersion)
		fmt.Println("Run 'loom update' to install it.")
	case updater.OutcomeUpToDate:
		fmt.Println("loom is up to date.")
	default:
		fmt.Println(res.Reason)
	}
	return nil
}

func runUpdate(e *env) error {
	defer touchLastCheck(e)

	spinner := output.NewSpinner("Checking for updates")
	res, err := e.updater.Check(context.Background())
	spinner.Stop()
	if err != nil {
		return err
	}

	if res.Outcome != updater.OutcomeUpdateAvailable {
		if res.Outcome == updater.OutcomeUpToDate {
			fmt.Println("loom is up to date.")
			return nil
		}
		return fmt.Errorf("update not possible: %s", res.Reason)
	}

	if !updateYes && !confirmUpdate(os.Stdin, os.Stdout, res.Plan) {
		fmt.Println("Update declined.")
		return nil
	}

	return applyPlan(e, res.Plan)
}

func runForce(e *env) error {
	defer touchLastCheck(e)

	// ForceReinstall reapplies the ledger's latest release even when it
	// matches the installed version. Trust and integrity checks still run.
	bar := output.NewDownloadBar(0, "Downloading loom")
	e.updater.Progress = bar.Update

	res, err := e.updater.ForceReinstall(context.Background())
	bar.Finish()
	if err != nil {
		return err
	}
	return reportApply(res)
}

func applyPlan(e *env, plan *updater.Plan) error {
	bar := output.NewDownloadBar(0, fmt.Sprintf("Downloading loom %s", plan.CandidateVersion))
	e.updater.Progress = bar.Update

	res, err := e.updater.Apply(context.Background(), plan)
	bar.Finish()
	if err != nil {
		return err
	}
	return reportApply(res)
}

func reportApply(res *updater.ApplyResult) error {
	switch res.Outcome {
	case updater.OutcomeCommitted:
		fmt.Println("loom updated successfully. Restart to use the new version.")
		return nil
	case updater.OutcomeUpToDate:
		fmt.Println("loom is up to date.")
		return nil
	case updater.OutcomeRolledBack:
		return fmt.Errorf("update failed and was rolled back: %s", res.Reason)
	case updater.OutcomeManualIntervention:
		fmt.Fprintf(os.Stderr, "Error: %s\n", res.Reason)
		fmt.Fprintf(os.Stderr, "Recover manually with:\n  %s\n", res.RecoveryCommand)
		return fmt.Errorf("update failed and automatic rollback was not possible")
	default:
		return fmt.Errorf("update not applied: %s", res.Reason)
	}
}

func runHistory(e *env) error {
	if e.store == nil {
		fmt.Println("No update history recorded.")
		return nil
	}

	events, err := e.store.ListEvents(50)
	if err != nil {
		return fmt.Errorf("failed to read update history: %w", err)
	}

	fmt.Print(output.RenderEventTable(events))
	return nil
}
