package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/updater"
)

var (
	noUpdateCheck bool

	// Version is the release version stamped at build time via ldflags.
	Version = "dev"

	// RootCmd is the root command for loom
	RootCmd = &cobra.Command{
		Use:   "loom",
		Short: "Terminal AI assistant distributed over the permaweb",
		Long: `loom is a terminal AI assistant whose releases are published to a
permanent, content-addressed ledger instead of a conventional registry.

Each release is an immutable ledger transaction tagged with its version,
content hash, and the publisher's wallet identity. loom checks its own
trusted ledger for newer releases at startup and can update itself in
place, with an automatic backup and rollback if the new release fails
verification.

Examples:
  # Check whether a newer release is published
  loom update --check

  # Update to the latest release
  loom update

  # Reinstall the current release from the ledger
  loom update --force

  # View past update outcomes
  loom update --history

  # List backup artifacts available for rollback
  loom backups`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runStartupCheck()

			fmt.Println("loom: terminal AI assistant")
			fmt.Println()
			fmt.Println("Tip: Run 'loom update --check' to check for a newer release.")
			fmt.Println("     Run 'loom --help' for all commands.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVar(&noUpdateCheck, "no-update-check", false,
		"skip the automatic startup update check")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(backupsCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// runStartupCheck performs the bounded automatic update check that the
// bare `loom` invocation carries. Every failure path is non-fatal: the
// assistant always starts.
func runStartupCheck() {
	if noUpdateCheck {
		return
	}

	e, err := newEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: update check skipped: %v\n", err)
		return
	}
	defer e.Close()

	if e.settings.StartupCheckSuppressed() {
		return
	}

	interval := time.Duration(e.settings.CheckIntervalDays) * 24 * time.Hour

	confirm := func(plan *updater.Plan) bool {
		return confirmUpdate(os.Stdin, os.Stdout, plan)
	}

	outcome := e.updater.StartupCheck(context.Background(), interval, confirm)
	switch outcome {
	case updater.OutcomeCommitted:
		fmt.Println("loom updated successfully. Restart to use the new version.")
	case updater.OutcomeRolledBack:
		fmt.Fprintln(os.Stderr, "Warning: update failed and was rolled back; continuing with the current version.")
	case updater.OutcomeManualIntervention:
		fmt.Fprintln(os.Stderr, "Warning: update and rollback both failed; run 'loom update --history' for details.")
	}
}
