package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/output"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backup artifacts available for rollback",
	Long: `List the backup artifacts created before each update. Every artifact
is an installable archive; if an update leaves the installation broken,
any listed version can be restored by hand with the package manager.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		backups, err := e.backups.List()
		if err != nil {
			return fmt.Errorf("failed to list backups: %w", err)
		}

		fmt.Print(output.RenderBackupTable(backups))
		return nil
	},
}
