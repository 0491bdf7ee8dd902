package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd prints the running version. The update pipeline's
// post-install verification parses this exact output, so the format is
// load-bearing: the version must be the last whitespace-separated field.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the loom version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loom %s\n", Version)
	},
}

func init() {
	// `loom --version` must satisfy the same parser.
	RootCmd.Version = Version
	RootCmd.SetVersionTemplate("loom {{.Version}}\n")
}
