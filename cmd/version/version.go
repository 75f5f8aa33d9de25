package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These variables are set during build time via -ldflags
var (
	version   = "n/a"
	gitCommit = "n/a"
	buildTime = "n/a"
)

// VersionTemplate returns the version template for the command, used to print the version information via the --version flag
func VersionTemplate() string {
	return fmt.Sprintf("Version: %s\nGit commit: %s\nBuild time: %s\nGo version: %s\n", version, gitCommit, buildTime, runtime.Version())
}

// NewCommand returns the version subcommand, printing the same information as --version
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), VersionTemplate())
		},
	}
}
