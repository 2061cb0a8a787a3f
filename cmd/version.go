package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the host version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pigeon-host %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
