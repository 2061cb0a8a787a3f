package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list-sessions",
	Short: "List the tmux sessions the host can deliver to",
	Long: `List tmux session names, one per line, in the order tmux reports them.

This is the same query the browser extension issues to fill its target
picker. With no tmux server running it fails instead of printing nothing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := inspect()
		if err != nil {
			return err
		}

		names, err := rt.tmux.ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
