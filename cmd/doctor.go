package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/pigeon/internal/config"
	"github.com/timvw/pigeon/internal/doctor"
	"github.com/timvw/pigeon/internal/logging"
)

var flagTheme string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the host installation",
	Long: `Check that the host can find its config, write its log and reach tmux.

Also reports a leftover tmux_target line in the old ~/.config/pigeon/config
file. The host ignores it; the browser extension always names the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := inspect()
		if err != nil {
			return err
		}
		logPath, err := logging.Path(rt.cfg)
		if err != nil {
			return err
		}

		checks := doctor.Run(cmd.Context(), doctor.Env{
			Config:  rt.cfg,
			LogPath: logPath,
			Binary:  rt.tmux.Binary,
			Tmux:    rt.tmux,
			Legacy:  config.LegacyOverride,
		})
		fmt.Fprint(cmd.OutOrStdout(), doctor.Render("pigeon-host "+Version, checks, doctor.ThemeByName(flagTheme)))

		if doctor.Failed(checks) {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().StringVar(&flagTheme, "theme", "dark", "Color theme: dark, light")
	rootCmd.AddCommand(doctorCmd)
}
