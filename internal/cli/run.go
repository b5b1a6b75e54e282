package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch continuously for new return events",
	Long: `Fixes the three baselines at startup and extends the search on every tick,
logging and persisting events as they occur. A postgres advisory lock keeps
concurrent watchers from double-processing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
