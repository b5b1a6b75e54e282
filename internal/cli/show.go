package cli

import (
	"github.com/spf13/cobra"

	"lonwatch/internal/app"
)

var showOpts app.ShowOptions

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List the most recent persisted return events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), cmd.OutOrStdout(), showOpts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showOpts.Limit, "limit", 20, "maximum number of events to list")
	rootCmd.AddCommand(showCmd)
}
