package cli

import (
	"github.com/spf13/cobra"

	"lonwatch/internal/app"
)

var findOpts app.FindOptions

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search a window for longitude return events and print them",
	Example: `  lonwatch find --from "2024-01-01 00:00:00" --to "2025-01-01 00:00:00"
  lonwatch find --from 2024-01-01 --to 2024-04-01 --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Find(cmd.Context(), cmd.OutOrStdout(), findOpts)
	},
}

func init() {
	findCmd.Flags().StringVar(&findOpts.From, "from", "", "window start in the configured timezone (required)")
	findCmd.Flags().StringVar(&findOpts.To, "to", "", "window end in the configured timezone (required)")
	findCmd.Flags().BoolVar(&findOpts.Save, "save", false, "persist the report to the database")
	_ = findCmd.MarkFlagRequired("from")
	_ = findCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(findCmd)
}
