package cli

import (
	"github.com/spf13/cobra"

	"lonwatch/internal/app"
)

var exportOpts app.ExportOptions

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write return events to CSV and/or render a longitude chart",
	Example: `  lonwatch export --from 2024-01-01 --to 2025-01-01 --csv events.csv
  lonwatch export --from 2024-01-01 --to 2024-02-01 --png longitudes.png --max-points 2000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), exportOpts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOpts.From, "from", "", "window start in the configured timezone (required)")
	exportCmd.Flags().StringVar(&exportOpts.To, "to", "", "window end in the configured timezone (required)")
	exportCmd.Flags().StringVar(&exportOpts.CSVPath, "csv", "", "write events to this CSV file")
	exportCmd.Flags().StringVar(&exportOpts.PNGPath, "png", "", "render the longitude chart to this PNG file")
	exportCmd.Flags().IntVar(&exportOpts.MaxPoints, "max-points", 0, "cap chart samples (default from config)")
	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(exportCmd)
}
