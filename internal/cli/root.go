// Package cli defines the lonwatch command tree.
package cli

import (
	"github.com/spf13/cobra"

	"lonwatch/internal/app"
	"lonwatch/internal/config"
	"lonwatch/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "lonwatch",
	Short: "Find when sun and moon ecliptic longitudes return to their starting values",
	Long: `lonwatch scans a time window for the instants at which the sun's ecliptic
longitude, the moon's ecliptic longitude, and the moon-sun separation return
to the values they had at the start of the window.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		application = app.NewApp(cfg, logger)
		return nil
	},
}

func getApp() *app.App {
	return application
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (trace|debug|info|warn|error)")
}
