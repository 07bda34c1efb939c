package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"asrs-monitor/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "asrs-monitor",
	Short: "ASRS controller log monitor",
	Long: `asrs-monitor reads shuttle controller logs, decodes their register payloads
and correlates alarm states with the last normal record of each line.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to configuration file")
	rootCmd.AddCommand(serveCmd, reportCmd, exportCmd, seedCmd)
}
