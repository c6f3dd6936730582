// Package cli implements the casefile command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/casefile/internal/logger"
)

// version is the build version, overridden at link time.
var version = "dev"

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "casefile",
	Short: "Evidence ingestion and normalisation pipeline",
	Long: `casefile ingests chat exports, PDF documents and provider email into a
unified evidence store, and builds timelines, evidence analyses and
reports from it through a generation collaborator.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.casefile)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
