// Package main provides the racecapture command line: snapshot capture,
// the per-date pipeline and the leakage-safe feature build.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "racecapture",
	Short: "Capture racing market snapshots and build leakage-safe features",
	Long: `racecapture records pre-start snapshots of every race, normalizes the raw
captures into relations, aggregates daily summaries and builds point-in-time
correct feature tables for training and inference.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		newMonitorCmd(),
		newCrawlCmd(),
		newTransformCmd(),
		newAggregateCmd(),
		newFeaturesCmd(),
		newRunCmd(),
		newDaemonCmd(),
		newVerifyLeakageCmd(),
		newVersionCmd(),
	)
}

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "racecapture %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
