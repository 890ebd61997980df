package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "costwatch",
	Short: "Costwatch - AWS cost monitoring with tiered caching",
	Long: `Costwatch keeps month-to-date AWS spending fresh and cheap to read.

It answers cost queries from a tiered cache (shared S3 tier, local tier,
then the Cost Explorer API), refreshes in the background on a schedule,
rate-limits and circuit-breaks calls to the billing API, and flags
spending anomalies against historical baselines and budgets.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "costwatch.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
