// Package main implements the grantbot CLI: the API server, one-shot
// discovery and change checks, the Kafka worker and the review TUI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "grantbot",
	Short: "Grant discovery and relevance scoring",
	Long: `grantbot crawls configured funding sources, scores every item against a
weighted keyword taxonomy and keeps the relevant ones as candidates for review.
Accepted grants are tracked and re-checked for deadline, amount and status changes.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default grantbot.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json, console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(reviewCmd)
}
