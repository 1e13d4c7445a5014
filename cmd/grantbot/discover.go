package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"grantbot/orchestrator"
	"grantbot/types"
)

var discoverMaxSources int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery pass and print the report",
	Long: `Crawl the enabled sources once, score and persist relevant candidates,
then print the run report and candidates as JSON on stdout. The summary block
goes to stderr.

Examples:
  grantbot discover
  grantbot discover --max-sources 3 > run.json`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverMaxSources, "max-sources", 0, "limit the number of sources crawled (0 means all)")
}

// discoverOutput is the JSON document printed by discover
type discoverOutput struct {
	Report     types.RunReport   `json:"report"`
	Candidates []types.Candidate `json:"candidates"`
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, candidates, runErr := a.orch.Run(ctx, orchestrator.RunOptions{
		MaxSources:  discoverMaxSources,
		RequestedBy: "cli",
	})
	for _, line := range orchestrator.SummaryLines(report) {
		fmt.Fprintln(os.Stderr, line)
	}
	if err := writeDiscoverOutput(cmd.OutOrStdout(), report, candidates); err != nil {
		return err
	}
	return runErr
}

func writeDiscoverOutput(w io.Writer, report types.RunReport, candidates []types.Candidate) error {
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(discoverOutput{Report: report, Candidates: candidates}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
