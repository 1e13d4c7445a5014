package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Re-check every tracked item for changes",
	Long: `Fetch every tracked page, compare content hash, deadline, amount and
open/closed status against the last snapshot and print one line per change.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.orch.CheckAllTracked(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No changes detected")
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(out, "%s  %-12s %q -> %q\n", r.ItemID, r.Field, r.OldValue, r.NewValue)
		}
		fmt.Fprintf(out, "%d change(s)\n", len(records))
		return nil
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Mark new candidates whose deadline has passed as expired",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.orch.ExpireCandidates(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Expired %d candidate(s)\n", n)
		return nil
	},
}

var trackTitle string

var trackCmd = &cobra.Command{
	Use:   "track <url>",
	Short: "Start tracking a grant page for changes",
	Long: `Put a page under change monitoring. The first check records its baseline.

Examples:
  grantbot track https://example.org/grants/arts-fund --title "Arts fund"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := a.orch.TrackURL(cmd.Context(), args[0], trackTitle)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s (%s)\n", item.URL, item.ID)
		return nil
	},
}

func init() {
	trackCmd.Flags().StringVar(&trackTitle, "title", "", "display title for the tracked item")
}
