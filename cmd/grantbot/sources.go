package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tREGION\tENABLED\tURLS")
		for _, s := range cfg.Sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.ID, s.Type, s.Region, s.Enabled, strings.Join(s.URLs, " "))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d sources enabled\n", cfg.EnabledSources(), len(cfg.Sources))
		return nil
	},
}
