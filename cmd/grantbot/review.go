package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"grantbot/tui"
)

var reviewURL string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Open the candidate review console",
	Long: `Open a terminal console against a running grantbot API. New candidates are
listed by score; accept, reject or defer them and trigger discovery runs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		url := reviewURL
		if url == "" {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			url = cfg.Server.APIURL
		}

		program := tea.NewProgram(tui.NewModel(url), tea.WithAltScreen())

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			<-sigChan
			program.Quit()
		}()

		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run review console: %w", err)
		}
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewURL, "url", "", "grantbot API URL (default server.api_url)")
}
