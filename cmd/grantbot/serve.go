package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantbot/api"
)

var noCron bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the cron schedule",
	Long: `Start the grantbot API server. Discovery runs on discovery.cron and tracked
items are re-checked on changes.cron unless --no-cron is given.

Examples:
  grantbot serve
  grantbot serve --config prod.yaml --no-cron`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noCron, "no-cron", false, "serve the API without scheduled runs")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(a.orch, a.cfg.Server.Addr, a.logger.Named("api"))
	if !noCron {
		if err := srv.StartCron(a.cfg.Discovery.Cron, a.cfg.Changes.Cron); err != nil {
			return err
		}
	}
	if err := srv.Start(); err != nil {
		return err
	}
	a.logger.Info("✅ grantbot ready",
		zap.String("addr", a.cfg.Server.Addr),
		zap.Int("sources", a.cfg.EnabledSources()),
		zap.String("scorer", a.orch.Scorer().Name()),
		zap.String("storage", a.cfg.Storage.Driver))

	<-ctx.Done()
	a.logger.Info("🛑 Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
