package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantbot/events"
	"grantbot/orchestrator"
	"grantbot/types"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume discovery requests from Kafka and run them",
	Long: `Join the kafka.group_id consumer group on kafka.requests_topic and start a
discovery run for every request. Requests that arrive while a run is in
progress are acknowledged and dropped.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if !a.cfg.KafkaEnabled() {
		return errKafkaDisabled
	}

	consumer, err := events.NewConsumer(events.ConsumerConfig{
		Brokers: a.cfg.Kafka.Brokers,
		Topic:   a.cfg.Kafka.RequestsTopic,
		GroupID: a.cfg.Kafka.GroupID,
		Handler: discoveryRequestHandler(a.orch, a.logger),
	}, a.logger.Named("consumer"))
	if err != nil {
		return err
	}
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	<-ctx.Done()
	a.logger.Info("🛑 Worker stopping")
	return nil
}

// runner is the slice of the orchestrator the worker needs
type runner interface {
	Run(ctx context.Context, opts orchestrator.RunOptions) (types.RunReport, []types.Candidate, error)
}

func discoveryRequestHandler(r runner, logger *zap.Logger) *events.TypedMessageHandler[types.DiscoveryRequest] {
	return &events.TypedMessageHandler[types.DiscoveryRequest]{
		Validate: func(req *types.DiscoveryRequest) bool {
			return req.MaxSources >= 0
		},
		Process: func(ctx context.Context, req *types.DiscoveryRequest) error {
			logger.Info("📥 Discovery requested",
				zap.String("requested_by", req.RequestedBy),
				zap.Int("max_sources", req.MaxSources))
			report, _, err := r.Run(ctx, orchestrator.RunOptions{
				MaxSources:  req.MaxSources,
				RequestedBy: req.RequestedBy,
			})
			// a failed run is already on record, so the request is never redelivered
			switch {
			case errors.Is(err, orchestrator.ErrAlreadyRunning):
				logger.Info("Discovery request dropped: run in progress")
			case err != nil:
				logger.Error("Requested discovery run failed", zap.String("run_id", report.ID), zap.Error(err))
			}
			return nil
		},
		AlwaysMark: true,
	}
}

var requestBy string

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Publish a discovery request for a worker to pick up",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		if !cfg.KafkaEnabled() {
			return errKafkaDisabled
		}

		pub, err := events.NewPublisher(cfg.Kafka.Brokers, kafkaTopics(cfg), logger.Named("events"))
		if err != nil {
			return err
		}
		defer pub.Close()

		req := types.DiscoveryRequest{RequestedBy: requestBy, MaxSources: discoverMaxSources}
		if err := pub.RequestRun(cmd.Context(), req); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Discovery request published to %s\n", cfg.Kafka.RequestsTopic)
		return nil
	},
}

func init() {
	requestCmd.Flags().StringVar(&requestBy, "by", "cli", "requester recorded on the run")
	requestCmd.Flags().IntVar(&discoverMaxSources, "max-sources", 0, "limit the number of sources crawled (0 means all)")
}
