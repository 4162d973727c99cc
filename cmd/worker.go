package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/pipeline"
	"github.com/magpie-engine/magpie/internal/task"
)

// newWorkerCmd runs the queue worker: it brings the engine up to the
// singleton phase only, then consumes pipeline tasks from the configured
// Pub/Sub subscription. Content sources never start in this process; the
// run process schedules, workers execute.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume and execute pipeline tasks from the durable queue.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			manager, err := newManager(logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := manager.StartToSingletons(ctx, viper.AllSettings()); err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			defer manager.Stop(ctx)

			cfg := manager.Config()
			projectID := cfg.GetString("tasks.pubsub.project_id", "")
			subscriptionID := cfg.GetString("tasks.pubsub.subscription", "")
			if projectID == "" || subscriptionID == "" {
				return fmt.Errorf("worker requires tasks.pubsub.project_id and tasks.pubsub.subscription")
			}

			s := manager.Singletons()
			executor := pipeline.NewExecutor(pipeline.Deps{
				Logger:   logger,
				Config:   cfg,
				Registry: manager.Registry(),
				States:   s.States,
				Cache:    s.Cache,
				Data:     s.Data,
				Tasks:    s.Tasks,
			})

			worker, client, err := task.NewPubSubWorker(ctx, projectID, subscriptionID, executor.Handle, logger)
			if err != nil {
				return fmt.Errorf("init worker: %w", err)
			}
			defer func() { _ = client.Close() }()

			logger.Info("worker consuming",
				zap.String("project_id", projectID),
				zap.String("subscription", subscriptionID),
			)
			return worker.Run(ctx)
		},
	}
}
