package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/api"
)

// newRunCmd starts the engine and serves the HTTP API until interrupted.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the engine and serve the status API.",
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
			manager.Bootstrap()
			if err := manager.ExecuteStartup(ctx, viper.AllSettings()); err != nil {
				return fmt.Errorf("startup: %w", err)
			}

			var srv *http.Server
			if manager.Config().GetBool("api.enabled", true) {
				listen := manager.Config().GetString("api.listen", ":8080")
				srv = &http.Server{
					Addr:              listen,
					Handler:           api.NewServer(manager, logger).Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					logger.Info("api listening", zap.String("addr", listen))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("api server failed", zap.Error(err))
					}
				}()
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-stop:
				logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if srv != nil {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("api shutdown failed", zap.Error(err))
				}
			}
			manager.Stop(shutdownCtx)
			return nil
		},
	}
}
