package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newResetCmd invokes the registered reset actions and exits.
func newResetCmd() *cobra.Command {
	var hard bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear plugin-owned state.",
		Long: `reset brings the engine up to the singleton phase and invokes every
registered reset action. A soft reset clears derived state only; --hard
also clears source-of-truth state such as stored items.`,
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

			if failed := manager.Reset(ctx, hard); failed > 0 {
				return fmt.Errorf("%d reset action(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&hard, "hard", false, "also clear source-of-truth state")
	return cmd
}
