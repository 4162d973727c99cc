package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/magpie-engine/magpie/internal/plugin"
)

// newPluginsCmd prints the registered plugin inventory.
func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered plugins per extension point.",
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

			inv := manager.Registry().Inventory()
			points := make([]string, 0, len(inv))
			for point := range inv {
				points = append(points, string(point))
			}
			sort.Strings(points)

			out := cmd.OutOrStdout()
			for _, point := range points {
				fmt.Fprintf(out, "%s:\n", point)
				for _, id := range inv[plugin.ExtensionPoint(point)] {
					fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return nil
		},
	}
}
