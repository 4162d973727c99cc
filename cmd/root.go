// Package cmd implements the magpied command line interface.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/builtin"
	"github.com/magpie-engine/magpie/internal/engine"
	"github.com/magpie-engine/magpie/internal/logging"
	"github.com/magpie-engine/magpie/internal/plugin"
	"github.com/magpie-engine/magpie/internal/profile"
)

var (
	cfgFile     string
	profileName string
	development bool
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "magpied",
		Short: "An extensible content indexing engine.",
		Long: `magpied discovers, fetches, extracts, and stores content through a
set of plugins. Content sources enumerate what to index, fetchers
retrieve the bytes, extractors derive text and metadata, and backend
providers choose where state and results live.`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./magpie.yaml)")
	cmd.PersistentFlags().StringVar(&profileName, "profile", profile.Development,
		fmt.Sprintf("deployment profile (%s)", strings.Join(profile.Names(), ", ")))
	cmd.PersistentFlags().BoolVar(&development, "dev", false, "development logging")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newPluginsCmd())

	// Plugin-contributed subcommands attach before parsing. The command set
	// is independent of the profile, so the default profile serves here.
	registry := plugin.NewRegistry(zap.NewNop())
	if err := builtin.Register(registry, zap.NewNop(), profile.Development); err == nil {
		for _, reg := range registry.CommandRegistrars() {
			reg.RegisterCommands(cmd)
		}
	}

	return cmd
}

// initConfig wires Viper to the optional config file and the MAGPIE_
// environment prefix. The resulting settings become the operator overrides
// layered over plugin defaults.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("magpie")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/magpie/")
	}
	viper.SetEnvPrefix("MAGPIE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; env and flags still apply.
	_ = viper.ReadInConfig()
}

// newLogger builds the process logger for the selected profile. The --dev
// flag forces console output; MAGPIE_LOGGING_LEVEL or the logging.level
// config key overrides verbosity.
func newLogger() (*zap.Logger, error) {
	return logging.New(logging.Options{
		Console: development || profileName != profile.Production,
		Level:   viper.GetString("logging.level"),
	})
}

// newManager assembles the registry with the built-in plugins plus any
// extras, and returns a lifecycle manager over it.
func newManager(logger *zap.Logger, extras ...plugin.Registrar) (*engine.Manager, error) {
	registry := plugin.NewRegistry(logger)
	if err := builtin.Register(registry, logger, profileName); err != nil {
		return nil, err
	}
	if err := registry.Discover(extras...); err != nil {
		return nil, err
	}
	return engine.New(logger, registry), nil
}

// Execute is the main entry point.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logger := logging.MustNew(logging.Options{Console: true})
		logger.Fatal("command execution failed", zap.Error(err))
	}
}
