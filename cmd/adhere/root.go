package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-adhere/internal/configuration"
)

// app carries state resolved by the root command for its subcommands.
type app struct {
	envFiles  []string
	logLevel  string
	logFormat string

	cfg    *configuration.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "adhere",
		Short:         "Adherence scoring engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env", nil, "dotenv files to load (default: .env if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		scoreCmd(a),
		validateCmd(a),
		migrateCmd(a),
		workerCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := configuration.Load(a.envFiles...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}
