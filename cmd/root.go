package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"tomatoclock/internal/config"
	"tomatoclock/internal/logging"
)

// environment is the configuration shared by every subcommand.
type environment struct {
	config   *config.Config
	settings config.Settings
	logger   *slog.Logger
}

type rootOptions struct {
	configPath string
	logLevel   string
}

type environmentKey struct{}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	run := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "tomatoclock",
		Short: "TomatoClock - a Pomodoro timer for the desktop",
		Long: `TomatoClock counts down work sessions and breaks from the system tray.
The timer state is saved continuously and resumes after a restart or a
system suspend.

Commands:
  tomatoclock run        Start the tray app (the default)
  tomatoclock status     Show the saved timer state
  tomatoclock history    Show completed sessions`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.load()
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(logging.WithLogger(contextOf(cmd), env.logger), environmentKey{}, env))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimer(cmd, run)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	run.bind(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func (opts *rootOptions) load() (*environment, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Set("log.level", opts.logLevel)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = settings.LogLevel
	logConfig.Format = settings.LogFormat
	logger, err := logging.New(logConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	return &environment{config: cfg, settings: settings, logger: logger}, nil
}

func environmentFrom(cmd *cobra.Command) (*environment, error) {
	env, ok := contextOf(cmd).Value(environmentKey{}).(*environment)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	return env, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
