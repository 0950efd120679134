// Package commands implements the logsift subcommands.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/logsift/logsift/internal/logger"
	"github.com/logsift/logsift/pkg/config"
	"github.com/logsift/logsift/pkg/level"
)

// ExitCode is set by commands to indicate the result.
var ExitCode = 0

// commandContext returns the cobra context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// buildLogger constructs the diagnostic logger from the persistent flags.
func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	levelStr, _ := cmd.Flags().GetString("log-level")
	dev, _ := cmd.Flags().GetBool("dev-log")
	return logger.New(logger.WithDevelopment(dev), logger.WithLevel(levelStr))
}

// loadConfig loads the optional config file named by the persistent flag,
// returning defaults when no file is given.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(ctx, path)
}

// levelChain builds the level-detection chain with any custom keywords
// from the config.
func levelChain(cfg *config.Config) *level.Chain {
	return level.NewChain(
		level.WithErrorKeywords(cfg.Levels.ErrorKeywords),
		level.WithWarningKeywords(cfg.Levels.WarningKeywords),
	)
}
