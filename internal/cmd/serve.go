package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ectows/ectows/internal/config"
	"github.com/ectows/ectows/internal/hub"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [config-file]",
		Short: "Start the server (default when no subcommand is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath := resolveConfigPath(cmd, args, defaultConfigPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	logger, err := newLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	h, err := hub.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("ectows starting", "version", version, "config", configPath)

	if err := h.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
