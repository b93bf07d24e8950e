// Package cmd implements the ectows command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ectows/ectows/internal/config"
)

var version = "dev"

const defaultConfigPath = "ectows.json"

// NewRootCmd creates the root cobra command for ectows.
// When invoked without a subcommand, it delegates to "serve".
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:   "ectows",
		Short: "ectows - tick-driven WebSocket control plane",
		Long:  "ectows hosts a console tree over WebSocket and lets operators inspect and change it live.",
		// Bare invocation (no subcommand) behaves as "serve".
		RunE:          runServe,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newConsoleCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	return root
}

// resolveConfigPath returns the config file path from (in priority order):
// 1. Positional argument
// 2. --config / -c flag
// 3. Default value
func resolveConfigPath(cmd *cobra.Command, args []string, defaultPath string) string {
	if len(args) > 0 {
		return args[0]
	}
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	return defaultPath
}

// newLogger builds the process logger from the logging config values.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q", format)
	}
	return slog.New(handler), nil
}
