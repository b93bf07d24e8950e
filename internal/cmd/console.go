package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ectows/ectows/internal/client"
	tuiconsole "github.com/ectows/ectows/internal/tui/console"
	"github.com/ectows/ectows/pkg/cli"
)

const tokenEnv = "ECTOWS_TOKEN"

func newConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Attach an operator console to a running server",
		Long: "Connects to the admin endpoint and opens an interactive console. " +
			"When stdin is not a terminal, commands are read line by line and output is printed as text.",
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
	cmd.Flags().String("addr", "localhost:9000", "server address (host:port)")
	cmd.Flags().String("token", "", "access token (default $"+tokenEnv+")")
	cmd.Flags().String("path", "/admin", "endpoint path")
	cmd.Flags().StringArray("prop", nil, "seed a console property during the handshake (key=value, repeatable)")
	cmd.Flags().Bool("debug", false, "log connection events to stderr")
	return cmd
}

func runConsole(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	path, _ := cmd.Flags().GetString("path")
	rawProps, _ := cmd.Flags().GetStringArray("prop")
	debug, _ := cmd.Flags().GetBool("debug")

	props, err := parseProps(rawProps)
	if err != nil {
		return err
	}

	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, client.Options{
		Addr:  addr,
		Token: token,
		Path:  path,
		Props: props,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if cli.IsTerminal(os.Stdin) {
		return tuiconsole.Run(ctx, c, addr)
	}
	if err := c.Pipe(ctx, os.Stdin, cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolveToken takes the token from the flag, then the environment, then an
// interactive prompt.
func resolveToken(cmd *cobra.Command) (string, error) {
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		return token, nil
	}
	if token := os.Getenv(tokenEnv); token != "" {
		return token, nil
	}
	if cli.IsTerminal(os.Stdin) {
		if token := cli.DefaultPrompter().AskSecret("Token"); token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("no token given: use --token or set %s", tokenEnv)
}

// parseProps turns repeated key=value flags into a property map.
func parseProps(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	props := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --prop %q: want key=value", kv)
		}
		if k == "token" {
			return nil, fmt.Errorf("invalid --prop %q: use --token", kv)
		}
		props[k] = v
	}
	return props, nil
}
