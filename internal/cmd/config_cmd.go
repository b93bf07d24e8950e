package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ectows/ectows/internal/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the server configuration",
		RunE:  runConfigShow, // default subcommand
	}
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigCheckCmd())
	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [config-file]",
		Short: "Display the effective configuration with secrets masked",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigShow,
	}
}

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [config-file]",
		Short: "Validate a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := resolveConfigPath(cmd, args, defaultConfigPath)
			if _, err := config.Load(configPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", configPath)
			return nil
		},
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath := resolveConfigPath(cmd, args, defaultConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	masked := *cfg
	masked.Auth.UserTokens = maskTokens(cfg.Auth.UserTokens)
	masked.Auth.AdminTokens = maskTokens(cfg.Auth.AdminTokens)
	masked.Auth.SigningSecret = maskToken(cfg.Auth.SigningSecret)

	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config: %s\n\n", configPath)
	_, _ = fmt.Fprintln(out, string(data))
	return nil
}

func maskTokens(tokens []string) []string {
	if tokens == nil {
		return nil
	}
	masked := make([]string, len(tokens))
	for i, t := range tokens {
		masked[i] = maskToken(t)
	}
	return masked
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
