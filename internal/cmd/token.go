package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ectows/ectows/internal/auth"
	"github.com/ectows/ectows/internal/config"
	"github.com/ectows/ectows/pkg/protocol"
)

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Generate or sign access tokens",
	}
	tokenCmd.AddCommand(newTokenNewCmd())
	tokenCmd.AddCommand(newTokenSignCmd())
	return tokenCmd
}

func newTokenNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Print a random token for user_tokens or admin_tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := config.GenerateRandomSecret()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

func newTokenSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [config-file]",
		Short: "Mint a signed role token using auth.signing_secret",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTokenSign,
	}
	cmd.Flags().String("role", "Admin", "role to grant (User or Admin)")
	cmd.Flags().String("subject", "operator", "who the token is issued to")
	cmd.Flags().Duration("ttl", 0, "token lifetime (default auth.signed_token_expiry)")
	return cmd
}

func runTokenSign(cmd *cobra.Command, args []string) error {
	configPath := resolveConfigPath(cmd, args, defaultConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	roleName, _ := cmd.Flags().GetString("role")
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	role, err := protocol.ParseRole(roleName)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = cfg.Auth.SignedTokenExpiry.Duration
	}

	signer, err := auth.NewSigner(cfg.Auth.SigningSecret)
	if errors.Is(err, auth.ErrNoSigningSecret) {
		return fmt.Errorf("auth.signing_secret is not set in %s", configPath)
	}
	if err != nil {
		return err
	}

	tok, err := signer.Sign(role, subject, ttl)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
