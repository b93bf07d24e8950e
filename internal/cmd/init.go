package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ectows/ectows/internal/wizard"
	"github.com/ectows/ectows/pkg/cli"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard to generate a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return wizard.New(cli.DefaultPrompter()).Run(output)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output config file path (default: ./ectows.json)")
	return cmd
}
