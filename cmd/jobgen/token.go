package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codexgen/internal/domain"
	"codexgen/internal/infra"
	"codexgen/internal/infra/credentials"
	"codexgen/internal/provider"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage provider tokens stored in the database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <provider> <token>",
		Short: "Store the token used when <PROVIDER>_TOKEN is not set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := provider.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", domain.ErrUnknownProvider, args[0])
			}
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			logger := infra.NewLogger(cfg.AppEnv)
			pool, err := infra.NewDBPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			if err := store.SetToken(cmd.Context(), kind, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s token\n", kind.Tag())
			return nil
		},
	})
	return cmd
}
