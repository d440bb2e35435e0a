package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeMC777/canteen-ordering/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if err := db.Migrate(ctx, e.pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample categories and menu items",
		Long: `Insert the sample menu. Existing rows with the same names are left alone,
so running seed twice is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			n, err := db.Seed(ctx, e.pool)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d menu items\n", n)
			return nil
		},
	}
}
