package main

import (
	"context"
	"fmt"

	"repairshop/internal/config"
	"repairshop/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := config.NewLogger(cfg.Logger, cfg.OTEL.ServiceName)

			ctx := context.Background()
			pool, err := database.NewPool(ctx, cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer pool.Close()

			return database.Migrate(ctx, pool, logger)
		},
	}
}
