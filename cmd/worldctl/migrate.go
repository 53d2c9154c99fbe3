package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"world-forge-api/internal/wire"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the world tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, cleanup, err := wire.InitializePostgres(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer cleanup()

		if err := client.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("schema migrated")
		return nil
	},
}
