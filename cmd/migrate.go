package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"policethief/internal/app/db"
	"policethief/internal/configs"
	"policethief/internal/pkg/logx"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|redo|reset]",
		Short:     "Manage the Postgres schema",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "status", "version", "redo", "reset", "up-to", "down-to"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.LoadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logx.InitGlobalLogger(cfg.IsDevelopment())

			if cfg.StoreBackend != configs.BackendPostgres {
				return fmt.Errorf("migrate needs STORE_BACKEND=%s", configs.BackendPostgres)
			}

			pool, err := db.Connect(cmd.Context(), cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			return db.Migrate(cmd.Context(), pool, args[0], args[1:]...)
		},
	}
}
