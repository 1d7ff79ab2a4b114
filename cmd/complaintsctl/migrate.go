package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/persistence"
	"github.com/civicdesk/complaints-service/internal/repository/mongostore"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema or the Mongo indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch cfg.Storage.Driver {
		case config.StoragePostgres:
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			dir := migrationsDir
			if dir == "" {
				dir = cfg.Postgres.MigrationsDir
			}
			if err := persistence.RunMigrations(ctx, pg.Pool, dir, logger); err != nil {
				return err
			}
		case config.StorageMongo:
			mg, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
			if err != nil {
				return err
			}
			defer mg.Close(ctx) //nolint:errcheck
			if err := mongostore.EnsureIndexes(ctx, mg.Database); err != nil {
				return err
			}
		default:
			return fmt.Errorf("storage driver %q has no schema to migrate", cfg.Storage.Driver)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.Storage.Driver)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "directory of .sql migrations (default POSTGRES_MIGRATIONS_DIR)")
}
