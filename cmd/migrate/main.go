package main

import (
	"context"
	"time"

	mongoMigration "clinicslots/internal/migrations/mongo"
	pgMigration "clinicslots/internal/scheduling/repository/postgres/migrations"
	"clinicslots/pkg/config"
)

const JobName = "migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.SetStore()
	defer cfg.GracefulShutdown()
	cfg.Log.Info("Starting migration job", "store_driver", cfg.StoreDriver)

	switch cfg.StoreDriver {
	case config.StoreMongo:
		migrateMongo(ctx, cfg)
	case config.StorePostgres:
		migratePostgres(ctx, cfg)
	default:
		cfg.Log.Info("Nothing to migrate for store driver", "store_driver", cfg.StoreDriver)
		return
	}

	cfg.Log.Info("Migration completed successfully")
}

func migrateMongo(ctx context.Context, cfg *config.Config) {
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Mongo migration failed", "error", err)
	}
}

func migratePostgres(ctx context.Context, cfg *config.Config) {
	applied, err := pgMigration.Apply(ctx, cfg.Client.Postgres)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Postgres migration failed", "error", err)
	}
	cfg.Log.Info("Postgres migrations applied", "applied", applied)
}
