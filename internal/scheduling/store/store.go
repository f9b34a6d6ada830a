package store

import (
	"fmt"

	"clinicslots/internal/scheduling/repository"
	"clinicslots/internal/scheduling/repository/memory"
	"clinicslots/internal/scheduling/repository/postgres"
	"clinicslots/pkg/config"
)

// New builds the Store selected by cfg.StoreDriver. The connection for the
// driver must already be open on cfg.Client (see config.SetStore).
func New(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("mongo store selected but no mongo client is connected")
		}
		return repository.NewMongoStore(cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.RequestTimeout, cfg.LockTimeout), nil
	case config.StorePostgres:
		if cfg.Client.Postgres == nil {
			return nil, fmt.Errorf("postgres store selected but no postgres pool is connected")
		}
		return postgres.NewStore(cfg.Client.Postgres, cfg.LockTimeout), nil
	case config.StoreMemory:
		cfg.Log.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore(cfg.LockTimeout), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}
}
