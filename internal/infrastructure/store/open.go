package store

import (
	"context"
	"fmt"

	"vibeapi/app/config"
	"vibeapi/internal/domain/repository"
	"vibeapi/internal/infrastructure/store/bolt"
	"vibeapi/internal/infrastructure/store/filesystem"
	"vibeapi/internal/infrastructure/store/mongodb"
	"vibeapi/internal/infrastructure/store/sqlite"
)

// Open returns the schema repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (repository.EndpointSchemaRepository, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return sqlite.NewSchemaRepo(ctx, cfg.Path)
	case "mongodb":
		return mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "bolt":
		return bolt.NewSchemaRepo(cfg.Path)
	case "filesystem":
		return filesystem.NewSchemaRepository(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
