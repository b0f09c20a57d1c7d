package repository

import (
	"context"

	"vibeapi/internal/domain/entity"
)

// EndpointSchemaRepository persists the remembered response shape per (pattern, method).
// Implementations enforce uniqueness on the composite key.
type EndpointSchemaRepository interface {
	// Lookup returns nil, nil when no schema exists for the key.
	Lookup(ctx context.Context, pattern, method string) (*entity.EndpointSchema, error)
	// UpsertReplace writes the schema, replacing any existing one. CreatedAt of an
	// existing record is kept.
	UpsertReplace(ctx context.Context, pattern, method, schema string) error
	// UpsertIfAbsent writes the schema only when the key has no record yet. Losing
	// a race to another writer is not an error.
	UpsertIfAbsent(ctx context.Context, pattern, method, schema string) error
	Close(ctx context.Context) error
}
