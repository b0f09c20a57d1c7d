package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/domain/repository"
	"vibeapi/internal/infrastructure/metrics"
)

const driver = "sqlite"

// The UNIQUE constraint covers the full (pattern, method) key.
const createTable = `
CREATE TABLE IF NOT EXISTS endpoint_schemas (
	id               TEXT NOT NULL PRIMARY KEY,
	endpoint_pattern TEXT NOT NULL,
	method           TEXT NOT NULL,
	response_schema  TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL,
	UNIQUE (endpoint_pattern, method)
)`

type SchemaRepo struct {
	db *sql.DB
}

func NewSchemaRepo(ctx context.Context, path string) (repository.EndpointSchemaRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writes are serialized by the caller and SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SchemaRepo{db: db}, nil
}

func (r *SchemaRepo) Lookup(ctx context.Context, pattern, method string) (*entity.EndpointSchema, error) {
	metrics.IncDBOp(driver, "get")

	var s entity.EndpointSchema
	err := r.db.QueryRowContext(ctx, `
		SELECT id, endpoint_pattern, method, response_schema, created_at, updated_at
		FROM endpoint_schemas
		WHERE endpoint_pattern = ? AND method = ?`,
		pattern, strings.ToUpper(method),
	).Scan(&s.ID, &s.Pattern, &s.Method, &s.Schema, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		metrics.IncError("sqlite_schema_repo", "get_error")
		return nil, err
	}
	return &s, nil
}

func (r *SchemaRepo) UpsertReplace(ctx context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put")

	rec := entity.NewEndpointSchema(pattern, method, schema)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO endpoint_schemas (id, endpoint_pattern, method, response_schema, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (endpoint_pattern, method) DO UPDATE SET
			response_schema = excluded.response_schema,
			updated_at      = excluded.updated_at`,
		rec.ID, rec.Pattern, rec.Method, rec.Schema, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		metrics.IncError("sqlite_schema_repo", "put_error")
		return err
	}
	return nil
}

func (r *SchemaRepo) UpsertIfAbsent(ctx context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put_if_absent")

	rec := entity.NewEndpointSchema(pattern, method, schema)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO endpoint_schemas (id, endpoint_pattern, method, response_schema, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (endpoint_pattern, method) DO NOTHING`,
		rec.ID, rec.Pattern, rec.Method, rec.Schema, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		metrics.IncError("sqlite_schema_repo", "put_if_absent_error")
		return err
	}
	return nil
}

func (r *SchemaRepo) Close(_ context.Context) error {
	return r.db.Close()
}
