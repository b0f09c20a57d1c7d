package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/domain/repository"
	"vibeapi/internal/infrastructure/metrics"
)

const driver = "filesystem"

// SchemaRepository stores each record as its own JSON file under basePath.
// File names are derived from the composite key, so the key is unique by construction.
type SchemaRepository struct {
	basePath string
}

func NewSchemaRepository(basePath string) (repository.EndpointSchemaRepository, error) {
	info, err := os.Stat(basePath)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(basePath, 0o755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", basePath, mkErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", basePath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s exists but is not a directory", basePath)
	}

	return &SchemaRepository{basePath: basePath}, nil
}

func (r *SchemaRepository) GetBasePath() string {
	return r.basePath
}

func (r *SchemaRepository) recordPath(pattern, method string) string {
	sum := sha256.Sum256([]byte(entity.SchemaKey(pattern, method)))
	return filepath.Join(r.basePath, hex.EncodeToString(sum[:])+".json")
}

func (r *SchemaRepository) Lookup(_ context.Context, pattern, method string) (*entity.EndpointSchema, error) {
	metrics.IncDBOp(driver, "get")

	rec, err := readRecord(r.recordPath(pattern, method))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		metrics.IncError("fs_schema_repo", "get_error")
		return nil, err
	}
	return rec, nil
}

func (r *SchemaRepository) UpsertReplace(_ context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put")

	path := r.recordPath(pattern, method)
	rec := entity.NewEndpointSchema(pattern, method, schema)
	existing, err := readRecord(path)
	switch {
	case err == nil:
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	case !errors.Is(err, fs.ErrNotExist):
		metrics.IncError("fs_schema_repo", "put_error")
		return err
	}

	tmp, err := r.writeTemp(rec)
	if err != nil {
		metrics.IncError("fs_schema_repo", "put_error")
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		metrics.IncError("fs_schema_repo", "put_error")
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

func (r *SchemaRepository) UpsertIfAbsent(_ context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put_if_absent")

	tmp, err := r.writeTemp(entity.NewEndpointSchema(pattern, method, schema))
	if err != nil {
		metrics.IncError("fs_schema_repo", "put_if_absent_error")
		return err
	}
	defer func() { _ = os.Remove(tmp) }()

	// Link fails when the target exists, which makes the insert exclusive.
	if err := os.Link(tmp, r.recordPath(pattern, method)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		metrics.IncError("fs_schema_repo", "put_if_absent_error")
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func (r *SchemaRepository) Close(_ context.Context) error {
	return nil
}

func (r *SchemaRepository) writeTemp(rec *entity.EndpointSchema) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	f, err := os.CreateTemp(r.basePath, ".record-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}

func readRecord(path string) (*entity.EndpointSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec entity.EndpointSchema
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
