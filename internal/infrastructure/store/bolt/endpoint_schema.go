package bolt

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/domain/repository"
	"vibeapi/internal/infrastructure/metrics"
)

const driver = "bolt"

var schemasBucket = []byte("endpoint_schemas")

// SchemaRepo keeps one JSON document per composite key in a single bucket,
// stored under the SHA-256 of the key.
type SchemaRepo struct {
	db *bbolt.DB
}

func NewSchemaRepo(path string) (repository.EndpointSchemaRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(schemasBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &SchemaRepo{db: db}, nil
}

func (r *SchemaRepo) Lookup(_ context.Context, pattern, method string) (*entity.EndpointSchema, error) {
	metrics.IncDBOp(driver, "get")

	var rec *entity.EndpointSchema
	err := r.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(schemasBucket).Get(recordKey(pattern, method))
		if raw == nil {
			return nil
		}
		rec = &entity.EndpointSchema{}
		return json.Unmarshal(raw, rec)
	})
	if err != nil {
		metrics.IncError("bolt_schema_repo", "get_error")
		return nil, err
	}
	return rec, nil
}

func (r *SchemaRepo) UpsertReplace(_ context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put")

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(schemasBucket)
		key := recordKey(pattern, method)

		rec := entity.NewEndpointSchema(pattern, method, schema)
		if raw := b.Get(key); raw != nil {
			var existing entity.EndpointSchema
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("decode existing record: %w", err)
			}
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
		}
		return putRecord(b, key, rec)
	})
	if err != nil {
		metrics.IncError("bolt_schema_repo", "put_error")
		return err
	}
	return nil
}

func (r *SchemaRepo) UpsertIfAbsent(_ context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put_if_absent")

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(schemasBucket)
		key := recordKey(pattern, method)
		if b.Get(key) != nil {
			return nil
		}
		return putRecord(b, key, entity.NewEndpointSchema(pattern, method, schema))
	})
	if err != nil {
		metrics.IncError("bolt_schema_repo", "put_if_absent_error")
		return err
	}
	return nil
}

func (r *SchemaRepo) Close(_ context.Context) error {
	return r.db.Close()
}

// recordKey hashes the composite key; bbolt rejects keys over 32KiB and request
// paths have no such bound.
func recordKey(pattern, method string) []byte {
	sum := sha256.Sum256([]byte(entity.SchemaKey(pattern, method)))
	return sum[:]
}

func putRecord(b *bbolt.Bucket, key []byte, rec *entity.EndpointSchema) error {
	rec.Method = strings.ToUpper(rec.Method)
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return b.Put(key, raw)
}
