package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/domain/repository"
	"vibeapi/internal/infrastructure/metrics"
)

const driver = "mongodb"

type MongoSchemaRepo struct {
	client *mongo.Client
	col    *mongo.Collection
}

// Connect opens a client, checks it with a ping and prepares the schema collection.
func Connect(ctx context.Context, uri, database string) (repository.EndpointSchemaRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo, err := NewMongoSchemaRepo(ctx, client.Database(database))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	repo.client = client
	return repo, nil
}

func NewMongoSchemaRepo(ctx context.Context, db *mongo.Database) (*MongoSchemaRepo, error) {
	col := db.Collection("endpoint_schemas")

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pattern", Value: 1}, {Key: "method", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("pattern_method_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("create unique index: %w", err)
	}

	return &MongoSchemaRepo{col: col}, nil
}

func keyFilter(pattern, method string) bson.M {
	return bson.M{"pattern": pattern, "method": strings.ToUpper(method)}
}

func (r *MongoSchemaRepo) Lookup(ctx context.Context, pattern, method string) (*entity.EndpointSchema, error) {
	metrics.IncDBOp(driver, "get")

	var rec entity.EndpointSchema
	err := r.col.FindOne(ctx, keyFilter(pattern, method)).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		metrics.IncError("mongo_schema_repo", "get_error")
		return nil, err
	}
	return &rec, nil
}

func (r *MongoSchemaRepo) UpsertReplace(ctx context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put")

	rec := entity.NewEndpointSchema(pattern, method, schema)
	update := bson.M{
		"$set": bson.M{
			"schema":     rec.Schema,
			"updated_at": rec.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"id":         rec.ID,
			"created_at": rec.CreatedAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, keyFilter(pattern, method), update, options.Update().SetUpsert(true))
	if err != nil {
		metrics.IncError("mongo_schema_repo", "put_error")
		return err
	}
	return nil
}

func (r *MongoSchemaRepo) UpsertIfAbsent(ctx context.Context, pattern, method, schema string) error {
	metrics.IncDBOp(driver, "put_if_absent")

	rec := entity.NewEndpointSchema(pattern, method, schema)
	update := bson.M{
		"$setOnInsert": bson.M{
			"id":         rec.ID,
			"schema":     rec.Schema,
			"created_at": rec.CreatedAt,
			"updated_at": rec.UpdatedAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, keyFilter(pattern, method), update, options.Update().SetUpsert(true))
	if err != nil {
		// Two concurrent upserts on a missing key can both try to insert; the
		// unique index rejects the loser, which is the intended no-op.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		metrics.IncError("mongo_schema_repo", "put_if_absent_error")
		return err
	}
	return nil
}

func (r *MongoSchemaRepo) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
