package mongodb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// These tests need a running server: MONGO_TEST_URI=mongodb://localhost:27017 go test ./...
func newTestRepo(t *testing.T) *MongoSchemaRepo {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database(fmt.Sprintf("vibeapi_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	repo, err := NewMongoSchemaRepo(ctx, db)
	require.NoError(t, err)
	return repo
}

func TestMongoSchemaRepo_Lifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	got, err := r.Lookup(ctx, "/users", "GET")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.UpsertIfAbsent(ctx, "/users", "GET", `{"v":1}`))
	require.NoError(t, r.UpsertIfAbsent(ctx, "/users", "GET", `{"v":2}`))
	first, err := r.Lookup(ctx, "/users", "GET")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, first.Schema)

	require.NoError(t, r.UpsertReplace(ctx, "/users", "GET", `{"v":3}`))
	replaced, err := r.Lookup(ctx, "/users", "GET")
	require.NoError(t, err)
	assert.Equal(t, `{"v":3}`, replaced.Schema)
	assert.Equal(t, first.ID, replaced.ID)

	require.NoError(t, r.UpsertIfAbsent(ctx, "/users", "POST", `{"created":true}`))
	n, err := r.col.CountDocuments(ctx, bson.M{"pattern": "/users"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMongoSchemaRepo_ConcurrentIfAbsent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.UpsertIfAbsent(ctx, "/race", "GET", `{}`))
		}()
	}
	wg.Wait()

	n, err := r.col.CountDocuments(ctx, keyFilter("/race", "GET"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
