package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SchemaRepo {
	t.Helper()
	repo, err := NewSchemaRepo(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo.(*SchemaRepo)
}

func count(t *testing.T, r *SchemaRepo, pattern, method string) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.QueryRow(
		`SELECT COUNT(*) FROM endpoint_schemas WHERE endpoint_pattern = ? AND method = ?`, pattern, method,
	).Scan(&n))
	return n
}

func TestLookup_Absent(t *testing.T) {
	r := newTestRepo(t)

	got, err := r.Lookup(context.Background(), "/users", "GET")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertIfAbsent_FirstWriterWins(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.NoError(t, r.UpsertIfAbsent(ctx, "/users", "GET", `{"first":1}`))
	require.NoError(t, r.UpsertIfAbsent(ctx, "/users", "GET", `{"second":2}`))

	got, err := r.Lookup(ctx, "/users", "GET")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"first":1}`, got.Schema)
	assert.Equal(t, 1, count(t, r, "/users", "GET"))
}

func TestUpsertReplace_KeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.NoError(t, r.UpsertIfAbsent(ctx, "/users", "GET", `{"v":1}`))
	before, err := r.Lookup(ctx, "/users", "GET")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, r.UpsertReplace(ctx, "/users", "GET", `{"v":2}`))

	after, err := r.Lookup(ctx, "/users", "GET")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, after.Schema)
	assert.Equal(t, before.ID, after.ID)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, 1, count(t, r, "/users", "GET"))
}

func TestUpsertReplace_Inserts(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.NoError(t, r.UpsertReplace(ctx, "/orders", "post", `[]`))

	got, err := r.Lookup(ctx, "/orders", "POST")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, `[]`, got.Schema)
}

func TestCompositeKey_SamePathDifferentMethods(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.NoError(t, r.UpsertIfAbsent(ctx, "/items", "GET", `{"get":true}`))
	require.NoError(t, r.UpsertIfAbsent(ctx, "/items", "POST", `{"post":true}`))

	get, err := r.Lookup(ctx, "/items", "GET")
	require.NoError(t, err)
	post, err := r.Lookup(ctx, "/items", "POST")
	require.NoError(t, err)

	assert.Equal(t, `{"get":true}`, get.Schema)
	assert.Equal(t, `{"post":true}`, post.Schema)
}

func TestUpsertIfAbsent_Concurrent(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.UpsertIfAbsent(ctx, "/race", "GET", `{"x":1}`))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, count(t, r, "/race", "GET"))
}

func TestLookup_ClosedDBSurfacesError(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.Close(context.Background()))

	_, err := r.Lookup(context.Background(), "/users", "GET")
	assert.Error(t, err)
}
