package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibeapi/app/config"
)

func TestOpen_LocalDrivers(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{"sqlite", "bolt", "filesystem"} {
		t.Run(driver, func(t *testing.T) {
			repo, err := Open(ctx, config.StoreConfig{
				Driver: driver,
				Path:   filepath.Join(t.TempDir(), "schemas-"+driver),
			})
			require.NoError(t, err)
			defer func() { assert.NoError(t, repo.Close(ctx)) }()

			require.NoError(t, repo.UpsertIfAbsent(ctx, "/ping", "GET", `{"pong":true}`))
			got, err := repo.Lookup(ctx, "/ping", "GET")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, `{"pong":true}`, got.Schema)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}
