package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arcana/internal/config"
	"github.com/cory-johannsen/arcana/internal/storage/postgres"
	"github.com/cory-johannsen/arcana/internal/testutil"
)

func TestNewPool_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := postgres.NewPool(ctx, config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "x", Name: "x", SSLMode: "disable", MaxConns: 1,
	})
	assert.Error(t, err)
}

func TestPool_HealthAndMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	require.NoError(t, pc.Pool.Health(context.Background(), 5*time.Second))
	assert.Len(t, pc.Pool.StatFields(), 4)

	pc.ApplyMigrations(t)
	// A second run finds nothing to apply.
	require.NoError(t, postgres.MigrateUp(pc.DSN()))

	var exists bool
	err := pc.RawPool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'player_affinity')`,
	).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NotNil(t, pc.Pool.Affinity(nil))
}
