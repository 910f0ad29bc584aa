package database_test

import (
	"context"
	"errors"
	"testing"

	"projectwatch/internal/apperror"
	"projectwatch/internal/database"
	"projectwatch/internal/database/databasetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// unreachableDialect behaves like SQLite except for the "broken" schema,
// which points at a server nobody listens on.
type unreachableDialect struct {
	database.SQLite
}

func (d unreachableDialect) Dialector(schema string) gorm.Dialector {
	if schema == "broken" {
		return postgres.Open("host=127.0.0.1 port=1 user=nobody dbname=nothing sslmode=disable connect_timeout=1")
	}
	return d.SQLite.Dialector(schema)
}

func TestRegistry_AcquireBeforeSelect(t *testing.T) {
	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir()})

	session, err := registry.AcquireSession(context.Background())

	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperror.ErrNotInitialized))
}

func TestRegistry_SelectThenAcquire(t *testing.T) {
	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir()})
	t.Cleanup(registry.Close)
	ctx := context.Background()

	require.NoError(t, registry.SelectSchema(ctx, "project_watch"))
	assert.Equal(t, "project_watch", registry.ActiveSchema())

	session, err := registry.AcquireSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "project_watch", session.Schema())
	assert.NotNil(t, session.DB())
	assert.Equal(t, 1, registry.OpenSessions())

	session.Close()
	session.Close()
	assert.Equal(t, 0, registry.OpenSessions())
}

func TestRegistry_SelectEmptySchema(t *testing.T) {
	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir()})

	err := registry.SelectSchema(context.Background(), "  ")

	assert.True(t, errors.Is(err, apperror.ErrSchemaSwitch))
	assert.Equal(t, "", registry.ActiveSchema())
}

func TestRegistry_FailedSwitchLeavesNoEngine(t *testing.T) {
	registry := database.NewRegistry(unreachableDialect{database.SQLite{Dir: t.TempDir()}})
	t.Cleanup(registry.Close)
	ctx := context.Background()

	require.NoError(t, registry.SelectSchema(ctx, "project_watch"))

	err := registry.SelectSchema(ctx, "broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrSchemaSwitch))
	assert.Equal(t, "", registry.ActiveSchema())

	_, err = registry.AcquireSession(ctx)
	assert.True(t, errors.Is(err, apperror.ErrNotInitialized))
	assert.True(t, errors.Is(registry.Ping(ctx), apperror.ErrNotInitialized))
}

func TestRegistry_SwitchReleasesSessions(t *testing.T) {
	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir()})
	t.Cleanup(registry.Close)
	ctx := context.Background()

	require.NoError(t, registry.SelectSchema(ctx, "alpha"))
	stale, err := registry.AcquireSession(ctx)
	require.NoError(t, err)

	require.NoError(t, registry.SelectSchema(ctx, "beta"))
	assert.Equal(t, 0, registry.OpenSessions())
	stale.Close()

	fresh, err := registry.AcquireSession(ctx)
	require.NoError(t, err)
	defer fresh.Close()
	assert.Equal(t, "beta", fresh.Schema())
	assert.NoError(t, registry.Ping(ctx))
}

func TestRegistry_ReleaseAllSessions(t *testing.T) {
	registry := databasetest.NewRegistry(t)
	ctx := context.Background()

	first, err := registry.AcquireSession(ctx)
	require.NoError(t, err)
	second, err := registry.AcquireSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, registry.OpenSessions())

	registry.ReleaseAllSessions()
	assert.Equal(t, 0, registry.OpenSessions())

	// Detached sessions can still be closed by their owners.
	first.Close()
	second.Close()
	assert.Equal(t, 0, registry.OpenSessions())

	// The engine itself survives.
	third, err := registry.AcquireSession(ctx)
	require.NoError(t, err)
	third.Close()
}

func TestRegistry_ListAvailableSchemas(t *testing.T) {
	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir()})
	t.Cleanup(registry.Close)
	ctx := context.Background()

	assert.Empty(t, registry.ListAvailableSchemas(ctx))

	require.NoError(t, registry.SelectSchema(ctx, "beta"))
	require.NoError(t, registry.SelectSchema(ctx, "alpha"))

	assert.Equal(t, []string{"alpha", "beta"}, registry.ListAvailableSchemas(ctx))
	assert.True(t, registry.SchemaExists(ctx, "beta"))
	assert.False(t, registry.SchemaExists(ctx, "gamma"))
}

// countingDialect records which schemas engines were opened for.
type countingDialect struct {
	database.SQLite
	opened *[]string
}

func (d countingDialect) Dialector(schema string) gorm.Dialector {
	*d.opened = append(*d.opened, schema)
	return d.SQLite.Dialector(schema)
}

func TestRegistry_ListAvailableSchemasOpensNoEngineForLocalDialect(t *testing.T) {
	var opened []string
	registry := database.NewRegistry(countingDialect{database.SQLite{Dir: t.TempDir()}, &opened})
	t.Cleanup(registry.Close)
	ctx := context.Background()

	require.NoError(t, registry.SelectSchema(ctx, "alpha"))
	opened = nil

	assert.Equal(t, []string{"alpha"}, registry.ListAvailableSchemas(ctx))
	assert.Empty(t, opened)
}

func TestRegistry_ListAvailableSchemasFailure(t *testing.T) {
	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir() + "/missing"})

	schemas := registry.ListAvailableSchemas(context.Background())

	assert.NotNil(t, schemas)
	assert.Empty(t, schemas)
}

func TestRegistry_Migrate(t *testing.T) {
	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir()})
	t.Cleanup(registry.Close)
	ctx := context.Background()

	assert.True(t, errors.Is(registry.Migrate(ctx), apperror.ErrNotInitialized))

	require.NoError(t, registry.SelectSchema(ctx, "project_watch"))
	require.NoError(t, registry.Migrate(ctx))
	// Re-running is a no-op.
	require.NoError(t, registry.Migrate(ctx))

	session := databasetest.NewSession(t, registry)
	assert.True(t, session.DB().Migrator().HasTable("users"))
	assert.True(t, session.DB().Migrator().HasTable("user_profiles"))
}
