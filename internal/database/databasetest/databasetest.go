// Package databasetest provides a migrated sqlite-backed Registry for tests.
package databasetest

import (
	"context"
	"testing"

	"projectwatch/internal/database"
)

// Schema is the schema name fixtures select.
const Schema = "project_watch"

// NewRegistry returns a registry on a fresh sqlite directory with Schema
// selected and migrated. It is closed when the test ends.
func NewRegistry(t testing.TB) *database.Registry {
	t.Helper()

	registry := database.NewRegistry(database.SQLite{Dir: t.TempDir()})
	ctx := context.Background()
	if err := registry.SelectSchema(ctx, Schema); err != nil {
		t.Fatalf("select schema: %v", err)
	}
	if err := registry.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(registry.Close)
	return registry
}

// NewSession acquires a session on registry, closed when the test ends.
func NewSession(t testing.TB, registry *database.Registry) *database.Session {
	t.Helper()

	session, err := registry.AcquireSession(context.Background())
	if err != nil {
		t.Fatalf("acquire session: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}
