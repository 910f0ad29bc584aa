package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"

	"projectwatch/internal/apperror"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies pending migrations for the registry's dialect to the
// active schema.
func (r *Registry) Migrate(ctx context.Context) error {
	r.mu.Lock()
	db := r.db
	schema := r.schema
	r.mu.Unlock()
	if db == nil {
		return apperror.NotInitialized()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	fsys, err := fs.Sub(migrations, "migrations/"+r.dialect.Name())
	if err != nil {
		return fmt.Errorf("no migrations for %s: %w", r.dialect.Name(), err)
	}

	provider, err := goose.NewProvider(r.dialect.MigrationDialect(), sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("failed to set up migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate schema %s: %w", schema, err)
	}
	for _, res := range results {
		log.WithFields(log.Fields{
			"schema":   schema,
			"version":  res.Source.Version,
			"file":     res.Source.Path,
			"duration": res.Duration,
		}).Info("Migration applied")
	}
	return nil
}
