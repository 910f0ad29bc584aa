// Package database owns the process's single connection pool and hands out
// request-scoped sessions bound to the active schema.
package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"projectwatch/internal/apperror"
)

// PoolConfig bounds the connection pool: Size idle connections are kept for
// reuse and up to Overflow more may be opened under load. Acquisitions beyond
// Size+Overflow wait on the driver's pool.
type PoolConfig struct {
	Size     int
	Overflow int
	Recycle  time.Duration
}

// DefaultPool keeps 10 idle connections and allows 20 more under load.
var DefaultPool = PoolConfig{Size: 10, Overflow: 20, Recycle: 30 * time.Minute}

// Option customizes a Registry.
type Option func(*Registry)

// WithPool overrides DefaultPool.
func WithPool(pool PoolConfig) Option {
	return func(r *Registry) { r.pool = pool }
}

// WithEcho logs every SQL statement.
func WithEcho(echo bool) Option {
	return func(r *Registry) { r.echo = echo }
}

// Registry holds at most one live engine (a *gorm.DB over a pooled *sql.DB)
// bound to the active schema.
//
// Construct one per process and pass it to whoever needs sessions. Schema
// switches are a startup operation: switch before serving. Requests still in
// flight against a previous engine when SelectSchema runs are not supported.
type Registry struct {
	dialect Dialect
	pool    PoolConfig
	echo    bool

	initOnce sync.Once
	logger   gormlogger.Interface

	mu       sync.Mutex
	db       *gorm.DB
	schema   string
	nextID   uint64
	sessions map[uint64]*Session
}

// NewRegistry returns a registry with no schema selected.
func NewRegistry(dialect Dialect, opts ...Option) *Registry {
	r := &Registry{dialect: dialect, pool: DefaultPool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// init runs once, on first use, whichever goroutine gets there first.
func (r *Registry) init() {
	r.initOnce.Do(func() {
		level := gormlogger.Warn
		if r.echo {
			level = gormlogger.Info
		}
		r.logger = gormlogger.New(log.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		})
		r.sessions = make(map[uint64]*Session)
	})
}

// gormConfig is built per engine; gorm.Open keeps and mutates the config it is given.
func (r *Registry) gormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true, Logger: r.logger}
}

// ActiveSchema returns the selected schema, or "" when none is.
func (r *Registry) ActiveSchema() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.schema
}

// SelectSchema disposes of the current engine, if any, and opens a new pooled
// engine bound to name. On failure the registry is left with no engine.
func (r *Registry) SelectSchema(ctx context.Context, name string) error {
	r.init()
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.SchemaSwitch(name, errors.New("schema name is empty"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log.WithField("schema", name).Info("Switching to schema")
	r.teardownLocked()

	db, err := r.open(ctx, name)
	if err != nil {
		log.WithError(err).WithField("schema", name).Error("Failed to switch schema")
		return apperror.SchemaSwitch(name, err)
	}
	r.db = db
	r.schema = name
	log.WithField("schema", name).Info("Successfully switched to schema")
	return nil
}

func (r *Registry) open(ctx context.Context, schema string) (*gorm.DB, error) {
	if p, ok := r.dialect.(interface{ Prepare(string) error }); ok {
		if err := p.Prepare(schema); err != nil {
			return nil, fmt.Errorf("failed to prepare schema: %w", err)
		}
	}

	db, err := gorm.Open(r.dialect.Dialector(schema), r.gormConfig())
	if err != nil {
		closeEngine(db)
		return nil, fmt.Errorf("failed to open %s engine: %w", r.dialect.Name(), err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(r.pool.Size)
	sqlDB.SetMaxOpenConns(r.pool.Size + r.pool.Overflow)
	sqlDB.SetConnMaxLifetime(r.pool.Recycle)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to reach %s server: %w", r.dialect.Name(), err)
	}
	log.WithFields(log.Fields{
		"driver":    r.dialect.Name(),
		"schema":    schema,
		"pool_size": r.pool.Size,
		"overflow":  r.pool.Overflow,
	}).Info("Created database engine")
	return db, nil
}

// teardownLocked forgets tracked sessions and disposes of the engine.
func (r *Registry) teardownLocked() {
	r.releaseLocked()
	if r.db == nil {
		return
	}
	closeEngine(r.db)
	r.db = nil
	r.schema = ""
}

// AcquireSession returns a new session on the active schema. The caller must
// Close it.
func (r *Registry) AcquireSession(ctx context.Context) (*Session, error) {
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil, apperror.NotInitialized()
	}
	r.nextID++
	s := &Session{
		id:       r.nextID,
		schema:   r.schema,
		db:       r.db.WithContext(ctx),
		registry: r,
	}
	r.sessions[s.id] = s
	return s, nil
}

func (r *Registry) release(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// OpenSessions reports how many acquired sessions have not been closed.
func (r *Registry) OpenSessions() int {
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ReleaseAllSessions drops session tracking at shutdown. It does not abort
// transactions the registry does not own.
func (r *Registry) ReleaseAllSessions() {
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
}

func (r *Registry) releaseLocked() {
	if n := len(r.sessions); n > 0 {
		log.WithField("sessions", n).Info("Releasing outstanding sessions")
	}
	for id, s := range r.sessions {
		s.detach()
		delete(r.sessions, id)
	}
}

// Close releases sessions and disposes of the engine.
func (r *Registry) Close() {
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardownLocked()
}

// Ping checks the active engine.
func (r *Registry) Ping(ctx context.Context) error {
	r.mu.Lock()
	db := r.db
	r.mu.Unlock()
	if db == nil {
		return apperror.NotInitialized()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ListAvailableSchemas enumerates schemas on the server. Introspection
// failures are logged and yield an empty list.
func (r *Registry) ListAvailableSchemas(ctx context.Context) []string {
	r.init()
	var db *gorm.DB
	if l, ok := r.dialect.(interface{ Local() bool }); !ok || !l.Local() {
		var err error
		db, err = gorm.Open(r.dialect.Dialector(""), r.gormConfig())
		defer closeEngine(db)
		if err != nil {
			log.WithError(err).Error("Error fetching schema list")
			return []string{}
		}
	}

	names, err := r.dialect.ListSchemas(ctx, db)
	if err != nil {
		log.WithError(err).Error("Error fetching schema list")
		return []string{}
	}
	if names == nil {
		names = []string{}
	}
	return names
}

// SchemaExists reports whether name is among ListAvailableSchemas.
func (r *Registry) SchemaExists(ctx context.Context, name string) bool {
	return slices.Contains(r.ListAvailableSchemas(ctx), name)
}

func closeEngine(db *gorm.DB) {
	if db == nil || db.ConnPool == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("Error disposing database engine")
	}
}
