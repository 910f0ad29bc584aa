package database

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"projectwatch/internal/secrets"
)

// Dialect knows how to reach one database server and what a "schema" means
// on it.
type Dialect interface {
	Name() string
	// Dialector opens a connection bound to schema. An empty schema yields a
	// server-level connection used for catalog introspection.
	Dialector(schema string) gorm.Dialector
	// ListSchemas enumerates catalog-level schema names. db is a server-level
	// connection, or nil for dialects that report Local.
	ListSchemas(ctx context.Context, db *gorm.DB) ([]string, error)
	// MigrationDialect is the goose dialect for this server.
	MigrationDialect() goose.Dialect
}

// NewDialect returns the dialect for a configured driver name.
func NewDialect(driver string, creds secrets.Credentials, opts DialectOptions) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL{Credentials: creds.WithDefaultPort(3306)}, nil
	case "postgres":
		database := creds.DBName
		if database == "" {
			database = opts.PostgresDatabase
		}
		return Postgres{Credentials: creds.WithDefaultPort(5432), Database: database, SSLMode: opts.PostgresSSLMode}, nil
	case "sqlite":
		return SQLite{Dir: opts.SQLiteDir}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DialectOptions carries driver-specific settings that are not credentials.
type DialectOptions struct {
	PostgresDatabase string
	PostgresSSLMode  string
	SQLiteDir        string
}

// MySQL treats each database on the server as a schema.
type MySQL struct {
	Credentials secrets.Credentials
}

func (MySQL) Name() string { return "mysql" }

// DSN renders the go-sql-driver DSN for schema.
func (d MySQL) DSN(schema string) string {
	cfg := mysqldriver.NewConfig()
	cfg.User = d.Credentials.Username
	cfg.Passwd = d.Credentials.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Credentials.Host, strconv.Itoa(d.Credentials.Port))
	cfg.DBName = schema
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func (d MySQL) Dialector(schema string) gorm.Dialector {
	return mysql.Open(d.DSN(schema))
}

func (MySQL) ListSchemas(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	if err := db.WithContext(ctx).Raw("SHOW DATABASES").Scan(&names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (MySQL) MigrationDialect() goose.Dialect { return goose.DialectMySQL }

// Postgres maps schemas onto namespaces within one database; selecting a
// schema sets the connection's search_path.
type Postgres struct {
	Credentials secrets.Credentials
	Database    string
	SSLMode     string
}

func (Postgres) Name() string { return "postgres" }

func (d Postgres) DSN(schema string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Credentials.Host, d.Credentials.Port, d.Credentials.Username, d.Credentials.Password, d.Database, sslMode)
	if schema != "" {
		dsn += " search_path=" + schema
	}
	return dsn
}

func (d Postgres) Dialector(schema string) gorm.Dialector {
	return postgres.Open(d.DSN(schema))
}

func (Postgres) ListSchemas(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Raw("SELECT schema_name FROM information_schema.schemata ORDER BY schema_name").
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (Postgres) MigrationDialect() goose.Dialect { return goose.DialectPostgres }

// SQLite keeps one database file per schema in Dir.
type SQLite struct {
	Dir string
}

const sqliteExt = ".db"

func (SQLite) Name() string { return "sqlite" }

// Path returns the database file backing schema.
func (d SQLite) Path(schema string) string {
	return filepath.Join(d.Dir, schema+sqliteExt)
}

// Prepare creates the data directory so a new schema file can be opened.
func (d SQLite) Prepare(string) error {
	if d.Dir == "" {
		return nil
	}
	return os.MkdirAll(d.Dir, 0o755)
}

func (d SQLite) Dialector(schema string) gorm.Dialector {
	if schema == "" {
		return sqlite.Open("file::memory:")
	}
	return sqlite.Open("file:" + d.Path(schema) + "?_foreign_keys=1&_busy_timeout=5000")
}

// Local reports that schemas are enumerated without a server connection.
func (SQLite) Local() bool { return true }

func (d SQLite) ListSchemas(context.Context, *gorm.DB) ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sqliteExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), sqliteExt))
	}
	sort.Strings(names)
	return names, nil
}

func (SQLite) MigrationDialect() goose.Dialect { return goose.DialectSQLite3 }
