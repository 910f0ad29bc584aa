// Package config loads process configuration from the environment, an
// optional .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Drivers the service can connect with.
var Drivers = []string{"mysql", "postgres", "sqlite"}

type Config struct {
	AppPort     string
	ListSchemas bool

	Database DatabaseConfig
	Secrets  SecretsConfig
	Auth     AuthConfig
	RabbitMQ RabbitMQConfig

	LogLevel  log.Level
	LogFormat string
}

type DatabaseConfig struct {
	Driver        string
	DefaultSchema string
	PoolSize      int
	MaxOverflow   int
	PoolRecycle   time.Duration
	Echo          bool
	Migrate       bool

	SQLiteDir        string
	PostgresDatabase string
	PostgresSSLMode  string

	// Used when no secret name is configured.
	User     string
	Password string
	Host     string
	Port     int
}

// SecretsConfig locates the database credentials in AWS Secrets Manager.
type SecretsConfig struct {
	SecretName      string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type AuthConfig struct {
	JWTKey     string
	TokenTTL   time.Duration
	BcryptCost int
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":4000")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_DEFAULT_SCHEMA", "project_watch")
	v.SetDefault("DB_POOL_SIZE", 10)
	v.SetDefault("DB_MAX_OVERFLOW", 20)
	v.SetDefault("DB_POOL_RECYCLE", 30*time.Minute)
	v.SetDefault("DB_ECHO", false)
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("DB_SQLITE_DIR", "data")
	v.SetDefault("DB_POSTGRES_DATABASE", "postgres")
	v.SetDefault("DB_POSTGRES_SSLMODE", "disable")
	v.SetDefault("JWT_TTL", 30*time.Minute)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("RABBITMQ_EXCHANGE", "user.events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads configuration. args are the command-line arguments without the
// program name. Flags win over the environment, which wins over .env and
// the defaults.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug("No .env file loaded")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	fs := pflag.NewFlagSet("projectwatch", pflag.ContinueOnError)
	fs.String("schema", "", "database schema to select at startup")
	fs.Bool("list-schemas", false, "print the schemas available on the server and exit")
	fs.String("port", "", "address to listen on, e.g. :4000")
	fs.String("driver", "", "database driver: "+strings.Join(Drivers, ", "))
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	for key, flag := range map[string]string{
		"DB_DEFAULT_SCHEMA": "schema",
		"LIST_SCHEMAS":      "list-schemas",
		"APP_PORT":          "port",
		"DB_DRIVER":         "driver",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	level, err := log.ParseLevel(v.GetString("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:     v.GetString("APP_PORT"),
		ListSchemas: v.GetBool("LIST_SCHEMAS"),
		Database: DatabaseConfig{
			Driver:           strings.ToLower(v.GetString("DB_DRIVER")),
			DefaultSchema:    strings.TrimSpace(v.GetString("DB_DEFAULT_SCHEMA")),
			PoolSize:         v.GetInt("DB_POOL_SIZE"),
			MaxOverflow:      v.GetInt("DB_MAX_OVERFLOW"),
			PoolRecycle:      v.GetDuration("DB_POOL_RECYCLE"),
			Echo:             v.GetBool("DB_ECHO"),
			Migrate:          v.GetBool("DB_MIGRATE"),
			SQLiteDir:        v.GetString("DB_SQLITE_DIR"),
			PostgresDatabase: v.GetString("DB_POSTGRES_DATABASE"),
			PostgresSSLMode:  v.GetString("DB_POSTGRES_SSLMODE"),
			User:             v.GetString("DB_USER"),
			Password:         v.GetString("DB_PASSWORD"),
			Host:             v.GetString("DB_HOST"),
			Port:             v.GetInt("DB_PORT"),
		},
		Secrets: SecretsConfig{
			SecretName:      v.GetString("SECRET_NAME"),
			Region:          v.GetString("REGION_NAME"),
			Endpoint:        v.GetString("AWS_ENDPOINT_URL"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		},
		Auth: AuthConfig{
			JWTKey:     v.GetString("JWT_KEY"),
			TokenTTL:   v.GetDuration("JWT_TTL"),
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
		},
		LogLevel:  level,
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Auth.JWTKey == "" && !c.ListSchemas {
		errs = append(errs, errors.New("JWT_KEY is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if !isDriver(c.Database.Driver) {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of %s, got %q", strings.Join(Drivers, ", "), c.Database.Driver))
	}
	if c.Database.PoolSize < 1 {
		errs = append(errs, errors.New("DB_POOL_SIZE must be at least 1"))
	}
	if c.Database.MaxOverflow < 0 {
		errs = append(errs, errors.New("DB_MAX_OVERFLOW must not be negative"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func isDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

// ConfigureLogging applies the log level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
