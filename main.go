package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"projectwatch/internal/config"
	"projectwatch/internal/database"
	"projectwatch/internal/handlers"
	"projectwatch/internal/secrets"
	"projectwatch/internal/services"
	"projectwatch/pkg/rabbitmq"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.WithError(err).Fatal("Startup failed")
	}
}

func run(args []string, stdout io.Writer) error {
	// --- Configuration ---
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ConfigureLogging()
	ctx := context.Background()

	// --- Database ---
	registry, err := newRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	schemas := registry.ListAvailableSchemas(ctx)
	log.WithField("schemas", schemas).Info("Available schemas")
	if cfg.ListSchemas {
		for _, s := range schemas {
			fmt.Fprintln(stdout, s)
		}
		return nil
	}

	schema := cfg.Database.DefaultSchema
	if !slices.Contains(schemas, schema) {
		return fmt.Errorf("schema %q does not exist", schema)
	}
	if err := registry.SelectSchema(ctx, schema); err != nil {
		return err
	}
	if cfg.Database.Migrate {
		if err := registry.Migrate(ctx); err != nil {
			return err
		}
	}

	// --- Events ---
	var publisher services.EventPublisher = services.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Exchange: cfg.RabbitMQ.Exchange})
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, user events disabled")
		} else {
			defer mqClient.Close()
			publisher = services.NewBrokerPublisher(mqClient)
			if err := mqClient.ConsumeUserEvents(auditUserEvent); err != nil {
				log.WithError(err).Warn("Failed to start user event consumer")
			}
		}
	}

	provider := services.NewProvider(
		services.NewBcryptHasher(cfg.Auth.BcryptCost),
		publisher,
		cfg.Auth.JWTKey,
		cfg.Auth.TokenTTL,
	)
	app := newApp(registry, provider)

	// --- Start HTTP Server ---
	log.WithField("addr", cfg.AppPort).Info("Starting server")

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.WithError(err).Error("Error during Fiber shutdown")
	}
	registry.ReleaseAllSessions()
	// The registry and RabbitMQ client are closed by the deferred calls.
	log.Info("Server gracefully stopped")
	return nil
}

// newRegistry resolves the database credentials and builds the connection
// registry for the configured driver. No schema is selected yet.
func newRegistry(ctx context.Context, cfg *config.Config) (*database.Registry, error) {
	var provider secrets.Provider = secrets.StaticProvider{Credentials: secrets.Credentials{
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
	}}
	if cfg.Secrets.SecretName != "" {
		awsProvider, err := secrets.NewAWSProvider(ctx, secrets.AWSConfig{
			SecretName:      cfg.Secrets.SecretName,
			Region:          cfg.Secrets.Region,
			Endpoint:        cfg.Secrets.Endpoint,
			AccessKeyID:     cfg.Secrets.AccessKeyID,
			SecretAccessKey: cfg.Secrets.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		provider = awsProvider
	}

	creds, err := provider.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database credentials: %w", err)
	}

	dialect, err := database.NewDialect(cfg.Database.Driver, *creds, database.DialectOptions{
		PostgresDatabase: cfg.Database.PostgresDatabase,
		PostgresSSLMode:  cfg.Database.PostgresSSLMode,
		SQLiteDir:        cfg.Database.SQLiteDir,
	})
	if err != nil {
		return nil, err
	}
	return database.NewRegistry(dialect,
		database.WithPool(database.PoolConfig{
			Size:     cfg.Database.PoolSize,
			Overflow: cfg.Database.MaxOverflow,
			Recycle:  cfg.Database.PoolRecycle,
		}),
		database.WithEcho(cfg.Database.Echo),
	), nil
}

// newApp builds the Fiber app with middleware and every route.
func newApp(registry *database.Registry, provider *services.Provider) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: log.StandardLogger().Writer(),
	}))

	// --- Routes ---
	handlers.NewHealthHandler(registry).RegisterRoutes(app)
	handlers.NewAuthHandler(registry, provider).RegisterRoutes(app)
	handlers.NewUserHandler(registry, provider).RegisterRoutes(app)
	return app
}

// auditUserEvent logs user lifecycle events received from the broker.
func auditUserEvent(msg amqp.Delivery) error {
	var event services.UserEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("failed to decode user event %s: %w", msg.MessageId, err)
	}
	log.WithFields(log.Fields{
		"event":       event.Type,
		"user_id":     event.UserID,
		"username":    event.Username,
		"occurred_at": event.OccurredAt,
	}).Info("User event")
	return nil
}
