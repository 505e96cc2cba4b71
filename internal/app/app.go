package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/adapter/repository/postgres"
	"github.com/ismoilovdevml/webhook-bridge/internal/api"
	"github.com/ismoilovdevml/webhook-bridge/internal/config"
	"github.com/ismoilovdevml/webhook-bridge/internal/cryptoutils"
	"github.com/ismoilovdevml/webhook-bridge/internal/dispatch"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/parser"
	"github.com/ismoilovdevml/webhook-bridge/internal/provider"
	"github.com/ismoilovdevml/webhook-bridge/internal/retention"
	"github.com/ismoilovdevml/webhook-bridge/internal/signature"
	"github.com/ismoilovdevml/webhook-bridge/pkg/db"
	zaplog "github.com/ismoilovdevml/webhook-bridge/pkg/log"
	"github.com/ismoilovdevml/webhook-bridge/sql/migrations"
)

// RunServer starts the HTTP server and background workers.
func RunServer() {
	app := fx.New(
		fx.Provide(
			// Config
			config.Load,

			// Domain Adapters (Bind Interfaces)
			fx.Annotate(
				postgres.NewDestinationRepository,
				fx.As(new(destination.Repository)),
			),
			fx.Annotate(
				postgres.NewOutcomeRepository,
				fx.As(new(delivery.Repository)),
			),

			// Webhook pipeline
			parser.Default,
			newValidator,
			newCipher,
			newProviderDeps,
			newDispatchConfig,
			dispatch.New,
			newPruner,

			// API
			api.NewRouter,
		),
		db.Module,     // Database Module
		zaplog.Module, // Logger Module
		fx.Invoke(registerHooks),
	)

	app.Run()
}

// RunMigrations executes database migrations (up or down).
func RunMigrations(command string) error {
	if command == "" {
		command = "up"
	}

	cfg := config.Load()
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting database migration...", zap.String("command", command))

	dbURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	d, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, dbURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("migration up failed: %w", err)
		}
		if err == migrate.ErrNoChange {
			logger.Info("No changes to apply")
		} else {
			logger.Info("Migration up applied successfully")
		}
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("migration down failed: %w", err)
		}
		logger.Info("Migration down applied successfully")
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}

	return nil
}

func registerHooks(lc fx.Lifecycle, router *api.Router, dispatcher *dispatch.Dispatcher, pruner *retention.Pruner, cfg *config.Config, logger *zap.Logger) {
	var prunerCancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting HTTP server", zap.String("port", cfg.Port))

			prunerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			prunerCancel = cancel
			go pruner.Run(prunerCtx)

			// Start server in goroutine
			go func() {
				if err := router.Run(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Server failed to start", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server gracefully...")

			if prunerCancel != nil {
				prunerCancel()
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := router.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", zap.Error(err))
				return err
			}

			// Let queued notification deliveries finish before exit.
			dispatcher.Wait()

			logger.Info("HTTP server stopped gracefully")
			return nil
		},
	})
}

func newValidator(cfg *config.Config, logger *zap.Logger) *signature.Validator {
	return signature.NewValidator(cfg.WebhookSecret, logger)
}

func newCipher(cfg *config.Config, logger *zap.Logger) (*cryptoutils.Cipher, error) {
	return cryptoutils.NewCipher(cfg.EncryptionKey, logger)
}

// newProviderDeps builds the HTTP plumbing shared by all delivery
// providers. One breaker guards all chat-service calls.
func newProviderDeps(logger *zap.Logger) provider.Deps {
	return provider.Deps{
		Client: &http.Client{Timeout: 30 * time.Second},
		Breaker: provider.NewBreaker("providers", provider.BreakerSettings{
			FailureThreshold: 5,
			MinRequests:      5,
			RecoveryTime:     30 * time.Second,
			SamplingDuration: time.Minute,
		}),
		Logger: logger,
	}
}

func newDispatchConfig(cfg *config.Config) dispatch.Config {
	return dispatch.Config{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
		MaxDelay:     cfg.RetryMaxDelay,
		BackoffBase:  cfg.RetryBackoffBase,
	}
}

func newPruner(outcomes delivery.Repository, cfg *config.Config, logger *zap.Logger) *retention.Pruner {
	return retention.NewPruner(outcomes, cfg.OutcomeRetentionDays, logger)
}
