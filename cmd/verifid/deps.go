// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/auth/memory"
	"github.com/verifid/verifid/internal/auth/postgres"
	"github.com/verifid/verifid/internal/config"
	"github.com/verifid/verifid/internal/mail"
	"github.com/verifid/verifid/internal/store"
	"github.com/verifid/verifid/internal/web"
)

// CredentialStore is a store the server can also health check.
type CredentialStore interface {
	auth.CredentialStore
	Ping(ctx context.Context) error
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreFactory opens the credential store and returns a release function.
	// Default: openStore
	StoreFactory func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (CredentialStore, func(), error)

	// NotifierFactory builds the verification code notifier.
	// Default: newNotifier
	NotifierFactory func(cfg *config.Config, logger *slog.Logger) (auth.Notifier, error)

	// RateLimiterFactory builds the API rate limiter. A nil limiter disables limiting.
	// Default: newRateLimiter
	RateLimiterFactory func(ctx context.Context, cfg config.RateLimitConfig, logger *slog.Logger) (web.RateLimiter, error)

	// LogOutput receives log lines.
	// Default: the command's stderr
	LogOutput io.Writer

	// OnReady is called with the bound addresses once both listeners accept connections.
	OnReady func(apiAddr, metricsAddr string)
}

// QuotaDeps contains injectable dependencies for the quota command.
type QuotaDeps struct {
	// StoreFactory opens the credential store.
	// Default: openStore
	StoreFactory func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (CredentialStore, func(), error)
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

func newMigrator(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

// openStore opens the configured credential store. For postgres it waits for
// the database and applies pending migrations when auto_migrate is set.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (CredentialStore, func(), error) {
	if cfg.Driver != config.StoragePostgres {
		logger.Warn("using in-memory credential store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DSN, newMigrator); err != nil {
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}

	pool, err := store.Open(ctx, cfg.DSN, store.OpenOptions{
		ConnectTimeout: cfg.ConnectTimeout.Std(),
		MaxConns:       cfg.MaxConns,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database")
	return postgres.New(pool), pool.Close, nil
}

func migrateUp(dsn string, factory func(string) (Migrator, error)) (err error) {
	migrator, err := factory(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return migrator.Up()
}

// newNotifier builds the SMTP notifier, or one that only logs codes.
func newNotifier(cfg *config.Config, logger *slog.Logger) (auth.Notifier, error) {
	if cfg.Mail.Driver == config.MailSMTP {
		notifier, err := mail.NewSMTPNotifier(cfg.Mail.SMTP(cfg.Codes.TTL.Std()), logger)
		if err != nil {
			return nil, err
		}
		return notifier, nil
	}
	logger.Warn("mail driver is log; verification codes are written to the log")
	return mail.NewLogNotifier(logger), nil
}

// newRateLimiter builds the configured limiter, or nil when limiting is off.
func newRateLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *slog.Logger) (web.RateLimiter, error) {
	switch cfg.Backend {
	case config.RateLimitMemory:
		return web.NewMemoryRateLimiter(), nil
	case config.RateLimitRedis:
		limiter, err := web.NewRedisRateLimiter(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	default:
		return nil, nil
	}
}
