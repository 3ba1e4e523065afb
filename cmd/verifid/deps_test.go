// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifid/verifid/internal/auth/memory"
	"github.com/verifid/verifid/internal/config"
	"github.com/verifid/verifid/internal/mail"
	"github.com/verifid/verifid/internal/web"
	"github.com/verifid/verifid/pkg/errutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore_Memory(t *testing.T) {
	st, release, err := openStore(context.Background(), config.StorageConfig{Driver: config.StorageMemory}, quietLogger())
	require.NoError(t, err)
	defer release()
	assert.IsType(t, &memory.Store{}, st)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestOpenStore_PostgresInvalidDSN(t *testing.T) {
	_, _, err := openStore(context.Background(), config.StorageConfig{
		Driver: config.StoragePostgres,
		DSN:    "postgres://%zz",
	}, quietLogger())
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, migrateUp("postgres://u@db/x", func(string) (Migrator, error) { return m, nil }))
	assert.Equal(t, []string{"up", "close"}, m.calls)

	boom := errors.New("boom")
	err := migrateUp("postgres://u@db/x", func(string) (Migrator, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}

func TestNewNotifier(t *testing.T) {
	cfg := config.Defaults()
	n, err := newNotifier(&cfg, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &mail.LogNotifier{}, n)

	cfg.Mail.Driver = config.MailSMTP
	cfg.Mail.Host = "smtp.example.com"
	cfg.Mail.From = "noreply@example.com"
	n, err = newNotifier(&cfg, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &mail.SMTPNotifier{}, n)

	cfg.Mail.Host = ""
	n, err = newNotifier(&cfg, quietLogger())
	errutil.AssertErrorCode(t, err, "MAIL_INVALID_CONFIG")
	assert.Nil(t, n)
}

func TestNewRateLimiter(t *testing.T) {
	ctx := context.Background()

	rl, err := newRateLimiter(ctx, config.RateLimitConfig{Backend: config.RateLimitOff}, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, rl)

	rl, err = newRateLimiter(ctx, config.RateLimitConfig{Backend: config.RateLimitMemory}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &web.MemoryRateLimiter{}, rl)
	require.NoError(t, rl.Close())

	start := time.Now()
	rl, err = newRateLimiter(ctx, config.RateLimitConfig{Backend: config.RateLimitRedis, RedisAddr: "127.0.0.1:1"}, quietLogger())
	errutil.AssertErrorCode(t, err, "RATELIMIT_UNAVAILABLE")
	assert.Nil(t, rl)
	assert.Less(t, time.Since(start), 10*time.Second)
}
