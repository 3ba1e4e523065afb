// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifid/verifid/pkg/errutil"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func quietOptions(timeout time.Duration) OpenOptions {
	return OpenOptions{
		ConnectTimeout: timeout,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestWaitForDatabase_RetriesUntilReady(t *testing.T) {
	p := &flakyPinger{failures: 2}
	require.NoError(t, waitForDatabase(context.Background(), p, quietOptions(5*time.Second)))
	assert.Equal(t, 3, p.calls)
}

func TestWaitForDatabase_GivesUp(t *testing.T) {
	p := &flakyPinger{failures: 1 << 30}
	err := waitForDatabase(context.Background(), p, quietOptions(300*time.Millisecond))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_UNAVAILABLE")
	assert.Greater(t, p.calls, 1)
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "://not-a-dsn", OpenOptions{})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}
