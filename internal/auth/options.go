// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/verifid/verifid/pkg/errutil"
)

// Option configures the services in this package.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
		now:    time.Now,
	}
}

func applyOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		return o, oops.Code("AUTH_INVALID_OPTION").Errorf("logger cannot be nil")
	}
	if o.now == nil {
		return o, oops.Code("AUTH_INVALID_OPTION").Errorf("clock cannot be nil")
	}
	return o, nil
}

// WithLogger sets the logger used for failures that are reported as internal errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces time.Now. Tests use it to pin expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// internalError logs an unexpected failure with its full context and returns a
// fresh internal error carrying code. The cause is not exposed to callers.
func internalError(ctx context.Context, logger *slog.Logger, code, operation string, err error) error {
	errutil.LogError(ctx, logger, operation+" failed", err, "code", code)
	return oops.Code(code).
		With("operation", operation).
		Errorf("internal error")
}
