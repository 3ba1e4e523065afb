// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package errutil holds helpers for logging and asserting samber/oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the code of an oops error, or "" for any other error.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// LogError logs err at error level with any extra attrs.
// For oops errors the code and context are added as separate attributes;
// other errors are logged by their message.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err.Error())
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != "" {
			attrs = append(attrs, "error_code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "error_context", errCtx)
		}
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
