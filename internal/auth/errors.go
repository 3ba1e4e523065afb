// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by a CredentialStore when a write violates a uniqueness rule.
var ErrConflict = errors.New("conflict")

// Store conflicts, distinguishable by the violated constraint.
var (
	ErrEmailTaken     = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrPhoneTaken     = fmt.Errorf("phone number already registered: %w", ErrConflict)
	ErrTokenCollision = fmt.Errorf("session token already recorded: %w", ErrConflict)
)

// ErrInvalidRecipient is returned by a Notifier when the mail server permanently
// rejects the destination address.
var ErrInvalidRecipient = errors.New("invalid recipient")

// Kind classifies an error for callers that translate failures into responses.
type Kind string

// Error kinds.
const (
	KindInvalidInput           Kind = "invalid_input"
	KindUnauthorized           Kind = "unauthorized"
	KindForbidden              Kind = "forbidden"
	KindConflict               Kind = "conflict"
	KindNotFound               Kind = "not_found"
	KindInvalidRecipient       Kind = "invalid_recipient"
	KindTemporarilyUnavailable Kind = "temporarily_unavailable"
	KindInternal               Kind = "internal"
)

// codeKinds maps the error codes produced by this package to their kind.
// Codes not listed here are internal failures.
var codeKinds = map[string]Kind{
	"AUTH_INVALID_EMAIL":    KindInvalidInput,
	"AUTH_INVALID_PASSWORD": KindInvalidInput,
	"AUTH_EMPTY_PASSWORD":   KindInvalidInput,
	"AUTH_INVALID_NAME":     KindInvalidInput,
	"AUTH_INVALID_PHONE":    KindInvalidInput,
	"CODE_INVALID_FORMAT":   KindInvalidInput,
	"CODE_INVALID_USER":     KindInvalidInput,

	"AUTH_INVALID_CREDENTIALS": KindUnauthorized,
	"SESSION_TOKEN_INVALID":    KindUnauthorized,
	"SESSION_EXPIRED":          KindUnauthorized,

	"AUTH_EMAIL_NOT_VERIFIED": KindForbidden,
	"AUTH_ACCOUNT_INACTIVE":   KindForbidden,

	"AUTH_EMAIL_TAKEN":        KindConflict,
	"AUTH_PHONE_TAKEN":        KindConflict,
	"CODE_ALREADY_VERIFIED":   KindConflict,
	"CODE_MISMATCH":           KindConflict,
	"CODE_EXPIRED":            KindConflict,
	"RESEND_UNKNOWN_EMAIL":    KindConflict,
	"RESEND_NOT_STARTED":      KindConflict,
	"RESEND_QUOTA_EXHAUSTED":  KindConflict,
	"SESSION_TOKEN_COLLISION": KindConflict,

	"USER_NOT_FOUND":    KindNotFound,
	"PROFILE_NOT_FOUND": KindNotFound,

	"NOTIFY_INVALID_RECIPIENT": KindInvalidRecipient,
	"NOTIFY_UNAVAILABLE":       KindTemporarilyUnavailable,
}

// KindOf reports the kind of err. Plain errors wrapping ErrNotFound or ErrConflict
// keep that meaning; anything unrecognized is KindInternal. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			if kind, found := codeKinds[code]; found {
				return kind
			}
		}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
