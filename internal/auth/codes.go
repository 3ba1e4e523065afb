// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/verifid/verifid/pkg/errutil"
)

// Verification code configuration.
const (
	CodeLength     = 6
	DefaultCodeTTL = 10 * time.Minute
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxCodeAttempts bounds regeneration when a new code collides with the previous one.
	maxCodeAttempts = 5
)

// GenerateCode returns a random verification code drawn uniformly from [A-Z0-9].
func GenerateCode() (string, error) {
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(CodeLength)
	for range CodeLength {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", oops.Code("CODE_GENERATE_FAILED").Wrap(err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// CodeConfig configures a CodeIssuer.
type CodeConfig struct {
	TTL   time.Duration
	Quota ResendQuota
}

// DefaultCodeConfig returns a ten minute TTL and the default resend quota.
func DefaultCodeConfig() CodeConfig {
	return CodeConfig{TTL: DefaultCodeTTL, Quota: DefaultResendQuota()}
}

// CodeIssuer generates, delivers and checks email verification codes.
type CodeIssuer struct {
	store    CredentialStore
	notifier Notifier
	ttl      time.Duration
	quota    ResendQuota
	logger   *slog.Logger
	now      func() time.Time
}

// NewCodeIssuer creates a CodeIssuer.
func NewCodeIssuer(store CredentialStore, notifier Notifier, cfg CodeConfig, opts ...Option) (*CodeIssuer, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("credential store is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("notifier is required")
	}
	if cfg.TTL <= 0 {
		return nil, oops.Code("AUTH_INVALID_OPTION").With("ttl", cfg.TTL).Errorf("code TTL must be positive")
	}
	if err := cfg.Quota.Validate(); err != nil {
		return nil, err
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &CodeIssuer{
		store:    store,
		notifier: notifier,
		ttl:      cfg.TTL,
		quota:    cfg.Quota,
		logger:   o.logger,
		now:      o.now,
	}, nil
}

// NewCode returns a fresh code different from previous, with its expiry.
func (c *CodeIssuer) NewCode(previous string) (string, time.Time, error) {
	for range maxCodeAttempts {
		code, err := GenerateCode()
		if err != nil {
			return "", time.Time{}, err
		}
		if code != previous {
			return code, c.now().Add(c.ttl), nil
		}
	}
	return "", time.Time{}, oops.Code("CODE_GENERATE_FAILED").Errorf("could not generate a distinct code")
}

// IssueInitial replaces the code of the profile registered under email and sends it.
// The resend counter is left unchanged. A delivery failure does not roll back the new code.
func (c *CodeIssuer) IssueInitial(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	profile, err := c.store.FindByEmail(ctx, email)
	if err != nil {
		return internalError(ctx, c.logger, "CODE_ISSUE_FAILED", "find profile by email", err)
	}
	if profile == nil {
		return oops.Code("PROFILE_NOT_FOUND").
			With("email", email).
			Errorf("no account is registered with this email")
	}

	code, expiresAt, err := c.NewCode(profile.VerificationCode)
	if err != nil {
		return internalError(ctx, c.logger, "CODE_ISSUE_FAILED", "generate code", err)
	}
	if err := c.updateCode(ctx, email, CodeUpdate{
		Code:            code,
		ExpiresAt:       expiresAt,
		ResendCount:     profile.EmailResendCount,
		WindowStartedAt: profile.ResendWindowStartedAt,
		UpdatedAt:       c.now(),
	}); err != nil {
		return err
	}
	return c.deliver(ctx, email, code, SendReasonInitial)
}

// SendInitial delivers a code that was stored with the profile at registration.
func (c *CodeIssuer) SendInitial(ctx context.Context, email, code string) error {
	return c.deliver(ctx, NormalizeEmail(email), code, SendReasonInitial)
}

// Resend issues a new code if the profile is unverified and still within its quota.
func (c *CodeIssuer) Resend(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	profile, err := c.store.FindByEmail(ctx, email)
	if err != nil {
		return internalError(ctx, c.logger, "CODE_RESEND_FAILED", "find profile by email", err)
	}
	if profile == nil {
		return oops.Code("RESEND_UNKNOWN_EMAIL").
			With("email", email).
			Errorf("no pending verification for this email")
	}
	if profile.EmailVerified {
		return oops.Code("CODE_ALREADY_VERIFIED").
			With("email", email).
			Errorf("email is already verified")
	}

	now := c.now()
	decision := c.quota.Check(profile.EmailResendCount, profile.ResendWindowStartedAt, now)
	if decision.NotStarted {
		return oops.Code("RESEND_NOT_STARTED").
			With("email", email).
			Errorf("no verification code was sent to this email yet")
	}
	if !decision.Allowed {
		builder := oops.Code("RESEND_QUOTA_EXHAUSTED").
			With("email", email).
			With("count", decision.Count)
		if !decision.RetryAt.IsZero() {
			builder = builder.With("retry_at", decision.RetryAt)
		}
		return builder.Errorf("verification email resend limit reached")
	}

	code, expiresAt, err := c.NewCode(profile.VerificationCode)
	if err != nil {
		return internalError(ctx, c.logger, "CODE_RESEND_FAILED", "generate code", err)
	}
	if err := c.updateCode(ctx, email, CodeUpdate{
		Code:            code,
		ExpiresAt:       expiresAt,
		ResendCount:     decision.Count + 1,
		WindowStartedAt: decision.WindowStartedAt,
		UpdatedAt:       now,
	}); err != nil {
		return err
	}
	return c.deliver(ctx, email, code, SendReasonResend)
}

// Verify consumes code for userID. On success the email is verified and the
// account activated together.
func (c *CodeIssuer) Verify(ctx context.Context, userID int64, code string) error {
	if userID <= 0 {
		return oops.Code("CODE_INVALID_USER").With("user_id", userID).Errorf("user id is required")
	}
	if err := ValidateCodeFormat(code); err != nil {
		return err
	}

	if _, err := c.store.FindUser(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("USER_NOT_FOUND").With("user_id", userID).Errorf("user not found")
		}
		return internalError(ctx, c.logger, "CODE_VERIFY_FAILED", "find user", err)
	}
	profile, err := c.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("PROFILE_NOT_FOUND").With("user_id", userID).Errorf("security profile not found")
		}
		return internalError(ctx, c.logger, "CODE_VERIFY_FAILED", "find profile", err)
	}

	if profile.EmailVerified {
		return oops.Code("CODE_ALREADY_VERIFIED").With("user_id", userID).Errorf("email is already verified")
	}
	submitted := strings.ToUpper(strings.TrimSpace(code))
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(profile.VerificationCode)) != 1 {
		return oops.Code("CODE_MISMATCH").With("user_id", userID).Errorf("verification code is incorrect")
	}
	now := c.now()
	if profile.CodeExpiredAt(now) {
		return oops.Code("CODE_EXPIRED").
			With("user_id", userID).
			With("expired_at", profile.CodeExpiresAt).
			Errorf("verification code has expired")
	}

	if err := c.store.MarkVerified(ctx, userID, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("PROFILE_NOT_FOUND").With("user_id", userID).Errorf("security profile not found")
		}
		return internalError(ctx, c.logger, "CODE_VERIFY_FAILED", "mark verified", err)
	}
	c.logger.InfoContext(ctx, "email verified", "user_id", userID)
	return nil
}

func (c *CodeIssuer) updateCode(ctx context.Context, email string, update CodeUpdate) error {
	err := c.store.UpdateCode(ctx, email, update)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return oops.Code("PROFILE_NOT_FOUND").With("email", email).Errorf("no account is registered with this email")
	}
	return internalError(ctx, c.logger, "CODE_UPDATE_FAILED", "update code", err)
}

func (c *CodeIssuer) deliver(ctx context.Context, email, code string, reason SendReason) error {
	err := c.notifier.SendVerificationCode(ctx, email, code)
	if err == nil {
		recordCodeSent(reason, SendStatusDelivered)
		return nil
	}
	errutil.LogError(ctx, c.logger, "verification code delivery failed", err, "email", email, "reason", string(reason))
	if errors.Is(err, ErrInvalidRecipient) {
		recordCodeSent(reason, SendStatusRejected)
		return oops.Code("NOTIFY_INVALID_RECIPIENT").
			With("email", email).
			Errorf("email address was rejected by the mail server")
	}
	recordCodeSent(reason, SendStatusFailed)
	return oops.Code("NOTIFY_UNAVAILABLE").
		With("email", email).
		Errorf("email delivery is temporarily unavailable")
}
