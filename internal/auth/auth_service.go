// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
)

// RegisterMessage is returned to a client after a successful registration.
const RegisterMessage = "Registration successful. Check your email to verify your account."

// dummyPassword is hashed once to give unknown-email logins the same cost as real ones.
//
//nolint:gosec // G101: not a credential, only hashed for timing equalization.
const dummyPassword = "verifid-timing-equalizer"

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Session     *Session
}

// RegisterResult is returned by a successful registration.
type RegisterResult struct {
	UserID  int64
	Message string
}

// Service coordinates login and registration.
type Service struct {
	store    CredentialStore
	hasher   PasswordHasher
	codes    *CodeIssuer
	sessions *SessionManager
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new Service.
func NewAuthService(store CredentialStore, hasher PasswordHasher, codes *CodeIssuer, sessions *SessionManager, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("password hasher is required")
	}
	if codes == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("code issuer is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("session manager is required")
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		codes:    codes,
		sessions: sessions,
		logger:   o.logger,
		now:      o.now,
	}, nil
}

// Login authenticates a user by email and password and opens a session.
//
// Unknown emails and wrong passwords both fail with AUTH_INVALID_CREDENTIALS.
// Correct credentials on an unverified or inactive account fail with a
// forbidden error instead, so the client can prompt for verification.
func (s *Service) Login(ctx context.Context, email, password string) (result *LoginResult, err error) {
	defer func(started time.Time) { recordOperation(OperationLogin, started, err) }(time.Now())

	email = NormalizeEmail(email)
	profile, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, internalError(ctx, s.logger, "AUTH_LOGIN_FAILED", "find profile by email", err)
	}

	if profile == nil {
		// Keep response time close to the existing-user path.
		if dummy := s.timingHash(); dummy != "" {
			_, _ = s.hasher.Verify(password, dummy) //nolint:errcheck // result is irrelevant
		}
		return nil, invalidCredentials()
	}

	valid, err := s.hasher.Verify(password, profile.PasswordHash)
	if err != nil {
		return nil, internalError(ctx, s.logger, "AUTH_LOGIN_FAILED", "verify password", err)
	}
	if !valid {
		return nil, invalidCredentials()
	}

	if !profile.EmailVerified {
		return nil, oops.Code("AUTH_EMAIL_NOT_VERIFIED").
			With("user_id", profile.UserID).
			Errorf("email address has not been verified")
	}
	if !profile.AccountActive {
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("user_id", profile.UserID).
			Errorf("account is not active")
	}

	rawToken, expiresAt, err := s.sessions.IssueToken(profile.Email, profile.UserID)
	if err != nil {
		return nil, internalError(ctx, s.logger, "AUTH_LOGIN_FAILED", "issue token", err)
	}
	session, err := s.sessions.RecordSession(ctx, profile.UserID, rawToken)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", profile.UserID, "session_id", session.ID.String())
	return &LoginResult{AccessToken: rawToken, ExpiresAt: expiresAt, Session: session}, nil
}

// Register creates a user with an unverified security profile and sends the
// first verification code.
//
// The user and profile are written in one transaction. If delivery of the code
// fails the account still exists and the error reports the delivery failure.
func (s *Service) Register(ctx context.Context, in RegisterInput) (result *RegisterResult, err error) {
	defer func(started time.Time) { recordOperation(OperationRegister, started, err) }(time.Now())

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, internalError(ctx, s.logger, "AUTH_REGISTER_FAILED", "find profile by email", err)
	}
	if existing != nil {
		return nil, emailTaken(in.Email)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internalError(ctx, s.logger, "AUTH_REGISTER_FAILED", "hash password", err)
	}
	code, codeExpiresAt, err := s.codes.NewCode("")
	if err != nil {
		return nil, internalError(ctx, s.logger, "AUTH_REGISTER_FAILED", "generate code", err)
	}

	var phone *string
	if in.PhoneNumber != "" {
		phone = &in.PhoneNumber
	}

	var user *User
	err = s.store.InTx(ctx, func(tx CredentialStore) error {
		created, txErr := tx.CreateUser(ctx, in.FirstName, in.LastName)
		if txErr != nil {
			return txErr
		}
		if _, txErr = tx.CreateSecurityProfile(ctx, NewSecurityProfile{
			UserID:        created.ID,
			Email:         in.Email,
			PhoneNumber:   phone,
			PasswordHash:  passwordHash,
			Code:          code,
			CodeExpiresAt: codeExpiresAt,
			CreatedAt:     s.now(),
		}); txErr != nil {
			return txErr
		}
		user = created
		return nil
	})
	switch {
	case errors.Is(err, ErrEmailTaken):
		return nil, emailTaken(in.Email)
	case errors.Is(err, ErrPhoneTaken):
		return nil, oops.Code("AUTH_PHONE_TAKEN").Errorf("phone number is already registered")
	case err != nil:
		return nil, internalError(ctx, s.logger, "AUTH_REGISTER_FAILED", "create account", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	if err := s.codes.SendInitial(ctx, in.Email, code); err != nil {
		return nil, err
	}
	return &RegisterResult{UserID: user.ID, Message: RegisterMessage}, nil
}

func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn("could not prepare timing hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
}

func emailTaken(email string) error {
	return oops.Code("AUTH_EMAIL_TAKEN").With("email", email).Errorf("email is already registered")
}
