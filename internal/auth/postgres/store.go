// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package postgres implements auth.CredentialStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/verifid/verifid/internal/auth"
)

// Constraint names from the schema migrations.
const (
	constraintEmail      = "security_profiles_email_key"
	constraintPhone      = "security_profiles_phone_number_key"
	constraintTokenHash  = "sessions_token_hash_key"
	constraintSessionsPK = "sessions_pkey"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is a DBTX that can also be pinged. *pgxpool.Pool satisfies it.
type Pool interface {
	DBTX
	Ping(ctx context.Context) error
}

// Store implements auth.CredentialStore.
type Store struct {
	db   DBTX
	pool Pool
}

// New creates a Store backed by pool.
func New(pool Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

const profileColumns = `
	user_id, email, phone_number, password_hash, email_verified,
	account_active, online, verification_code, code_expires_at,
	email_resend_count, phone_resend_count, resend_window_started_at,
	created_at, updated_at`

func scanProfile(row pgx.Row) (*auth.SecurityProfile, error) {
	var p auth.SecurityProfile
	err := row.Scan(
		&p.UserID, &p.Email, &p.PhoneNumber, &p.PasswordHash, &p.EmailVerified,
		&p.AccountActive, &p.Online, &p.VerificationCode, &p.CodeExpiresAt,
		&p.EmailResendCount, &p.PhoneResendCount, &p.ResendWindowStartedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByEmail retrieves a profile by email (case-insensitive).
func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.SecurityProfile, error) {
	row := s.db.QueryRow(ctx, `SELECT `+profileColumns+`
		FROM security_profiles
		WHERE LOWER(email) = LOWER($1)
	`, email)

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "find profile by email").
			With("email", email).
			Wrap(err)
	}
	return p, nil
}

// FindByUserID retrieves the profile of a user.
func (s *Store) FindByUserID(ctx context.Context, userID int64) (*auth.SecurityProfile, error) {
	row := s.db.QueryRow(ctx, `SELECT `+profileColumns+`
		FROM security_profiles
		WHERE user_id = $1
	`, userID)

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "find profile by user").
			With("user_id", userID).
			Wrap(err)
	}
	return p, nil
}

// FindUser retrieves a user by ID.
func (s *Store) FindUser(ctx context.Context, userID int64) (*auth.User, error) {
	var u auth.User
	err := s.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.FirstName, &u.LastName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "find user").
			With("user_id", userID).
			Wrap(err)
	}
	return &u, nil
}

// CreateUser inserts a user; the database assigns the ID.
func (s *Store) CreateUser(ctx context.Context, firstName, lastName string) (*auth.User, error) {
	u := auth.User{FirstName: firstName, LastName: lastName}
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, firstName, lastName).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(translate(err))
	}
	return &u, nil
}

// CreateSecurityProfile inserts an unverified profile with a resend count of 1.
func (s *Store) CreateSecurityProfile(ctx context.Context, in auth.NewSecurityProfile) (*auth.SecurityProfile, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO security_profiles (
			user_id, email, phone_number, password_hash,
			verification_code, code_expires_at, email_resend_count,
			resend_window_started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7, $7)
		RETURNING `+profileColumns,
		in.UserID,
		in.Email,
		in.PhoneNumber,
		in.PasswordHash,
		in.Code,
		in.CodeExpiresAt,
		in.CreatedAt,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, oops.Code("PROFILE_CREATE_FAILED").
			With("operation", "insert security profile").
			With("user_id", in.UserID).
			Wrap(translate(err))
	}
	return p, nil
}

// MarkVerified flags the email as verified and activates the account.
func (s *Store) MarkVerified(ctx context.Context, userID int64, at time.Time) error {
	result, err := s.db.Exec(ctx, `
		UPDATE security_profiles
		SET email_verified = TRUE, account_active = TRUE, updated_at = $2
		WHERE user_id = $1
	`, userID, at)
	if err != nil {
		return oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "mark verified").
			With("user_id", userID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PROFILE_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateCode replaces the verification code and resend state.
func (s *Store) UpdateCode(ctx context.Context, email string, update auth.CodeUpdate) error {
	result, err := s.db.Exec(ctx, `
		UPDATE security_profiles SET
			verification_code = $2,
			code_expires_at = $3,
			email_resend_count = $4,
			resend_window_started_at = $5,
			updated_at = $6
		WHERE LOWER(email) = LOWER($1)
	`,
		email,
		update.Code,
		update.ExpiresAt,
		update.ResendCount,
		update.WindowStartedAt,
		update.UpdatedAt,
	)
	if err != nil {
		return oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "update code").
			With("email", email).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PROFILE_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetOnline updates the online flag.
func (s *Store) SetOnline(ctx context.Context, userID int64, online bool) error {
	result, err := s.db.Exec(ctx, `
		UPDATE security_profiles SET online = $2 WHERE user_id = $1
	`, userID, online)
	if err != nil {
		return oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "set online").
			With("user_id", userID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PROFILE_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	return nil
}

// CreateSession appends a session row.
func (s *Store) CreateSession(ctx context.Context, session *auth.Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.ID.String(),
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(translate(err))
	}
	return nil
}

// ResetResendCounts starts a new resend window for unverified profiles whose
// window began before startedBefore.
func (s *Store) ResetResendCounts(ctx context.Context, startedBefore, now time.Time) (int64, error) {
	result, err := s.db.Exec(ctx, `
		UPDATE security_profiles SET
			email_resend_count = 1,
			resend_window_started_at = $2,
			updated_at = $2
		WHERE NOT email_verified
		  AND email_resend_count > 1
		  AND resend_window_started_at < $1
	`, startedBefore, now)
	if err != nil {
		return 0, oops.Code("QUOTA_RESET_FAILED").
			With("operation", "reset resend counts").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// InTx runs fn inside a transaction. Nested calls use a savepoint.
func (s *Store) InTx(ctx context.Context, fn func(tx auth.CredentialStore) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}

	if err := fn(&Store{db: tx, pool: s.pool}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return oops.Code("TX_ROLLBACK_FAILED").With("cause", err.Error()).Wrap(rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(translate(err))
	}
	return nil
}

// translate maps unique violations onto the auth conflict sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintEmail:
		return errors.Join(auth.ErrEmailTaken, err)
	case constraintPhone:
		return errors.Join(auth.ErrPhoneTaken, err)
	case constraintTokenHash, constraintSessionsPK:
		return errors.Join(auth.ErrTokenCollision, err)
	default:
		return errors.Join(auth.ErrConflict, err)
	}
}

var _ auth.CredentialStore = (*Store)(nil)
