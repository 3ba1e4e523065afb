// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package memory provides an in-process auth.CredentialStore for development and tests.
package memory

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/verifid/verifid/internal/auth"
)

// Store keeps all records in maps guarded by a mutex. State is lost on exit.
type Store struct {
	mu   sync.RWMutex
	data *records
}

// records holds the store state. Its methods do no locking; Store takes the
// lock and delegates, and transactions run against a private copy.
type records struct {
	nextUserID int64
	users      map[int64]auth.User
	profiles   map[int64]auth.SecurityProfile // keyed by user ID
	byEmail    map[string]int64               // lower-cased email -> user ID
	byPhone    map[string]int64
	sessions   map[string]auth.Session // keyed by token hash
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: &records{
		users:    make(map[int64]auth.User),
		profiles: make(map[int64]auth.SecurityProfile),
		byEmail:  make(map[string]int64),
		byPhone:  make(map[string]int64),
		sessions: make(map[string]auth.Session),
	}}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.SecurityProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FindByEmail(ctx, email)
}

func (s *Store) FindByUserID(ctx context.Context, userID int64) (*auth.SecurityProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FindByUserID(ctx, userID)
}

func (s *Store) FindUser(ctx context.Context, userID int64) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FindUser(ctx, userID)
}

func (s *Store) CreateUser(ctx context.Context, firstName, lastName string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateUser(ctx, firstName, lastName)
}

func (s *Store) CreateSecurityProfile(ctx context.Context, in auth.NewSecurityProfile) (*auth.SecurityProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateSecurityProfile(ctx, in)
}

func (s *Store) MarkVerified(ctx context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.MarkVerified(ctx, userID, at)
}

func (s *Store) UpdateCode(ctx context.Context, email string, update auth.CodeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateCode(ctx, email, update)
}

func (s *Store) SetOnline(ctx context.Context, userID int64, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetOnline(ctx, userID, online)
}

func (s *Store) CreateSession(ctx context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateSession(ctx, session)
}

func (s *Store) ResetResendCounts(ctx context.Context, startedBefore, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ResetResendCounts(ctx, startedBefore, now)
}

// InTx runs fn against a copy of the store while holding the write lock and
// publishes the copy only when fn returns nil. Other callers block until the
// transaction ends, so fn must use tx rather than the Store itself.
func (s *Store) InTx(_ context.Context, fn func(tx auth.CredentialStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Sessions returns the sessions recorded for userID.
func (s *Store) Sessions(userID int64) []auth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.Session
	for _, session := range s.data.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	return out
}

// UserCount returns the number of users.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.users)
}

func (r *records) FindByEmail(_ context.Context, email string) (*auth.SecurityProfile, error) {
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	p := r.profiles[id]
	return &p, nil
}

func (r *records) FindByUserID(_ context.Context, userID int64) (*auth.SecurityProfile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, oops.Code("PROFILE_LOOKUP_FAILED").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	return &p, nil
}

func (r *records) FindUser(_ context.Context, userID int64) (*auth.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	return &u, nil
}

func (r *records) CreateUser(_ context.Context, firstName, lastName string) (*auth.User, error) {
	r.nextUserID++
	u := auth.User{ID: r.nextUserID, FirstName: firstName, LastName: lastName, CreatedAt: time.Now()}
	r.users[u.ID] = u
	return &u, nil
}

func (r *records) CreateSecurityProfile(_ context.Context, in auth.NewSecurityProfile) (*auth.SecurityProfile, error) {
	if _, ok := r.users[in.UserID]; !ok {
		return nil, oops.Code("PROFILE_CREATE_FAILED").With("user_id", in.UserID).Errorf("user does not exist")
	}
	if _, ok := r.profiles[in.UserID]; ok {
		return nil, oops.Code("PROFILE_CREATE_FAILED").With("user_id", in.UserID).Errorf("user already has a profile")
	}
	emailKey := strings.ToLower(in.Email)
	if _, ok := r.byEmail[emailKey]; ok {
		return nil, oops.Code("PROFILE_CREATE_FAILED").With("email", in.Email).Wrap(auth.ErrEmailTaken)
	}
	if in.PhoneNumber != nil {
		if _, ok := r.byPhone[*in.PhoneNumber]; ok {
			return nil, oops.Code("PROFILE_CREATE_FAILED").Wrap(auth.ErrPhoneTaken)
		}
	}

	p := auth.SecurityProfile{
		UserID:                in.UserID,
		Email:                 in.Email,
		PhoneNumber:           in.PhoneNumber,
		PasswordHash:          in.PasswordHash,
		VerificationCode:      in.Code,
		CodeExpiresAt:         in.CodeExpiresAt,
		EmailResendCount:      1,
		ResendWindowStartedAt: in.CreatedAt,
		CreatedAt:             in.CreatedAt,
		UpdatedAt:             in.CreatedAt,
	}
	r.profiles[p.UserID] = p
	r.byEmail[emailKey] = p.UserID
	if p.PhoneNumber != nil {
		r.byPhone[*p.PhoneNumber] = p.UserID
	}
	return &p, nil
}

func (r *records) MarkVerified(_ context.Context, userID int64, at time.Time) error {
	return r.updateProfile(userID, func(p *auth.SecurityProfile) {
		p.EmailVerified = true
		p.AccountActive = true
		p.UpdatedAt = at
	})
}

func (r *records) UpdateCode(_ context.Context, email string, update auth.CodeUpdate) error {
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return oops.Code("PROFILE_UPDATE_FAILED").With("email", email).Wrap(auth.ErrNotFound)
	}
	return r.updateProfile(id, func(p *auth.SecurityProfile) {
		p.VerificationCode = update.Code
		p.CodeExpiresAt = update.ExpiresAt
		p.EmailResendCount = update.ResendCount
		p.ResendWindowStartedAt = update.WindowStartedAt
		p.UpdatedAt = update.UpdatedAt
	})
}

func (r *records) SetOnline(_ context.Context, userID int64, online bool) error {
	return r.updateProfile(userID, func(p *auth.SecurityProfile) { p.Online = online })
}

func (r *records) CreateSession(_ context.Context, session *auth.Session) error {
	if _, ok := r.sessions[session.TokenHash]; ok {
		return oops.Code("SESSION_CREATE_FAILED").With("user_id", session.UserID).Wrap(auth.ErrTokenCollision)
	}
	r.sessions[session.TokenHash] = *session
	return nil
}

func (r *records) ResetResendCounts(_ context.Context, startedBefore, now time.Time) (int64, error) {
	var n int64
	for id, p := range r.profiles {
		if p.EmailVerified || p.EmailResendCount <= 1 || !p.ResendWindowStartedAt.Before(startedBefore) {
			continue
		}
		p.EmailResendCount = 1
		p.ResendWindowStartedAt = now
		p.UpdatedAt = now
		r.profiles[id] = p
		n++
	}
	return n, nil
}

// InTx on records is reached from a nested transaction, which shares the
// enclosing one.
func (r *records) InTx(_ context.Context, fn func(tx auth.CredentialStore) error) error {
	return fn(r)
}

func (r *records) updateProfile(userID int64, apply func(*auth.SecurityProfile)) error {
	p, ok := r.profiles[userID]
	if !ok {
		return oops.Code("PROFILE_UPDATE_FAILED").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	apply(&p)
	r.profiles[userID] = p
	return nil
}

func (r *records) clone() *records {
	return &records{
		nextUserID: r.nextUserID,
		users:      maps.Clone(r.users),
		profiles:   maps.Clone(r.profiles),
		byEmail:    maps.Clone(r.byEmail),
		byPhone:    maps.Clone(r.byPhone),
		sessions:   maps.Clone(r.sessions),
	}
}

var (
	_ auth.CredentialStore = (*Store)(nil)
	_ auth.CredentialStore = (*records)(nil)
)
