// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package mocks provides testify mocks for the interfaces in package auth.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/token"
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockCredentialStore is a mock implementation of auth.CredentialStore.
// InTx runs the callback against the mock itself after recording the call.
type MockCredentialStore struct {
	mock.Mock
}

// NewMockCredentialStore creates a MockCredentialStore that asserts its
// expectations when the test ends.
func NewMockCredentialStore(t cleanupT) *MockCredentialStore {
	m := &MockCredentialStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*auth.SecurityProfile, error) {
	ret := m.Called(ctx, email)
	profile, _ := ret.Get(0).(*auth.SecurityProfile)
	return profile, ret.Error(1)
}

func (m *MockCredentialStore) FindByUserID(ctx context.Context, userID int64) (*auth.SecurityProfile, error) {
	ret := m.Called(ctx, userID)
	profile, _ := ret.Get(0).(*auth.SecurityProfile)
	return profile, ret.Error(1)
}

func (m *MockCredentialStore) FindUser(ctx context.Context, userID int64) (*auth.User, error) {
	ret := m.Called(ctx, userID)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockCredentialStore) CreateUser(ctx context.Context, firstName, lastName string) (*auth.User, error) {
	ret := m.Called(ctx, firstName, lastName)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockCredentialStore) CreateSecurityProfile(ctx context.Context, p auth.NewSecurityProfile) (*auth.SecurityProfile, error) {
	ret := m.Called(ctx, p)
	profile, _ := ret.Get(0).(*auth.SecurityProfile)
	return profile, ret.Error(1)
}

func (m *MockCredentialStore) MarkVerified(ctx context.Context, userID int64, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func (m *MockCredentialStore) UpdateCode(ctx context.Context, email string, update auth.CodeUpdate) error {
	return m.Called(ctx, email, update).Error(0)
}

func (m *MockCredentialStore) SetOnline(ctx context.Context, userID int64, online bool) error {
	return m.Called(ctx, userID, online).Error(0)
}

func (m *MockCredentialStore) CreateSession(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockCredentialStore) ResetResendCounts(ctx context.Context, startedBefore, now time.Time) (int64, error) {
	ret := m.Called(ctx, startedBefore, now)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

func (m *MockCredentialStore) InTx(ctx context.Context, fn func(tx auth.CredentialStore) error) error {
	if err := m.Called(ctx, mock.Anything).Error(0); err != nil {
		return err
	}
	return fn(m)
}

// MockNotifier is a mock implementation of auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a MockNotifier that asserts its expectations when the test ends.
func NewMockNotifier(t cleanupT) *MockNotifier {
	m := &MockNotifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) SendVerificationCode(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher that asserts its expectations when the test ends.
func NewMockPasswordHasher(t cleanupT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

// MockTokenSigner is a mock implementation of auth.TokenSigner.
type MockTokenSigner struct {
	mock.Mock
}

// NewMockTokenSigner creates a MockTokenSigner that asserts its expectations when the test ends.
func NewMockTokenSigner(t cleanupT) *MockTokenSigner {
	m := &MockTokenSigner{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenSigner) Sign(email string, userID int64, issuedAt, expiresAt time.Time) (string, error) {
	ret := m.Called(email, userID, issuedAt, expiresAt)
	return ret.String(0), ret.Error(1)
}

func (m *MockTokenSigner) Parse(raw string) (*token.Claims, error) {
	ret := m.Called(raw)
	claims, _ := ret.Get(0).(*token.Claims)
	return claims, ret.Error(1)
}

var (
	_ auth.CredentialStore = (*MockCredentialStore)(nil)
	_ auth.Notifier        = (*MockNotifier)(nil)
	_ auth.PasswordHasher  = (*MockPasswordHasher)(nil)
	_ auth.TokenSigner     = (*MockTokenSigner)(nil)
)
