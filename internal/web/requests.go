// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package web

import (
	"github.com/samber/oops"

	"github.com/verifid/verifid/internal/auth"
)

// LoginRequest is the body of POST /authentication/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request shape before authentication runs.
func (r LoginRequest) Validate() error {
	if err := auth.ValidateEmail(auth.NormalizeEmail(r.Email)); err != nil {
		return err
	}
	if r.Password == "" {
		return auth.ErrEmptyPassword
	}
	return nil
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// RegisterRequest is the body of POST /authentication/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// Input converts the request into the registration input.
func (r RegisterRequest) Input() auth.RegisterInput {
	return auth.RegisterInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Password:    r.Password,
		PhoneNumber: r.PhoneNumber,
	}.Normalize()
}

// Validate checks the request shape.
func (r RegisterRequest) Validate() error {
	return r.Input().Validate()
}

// EmailRequest is the body of the send-email and resend-email endpoints.
type EmailRequest struct {
	Email string `json:"email"`
}

// Validate checks the email shape.
func (r EmailRequest) Validate() error {
	return auth.ValidateEmail(auth.NormalizeEmail(r.Email))
}

// VerifyRequest is the body of POST /email/verification-email.
type VerifyRequest struct {
	Code   string `json:"code"`
	UserID int64  `json:"userId"`
}

// Validate checks the code format and that a user is named.
func (r VerifyRequest) Validate() error {
	if err := auth.ValidateCodeFormat(r.Code); err != nil {
		return err
	}
	if r.UserID <= 0 {
		return oops.Code("CODE_INVALID_USER").With("user_id", r.UserID).Errorf("userId must be a positive integer")
	}
	return nil
}
