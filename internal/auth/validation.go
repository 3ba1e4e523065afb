// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Input constraints.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores bytes past 72
	MaxNameLength     = 100
	MaxEmailLength    = 254
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// International format: optional leading +, 8 to 15 digits, single spaces or dashes between groups.
	phonePattern = regexp.MustCompile(`^\+?[0-9]+([ -]?[0-9]+)*$`)
)

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email has the shape local@domain.tld.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email is required")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("length", len(email)).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if !emailPattern.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email is not a valid address")
	}
	return nil
}

// ValidatePassword checks password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			Errorf("password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidatePhoneNumber checks that phone is in international format.
func ValidatePhoneNumber(phone string) error {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if !phonePattern.MatchString(phone) || digits < 8 || digits > 15 {
		return oops.Code("AUTH_INVALID_PHONE").
			With("phone_number", phone).
			Errorf("phone number must be in international format")
	}
	return nil
}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return oops.Code("AUTH_INVALID_NAME").
			With("field", field).
			Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("field", field).
			Errorf("%s must be at most %d characters", field, MaxNameLength)
	}
	return nil
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string // optional
}

// Normalize returns a copy with trimmed names, a normalized email and a trimmed phone number.
func (in RegisterInput) Normalize() RegisterInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	return in
}

// Validate checks every field and returns the first violation.
func (in RegisterInput) Validate() error {
	if err := validateName("first name", in.FirstName); err != nil {
		return err
	}
	if err := validateName("last name", in.LastName); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if in.PhoneNumber != "" {
		if err := ValidatePhoneNumber(in.PhoneNumber); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCodeFormat checks that a submitted verification code has the expected length.
func ValidateCodeFormat(code string) error {
	if len(strings.TrimSpace(code)) < CodeLength {
		return oops.Code("CODE_INVALID_FORMAT").
			Errorf("code must be at least %d characters", CodeLength)
	}
	return nil
}
