// Package validate checks credential shape before any database work happens.
//
// The checks are pure functions: no I/O, no state, no clock. Callers get a
// *apperror.AppError naming the offending field, which the HTTP layer maps
// to a 400 response.
package validate

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/sakif/auth-service/internal/apperror"
)

// MinPasswordLength is the floor for new passwords. Character-class rules
// apply on top of it; see Password.
const MinPasswordLength = 8

// specialChars is the fixed set of accepted special characters.
// Kept deliberately small so the rule is easy to state in error messages.
const specialChars = "@$!%*?&"

// Email validates that the address is present and has a standard shape.
//
// We lean on net/mail's RFC 5322 parser rather than a home-grown regex.
// ParseAddress accepts "Name <a@b.com>" forms, so we additionally require
// the parsed address to equal the input — the store should only ever see a
// bare lowercase address.
func Email(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "invalid email format")
	}
	return nil
}

// Password enforces the password strength policy:
// at least MinPasswordLength characters, with at least one uppercase letter,
// one lowercase letter, one digit, and one of the special characters @$!%*?&.
//
// The first rule to fail decides the error message, in the order above, so
// a caller fixing errors one at a time converges on a valid password.
func Password(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password", "password must be at least 8 characters")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}

	switch {
	case !upper:
		return apperror.ValidationFailed("password", "password must contain at least one uppercase letter")
	case !lower:
		return apperror.ValidationFailed("password", "password must contain at least one lowercase letter")
	case !digit:
		return apperror.ValidationFailed("password", "password must contain at least one digit")
	case !special:
		return apperror.ValidationFailed("password", "password must contain at least one special character (@$!%*?&)")
	}
	return nil
}

// Credentials runs Email then Password, returning the first failure.
func Credentials(email, password string) error {
	if err := Email(email); err != nil {
		return err
	}
	return Password(password)
}
