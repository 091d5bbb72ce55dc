package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/auth-service/internal/apperror"
)

// =========================================================================
// EMAIL TESTS
// =========================================================================

func TestEmail_Valid(t *testing.T) {
	valid := []string{
		"a@b.com",
		"user.name@example.co.uk",
		"user+tag@example.com",
	}
	for _, email := range valid {
		if err := Email(email); err != nil {
			t.Errorf("Email(%q) = %v, want nil", email, err)
		}
	}
}

func TestEmail_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"not-an-email",
		"@example.com",
		"user@",
		"Display Name <a@b.com>", // parses, but is not a bare address
		"two@@example.com",
	}
	for _, email := range invalid {
		err := Email(email)
		if err == nil {
			t.Errorf("Email(%q) = nil, want validation error", email)
			continue
		}
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Email(%q) error is not ErrValidation: %v", email, err)
		}
	}
}

// =========================================================================
// PASSWORD TESTS
// =========================================================================

func TestPassword_Valid(t *testing.T) {
	valid := []string{
		"Abcdef1!",
		"Xyzabc2&",
		"LongEnough9?" + strings.Repeat("x", 20),
	}
	for _, pw := range valid {
		if err := Password(pw); err != nil {
			t.Errorf("Password(%q) = %v, want nil", pw, err)
		}
	}
}

func TestPassword_RejectsEachMissingClass(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"empty", ""},
		{"too short", "Ab1!"},
		{"no uppercase", "abcdef1!"},
		{"no lowercase", "ABCDEF1!"},
		{"no digit", "Abcdefg!"},
		{"no special character", "Abcdefg1"},
		{"special character outside the fixed set", "Abcdefg1#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Password(tt.password)
			if err == nil {
				t.Fatalf("Password(%q) = nil, want validation error", tt.password)
			}
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error is not ErrValidation: %v", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != "password" {
				t.Errorf("Field = %q, want %q", appErr.Field, "password")
			}
		})
	}
}

// A digit-less password fails even when every other rule passes.
func TestPassword_MissingDigitAloneFails(t *testing.T) {
	if err := Password("Abcdefgh!"); err == nil {
		t.Fatal("Password() accepted a password with no digit")
	}
}

// =========================================================================
// CREDENTIALS TESTS
// =========================================================================

func TestCredentials_EmailCheckedFirst(t *testing.T) {
	err := Credentials("bad-email", "also bad")
	if err == nil {
		t.Fatal("Credentials() = nil, want error")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error is not an AppError: %v", err)
	}
	if appErr.Field != "email" {
		t.Errorf("Field = %q, want %q (email must be checked first)", appErr.Field, "email")
	}
}

func TestCredentials_Valid(t *testing.T) {
	if err := Credentials("a@b.com", "Abcdef1!"); err != nil {
		t.Errorf("Credentials() = %v, want nil", err)
	}
}
