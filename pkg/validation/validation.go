// Package validation wraps go-playground/validator with the field rules the
// API applies to identity and case payloads.
package validation

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// MissingRequired reports whether any field tagged `validate:"required"` on s is empty.
func MissingRequired(s any) bool {
	err := validate.Struct(s)
	if err == nil {
		return false
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return true
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return true
		}
	}
	return false
}

func IsEmail(s string) bool {
	return validate.Var(s, "email") == nil
}

// IsE164 accepts numbers in international form, e.g. +14155552671.
func IsE164(s string) bool {
	return validate.Var(s, "e164") == nil
}

// IntInRange parses raw as a base-10 integer and checks min <= n <= max.
func IntInRange(raw string, min, max int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}

// StrongPassword requires at least 8 characters with a lowercase letter, an
// uppercase letter, a digit and a non-alphanumeric character.
func StrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSpace(r):
			return false
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}
