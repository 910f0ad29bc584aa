package models

import (
	"unicode"

	"projectwatch/internal/apperror"
)

// MinPasswordLength is the shortest accepted plaintext password.
const MinPasswordLength = 8

// CheckPassword applies the password policy and reports the first rule that
// fails: length, then digit, uppercase and lowercase.
func CheckPassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return apperror.Validation("password", "min_length", "Password must be at least 8 characters long")
	}

	var hasDigit, hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}

	switch {
	case !hasDigit:
		return apperror.Validation("password", "digit", "Password must contain at least one digit")
	case !hasUpper:
		return apperror.Validation("password", "uppercase", "Password must contain at least one uppercase letter")
	case !hasLower:
		return apperror.Validation("password", "lowercase", "Password must contain at least one lowercase letter")
	}
	return nil
}
