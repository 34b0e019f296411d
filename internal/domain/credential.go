package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
)

// passwordSymbols is the closed symbol set the password policy accepts.
const passwordSymbols = ".,-_"

// ValidateUsername enforces the account-name policy: 3-50 characters drawn
// from letters, digits, and underscore. The match is case-sensitive throughout
// the core, so "Alice" and "alice" are distinct accounts.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidUsername, minUsernameLength)
	}
	if len(username) > maxUsernameLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidUsername, maxUsernameLength)
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return fmt.Errorf("%w: only letters, digits and underscore are allowed", ErrInvalidUsername)
		}
	}
	return nil
}

// ValidatePassword enforces the baseline password policy: at least 8
// characters including an uppercase letter, a digit, and one symbol from
// the set ". , - _".
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minPasswordLength)
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("%w: must include an uppercase letter", ErrWeakPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: must include a digit", ErrWeakPassword)
	}
	if !hasSymbol {
		return fmt.Errorf("%w: must include a symbol (. , - _)", ErrWeakPassword)
	}
	return nil
}
