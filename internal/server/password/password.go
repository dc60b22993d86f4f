// Package password owns credential hashing and the password complexity
// policy. Hashing uses bcrypt with a per-hash random salt; callers store
// only the resulting hash and never see or persist plaintext.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPolicy reports a password that fails the complexity policy.
var ErrPolicy = errors.New("password does not satisfy the complexity policy")

const minLength = 8

// maxLength matches bcrypt's 72-byte input limit; anything longer would be
// rejected by Hash anyway.
const maxLength = 72

// symbols is the accepted special-character set.
const symbols = "@$!%*?&"

// Hash derives a salted bcrypt hash from plaintext.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Check reports whether plaintext matches the stored hash. The comparison
// runs through bcrypt and is as slow for a wrong guess as for a right one.
func Check(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidatePolicy enforces the registration password rule: at least 8
// characters, with at least one lowercase letter, one uppercase letter, one
// digit and one symbol from the accepted set, and nothing outside those
// classes. Returns ErrPolicy on any violation.
func ValidatePolicy(plaintext string) error {
	if len(plaintext) < minLength || len(plaintext) > maxLength {
		return ErrPolicy
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool

	for _, r := range plaintext {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case containsRune(symbols, r):
			hasSymbol = true
		default:
			return ErrPolicy
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSymbol {
		return ErrPolicy
	}

	return nil
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
