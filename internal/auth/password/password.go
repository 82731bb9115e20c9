// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// ErrTooLong is returned for passwords beyond bcrypt's 72-byte input limit.
var ErrTooLong = errors.New("password longer than 72 bytes")

// MinLength is the minimum accepted password length.
const MinLength = 10

// Hash returns the bcrypt hash of a password.
func Hash(plain string) (string, error) {
	if len(plain) > 72 {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether a password matches its stored hash.
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
