// Package security wraps bcrypt for principal passwords.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor; tests may lower it.
var Cost = bcrypt.DefaultCost

// ErrPasswordTooLong mirrors bcrypt's 72 byte input ceiling.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// HashPassword returns a salted bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// IsMismatch tells a wrong password apart from a corrupt hash.
func IsMismatch(err error) bool {
	return errors.Is(err, bcrypt.ErrMismatchedHashAndPassword)
}
