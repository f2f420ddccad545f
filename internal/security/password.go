package security

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// BurnPasswordCheck spends the same bcrypt work as a real comparison. Login calls it
// for unknown emails so response time does not reveal whether an account exists.
func BurnPasswordCheck(plain string) {
	dummyOnce.Do(func() {
		h, err := HashPassword("not-a-real-password")
		if err == nil {
			dummyHash = h
		}
	})
	if dummyHash == "" {
		return
	}
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
