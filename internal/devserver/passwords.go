package devserver

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password errors
var (
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrPasswordTooLong = errors.New("password is too long")
	ErrHashingFailed   = errors.New("failed to hash password")
)

// maxPasswordLength is the bcrypt input limit
const maxPasswordLength = 72

// PasswordHasher hashes and checks passwords with bcrypt
type PasswordHasher struct {
	Cost int
}

// NewPasswordHasher returns a hasher using cost, or bcrypt.DefaultCost when out of range
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{Cost: cost}
}

// Hash hashes password
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > maxPasswordLength {
		return "", fmt.Errorf("%w: maximum length is %d", ErrPasswordTooLong, maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}
	return string(hash), nil
}

// Check reports whether password matches hash
func (h *PasswordHasher) Check(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
