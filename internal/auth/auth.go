package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns plaintext passwords into stored hashes and verifies
// them again later. The credential flow only depends on this interface so the
// hashing algorithm can be swapped without touching handlers or storage.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, stored string) bool
}

// BcryptHasher hashes passwords with bcrypt. Each hash carries its own
// random salt, and comparison is constant-time with respect to the stored hash.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost factor.
// A cost <= 0 falls back to bcrypt.DefaultCost (10).
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of the given password.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches the stored hash.
func (h *BcryptHasher) Verify(plain, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}

var defaultHasher PasswordHasher = NewBcryptHasher(bcrypt.DefaultCost)

// HashPassword hashes a password with the default hasher.
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return defaultHasher.Verify(password, hash)
}

// GenerateSessionToken returns a 64-character hex token from a CSPRNG.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
