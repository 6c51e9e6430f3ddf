package service

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	temporaryPasswordLength = 8
	minPasswordLength       = 6
)

// Ambiguous glyphs (0/O, 1/l/I) are left out so a password read off a
// screen can be typed back.
const temporaryPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

func generateTemporaryPassword() (string, error) {
	max := big.NewInt(int64(len(temporaryPasswordAlphabet)))
	var b strings.Builder
	b.Grow(temporaryPasswordLength)
	for range temporaryPasswordLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(temporaryPasswordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

// verifyPassword checks input against a bcrypt hash or, for accounts created
// before hashing, the stored plaintext. legacy is true when the stored value
// matched as plaintext and should be rehashed.
func verifyPassword(stored string, input string) (ok bool, legacy bool) {
	if stored == "" || input == "" {
		return false, false
	}
	if isPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil, false
	}
	match := subtle.ConstantTimeCompare([]byte(stored), []byte(input)) == 1
	return match, match
}
