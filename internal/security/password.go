package security

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomPassword returns a crypto-random password of n characters.
// Used for accounts provisioned through federated sign-in; the value is
// hashed and never surfaced, it only exists so the column is non-empty.
func RandomPassword(n int) (string, error) {
	if n <= 0 {
		n = 16
	}

	out := make([]byte, n)
	max := big.NewInt(int64(len(passwordAlphabet)))

	for i := range out {
		idx, err := rand.Int(rand.Reader, max)

		if err != nil {
			return "", err
		}

		out[i] = passwordAlphabet[idx.Int64()]
	}

	return string(out), nil
}
