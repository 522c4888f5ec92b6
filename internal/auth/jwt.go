package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Rejection reasons for Verify. Callers map these to HTTP statuses; the
// distinction is logged server-side and never echoed to the client.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
)

type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and verifies the session token carried in the access_token
// cookie. The secret is loaded once at startup and never mutated.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue binds userID and an expiry computed from the manager's TTL into a
// signed HS256 token.
func (m *Manager) Issue(userID string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// Verify checks signature and expiry and returns the subject user id.
// Failures come back as ErrMalformed, ErrBadSignature or ErrExpired.
func (m *Manager) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, ErrBadSignature
		}
		return m.secret, nil
	})

	if err != nil {
		return "", classifyTokenError(err)
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return "", ErrMalformed
	}

	if claims.Subject == "" {
		return "", ErrMalformed
	}

	return claims.Subject, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrBadSignature):
		return ErrBadSignature
	default:
		return ErrMalformed
	}
}
