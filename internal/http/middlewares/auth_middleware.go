package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieName is where the session token travels. The original client keeps
// it httpOnly so scripts never see it.
const CookieName = "access_token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
	log *slog.Logger
}

func NewAuthMiddleware(jwt TokenVerifier, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, log: log}
}

// RequireAuth reads the access_token cookie, verifies it and stashes the
// resolved user id on the context. The specific rejection reason is logged
// but the caller only ever sees a generic 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(CookieName)

		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication required",
				},
			})
			return
		}

		userID, err := m.jwt.Verify(raw)

		if err != nil {
			m.log.InfoContext(c.Request.Context(), "token rejected", "reason", err)

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Invalid or expired session",
				},
			})
			return
		}

		c.Set(ctxUserIDKey, userID)

		c.Next()
	}
}

// Helper so handlers don't need to know the magic key.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
