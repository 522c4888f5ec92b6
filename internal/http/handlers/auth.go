package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/casahub/casahub/internal/auth"
	"github.com/casahub/casahub/internal/config"
	"github.com/casahub/casahub/internal/domain/user"
	"github.com/casahub/casahub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *auth.Service
	cfg config.Config
}

func NewAuthHandler(svc *auth.Service, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		svc: svc,
		cfg: cfg,
	}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=5"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=80"`
	Email  string `json:"email" binding:"required,email"`
	Avatar string `json:"avatar" binding:"omitempty,url"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	sess, err := h.svc.SignUp(cctx, req.Name, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.setSessionCookie(ctx, sess.Token)

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    sess.User,
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	sess, err := h.svc.SignIn(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		if errors.Is(err, auth.ErrInvalidCredentials) {
			RespondUnauthorized(ctx, "invalid_credentials", "Wrong credentials")
			return
		}

		RespondInternal(ctx, "Could not sign in")
		return
	}

	h.setSessionCookie(ctx, sess.Token)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    sess.User,
	})
}

// Google receives the (name, email, avatar) tuple the front-end got from the
// provider and signs in or provisions accordingly.
func (h *AuthHandler) Google(ctx *gin.Context) {
	var req GoogleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	sess, created, err := h.svc.FederatedSignIn(cctx, req.Name, req.Email, req.Avatar)

	if err != nil {
		RespondInternal(ctx, "Could not sign in")
		return
	}

	h.setSessionCookie(ctx, sess.Token)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	ctx.JSON(status, gin.H{
		"success": true,
		"user":    sess.User,
	})
}

// SignOut only instructs the client to drop the cookie; the token itself
// stays valid until expiry.
func (h *AuthHandler) SignOut(ctx *gin.Context) {
	h.clearSessionCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User has been signed out",
	})
}

// Cookie helpers, shared with the user-deletion endpoint.

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	setSessionCookie(ctx, h.cfg, token)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	clearSessionCookie(ctx, h.cfg)
}

func setSessionCookie(ctx *gin.Context, cfg config.Config, token string) {
	ctx.SetSameSite(sameSite(cfg))

	ctx.SetCookie(
		middlewares.CookieName,
		token,
		int(cfg.JWTTTL().Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true, // HttpOnly.
	)
}

func clearSessionCookie(ctx *gin.Context, cfg config.Config) {
	ctx.SetSameSite(sameSite(cfg))

	ctx.SetCookie(
		middlewares.CookieName,
		"",
		-1,
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true,
	)
}

// sameSite picks the attribute per deployment: cross-site front-ends in
// prod need None (with Secure), everything else gets Lax.
func sameSite(cfg config.Config) http.SameSite {
	if cfg.CookieSecure {
		return http.SameSiteNoneMode
	}

	return http.SameSiteLaxMode
}
