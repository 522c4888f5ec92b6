package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/casahub/casahub/internal/config"
	"github.com/casahub/casahub/internal/domain/listing"
	"github.com/casahub/casahub/internal/domain/user"
	"github.com/casahub/casahub/internal/http/middlewares"
	"github.com/casahub/casahub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, name, email, passwordHash, avatar string) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type OwnerListingsReader interface {
	ListByOwner(ctx context.Context, ownerID string) ([]listing.Listing, error)
}

type UsersHandler struct {
	users    UserStore
	listings OwnerListingsReader
	cfg      config.Config
}

func NewUsersHandler(users UserStore, listings OwnerListingsReader, cfg config.Config) *UsersHandler {
	return &UsersHandler{
		users:    users,
		listings: listings,
		cfg:      cfg,
	}
}

// requireOwner enforces that the authenticated subject is acting on its own
// record. Mismatches answer 403 and abort.
func requireOwner(ctx *gin.Context, ownerID string) bool {
	subject, ok := middlewares.UserIDFromContext(ctx)

	if !ok || subject == "" {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return false
	}

	if subject != ownerID {
		RespondForbidden(ctx, "You can only manage your own account")
		return false
	}

	return true
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    u.Public(),
	})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id := ctx.Param("id")

	if !requireOwner(ctx, id) {
		return
	}

	var req user.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	passwordHash := ""

	if req.Password != "" {
		hash, err := security.HashPassword(req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		passwordHash = hash
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.Update(cctx, id, req.Name, req.Email, passwordHash, req.Avatar)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    u.Public(),
	})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	if !requireOwner(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.users.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	clearSessionCookie(ctx, h.cfg)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User has been deleted",
	})
}

func (h *UsersHandler) GetUserListings(ctx *gin.Context) {
	id := ctx.Param("id")

	if !requireOwner(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.listings.ListByOwner(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not fetch listings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}
