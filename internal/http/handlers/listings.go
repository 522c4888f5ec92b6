package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/casahub/casahub/internal/cache"
	"github.com/casahub/casahub/internal/config"
	"github.com/casahub/casahub/internal/domain/listing"
	"github.com/casahub/casahub/internal/http/middlewares"
	"github.com/casahub/casahub/internal/observability"
	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 9

type ListingStore interface {
	Create(ctx context.Context, ownerID string, req listing.CreateRequest) (listing.Listing, error)
	GetByID(ctx context.Context, id string) (listing.Listing, error)
	Search(ctx context.Context, filter listing.SearchFilter) ([]listing.Listing, error)
	Update(ctx context.Context, id string, req listing.UpdateRequest) (listing.Listing, error)
	Delete(ctx context.Context, id string) error
}

type ListingsHandler struct {
	repo  ListingStore
	cache cache.Store
	prom  *observability.Prom
}

func NewListingsHandler(repo ListingStore, cacheStore cache.Store, prom *observability.Prom) *ListingsHandler {
	return &ListingsHandler{
		repo:  repo,
		cache: cacheStore,
		prom:  prom,
	}
}

func (h *ListingsHandler) CreateListing(ctx *gin.Context) {
	subject, ok := middlewares.UserIDFromContext(ctx)

	if !ok || subject == "" {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req listing.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	l, err := h.repo.Create(cctx, subject, req)

	if err != nil {
		RespondInternal(ctx, "Could not create listing")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"listing": l,
	})
}

func (h *ListingsHandler) GetListing(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if cached, ok := h.cacheGet(cctx, listingCacheKey(id)); ok {
		var l listing.Listing

		if json.Unmarshal(cached, &l) == nil {
			RespondJSONWithETag(ctx, http.StatusOK, gin.H{"success": true, "listing": l})
			return
		}
	}

	l, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			RespondNotFound(ctx, "Listing not found")
			return
		}

		RespondInternal(ctx, "Could not fetch listing")
		return
	}

	h.cacheSet(cctx, listingCacheKey(id), l)

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"success": true, "listing": l})
}

func (h *ListingsHandler) SearchListings(ctx *gin.Context) {
	filter := parseSearchFilter(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	key := searchCacheKey(ctx.Request.URL.RawQuery)

	if cached, ok := h.cacheGet(cctx, key); ok {
		var items []listing.Listing

		if json.Unmarshal(cached, &items) == nil {
			RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items, "count": len(items)})
			return
		}
	}

	items, err := h.repo.Search(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not search listings")
		return
	}

	h.cacheSet(cctx, key, items)

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *ListingsHandler) UpdateListing(ctx *gin.Context) {
	id := ctx.Param("id")

	if !h.requireListingOwner(ctx, id) {
		return
	}

	var req listing.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	l, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			RespondNotFound(ctx, "Listing not found")
			return
		}

		RespondInternal(ctx, "Could not update listing")
		return
	}

	h.cacheDelete(cctx, listingCacheKey(id))

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"listing": l,
	})
}

func (h *ListingsHandler) DeleteListing(ctx *gin.Context) {
	id := ctx.Param("id")

	if !h.requireListingOwner(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			RespondNotFound(ctx, "Listing not found")
			return
		}

		RespondInternal(ctx, "Could not delete listing")
		return
	}

	h.cacheDelete(cctx, listingCacheKey(id))

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Listing has been deleted",
	})
}

// requireListingOwner loads the listing and checks the authenticated subject
// owns it. Answers 401/403/404 itself and returns false when it did.
func (h *ListingsHandler) requireListingOwner(ctx *gin.Context, id string) bool {
	subject, ok := middlewares.UserIDFromContext(ctx)

	if !ok || subject == "" {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return false
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	l, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			RespondNotFound(ctx, "Listing not found")
			return false
		}

		RespondInternal(ctx, "Could not fetch listing")
		return false
	}

	if l.OwnerID != subject {
		RespondForbidden(ctx, "You can only manage your own listings")
		return false
	}

	return true
}

// Cache helpers; every path works with a nil cache.

func listingCacheKey(id string) string {
	return "listing:" + id
}

func searchCacheKey(rawQuery string) string {
	return "listings:search:" + rawQuery
}

func (h *ListingsHandler) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}

	val, ok := h.cache.Get(ctx, key)

	if h.prom != nil {
		result := "miss"
		if ok {
			result = "hit"
		}
		h.prom.CacheTotal.WithLabelValues(result).Inc()
	}

	return val, ok
}

func (h *ListingsHandler) cacheSet(ctx context.Context, key string, payload interface{}) {
	if h.cache == nil {
		return
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return
	}

	h.cache.Set(ctx, key, b)
}

func (h *ListingsHandler) cacheDelete(ctx context.Context, key string) {
	if h.cache != nil {
		h.cache.Delete(ctx, key)
	}
}

func parseSearchFilter(ctx *gin.Context) listing.SearchFilter {
	filter := listing.SearchFilter{
		Sort:  ctx.DefaultQuery("sort", "createdAt"),
		Order: ctx.DefaultQuery("order", "desc"),
		Limit: defaultSearchLimit,
	}

	if term := ctx.Query("searchTerm"); term != "" {
		filter.SearchTerm = &term
	}

	if typ := ctx.Query("type"); typ != "" && typ != "all" {
		filter.Type = &typ
	}

	// boolean facets only narrow when explicitly requested
	for param, dst := range map[string]**bool{
		"offer":     &filter.Offer,
		"furnished": &filter.Furnished,
		"parking":   &filter.Parking,
	} {
		if ctx.Query(param) == "true" {
			v := true
			*dst = &v
		}
	}

	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			filter.Limit = n
		}
	}

	if raw := ctx.Query("startIndex"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	return filter
}
