package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/casahub/casahub/internal/domain/listing"
	"github.com/google/uuid"
)

type ListingsRepo struct {
	mu    sync.RWMutex
	items map[string]listing.Listing
}

func NewListingsRepo() *ListingsRepo {
	return &ListingsRepo{
		items: make(map[string]listing.Listing),
	}
}

func (r *ListingsRepo) Create(_ context.Context, ownerID string, req listing.CreateRequest) (listing.Listing, error) {
	now := time.Now().UTC()

	l := listing.Listing{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Address:       req.Address,
		Type:          req.Type,
		Parking:       req.Parking,
		Furnished:     req.Furnished,
		Offer:         req.Offer,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		RegularPrice:  req.RegularPrice,
		DiscountPrice: req.DiscountPrice,
		ImageURLs:     req.ImageURLs,
		OwnerID:       ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	r.mu.Lock()
	r.items[l.ID] = l
	r.mu.Unlock()

	return l, nil
}

func (r *ListingsRepo) GetByID(_ context.Context, id string) (listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.items[id]

	if !ok {
		return listing.Listing{}, listing.ErrNotFound
	}

	return l, nil
}

func (r *ListingsRepo) ListByOwner(_ context.Context, ownerID string) ([]listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]listing.Listing, 0)

	for _, l := range r.items {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (r *ListingsRepo) Search(_ context.Context, filter listing.SearchFilter) ([]listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]listing.Listing, 0)

	for _, l := range r.items {
		if filter.SearchTerm != nil && *filter.SearchTerm != "" &&
			!strings.Contains(strings.ToLower(l.Name), strings.ToLower(*filter.SearchTerm)) {
			continue
		}

		if filter.Type != nil && *filter.Type != "all" && l.Type != *filter.Type {
			continue
		}

		if filter.Offer != nil && l.Offer != *filter.Offer {
			continue
		}

		if filter.Furnished != nil && l.Furnished != *filter.Furnished {
			continue
		}

		if filter.Parking != nil && l.Parking != *filter.Parking {
			continue
		}

		out = append(out, l)
	}

	asc := filter.Order == "asc"

	sort.Slice(out, func(i, j int) bool {
		var less bool

		if filter.Sort == "regularPrice" {
			less = out[i].RegularPrice < out[j].RegularPrice
		} else {
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		if asc {
			return less
		}
		return !less
	})

	if filter.Offset >= len(out) {
		return []listing.Listing{}, nil
	}

	out = out[filter.Offset:]

	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r *ListingsRepo) Update(_ context.Context, id string, req listing.UpdateRequest) (listing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.items[id]

	if !ok {
		return listing.Listing{}, listing.ErrNotFound
	}

	l.Name = req.Name
	l.Description = req.Description
	l.Address = req.Address
	l.Type = req.Type
	l.Parking = req.Parking
	l.Furnished = req.Furnished
	l.Offer = req.Offer
	l.Bedrooms = req.Bedrooms
	l.Bathrooms = req.Bathrooms
	l.RegularPrice = req.RegularPrice
	l.DiscountPrice = req.DiscountPrice
	l.ImageURLs = req.ImageURLs
	l.UpdatedAt = time.Now().UTC()

	r.items[id] = l

	return l, nil
}

func (r *ListingsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return listing.ErrNotFound
	}

	delete(r.items, id)

	return nil
}
