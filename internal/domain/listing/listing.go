package listing

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("listing not found")

type Listing struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Address       string    `json:"address"`
	Type          string    `json:"type"` // "sale" or "rent"
	Parking       bool      `json:"parking"`
	Furnished     bool      `json:"furnished"`
	Offer         bool      `json:"offer"`
	Bedrooms      int       `json:"bedrooms"`
	Bathrooms     int       `json:"bathrooms"`
	RegularPrice  int64     `json:"regularPrice"`
	DiscountPrice int64     `json:"discountPrice"`
	ImageURLs     []string  `json:"imageUrls"`
	OwnerID       string    `json:"ownerId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Name          string   `json:"name" binding:"required,min=3,max=120"`
	Description   string   `json:"description" binding:"omitempty,max=4000"`
	Address       string   `json:"address" binding:"required,min=3,max=200"`
	Type          string   `json:"type" binding:"required,oneof=sale rent"`
	Parking       bool     `json:"parking"`
	Furnished     bool     `json:"furnished"`
	Offer         bool     `json:"offer"`
	Bedrooms      int      `json:"bedrooms" binding:"required,min=1,max=50"`
	Bathrooms     int      `json:"bathrooms" binding:"required,min=1,max=50"`
	RegularPrice  int64    `json:"regularPrice" binding:"required,min=1"`
	DiscountPrice int64    `json:"discountPrice" binding:"omitempty,min=0"`
	ImageURLs     []string `json:"imageUrls" binding:"omitempty,max=6,dive,url"`
}

// a full update payload, same shape as create.
type UpdateRequest struct {
	Name          string   `json:"name" binding:"required,min=3,max=120"`
	Description   string   `json:"description" binding:"omitempty,max=4000"`
	Address       string   `json:"address" binding:"required,min=3,max=200"`
	Type          string   `json:"type" binding:"required,oneof=sale rent"`
	Parking       bool     `json:"parking"`
	Furnished     bool     `json:"furnished"`
	Offer         bool     `json:"offer"`
	Bedrooms      int      `json:"bedrooms" binding:"required,min=1,max=50"`
	Bathrooms     int      `json:"bathrooms" binding:"required,min=1,max=50"`
	RegularPrice  int64    `json:"regularPrice" binding:"required,min=1"`
	DiscountPrice int64    `json:"discountPrice" binding:"omitempty,min=0"`
	ImageURLs     []string `json:"imageUrls" binding:"omitempty,max=6,dive,url"`
}

// SearchFilter carries the optional search parameters; nil pointer means
// the dimension is not filtered.
type SearchFilter struct {
	SearchTerm *string
	Type       *string // "sale" or "rent"
	Offer      *bool
	Furnished  *bool
	Parking    *bool
	Sort       string // "createdAt" or "regularPrice"
	Order      string // "asc" or "desc"
	Limit      int
	Offset     int
}
