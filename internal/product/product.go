// Package product manages the catalog: persistence, lifecycle rules, and the
// HTTP surface for product records and their images.
package product

import (
	"errors"
	"time"
)

// Product is a catalog entry. IsDeleted is the soft-delete flag and is an
// implementation detail of the lifecycle; it never appears in responses.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	InStock       bool      `json:"inStock"`
	ImageURL      *string   `json:"imageUrl,omitempty"`
	IsDeleted     bool      `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateInput carries the fields accepted when creating a product.
type CreateInput struct {
	Name          string  `json:"name" validate:"required"`
	Price         float64 `json:"price" validate:"gte=0"`
	StockQuantity int     `json:"stockQuantity" validate:"gte=0"`
	InStock       *bool   `json:"inStock"`
}

// UpdateInput is a partial update: nil fields are left untouched.
// ImageURL is set internally by the image upload flow, never from a request
// body.
type UpdateInput struct {
	Name          *string  `json:"name" validate:"omitempty,min=1"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	StockQuantity *int     `json:"stockQuantity" validate:"omitempty,gte=0"`
	InStock       *bool    `json:"inStock"`
	ImageURL      *string  `json:"-"`
}

// Filter narrows FindAll results. The zero value lists all non-deleted
// products.
type Filter struct {
	Name           string
	InStock        *bool
	MinPrice       *float64
	MaxPrice       *float64
	IncludeDeleted bool
}

// ErrNotFound is returned when a product does not exist or is soft-deleted
// on a path that treats deleted records as absent.
var ErrNotFound = errors.New("product not found")

// ErrDeleted is returned when an update targets a soft-deleted product.
var ErrDeleted = errors.New("cannot update a deleted product")

// ErrNoFile is returned when an image upload carries no file payload.
var ErrNoFile = errors.New("image file required")

// ErrNotImage is returned when the uploaded payload's declared content type
// is not an image type.
var ErrNotImage = errors.New("uploaded file must be an image")

// ErrUploadFailed masks unexpected failures in the image upload sequence so
// storage-layer internals do not leak to API callers.
var ErrUploadFailed = errors.New("image upload failed")
