// Package storage owns the object-store side of product images: bucket
// lifecycle, uploads, deletions, and time-limited signed download URLs.
// The MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"io"
)

// ObjectStore is the interface for product image storage operations.
type ObjectStore interface {
	// UploadProductImage stores the payload under a key derived from the
	// product id and the current time, and returns the object URL.
	UploadProductImage(ctx context.Context, r io.Reader, size int64, productID int64) (string, error)

	// PresignGet returns a time-limited signed download URL for key.
	// The second return is false when there is nothing displayable: the key
	// is empty, or signing failed. Callers must treat false as "no image",
	// never as an error.
	PresignGet(ctx context.Context, key string) (string, bool)

	// Delete removes the object identified by key.
	Delete(ctx context.Context, key string) error
}
