package product

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/catalog/service/internal/storage"
)

// Service contains the catalog business logic: lifecycle rules around the
// soft-delete flag, the stock/inStock consistency rule, and turning stored
// image URLs into freshly signed ones on every read.
type Service struct {
	repo  Repository
	store storage.ObjectStore
}

// NewService creates a product Service.
func NewService(repo Repository, store storage.ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// FindAll lists products and resolves each one's image URL concurrently.
// The returned order matches the repository's order.
func (s *Service) FindAll(ctx context.Context, f Filter) ([]Product, error) {
	products, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range products {
		i := i
		g.Go(func() error {
			s.resolveImage(gctx, &products[i])
			return nil
		})
	}
	_ = g.Wait() // resolution never fails a request

	return products, nil
}

// FindByID returns a product by id. Soft-deleted records report ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, ErrNotFound
	}
	s.resolveImage(ctx, p)
	return p, nil
}

// Create inserts a new product. Zero stock forces inStock to false no matter
// what the caller supplied; non-zero stock leaves the caller's choice alone.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}
	if in.StockQuantity == 0 {
		inStock = false
	}
	return s.repo.Create(ctx, in.Name, in.Price, in.StockQuantity, inStock)
}

// Update applies a partial update. A patch that touches stockQuantity
// recomputes inStock from the new value in both directions. Updating a
// soft-deleted product is a validation error, not a not-found.
func (s *Service) Update(ctx context.Context, id int64, patch UpdateInput) (*Product, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted {
		return nil, ErrDeleted
	}

	if patch.StockQuantity != nil {
		inStock := *patch.StockQuantity > 0
		patch.InStock = &inStock
	}

	p, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.resolveImage(ctx, p)
	return p, nil
}

// Remove soft-deletes a product. A second removal of the same id reports
// ErrNotFound without changing state. The stored image, if any, is left in
// place; only the image-replacement path deletes objects.
func (s *Service) Remove(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id)
}

// UploadImage replaces a product's image: best-effort delete of the prior
// object, upload of the new payload, then persisting the new URL. The three
// steps are not atomic; a crash in between leaves either a dangling URL or
// an orphaned object, which the next successful upload repairs.
func (s *Service) UploadImage(ctx context.Context, id int64, file io.Reader, size int64, contentType string) (*Product, error) {
	if file == nil {
		return nil, ErrNoFile
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted {
		return nil, ErrNotFound
	}

	if existing.ImageURL != nil {
		if err := s.store.Delete(ctx, objectKey(*existing.ImageURL)); err != nil {
			// The old object is orphaned at worst; never block the new upload.
			log.Printf("product %d: delete previous image: %v", id, err)
		}
	}

	url, err := s.store.UploadProductImage(ctx, file, size, id)
	if err != nil {
		log.Printf("product %d: upload image: %v", id, err)
		return nil, ErrUploadFailed
	}

	p, err := s.repo.Update(ctx, id, UpdateInput{ImageURL: &url})
	if err != nil {
		log.Printf("product %d: persist image url: %v", id, err)
		return nil, ErrUploadFailed
	}

	s.resolveImage(ctx, p)
	return p, nil
}

// resolveImage swaps a stored object URL for a freshly signed one. When the
// object cannot be signed the URL is cleared entirely, so clients see "no
// image" rather than a stale or broken link. Never fails the caller.
func (s *Service) resolveImage(ctx context.Context, p *Product) {
	if p.ImageURL == nil || *p.ImageURL == "" {
		p.ImageURL = nil
		return
	}
	signed, ok := s.store.PresignGet(ctx, objectKey(*p.ImageURL))
	if !ok {
		p.ImageURL = nil
		return
	}
	p.ImageURL = &signed
}

// objectKey derives the object-store key from a stored image URL: the
// trailing path segment.
func objectKey(rawURL string) string {
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		return rawURL[i+1:]
	}
	return rawURL
}
