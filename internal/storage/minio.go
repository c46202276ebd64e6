package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/catalog/service/internal/config"
)

// signedURLExpiry is how long a generated download link stays valid.
// Links are never persisted; every read regenerates one.
const signedURLExpiry = 7 * 24 * time.Hour

// MinioStore implements ObjectStore using a MinIO (or any S3-compatible) backend.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

// NewMinioStore creates a MinIO client and ensures the bucket exists.
// A bucket-bootstrap failure is logged but not fatal: the service still
// starts and the first storage call surfaces the real problem.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	s := &MinioStore{
		client:   client,
		bucket:   cfg.StorageBucket,
		endpoint: cfg.StorageEndpoint,
		useSSL:   cfg.StorageUseSSL,
	}

	if err := s.ensureBucket(context.Background(), cfg.StorageRegion); err != nil {
		log.Printf("storage: bucket bootstrap failed: %v", err)
	}

	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return fmt.Errorf("create bucket %q: %w", s.bucket, err)
		}
		log.Printf("storage: created bucket %q", s.bucket)
	}
	return nil
}

// UploadProductImage stores the payload under "product-<id>-<unix-millis>.jpg".
// The timestamp in the key avoids collisions between successive uploads for
// the same product. The key suffix and content type are fixed to jpeg even
// for other formats, matching what existing consumers already expect.
func (s *MinioStore) UploadProductImage(ctx context.Context, r io.Reader, size int64, productID int64) (string, error) {
	key := fmt.Sprintf("product-%d-%d.jpg", productID, time.Now().UnixMilli())

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}

	return s.objectURL(key), nil
}

// PresignGet issues a signed GET URL for key, valid for signedURLExpiry.
// Signing failures are logged and reported as "no image" so a broken signer
// degrades the response instead of failing the surrounding request.
func (s *MinioStore) PresignGet(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, signedURLExpiry, nil)
	if err != nil {
		log.Printf("storage: presign %q: %v", key, err)
		return "", false
	}
	return u.String(), true
}

// Delete removes the object at key. Unlike signing, a delete failure is
// propagated: the caller decides whether it is fatal to its own operation.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Printf("storage: delete %q: %v", key, err)
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// objectURL constructs the canonical object URL from configuration rather
// than querying the store: "scheme://endpoint/bucket/key".
func (s *MinioStore) objectURL(key string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}
