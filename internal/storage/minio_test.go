package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectURL(t *testing.T) {
	s := &MinioStore{bucket: "products", endpoint: "localhost:9000"}
	assert.Equal(t, "http://localhost:9000/products/product-1-1700000000000.jpg",
		s.objectURL("product-1-1700000000000.jpg"))

	s.useSSL = true
	assert.Equal(t, "https://localhost:9000/products/product-1-1700000000000.jpg",
		s.objectURL("product-1-1700000000000.jpg"))
}

func TestPresignGet_EmptyKey(t *testing.T) {
	s := &MinioStore{bucket: "products"}

	url, ok := s.PresignGet(context.Background(), "")

	assert.False(t, ok)
	assert.Empty(t, url)
}
