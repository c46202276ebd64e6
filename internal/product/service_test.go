package product_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/catalog/service/internal/product"
)

// MockRepository is a mock implementation of product.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindAll(ctx context.Context, f product.Filter) ([]product.Product, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int64) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, name string, price float64, stockQuantity int, inStock bool) (*product.Product, error) {
	args := m.Called(ctx, name, price, stockQuantity, inStock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id int64, patch product.UpdateInput) (*product.Product, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockObjectStore is a mock implementation of storage.ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) UploadProductImage(ctx context.Context, r io.Reader, size int64, productID int64) (string, error) {
	args := m.Called(ctx, r, size, productID)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string) (string, bool) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func ptr[T any](v T) *T { return &v }

func newService() (*product.Service, *MockRepository, *MockObjectStore) {
	repo := new(MockRepository)
	store := new(MockObjectStore)
	return product.NewService(repo, store), repo, store
}

func TestService_Create_ZeroStockForcesOutOfStock(t *testing.T) {
	svc, repo, _ := newService()

	created := &product.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 0, InStock: false}
	repo.On("Create", mock.Anything, "Widget", 10.0, 0, false).Return(created, nil).Once()

	p, err := svc.Create(context.Background(), product.CreateInput{
		Name:          "Widget",
		Price:         10,
		StockQuantity: 0,
		InStock:       ptr(true), // caller's claim is overridden
	})

	assert.NoError(t, err)
	assert.False(t, p.InStock)
	repo.AssertExpectations(t)
}

func TestService_Create_NonZeroStockKeepsCallerChoice(t *testing.T) {
	svc, repo, _ := newService()

	// Caller explicitly marks a stocked product as unavailable; non-zero
	// stock does not force inStock back to true.
	repo.On("Create", mock.Anything, "Widget", 10.0, 5, false).
		Return(&product.Product{ID: 1, Name: "Widget", StockQuantity: 5, InStock: false}, nil).Once()

	_, err := svc.Create(context.Background(), product.CreateInput{
		Name:          "Widget",
		Price:         10,
		StockQuantity: 5,
		InStock:       ptr(false),
	})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Create_DefaultsInStockTrue(t *testing.T) {
	svc, repo, _ := newService()

	repo.On("Create", mock.Anything, "Widget", 10.0, 3, true).
		Return(&product.Product{ID: 1, Name: "Widget", StockQuantity: 3, InStock: true}, nil).Once()

	_, err := svc.Create(context.Background(), product.CreateInput{
		Name:          "Widget",
		Price:         10,
		StockQuantity: 3,
	})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Update_StockRecomputesInStock(t *testing.T) {
	for _, tc := range []struct {
		stock   int
		inStock bool
	}{
		{stock: 3, inStock: true},
		{stock: 0, inStock: false},
	} {
		svc, repo, _ := newService()

		repo.On("FindByID", mock.Anything, int64(1)).
			Return(&product.Product{ID: 1, Name: "Widget", StockQuantity: 9, InStock: false}, nil).Once()
		repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(p product.UpdateInput) bool {
			return p.InStock != nil && *p.InStock == tc.inStock
		})).Return(&product.Product{ID: 1, Name: "Widget", StockQuantity: tc.stock, InStock: tc.inStock}, nil).Once()

		p, err := svc.Update(context.Background(), 1, product.UpdateInput{StockQuantity: ptr(tc.stock)})

		assert.NoError(t, err)
		assert.Equal(t, tc.inStock, p.InStock)
		repo.AssertExpectations(t)
	}
}

func TestService_Update_DeletedProduct(t *testing.T) {
	svc, repo, _ := newService()

	repo.On("FindByID", mock.Anything, int64(7)).
		Return(&product.Product{ID: 7, Name: "Gone", IsDeleted: true}, nil).Once()

	_, err := svc.Update(context.Background(), 7, product.UpdateInput{Name: ptr("New Name")})

	assert.ErrorIs(t, err, product.ErrDeleted)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Update_NotFound(t *testing.T) {
	svc, repo, _ := newService()

	repo.On("FindByID", mock.Anything, int64(99)).Return(nil, product.ErrNotFound).Once()

	_, err := svc.Update(context.Background(), 99, product.UpdateInput{Name: ptr("x")})

	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestService_FindByID_DeletedReportsNotFound(t *testing.T) {
	svc, repo, _ := newService()

	repo.On("FindByID", mock.Anything, int64(2)).
		Return(&product.Product{ID: 2, Name: "Hidden", IsDeleted: true}, nil).Once()

	_, err := svc.FindByID(context.Background(), 2)

	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestService_FindByID_ResolvesImage(t *testing.T) {
	svc, repo, store := newService()

	repo.On("FindByID", mock.Anything, int64(1)).Return(&product.Product{
		ID:       1,
		Name:     "Widget",
		InStock:  true,
		ImageURL: ptr("http://localhost:9000/products/product-1-1700000000000.jpg"),
	}, nil).Once()
	store.On("PresignGet", mock.Anything, "product-1-1700000000000.jpg").
		Return("https://signed.example/product-1-1700000000000.jpg?sig=abc", true).Once()

	p, err := svc.FindByID(context.Background(), 1)

	assert.NoError(t, err)
	assert.NotNil(t, p.ImageURL)
	assert.Equal(t, "https://signed.example/product-1-1700000000000.jpg?sig=abc", *p.ImageURL)
	store.AssertExpectations(t)
}

func TestService_FindByID_SigningFailureClearsImage(t *testing.T) {
	svc, repo, store := newService()

	repo.On("FindByID", mock.Anything, int64(1)).Return(&product.Product{
		ID:       1,
		Name:     "Widget",
		ImageURL: ptr("http://localhost:9000/products/product-1-1.jpg"),
	}, nil).Once()
	store.On("PresignGet", mock.Anything, "product-1-1.jpg").Return("", false).Once()

	p, err := svc.FindByID(context.Background(), 1)

	assert.NoError(t, err)
	assert.Nil(t, p.ImageURL)
}

func TestService_FindAll_PreservesOrderAndResolvesEach(t *testing.T) {
	svc, repo, store := newService()

	listed := []product.Product{
		{ID: 1, Name: "A", ImageURL: ptr("http://host/b/product-1-1.jpg")},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "C", ImageURL: ptr("http://host/b/product-3-3.jpg")},
	}
	repo.On("FindAll", mock.Anything, product.Filter{}).Return(listed, nil).Once()
	store.On("PresignGet", mock.Anything, "product-1-1.jpg").Return("signed-1", true).Once()
	store.On("PresignGet", mock.Anything, "product-3-3.jpg").Return("", false).Once()

	products, err := svc.FindAll(context.Background(), product.Filter{})

	assert.NoError(t, err)
	assert.Len(t, products, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{products[0].ID, products[1].ID, products[2].ID})
	assert.Equal(t, "signed-1", *products[0].ImageURL)
	assert.Nil(t, products[1].ImageURL)
	assert.Nil(t, products[2].ImageURL)
	store.AssertExpectations(t)
}

func TestService_FindAll_IncludeDeletedPassedThrough(t *testing.T) {
	svc, repo, _ := newService()

	repo.On("FindAll", mock.Anything, product.Filter{IncludeDeleted: true}).
		Return([]product.Product{{ID: 1, IsDeleted: true}}, nil).Once()

	products, err := svc.FindAll(context.Background(), product.Filter{IncludeDeleted: true})

	assert.NoError(t, err)
	assert.Len(t, products, 1)
	repo.AssertExpectations(t)
}

func TestService_Remove_SecondRemovalReportsNotFound(t *testing.T) {
	svc, repo, _ := newService()

	repo.On("SoftDelete", mock.Anything, int64(1)).Return(nil).Once()
	repo.On("SoftDelete", mock.Anything, int64(1)).Return(product.ErrNotFound).Once()

	assert.NoError(t, svc.Remove(context.Background(), 1))
	assert.ErrorIs(t, svc.Remove(context.Background(), 1), product.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestService_UploadImage_Validation(t *testing.T) {
	svc, repo, _ := newService()

	_, err := svc.UploadImage(context.Background(), 1, nil, 0, "image/png")
	assert.ErrorIs(t, err, product.ErrNoFile)

	_, err = svc.UploadImage(context.Background(), 1, bytes.NewReader([]byte("x")), 1, "text/plain")
	assert.ErrorIs(t, err, product.ErrNotImage)

	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestService_UploadImage_DeletedProduct(t *testing.T) {
	svc, repo, _ := newService()

	repo.On("FindByID", mock.Anything, int64(4)).
		Return(&product.Product{ID: 4, IsDeleted: true}, nil).Once()

	_, err := svc.UploadImage(context.Background(), 4, bytes.NewReader([]byte("img")), 3, "image/png")

	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestService_UploadImage_FirstImage(t *testing.T) {
	svc, repo, store := newService()

	repo.On("FindByID", mock.Anything, int64(5)).
		Return(&product.Product{ID: 5, Name: "Widget"}, nil).Once()

	url := "http://localhost:9000/products/product-5-1700000000000.jpg"
	store.On("UploadProductImage", mock.Anything, mock.Anything, int64(3), int64(5)).Return(url, nil).Once()
	repo.On("Update", mock.Anything, int64(5), product.UpdateInput{ImageURL: &url}).
		Return(&product.Product{ID: 5, Name: "Widget", ImageURL: &url}, nil).Once()
	store.On("PresignGet", mock.Anything, "product-5-1700000000000.jpg").Return("signed-url", true).Once()

	p, err := svc.UploadImage(context.Background(), 5, bytes.NewReader([]byte("img")), 3, "image/jpeg")

	assert.NoError(t, err)
	assert.Equal(t, "signed-url", *p.ImageURL)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestService_UploadImage_ReplacementDeletesOldBestEffort(t *testing.T) {
	svc, repo, store := newService()

	old := "http://localhost:9000/products/product-5-1.jpg"
	repo.On("FindByID", mock.Anything, int64(5)).
		Return(&product.Product{ID: 5, Name: "Widget", ImageURL: &old}, nil).Once()

	// Old-object deletion fails; the new upload must proceed anyway.
	store.On("Delete", mock.Anything, "product-5-1.jpg").Return(errors.New("connection refused")).Once()

	url := "http://localhost:9000/products/product-5-2.jpg"
	store.On("UploadProductImage", mock.Anything, mock.Anything, int64(3), int64(5)).Return(url, nil).Once()
	repo.On("Update", mock.Anything, int64(5), product.UpdateInput{ImageURL: &url}).
		Return(&product.Product{ID: 5, Name: "Widget", ImageURL: &url}, nil).Once()
	store.On("PresignGet", mock.Anything, "product-5-2.jpg").Return("signed-2", true).Once()

	p, err := svc.UploadImage(context.Background(), 5, bytes.NewReader([]byte("img")), 3, "image/jpeg")

	assert.NoError(t, err)
	assert.Equal(t, "signed-2", *p.ImageURL)
	store.AssertExpectations(t)
}

func TestService_UploadImage_StoreFailureMasked(t *testing.T) {
	svc, repo, store := newService()

	repo.On("FindByID", mock.Anything, int64(5)).
		Return(&product.Product{ID: 5, Name: "Widget"}, nil).Once()
	store.On("UploadProductImage", mock.Anything, mock.Anything, int64(3), int64(5)).
		Return("", fmt.Errorf("bucket missing")).Once()

	_, err := svc.UploadImage(context.Background(), 5, bytes.NewReader([]byte("img")), 3, "image/jpeg")

	assert.ErrorIs(t, err, product.ErrUploadFailed)
	assert.NotContains(t, err.Error(), "bucket") // underlying cause not leaked
}

func TestService_UploadImage_PersistFailureMasked(t *testing.T) {
	svc, repo, store := newService()

	repo.On("FindByID", mock.Anything, int64(5)).
		Return(&product.Product{ID: 5, Name: "Widget"}, nil).Once()

	url := "http://localhost:9000/products/product-5-2.jpg"
	store.On("UploadProductImage", mock.Anything, mock.Anything, int64(3), int64(5)).Return(url, nil).Once()
	repo.On("Update", mock.Anything, int64(5), product.UpdateInput{ImageURL: &url}).
		Return(nil, fmt.Errorf("database down")).Once()

	_, err := svc.UploadImage(context.Background(), 5, bytes.NewReader([]byte("img")), 3, "image/jpeg")

	assert.ErrorIs(t, err, product.ErrUploadFailed)
}
