package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository abstracts product persistence so the service can be tested
// against a mock.
type Repository interface {
	FindAll(ctx context.Context, f Filter) ([]Product, error)
	FindByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, name string, price float64, stockQuantity int, inStock bool) (*Product, error)
	Update(ctx context.Context, id int64, patch UpdateInput) (*Product, error)
	SoftDelete(ctx context.Context, id int64) error
}

const productColumns = `id, name, price, stock_quantity, in_stock, image_url, is_deleted, created_at, updated_at`

// PostgresRepository handles all product database operations.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository creates a PostgresRepository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.InStock,
		&p.ImageURL, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindAll lists products matching the filter in id order. Deleted records
// are excluded unless the filter explicitly includes them.
func (r *PostgresRepository) FindAll(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if f.Name != "" {
		where = append(where, fmt.Sprintf("name ILIKE '%%' || %s || '%%'", arg(f.Name)))
	}
	if f.InStock != nil {
		where = append(where, fmt.Sprintf("in_stock = %s", arg(*f.InStock)))
	}
	if f.MinPrice != nil {
		where = append(where, fmt.Sprintf("price >= %s", arg(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		where = append(where, fmt.Sprintf("price <= %s", arg(*f.MaxPrice)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// FindByID fetches a product by id, soft-deleted records included; callers
// decide how to treat the deleted flag.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// Create inserts a new product and returns the created record.
func (r *PostgresRepository) Create(ctx context.Context, name string, price float64, stockQuantity int, inStock bool) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`INSERT INTO products (name, price, stock_quantity, in_stock)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+productColumns,
		name, price, stockQuantity, inStock))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields of patch and returns the updated record.
// An empty patch returns the current record unchanged.
func (r *PostgresRepository) Update(ctx context.Context, id int64, patch UpdateInput) (*Product, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.StockQuantity != nil {
		set("stock_quantity", *patch.StockQuantity)
	}
	if patch.InStock != nil {
		set("in_stock", *patch.InStock)
	}
	if patch.ImageURL != nil {
		set("image_url", *patch.ImageURL)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), productColumns)

	p, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// SoftDelete flips the deleted flag. Reports ErrNotFound for a missing id
// and for one that is already deleted, so repeat deletions fail uniformly.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET is_deleted = TRUE, updated_at = now()
		 WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
