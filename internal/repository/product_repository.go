package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grocery-service/internal/domain"
)

// ProductFilter captures catalog search parameters.
type ProductFilter struct {
	CategoryID    *string
	ManagedBy     *string
	SearchTerm    *string
	MinPriceCents *int64
	MaxPriceCents *int64
	ActiveOnly    bool
	Limit         int
	Offset        int
}

// ProductRepository encapsulates product persistence.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListWithFilter(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) error
}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository instantiates repository.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

const selectProduct = `
        SELECT id, category_id, managed_by, name, description, price_cents,
               discount_percent, stock_quantity, active, created_at, updated_at
        FROM products`

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
        INSERT INTO products (category_id, managed_by, name, description, price_cents, discount_percent, stock_quantity, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		product.CategoryID,
		product.ManagedBy,
		product.Name,
		product.Description,
		product.PriceCents,
		product.DiscountPercent,
		product.StockQuantity,
		product.Active,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	const query = `
        UPDATE products SET category_id=$1, name=$2, description=$3, price_cents=$4,
            discount_percent=$5, stock_quantity=$6, active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		product.CategoryID,
		product.Name,
		product.Description,
		product.PriceCents,
		product.DiscountPercent,
		product.StockQuantity,
		product.Active,
		product.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := selectProduct + ` WHERE id=$1`
	var product domain.Product
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.CategoryID,
		&product.ManagedBy,
		&product.Name,
		&product.Description,
		&product.PriceCents,
		&product.DiscountPercent,
		&product.StockQuantity,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListWithFilter(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	var conditions []string
	var args []any

	addArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id="+addArg(*filter.CategoryID))
	}
	if filter.ManagedBy != nil {
		conditions = append(conditions, "managed_by="+addArg(*filter.ManagedBy))
	}
	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		placeholder := addArg("%" + *filter.SearchTerm + "%")
		conditions = append(conditions, "(name ILIKE "+placeholder+" OR description ILIKE "+placeholder+")")
	}
	if filter.MinPriceCents != nil {
		conditions = append(conditions, "price_cents>="+addArg(*filter.MinPriceCents))
	}
	if filter.MaxPriceCents != nil {
		conditions = append(conditions, "price_cents<="+addArg(*filter.MaxPriceCents))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active=TRUE")
	}

	query := selectProduct
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		query += " LIMIT " + addArg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + addArg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID,
			&product.CategoryID,
			&product.ManagedBy,
			&product.Name,
			&product.Description,
			&product.PriceCents,
			&product.DiscountPercent,
			&product.StockQuantity,
			&product.Active,
			&product.CreatedAt,
			&product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// AdjustStock atomically changes the stock level, refusing to go negative.
func (r *productRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	const query = `
        UPDATE products SET stock_quantity=stock_quantity+$1, updated_at=NOW()
        WHERE id=$2 AND stock_quantity+$1 >= 0`
	cmd, err := r.pool.Exec(ctx, query, delta, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
