package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grocery-service/internal/domain"
)

// OrderFilter captures order listing parameters.
type OrderFilter struct {
	CustomerID  *string
	Statuses    []domain.OrderStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	// Create persists the order, its items, and the stock reservation for
	// every line in one transaction; pgx.ErrNoRows signals a line whose
	// product no longer had enough stock, with nothing persisted.
	Create(ctx context.Context, order *domain.Order) error
	// UpdateStatus writes the transitioned order only while the row still
	// holds expected status; pgx.ErrNoRows signals a concurrent transition.
	UpdateStatus(ctx context.Context, order *domain.Order, expected domain.OrderStatus) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListWithFilter(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const orderQuery = `
        INSERT INTO orders (external_key, customer_id, status, total_cents, discount_cents, final_cents)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, orderQuery,
		order.ExternalKey,
		order.CustomerID,
		order.Status,
		order.TotalCents,
		order.DiscountCents,
		order.FinalCents,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return err
	}

	const itemQuery = `
        INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price_cents, discount_cents)
        VALUES ($1,$2,$3,$4,$5,$6)`
	const reserveQuery = `
        UPDATE products SET stock_quantity = stock_quantity - $1, updated_at=NOW()
        WHERE id=$2 AND stock_quantity >= $1`
	for _, item := range order.Items {
		if _, err := tx.Exec(ctx, itemQuery,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPriceCents,
			item.DiscountCents,
		); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, reserveQuery, item.Quantity, item.ProductID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, expected domain.OrderStatus) error {
	const query = `
        UPDATE orders SET status=$1, cancelled_by=$2, cancellation_reason=$3, delivered_at=$4, updated_at=NOW()
        WHERE id=$5 AND status=$6`
	cmd, err := r.pool.Exec(ctx, query,
		order.Status,
		order.CancelledBy,
		nullableString(order.CancellationReason),
		order.DeliveredAt,
		order.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const selectOrder = `
        SELECT id, external_key, customer_id, status, total_cents, discount_cents, final_cents,
               cancelled_by, COALESCE(cancellation_reason, ''), delivered_at, created_at, updated_at
        FROM orders`

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := selectOrder + ` WHERE id=$1`
	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.ExternalKey,
		&order.CustomerID,
		&order.Status,
		&order.TotalCents,
		&order.DiscountCents,
		&order.FinalCents,
		&order.CancelledBy,
		&order.CancellationReason,
		&order.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	items, err := r.listItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *orderRepository) ListWithFilter(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	var conditions []string
	var args []any

	addArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CustomerID != nil {
		conditions = append(conditions, "customer_id="+addArg(*filter.CustomerID))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			placeholders = append(placeholders, addArg(status))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, "created_at>="+addArg(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, "created_at<="+addArg(*filter.CreatedTo))
	}

	query := selectOrder
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
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

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.ExternalKey,
			&order.CustomerID,
			&order.Status,
			&order.TotalCents,
			&order.DiscountCents,
			&order.FinalCents,
			&order.CancelledBy,
			&order.CancellationReason,
			&order.DeliveredAt,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *orderRepository) listItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	const query = `
        SELECT product_id, product_name, quantity, unit_price_cents, discount_cents
        FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.DiscountCents,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
