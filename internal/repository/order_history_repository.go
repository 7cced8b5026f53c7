package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grocery-service/internal/domain"
)

// OrderStatusChange is one entry in an order's transition trail.
type OrderStatusChange struct {
	ID        string
	OrderID   string
	ActorID   string
	ActorRole domain.Role
	OldStatus domain.OrderStatus
	NewStatus domain.OrderStatus
	Comment   string
	CreatedAt time.Time
}

// OrderHistoryRepository records every order status transition with its actor.
type OrderHistoryRepository interface {
	Create(ctx context.Context, entry *OrderStatusChange) error
	ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]OrderStatusChange, error)
}

type orderHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewOrderHistoryRepository instantiates repository.
func NewOrderHistoryRepository(pool *pgxpool.Pool) OrderHistoryRepository {
	return &orderHistoryRepository{pool: pool}
}

func (r *orderHistoryRepository) Create(ctx context.Context, entry *OrderStatusChange) error {
	const query = `
        INSERT INTO order_status_history (order_id, actor_id, actor_role, old_status, new_status, comment)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.OrderID,
		entry.ActorID,
		entry.ActorRole,
		entry.OldStatus,
		entry.NewStatus,
		entry.Comment,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *orderHistoryRepository) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]OrderStatusChange, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, order_id, actor_id, actor_role, old_status, new_status, comment, created_at
        FROM order_status_history WHERE order_id=$1
        ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, orderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OrderStatusChange
	for rows.Next() {
		var entry OrderStatusChange
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.Comment,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
