package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grocery-service/internal/domain"
)

// RequestFilter captures pending-request listing parameters.
type RequestFilter struct {
	Types       []domain.RequestType
	RequestedBy *string
	Limit       int
	Offset      int
}

// RequestRepository encapsulates approval-request persistence.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	// SaveReview writes the reviewed request only while the row is still
	// pending; pgx.ErrNoRows signals a concurrent review.
	SaveReview(ctx context.Context, request *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	ListPending(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (type, status, priority, requested_by, data)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.Type,
		request.Status,
		request.Priority,
		request.RequestedBy,
		request.Data,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) SaveReview(ctx context.Context, request *domain.Request) error {
	const query = `
        UPDATE requests SET status=$1, reviewed_by=$2, reviewed_at=$3, review_note=$4,
            rejection_reason=$5, updated_at=NOW()
        WHERE id=$6 AND status=$7`
	cmd, err := r.pool.Exec(ctx, query,
		request.Status,
		request.ReviewedBy,
		request.ReviewedAt,
		nullableString(request.ReviewNote),
		nullableString(request.RejectionReason),
		request.ID,
		domain.RequestStatusPending,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const selectRequest = `
        SELECT id, type, status, priority, requested_by, reviewed_by, reviewed_at,
               COALESCE(review_note, ''), COALESCE(rejection_reason, ''), data, created_at, updated_at
        FROM requests`

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := selectRequest + ` WHERE id=$1`
	var request domain.Request
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.Type,
		&request.Status,
		&request.Priority,
		&request.RequestedBy,
		&request.ReviewedBy,
		&request.ReviewedAt,
		&request.ReviewNote,
		&request.RejectionReason,
		&request.Data,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListPending returns pending requests with high and urgent priorities first.
func (r *requestRepository) ListPending(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	var args []any
	addArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"status=" + addArg(domain.RequestStatusPending)}
	if len(filter.Types) > 0 {
		placeholders := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			placeholders = append(placeholders, addArg(t))
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.RequestedBy != nil {
		conditions = append(conditions, "requested_by="+addArg(*filter.RequestedBy))
	}

	query := selectRequest + " WHERE " + strings.Join(conditions, " AND ") + `
        ORDER BY CASE priority
            WHEN 'URGENT' THEN 0
            WHEN 'HIGH' THEN 1
            WHEN 'NORMAL' THEN 2
            ELSE 3
        END, created_at`
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

	var requests []domain.Request
	for rows.Next() {
		var request domain.Request
		if err := rows.Scan(
			&request.ID,
			&request.Type,
			&request.Status,
			&request.Priority,
			&request.RequestedBy,
			&request.ReviewedBy,
			&request.ReviewedAt,
			&request.ReviewNote,
			&request.RejectionReason,
			&request.Data,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}
