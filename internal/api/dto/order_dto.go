package dto

import (
	"time"

	"github.com/spec-kit/grocery-service/internal/domain"
)

// CheckoutRequest payload for placing an order.
type CheckoutRequest struct {
	Items []CheckoutItemRequest `json:"items"`
}

// CheckoutItemRequest is one cart line.
type CheckoutItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AdvanceOrderRequest payload for a status update.
type AdvanceOrderRequest struct {
	Status string `json:"status"`
}

// CancelOrderRequest payload.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderItemResponse is the API shape of a line item.
type OrderItemResponse struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
}

// OrderResponse is the API shape of an order.
type OrderResponse struct {
	ID                 string              `json:"id"`
	ExternalKey        string              `json:"external_key"`
	CustomerID         string              `json:"customer_id"`
	Status             string              `json:"status"`
	Items              []OrderItemResponse `json:"items"`
	TotalCents         int64               `json:"total_cents"`
	DiscountCents      int64               `json:"discount_cents"`
	FinalCents         int64               `json:"final_cents"`
	CancelledBy        *string             `json:"cancelled_by,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// OrderHistoryEntryResponse is one entry of an order's transition trail.
type OrderHistoryEntryResponse struct {
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOrderResponse maps a domain order to its API shape.
func NewOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			DiscountCents:  item.DiscountCents,
		})
	}
	return OrderResponse{
		ID:                 order.ID,
		ExternalKey:        order.ExternalKey,
		CustomerID:         order.CustomerID,
		Status:             string(order.Status),
		Items:              items,
		TotalCents:         order.TotalCents,
		DiscountCents:      order.DiscountCents,
		FinalCents:         order.FinalCents,
		CancelledBy:        order.CancelledBy,
		CancellationReason: order.CancellationReason,
		DeliveredAt:        order.DeliveredAt,
		CreatedAt:          order.CreatedAt,
	}
}
