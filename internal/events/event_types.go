package events

import (
	"time"

	"github.com/spec-kit/grocery-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderPlaced        EventType = "order_placed"
	EventOrderStatusChanged EventType = "order_status_changed"
	EventOrderCancelled     EventType = "order_cancelled"
	EventRequestSubmitted   EventType = "request_submitted"
	EventRequestReviewed    EventType = "request_reviewed"
	EventAccountLocked      EventType = "account_locked"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderPlacedPayload payload.
type OrderPlacedPayload struct {
	ExternalKey string `json:"external_key"`
	ItemCount   int    `json:"item_count"`
	FinalCents  int64  `json:"final_cents"`
}

// OrderStatusChangedPayload payload.
type OrderStatusChangedPayload struct {
	OldStatus domain.OrderStatus `json:"old_status"`
	NewStatus domain.OrderStatus `json:"new_status"`
}

// OrderCancelledPayload payload.
type OrderCancelledPayload struct {
	OldStatus domain.OrderStatus `json:"old_status"`
	Reason    string             `json:"reason"`
}

// RequestSubmittedPayload payload.
type RequestSubmittedPayload struct {
	RequestType domain.RequestType     `json:"request_type"`
	Priority    domain.RequestPriority `json:"priority"`
}

// RequestReviewedPayload payload.
type RequestReviewedPayload struct {
	RequestType domain.RequestType   `json:"request_type"`
	Status      domain.RequestStatus `json:"status"`
	Reason      string               `json:"reason,omitempty"`
}

// AccountLockedPayload payload.
type AccountLockedPayload struct {
	Email       string    `json:"email"`
	LockedUntil time.Time `json:"locked_until"`
}
