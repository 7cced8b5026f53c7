package dto

import (
	"time"

	"github.com/spec-kit/grocery-service/internal/domain"
)

// SubmitRequestRequest payload for a new approval request.
type SubmitRequestRequest struct {
	Type     string         `json:"type"`
	Priority string         `json:"priority"`
	Data     map[string]any `json:"data"`
}

// ReviewRequestRequest payload for an approve/reject verdict.
type ReviewRequestRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// RequestResponse is the API shape of an approval request, with the derived
// classification flags downstream consumers sort on.
type RequestResponse struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	Priority        string         `json:"priority"`
	RequestedBy     string         `json:"requested_by"`
	ReviewedBy      *string        `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	ReviewNote      string         `json:"review_note,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Data            map[string]any `json:"data"`
	IsPending       bool           `json:"is_pending"`
	IsApproved      bool           `json:"is_approved"`
	IsRejected      bool           `json:"is_rejected"`
	IsHighPriority  bool           `json:"is_high_priority"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewRequestResponse maps a domain request to its API shape.
func NewRequestResponse(request *domain.Request) RequestResponse {
	return RequestResponse{
		ID:              request.ID,
		Type:            string(request.Type),
		Status:          string(request.Status),
		Priority:        string(request.Priority),
		RequestedBy:     request.RequestedBy,
		ReviewedBy:      request.ReviewedBy,
		ReviewedAt:      request.ReviewedAt,
		ReviewNote:      request.ReviewNote,
		RejectionReason: request.RejectionReason,
		Data:            request.Data,
		IsPending:       request.IsPending(),
		IsApproved:      request.IsApproved(),
		IsRejected:      request.IsRejected(),
		IsHighPriority:  request.IsHighPriority(),
		CreatedAt:       request.CreatedAt,
	}
}
