package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RequestType discriminates the payload schema and downstream effect of an
// approval request.
type RequestType string

const (
	RequestTypeStoreManagerApproval RequestType = "STORE_MANAGER_APPROVAL"
	RequestTypeCategoryCreation     RequestType = "CATEGORY_CREATION"
	RequestTypeCategoryModification RequestType = "CATEGORY_MODIFICATION"
)

// RequestStatus enumerates workflow states; approved and rejected are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// RequestPriority enumerates review urgency.
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "LOW"
	RequestPriorityNormal RequestPriority = "NORMAL"
	RequestPriorityHigh   RequestPriority = "HIGH"
	RequestPriorityUrgent RequestPriority = "URGENT"
)

// ReviewAction is the reviewer's verdict.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "APPROVE"
	ReviewActionReject  ReviewAction = "REJECT"
)

// Request is the generic envelope for privileged changes awaiting admin
// review. Review authorization and the terminal-transition rule are identical
// across types; only payload validation varies.
type Request struct {
	ID              string
	Type            RequestType
	Status          RequestStatus
	Priority        RequestPriority
	RequestedBy     string
	ReviewedBy      *string
	ReviewedAt      *time.Time
	ReviewNote      string
	RejectionReason string
	Data            map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// requestSchemas lists the required payload keys per request type. A request
// missing any of them is rejected at submission and never created.
var requestSchemas = map[RequestType][]string{
	RequestTypeStoreManagerApproval: {"name", "email", "phone", "storeName", "storeAddress"},
	RequestTypeCategoryCreation:     {"name", "description"},
	RequestTypeCategoryModification: {"categoryId", "name", "description"},
}

// ValidateRequestData checks the payload against the schema for the type.
func ValidateRequestData(requestType RequestType, data map[string]any) error {
	schema, ok := requestSchemas[requestType]
	if !ok {
		return NewValidationError(fmt.Sprintf("unknown request type %q", requestType))
	}

	var missing []string
	for _, key := range schema {
		value, present := data[key]
		if !present {
			missing = append(missing, key)
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return NewValidationError("missing required fields", missing...)
	}
	return nil
}

// NewRequest validates the payload and constructs a pending request.
func NewRequest(requestType RequestType, requestedBy string, priority RequestPriority, data map[string]any, now time.Time) (Request, error) {
	if requestedBy == "" {
		return Request{}, NewValidationError("requestedBy is required")
	}
	if err := ValidateRequestData(requestType, data); err != nil {
		return Request{}, err
	}
	if priority == "" {
		priority = RequestPriorityNormal
	}
	return Request{
		Type:        requestType,
		Status:      RequestStatusPending,
		Priority:    priority,
		RequestedBy: requestedBy,
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Review applies the reviewer's verdict and returns the reviewed request.
// Only pending requests may be reviewed; a second review yields a StateError
// and leaves the first verdict untouched.
func (r Request) Review(reviewer Account, action ReviewAction, reason, note string, now time.Time) (Request, error) {
	if !CanPerform(reviewer.Role, ActionReviewRequest, GateContext{ActorID: reviewer.ID}) {
		return r, NewAuthorizationError("only admins may review requests")
	}
	if r.Status != RequestStatusPending {
		return r, NewStateError(fmt.Sprintf("request already %s", strings.ToLower(string(r.Status))))
	}

	switch action {
	case ReviewActionApprove:
		r.Status = RequestStatusApproved
	case ReviewActionReject:
		if strings.TrimSpace(reason) == "" {
			return r, NewValidationError("rejection reason is required")
		}
		r.Status = RequestStatusRejected
		r.RejectionReason = reason
	default:
		return r, NewValidationError(fmt.Sprintf("unknown review action %q", action))
	}

	reviewedBy := reviewer.ID
	reviewedAt := now
	r.ReviewedBy = &reviewedBy
	r.ReviewedAt = &reviewedAt
	r.ReviewNote = note
	r.UpdatedAt = now
	return r, nil
}

// IsPending reports whether the request still awaits review.
func (r Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IsApproved reports whether the request was approved.
func (r Request) IsApproved() bool {
	return r.Status == RequestStatusApproved
}

// IsRejected reports whether the request was rejected.
func (r Request) IsRejected() bool {
	return r.Status == RequestStatusRejected
}

// IsHighPriority reports whether the request should surface first to reviewers.
func (r Request) IsHighPriority() bool {
	return r.Priority == RequestPriorityHigh || r.Priority == RequestPriorityUrgent
}

// DataString returns the string payload value for key, or "" when absent.
func (r Request) DataString(key string) string {
	if value, ok := r.Data[key].(string); ok {
		return value
	}
	return ""
}
