package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/events"
	"github.com/spec-kit/grocery-service/internal/repository"
)

// CategoryCacheInvalidator drops cached category reads after an approval
// changes them behind the catalog's back.
type CategoryCacheInvalidator interface {
	InvalidateCategories(ctx context.Context)
}

// RequestService coordinates the approval workflow for privileged changes.
type RequestService struct {
	requests     repository.RequestRepository
	accounts     repository.AccountRepository
	categories   repository.CategoryRepository
	catalogCache CategoryCacheInvalidator
	dispatcher   events.Dispatcher
	now          func() time.Time
}

// RequestDependencies bundles repositories for the request service.
type RequestDependencies struct {
	RequestRepo  repository.RequestRepository
	AccountRepo  repository.AccountRepository
	CategoryRepo repository.CategoryRepository
	CatalogCache CategoryCacheInvalidator
	Dispatcher   events.Dispatcher
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:     deps.RequestRepo,
		accounts:     deps.AccountRepo,
		categories:   deps.CategoryRepo,
		catalogCache: deps.CatalogCache,
		dispatcher:   deps.Dispatcher,
		now:          time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *RequestService) WithClock(now func() time.Time) *RequestService {
	s.now = now
	return s
}

// Submit validates the payload against the type's schema and creates a
// pending request. Any authenticated role may submit.
func (s *RequestService) Submit(ctx context.Context, actor *domain.Account, requestType domain.RequestType, priority domain.RequestPriority, data map[string]any) (*domain.Request, error) {
	if !domain.CanPerform(actor.Role, domain.ActionSubmitRequest, domain.GateContext{ActorID: actor.ID}) {
		return nil, domain.NewAuthorizationError("not allowed to submit requests")
	}

	request, err := domain.NewRequest(requestType, actor.ID, priority, data, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, &request); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventRequestSubmitted,
		EntityID: request.ID,
		Actor:    events.Actor{AccountID: actor.ID, Role: actor.Role},
		Payload: events.RequestSubmittedPayload{
			RequestType: request.Type,
			Priority:    request.Priority,
		},
	})
	return &request, nil
}

// ListPending returns pending requests for review, urgent and high priority
// first.
func (s *RequestService) ListPending(ctx context.Context, actor *domain.Account, filter repository.RequestFilter) ([]domain.Request, error) {
	if !domain.CanPerform(actor.Role, domain.ActionReviewRequest, domain.GateContext{ActorID: actor.ID}) {
		return nil, domain.NewAuthorizationError("only admins may list pending requests")
	}
	return s.requests.ListPending(ctx, filter)
}

// Get fetches a request; admins see all, submitters only their own.
func (s *RequestService) Get(ctx context.Context, actor *domain.Account, requestID string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && request.RequestedBy != actor.ID {
		return nil, domain.NewAuthorizationError("not allowed to view this request")
	}
	return request, nil
}

// Review applies the verdict and, on approval, the request's downstream
// effect. A review that loses the race to a concurrent one surfaces as a
// StateError rather than silently clobbering the first verdict.
func (s *RequestService) Review(ctx context.Context, reviewer *domain.Account, requestID string, action domain.ReviewAction, reason, note string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	reviewed, err := request.Review(*reviewer, action, reason, note, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.requests.SaveReview(ctx, &reviewed); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewStateError("request was reviewed concurrently")
		}
		return nil, err
	}

	if reviewed.IsApproved() {
		if err := s.applyApproval(ctx, &reviewed); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.Event{
		Type:     events.EventRequestReviewed,
		EntityID: reviewed.ID,
		Actor:    events.Actor{AccountID: reviewer.ID, Role: reviewer.Role},
		Payload: events.RequestReviewedPayload{
			RequestType: reviewed.Type,
			Status:      reviewed.Status,
			Reason:      reviewed.RejectionReason,
		},
	})
	return &reviewed, nil
}

// applyApproval executes the type-specific effect of an approved request.
func (s *RequestService) applyApproval(ctx context.Context, request *domain.Request) error {
	switch request.Type {
	case domain.RequestTypeStoreManagerApproval:
		account, err := s.accounts.GetByID(ctx, request.RequestedBy)
		if err != nil {
			return err
		}
		account.Role = domain.RoleStoreManager
		if name := request.DataString("name"); name != "" {
			account.Name = name
		}
		if phone := request.DataString("phone"); phone != "" {
			account.Phone = phone
		}
		return s.accounts.Update(ctx, account)

	case domain.RequestTypeCategoryCreation:
		category := &domain.Category{
			Name:        request.DataString("name"),
			Description: request.DataString("description"),
			Active:      true,
		}
		if err := s.categories.Create(ctx, category); err != nil {
			return err
		}
		s.invalidateCategoryCache(ctx)
		return nil

	case domain.RequestTypeCategoryModification:
		category, err := s.categories.GetByID(ctx, request.DataString("categoryId"))
		if err != nil {
			return err
		}
		category.Name = request.DataString("name")
		category.Description = request.DataString("description")
		if err := s.categories.Update(ctx, category); err != nil {
			return err
		}
		s.invalidateCategoryCache(ctx)
		return nil

	default:
		return fmt.Errorf("no approval effect for request type %q", request.Type)
	}
}

func (s *RequestService) invalidateCategoryCache(ctx context.Context) {
	if s.catalogCache != nil {
		s.catalogCache.InvalidateCategories(ctx)
	}
}

func (s *RequestService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
