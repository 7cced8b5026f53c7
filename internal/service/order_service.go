package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/events"
	"github.com/spec-kit/grocery-service/internal/repository"
)

// OrderService coordinates checkout and the order lifecycle.
type OrderService struct {
	orders     repository.OrderRepository
	products   repository.ProductRepository
	history    repository.OrderHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// OrderDependencies bundles repositories for the order service.
type OrderDependencies struct {
	OrderRepo   repository.OrderRepository
	ProductRepo repository.ProductRepository
	HistoryRepo repository.OrderHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// CheckoutItem is one cart line at checkout.
type CheckoutItem struct {
	ProductID string
	Quantity  int
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:     deps.OrderRepo,
		products:   deps.ProductRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// Checkout builds a pending order from the cart, freezing unit prices and
// discounts at order time, and reserves stock.
func (s *OrderService) Checkout(ctx context.Context, customer *domain.Account, items []CheckoutItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError("order must contain at least one item")
	}

	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid quantity for product %s", item.ProductID))
		}
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, domain.NewValidationError(fmt.Sprintf("product %s is not available", product.Name))
		}
		if !product.InStock(item.Quantity) {
			return nil, domain.NewValidationError(fmt.Sprintf("insufficient stock for %s", product.Name))
		}
		orderItems = append(orderItems, domain.OrderItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
			DiscountCents:  product.DiscountCents(),
		})
	}

	now := s.now()
	order := domain.Order{
		ExternalKey: generateOrderKey(),
		CustomerID:  customer.ID,
		Status:      domain.OrderStatusPending,
		Items:       orderItems,
		CreatedAt:   now,
		UpdatedAt:   now,
	}.ComputeTotals()

	// Create reserves stock inside the same transaction as the insert, so a
	// line that raced out of stock since the check above persists nothing.
	if err := s.orders.Create(ctx, &order); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewValidationError("stock changed during checkout, please retry")
		}
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventOrderPlaced,
		EntityID: order.ID,
		Actor:    events.Actor{AccountID: customer.ID, Role: customer.Role},
		Payload: events.OrderPlacedPayload{
			ExternalKey: order.ExternalKey,
			ItemCount:   len(order.Items),
			FinalCents:  order.FinalCents,
		},
	})
	return &order, nil
}

// GetForActor fetches an order; admins see all, customers only their own.
func (s *OrderService) GetForActor(ctx context.Context, actor *domain.Account, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && order.CustomerID != actor.ID {
		return nil, domain.NewAuthorizationError("not allowed to view this order")
	}
	return order, nil
}

// ListForCustomer returns the customer's own orders.
func (s *OrderService) ListForCustomer(ctx context.Context, customerID string, statuses []domain.OrderStatus, limit, offset int) ([]domain.Order, error) {
	return s.orders.ListWithFilter(ctx, repository.OrderFilter{
		CustomerID: &customerID,
		Statuses:   statuses,
		Limit:      limit,
		Offset:     offset,
	})
}

// ListAll returns orders across customers; admin only.
func (s *OrderService) ListAll(ctx context.Context, actor *domain.Account, filter repository.OrderFilter) ([]domain.Order, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domain.NewAuthorizationError("only admins may list all orders")
	}
	return s.orders.ListWithFilter(ctx, filter)
}

// Advance moves the order one step forward in the fulfillment chain and
// records the transition. A lost race against a concurrent transition
// surfaces as a StateError.
func (s *OrderService) Advance(ctx context.Context, actor *domain.Account, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status

	advanced, err := order.Advance(*actor, target, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, &advanced, oldStatus); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewStateError("order status changed concurrently")
		}
		return nil, err
	}
	s.recordTransition(ctx, actor, &advanced, oldStatus, "")

	s.publish(ctx, events.Event{
		Type:     events.EventOrderStatusChanged,
		EntityID: advanced.ID,
		Actor:    events.Actor{AccountID: actor.ID, Role: actor.Role},
		Payload: events.OrderStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: advanced.Status,
		},
	})
	return &advanced, nil
}

// Cancel transitions the order to cancelled and releases reserved stock.
func (s *OrderService) Cancel(ctx context.Context, actor *domain.Account, orderID, reason string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status

	cancelled, err := order.Cancel(*actor, reason, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, &cancelled, oldStatus); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewStateError("order status changed concurrently")
		}
		return nil, err
	}
	// The cancellation is already committed; a failed restock must not undo
	// it, but losing inventory silently is worse than a loud log line.
	for _, item := range cancelled.Items {
		if err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("restock after cancellation failed",
				zap.String("order_id", cancelled.ID),
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
	s.recordTransition(ctx, actor, &cancelled, oldStatus, reason)

	s.publish(ctx, events.Event{
		Type:     events.EventOrderCancelled,
		EntityID: cancelled.ID,
		Actor:    events.Actor{AccountID: actor.ID, Role: actor.Role},
		Payload: events.OrderCancelledPayload{
			OldStatus: oldStatus,
			Reason:    reason,
		},
	})
	return &cancelled, nil
}

// History returns the order's transition trail; admins see all orders,
// customers only their own.
func (s *OrderService) History(ctx context.Context, actor *domain.Account, orderID string, limit, offset int) ([]repository.OrderStatusChange, error) {
	if s.history == nil {
		return []repository.OrderStatusChange{}, nil
	}
	if _, err := s.GetForActor(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.history.ListByOrder(ctx, orderID, limit, offset)
}

func (s *OrderService) recordTransition(ctx context.Context, actor *domain.Account, order *domain.Order, oldStatus domain.OrderStatus, comment string) {
	if s.history == nil {
		return
	}
	entry := &repository.OrderStatusChange{
		OrderID:   order.ID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		OldStatus: oldStatus,
		NewStatus: order.Status,
		Comment:   comment,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("order status trail write failed",
			zap.String("order_id", order.ID),
			zap.String("new_status", string(order.Status)),
			zap.Error(err))
	}
}

func generateOrderKey() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *OrderService) publish(ctx context.Context, event events.Event) {
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
