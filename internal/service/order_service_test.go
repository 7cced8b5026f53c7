package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/events"
	"github.com/spec-kit/grocery-service/internal/repository"
)

type orderFixture struct {
	service  *OrderService
	orders   *fakeOrderRepo
	products *fakeProductRepo
	history  *fakeHistoryRepo
	events   *recordingDispatcher
	admin    *domain.Account
	customer *domain.Account
	clock    time.Time
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	products := newFakeProductRepo()
	fixture := &orderFixture{
		orders:   newFakeOrderRepo(products),
		products: products,
		history:  newFakeHistoryRepo(),
		events:   newRecordingDispatcher(),
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		admin:    &domain.Account{ID: "acc-admin", Role: domain.RoleAdmin},
		customer: &domain.Account{ID: "acc-customer", Role: domain.RoleCustomer},
	}
	fixture.service = NewOrderService(OrderDependencies{
		OrderRepo:   fixture.orders,
		ProductRepo: fixture.products,
		HistoryRepo: fixture.history,
		Dispatcher:  fixture.events,
	}).WithClock(func() time.Time { return fixture.clock })
	return fixture
}

func (f *orderFixture) seedProduct(t *testing.T, name string, priceCents int64, discountPercent, stock int) *domain.Product {
	t.Helper()
	product := &domain.Product{
		Name:            name,
		PriceCents:      priceCents,
		DiscountPercent: discountPercent,
		StockQuantity:   stock,
		Active:          true,
	}
	require.NoError(t, f.products.Create(context.Background(), product))
	return product
}

func TestCheckoutFreezesPricesAndReservesStock(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()
	milk := fixture.seedProduct(t, "Milk 1L", 250, 0, 10)
	cheese := fixture.seedProduct(t, "Cheddar", 800, 10, 5)

	order, err := fixture.service.Checkout(ctx, fixture.customer, []CheckoutItem{
		{ProductID: milk.ID, Quantity: 2},
		{ProductID: cheese.ID, Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.ExternalKey, "ORD-"))
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(250), order.Items[0].UnitPriceCents)
	assert.Equal(t, int64(80), order.Items[1].DiscountCents)
	assert.Equal(t, int64(2*250+800), order.TotalCents)
	assert.Equal(t, int64(80), order.DiscountCents)
	assert.Equal(t, order.TotalCents-order.DiscountCents, order.FinalCents)

	milkAfter, _ := fixture.products.GetByID(ctx, milk.ID)
	cheeseAfter, _ := fixture.products.GetByID(ctx, cheese.ID)
	assert.Equal(t, 8, milkAfter.StockQuantity)
	assert.Equal(t, 4, cheeseAfter.StockQuantity)

	placed := fixture.events.ofType(events.EventOrderPlaced)
	require.Len(t, placed, 1)
}

func TestCheckoutPriceChangeDoesNotAffectExistingOrder(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()
	bread := fixture.seedProduct(t, "Sourdough", 600, 0, 10)

	order, err := fixture.service.Checkout(ctx, fixture.customer, []CheckoutItem{{ProductID: bread.ID, Quantity: 1}})
	require.NoError(t, err)

	updated, _ := fixture.products.GetByID(ctx, bread.ID)
	updated.PriceCents = 900
	require.NoError(t, fixture.products.Update(ctx, updated))

	stored, err := fixture.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), stored.Items[0].UnitPriceCents)
	assert.Equal(t, int64(600), stored.FinalCents)
}

func TestCheckoutValidation(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()
	scarce := fixture.seedProduct(t, "Saffron", 4000, 0, 1)
	retired := fixture.seedProduct(t, "Old Stock", 100, 0, 50)
	retiredStored, _ := fixture.products.GetByID(ctx, retired.ID)
	retiredStored.Active = false
	require.NoError(t, fixture.products.Update(ctx, retiredStored))

	tests := []struct {
		name  string
		items []CheckoutItem
	}{
		{"empty cart", nil},
		{"zero quantity", []CheckoutItem{{ProductID: scarce.ID, Quantity: 0}}},
		{"negative quantity", []CheckoutItem{{ProductID: scarce.ID, Quantity: -1}}},
		{"insufficient stock", []CheckoutItem{{ProductID: scarce.ID, Quantity: 2}}},
		{"inactive product", []CheckoutItem{{ProductID: retired.ID, Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.service.Checkout(ctx, fixture.customer, tt.items)
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}

	// No failed checkout may touch stock.
	after, _ := fixture.products.GetByID(ctx, scarce.ID)
	assert.Equal(t, 1, after.StockQuantity)
}

// staleStockProducts reports stock a concurrent checkout has already drained,
// so the availability pre-check passes while the reservation cannot.
type staleStockProducts struct {
	repository.ProductRepository
	reportAvailable int
}

func (s staleStockProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.ProductRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.StockQuantity < s.reportAvailable {
		product.StockQuantity = s.reportAvailable
	}
	return product, nil
}

func TestCheckoutFailedReservationLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	products := newFakeProductRepo()
	orders := newFakeOrderRepo(products)
	dispatcher := newRecordingDispatcher()
	orderSvc := NewOrderService(OrderDependencies{
		OrderRepo:   orders,
		ProductRepo: staleStockProducts{ProductRepository: products, reportAvailable: 5},
		HistoryRepo: newFakeHistoryRepo(),
		Dispatcher:  dispatcher,
	})

	full := &domain.Product{Name: "Rice 1kg", PriceCents: 400, StockQuantity: 10, Active: true}
	require.NoError(t, products.Create(ctx, full))
	drained := &domain.Product{Name: "Lentils 1kg", PriceCents: 350, StockQuantity: 0, Active: true}
	require.NoError(t, products.Create(ctx, drained))

	customer := &domain.Account{ID: "acc-customer", Role: domain.RoleCustomer}
	_, err := orderSvc.Checkout(ctx, customer, []CheckoutItem{
		{ProductID: full.ID, Quantity: 2},
		{ProductID: drained.ID, Quantity: 1},
	})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)

	listed, listErr := orders.ListWithFilter(ctx, orderFilterAll())
	require.NoError(t, listErr)
	assert.Empty(t, listed, "failed checkout must not persist an order")

	after, getErr := products.GetByID(ctx, full.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 10, after.StockQuantity, "failed checkout must not deduct stock")
	assert.Empty(t, dispatcher.ofType(events.EventOrderPlaced))
}

// failingRestockProducts breaks only the restock direction of AdjustStock.
type failingRestockProducts struct {
	repository.ProductRepository
}

func (f failingRestockProducts) AdjustStock(ctx context.Context, id string, delta int) error {
	if delta > 0 {
		return errors.New("stock update unavailable")
	}
	return f.ProductRepository.AdjustStock(ctx, id, delta)
}

func TestCancelSucceedsWhenRestockFails(t *testing.T) {
	ctx := context.Background()
	products := newFakeProductRepo()
	orders := newFakeOrderRepo(products)
	orderSvc := NewOrderService(OrderDependencies{
		OrderRepo:   orders,
		ProductRepo: failingRestockProducts{ProductRepository: products},
		HistoryRepo: newFakeHistoryRepo(),
		Dispatcher:  newRecordingDispatcher(),
	})

	product := &domain.Product{Name: "Oats 500g", PriceCents: 220, StockQuantity: 10, Active: true}
	require.NoError(t, products.Create(ctx, product))

	customer := &domain.Account{ID: "acc-customer", Role: domain.RoleCustomer}
	order, err := orderSvc.Checkout(ctx, customer, []CheckoutItem{{ProductID: product.ID, Quantity: 2}})
	require.NoError(t, err)

	cancelled, err := orderSvc.Cancel(ctx, customer, order.ID, "changed mind")
	require.NoError(t, err, "a committed cancellation must not be undone by a restock failure")
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	stored, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
}

func (f *orderFixture) placeOrder(t *testing.T) *domain.Order {
	t.Helper()
	product := f.seedProduct(t, "Apples 1kg", 300, 0, 20)
	order, err := f.service.Checkout(context.Background(), f.customer, []CheckoutItem{{ProductID: product.ID, Quantity: 3}})
	require.NoError(t, err)
	return order
}

func TestAdvanceRecordsHistory(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()
	order := fixture.placeOrder(t)

	advanced, err := fixture.service.Advance(ctx, fixture.admin, order.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, advanced.Status)

	trail, err := fixture.history.ListByOrder(ctx, order.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.OrderStatusPending, trail[0].OldStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, trail[0].NewStatus)
	assert.Equal(t, fixture.admin.ID, trail[0].ActorID)

	changed := fixture.events.ofType(events.EventOrderStatusChanged)
	require.Len(t, changed, 1)
}

func TestAdvanceSkippingStageFails(t *testing.T) {
	fixture := newOrderFixture(t)
	order := fixture.placeOrder(t)

	_, err := fixture.service.Advance(context.Background(), fixture.admin, order.ID, domain.OrderStatusShipped)
	var stateErr *domain.StateError
	require.ErrorAs(t, err, &stateErr)

	stored, _ := fixture.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestAdvanceConcurrentConflict(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()
	order := fixture.placeOrder(t)

	// A second operator read the order while it was still pending.
	snapshot := *order
	_, err := fixture.service.Advance(ctx, fixture.admin, order.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)

	fixture.orders.stale = &snapshot
	_, err = fixture.service.Advance(ctx, fixture.admin, order.ID, domain.OrderStatusConfirmed)
	var stateErr *domain.StateError
	require.ErrorAs(t, err, &stateErr)

	fixture.orders.stale = nil
	stored, _ := fixture.orders.GetByID(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
}

func TestCancelByCustomerRestocks(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()
	order := fixture.placeOrder(t)
	productID := order.Items[0].ProductID

	before, _ := fixture.products.GetByID(ctx, productID)
	assert.Equal(t, 17, before.StockQuantity)

	cancelled, err := fixture.service.Cancel(ctx, fixture.customer, order.ID, "changed mind")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, fixture.customer.ID, *cancelled.CancelledBy)
	assert.Equal(t, "changed mind", cancelled.CancellationReason)

	after, _ := fixture.products.GetByID(ctx, productID)
	assert.Equal(t, 20, after.StockQuantity)

	trail, _ := fixture.history.ListByOrder(ctx, order.ID, 10, 0)
	require.Len(t, trail, 1)
	assert.Equal(t, "changed mind", trail[0].Comment)
}

func TestCancelEligibilityThroughService(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()

	// Walk an order into processing, then verify neither role can cancel.
	order := fixture.placeOrder(t)
	_, err := fixture.service.Advance(ctx, fixture.admin, order.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = fixture.service.Advance(ctx, fixture.admin, order.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)

	_, err = fixture.service.Cancel(ctx, fixture.customer, order.ID, "too late")
	var authzErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	_, err = fixture.service.Cancel(ctx, fixture.admin, order.ID, "too late")
	var stateErr *domain.StateError
	require.ErrorAs(t, err, &stateErr)

	stored, _ := fixture.orders.GetByID(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
}

func TestGetForActorEnforcesOwnership(t *testing.T) {
	fixture := newOrderFixture(t)
	ctx := context.Background()
	order := fixture.placeOrder(t)
	stranger := &domain.Account{ID: "acc-stranger", Role: domain.RoleCustomer}

	_, err := fixture.service.GetForActor(ctx, stranger, order.ID)
	var authzErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	got, err := fixture.service.GetForActor(ctx, fixture.customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = fixture.service.GetForActor(ctx, fixture.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestListAllRequiresAdmin(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.placeOrder(t)

	_, err := fixture.service.ListAll(context.Background(), fixture.customer, orderFilterAll())
	var authzErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	orders, err := fixture.service.ListAll(context.Background(), fixture.admin, orderFilterAll())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
