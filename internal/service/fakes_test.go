package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/events"
	"github.com/spec-kit/grocery-service/internal/repository"
)

// fakeAccountRepo is an in-memory AccountRepository. It is safe for
// concurrent use so lockout tests can hammer it from multiple goroutines.
type fakeAccountRepo struct {
	mu       sync.Mutex
	nextID   int
	accounts map[string]domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]domain.Account)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	account.ID = fmt.Sprintf("acc-%d", r.nextID)
	r.accounts[account.ID] = *account
	return nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.accounts[account.ID] = *account
	return nil
}

func (r *fakeAccountRepo) UpdateSecurity(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.FailedLoginAttempts = account.FailedLoginAttempts
	stored.LockedUntil = account.LockedUntil
	stored.LastLoginAt = account.LastLoginAt
	r.accounts[account.ID] = stored
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &account, nil
}

func (r *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			copied := account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// mustSeed stores an account as-is and returns its id.
func (r *fakeAccountRepo) mustSeed(account domain.Account) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == "" {
		r.nextID++
		account.ID = fmt.Sprintf("acc-%d", r.nextID)
	}
	r.accounts[account.ID] = account
	return account.ID
}

type fakeResetRepo struct {
	mu     sync.Mutex
	nextID int
	tokens map[string]repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]repository.PasswordResetToken)}
}

func (r *fakeResetRepo) Create(ctx context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	token.ID = fmt.Sprintf("rst-%d", r.nextID)
	r.tokens[token.ID] = *token
	return nil
}

func (r *fakeResetRepo) GetByToken(ctx context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.Token == tokenStr {
			copied := token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeResetRepo) MarkUsed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	usedAt := token.ExpiresAt
	token.UsedAt = &usedAt
	r.tokens[id] = token
	return nil
}

// fakeRequestRepo mimics the status-guarded SaveReview of the Postgres
// implementation. When stale is set, GetByID returns that snapshot instead of
// the stored row, which simulates a read that raced with another reviewer.
type fakeRequestRepo struct {
	mu       sync.Mutex
	nextID   int
	requests map[string]domain.Request
	stale    *domain.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]domain.Request)}
}

func (r *fakeRequestRepo) Create(ctx context.Context, request *domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	request.ID = fmt.Sprintf("req-%d", r.nextID)
	r.requests[request.ID] = *request
	return nil
}

func (r *fakeRequestRepo) SaveReview(ctx context.Context, request *domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[request.ID]
	if !ok || stored.Status != domain.RequestStatusPending {
		return pgx.ErrNoRows
	}
	r.requests[request.ID] = *request
	return nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stale != nil && r.stale.ID == id {
		copied := *r.stale
		return &copied, nil
	}
	request, ok := r.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &request, nil
}

func (r *fakeRequestRepo) ListPending(ctx context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []domain.Request
	for _, request := range r.requests {
		if request.Status == domain.RequestStatusPending {
			pending = append(pending, request)
		}
	}
	return pending, nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	nextID     int
	categories map[string]domain.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[string]domain.Category)}
}

func (r *fakeCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	category.ID = fmt.Sprintf("cat-%d", r.nextID)
	r.categories[category.ID] = *category
	return nil
}

func (r *fakeCategoryRepo) Update(ctx context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.categories[category.ID] = *category
	return nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r *fakeCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Category, 0, len(r.categories))
	for _, category := range r.categories {
		out = append(out, category)
	}
	return out, nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	nextID   int
	products map[string]domain.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[string]domain.Product)}
}

func (r *fakeProductRepo) Create(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	product.ID = fmt.Sprintf("prd-%d", r.nextID)
	r.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &product, nil
}

func (r *fakeProductRepo) ListWithFilter(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, product := range r.products {
		if filter.ActiveOnly && !product.Active {
			continue
		}
		out = append(out, product)
	}
	return out, nil
}

func (r *fakeProductRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if product.StockQuantity+delta < 0 {
		return pgx.ErrNoRows
	}
	product.StockQuantity += delta
	r.products[id] = product
	return nil
}

// fakeOrderRepo mirrors the conditional UpdateStatus of the Postgres
// implementation, with the same stale-read hook as fakeRequestRepo. Create
// reserves stock from the product fake all-or-nothing, like the real
// repository's transaction.
type fakeOrderRepo struct {
	mu       sync.Mutex
	nextID   int
	orders   map[string]domain.Order
	products *fakeProductRepo
	stale    *domain.Order
}

func newFakeOrderRepo(products *fakeProductRepo) *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]domain.Order), products: products}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.products != nil {
		r.products.mu.Lock()
		for i, item := range order.Items {
			product, ok := r.products.products[item.ProductID]
			if !ok || product.StockQuantity < item.Quantity {
				for _, reserved := range order.Items[:i] {
					restored := r.products.products[reserved.ProductID]
					restored.StockQuantity += reserved.Quantity
					r.products.products[reserved.ProductID] = restored
				}
				r.products.mu.Unlock()
				return pgx.ErrNoRows
			}
			product.StockQuantity -= item.Quantity
			r.products.products[item.ProductID] = product
		}
		r.products.mu.Unlock()
	}

	r.nextID++
	order.ID = fmt.Sprintf("ord-%d", r.nextID)
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, order *domain.Order, expected domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok || stored.Status != expected {
		return pgx.ErrNoRows
	}
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stale != nil && r.stale.ID == id {
		copied := *r.stale
		return &copied, nil
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &order, nil
}

func (r *fakeOrderRepo) ListWithFilter(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, order := range r.orders {
		if filter.CustomerID != nil && order.CustomerID != *filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if order.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, order)
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []repository.OrderStatusChange
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *repository.OrderStatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = fmt.Sprintf("hist-%d", len(r.entries)+1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]repository.OrderStatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.OrderStatusChange
	for _, entry := range r.entries {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func requestFilterAll() repository.RequestFilter {
	return repository.RequestFilter{Limit: 100}
}

func orderFilterAll() repository.OrderFilter {
	return repository.OrderFilter{Limit: 100}
}

// recordingDispatcher captures every published event for assertions.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
