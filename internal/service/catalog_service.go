package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/repository"
)

const (
	categoriesCacheKey  = "catalog:categories"
	hotProductsCacheKey = "catalog:products:hot"
)

// CatalogService serves the product catalog with cache-aside reads.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	ProductRepo  repository.ProductRepository
	CategoryRepo repository.CategoryRepository
	Cache        *redis.Client
	CacheTTL     time.Duration
	Logger       *zap.Logger
}

// ProductInput describes product create/update payloads.
type ProductInput struct {
	CategoryID      string
	Name            string
	Description     string
	PriceCents      int64
	DiscountPercent int
	StockQuantity   int
	Active          bool
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	return &CatalogService{
		products:   deps.ProductRepo,
		categories: deps.CategoryRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		logger:     deps.Logger,
	}
}

// InvalidateCategories drops the cached category list after a change made
// outside this service, such as an approved category request.
func (s *CatalogService) InvalidateCategories(ctx context.Context) {
	s.cacheInvalidate(ctx, categoriesCacheKey)
}

// ListCategories returns all categories, serving from cache when warm.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	if s.cacheGet(ctx, categoriesCacheKey, &cached) {
		return cached, nil
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, categoriesCacheKey, categories)
	return categories, nil
}

// ListProducts returns products matching the filter. The unfiltered first
// page is the hot path and the only one cached.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	hot := filter.CategoryID == nil && filter.ManagedBy == nil && filter.SearchTerm == nil &&
		filter.MinPriceCents == nil && filter.MaxPriceCents == nil && filter.Offset == 0

	if hot {
		var cached []domain.Product
		if s.cacheGet(ctx, hotProductsCacheKey, &cached) {
			return cached, nil
		}
	}

	products, err := s.products.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if hot {
		s.cacheSet(ctx, hotProductsCacheKey, products)
	}
	return products, nil
}

// GetProduct fetches a single product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// CreateProduct adds a catalog item. Store managers own what they create.
func (s *CatalogService) CreateProduct(ctx context.Context, actor *domain.Account, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if !category.Active {
		return nil, domain.NewValidationError("category is inactive")
	}

	product := &domain.Product{
		CategoryID:      category.ID,
		ManagedBy:       actor.ID,
		Name:            strings.TrimSpace(input.Name),
		Description:     strings.TrimSpace(input.Description),
		PriceCents:      input.PriceCents,
		DiscountPercent: input.DiscountPercent,
		StockQuantity:   input.StockQuantity,
		Active:          input.Active,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, hotProductsCacheKey)
	return product, nil
}

// UpdateProduct edits a catalog item. Admins may edit anything; store
// managers only products they manage.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor *domain.Account, productID string, input ProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && product.ManagedBy != actor.ID {
		return nil, domain.NewAuthorizationError("not allowed to edit this product")
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product.CategoryID = input.CategoryID
	product.Name = strings.TrimSpace(input.Name)
	product.Description = strings.TrimSpace(input.Description)
	product.PriceCents = input.PriceCents
	product.DiscountPercent = input.DiscountPercent
	product.StockQuantity = input.StockQuantity
	product.Active = input.Active
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, hotProductsCacheKey)
	return product, nil
}

func validateProductInput(input ProductInput) error {
	var missing []string
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if input.CategoryID == "" {
		missing = append(missing, "categoryId")
	}
	if len(missing) > 0 {
		return domain.NewValidationError("missing required fields", missing...)
	}
	if input.PriceCents <= 0 {
		return domain.NewValidationError("price must be positive")
	}
	if input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		return domain.NewValidationError("discount percent must be between 0 and 100")
	}
	if input.StockQuantity < 0 {
		return domain.NewValidationError("stock quantity cannot be negative")
	}
	return nil
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn("corrupt cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CatalogService) cacheInvalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}
