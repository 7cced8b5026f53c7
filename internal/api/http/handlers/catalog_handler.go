package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grocery-service/internal/api/dto"
	"github.com/spec-kit/grocery-service/internal/auth"
	"github.com/spec-kit/grocery-service/internal/repository"
	"github.com/spec-kit/grocery-service/internal/service"
	apperrors "github.com/spec-kit/grocery-service/pkg/util/errorutil"
)

// CatalogHandler exposes product and category endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalogService}
}

// ListCategories handles GET /catalog/categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": categories})
}

// ListProducts handles GET /catalog/products.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	filter := repository.ProductFilter{
		ActiveOnly: true,
		Limit:      c.QueryInt("limit", 50),
		Offset:     c.QueryInt("offset", 0),
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	if min := int64(c.QueryInt("min_price_cents", 0)); min > 0 {
		filter.MinPriceCents = &min
	}
	if max := int64(c.QueryInt("max_price_cents", 0)); max > 0 {
		filter.MaxPriceCents = &max
	}

	products, err := h.catalog.ListProducts(c.Context(), filter)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": products})
}

// GetProduct handles GET /catalog/products/:id.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.catalog.GetProduct(c.Context(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": product})
}

// CreateProduct handles POST /catalog/products (admin, store manager).
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	product, err := h.catalog.CreateProduct(c.Context(), principal.Account, productInput(req))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": product})
}

// UpdateProduct handles PUT /catalog/products/:id (admin, managing store manager).
func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	product, err := h.catalog.UpdateProduct(c.Context(), principal.Account, c.Params("id"), productInput(req))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": product})
}

func productInput(req dto.ProductRequest) service.ProductInput {
	return service.ProductInput{
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DiscountPercent: req.DiscountPercent,
		StockQuantity:   req.StockQuantity,
		Active:          req.Active,
	}
}
