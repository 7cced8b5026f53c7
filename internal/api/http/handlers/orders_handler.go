package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grocery-service/internal/api/dto"
	"github.com/spec-kit/grocery-service/internal/auth"
	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/repository"
	"github.com/spec-kit/grocery-service/internal/service"
	apperrors "github.com/spec-kit/grocery-service/pkg/util/errorutil"
)

// OrdersHandler exposes checkout and order lifecycle endpoints.
type OrdersHandler struct {
	orders *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orderService *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orderService}
}

// Checkout handles POST /orders.
func (h *OrdersHandler) Checkout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	items := make([]service.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orders.Checkout(c.Context(), principal.Account, items)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// ListMine handles GET /orders.
func (h *OrdersHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	orders, err := h.orders.ListForCustomer(
		c.Context(),
		principal.Account.ID,
		statusesFromQuery(c.Query("status")),
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": orderResponses(orders)})
}

// ListAll handles GET /orders/all (admin).
func (h *OrdersHandler) ListAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	filter := repository.OrderFilter{
		Statuses: statusesFromQuery(c.Query("status")),
		Limit:    c.QueryInt("limit", 50),
		Offset:   c.QueryInt("offset", 0),
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.CustomerID = &customerID
	}

	orders, err := h.orders.ListAll(c.Context(), principal.Account, filter)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": orderResponses(orders)})
}

// Get handles GET /orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	order, err := h.orders.GetForActor(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// Advance handles POST /orders/:id/status (admin).
func (h *OrdersHandler) Advance(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.AdvanceOrderRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return fiber.NewError(http.StatusBadRequest, "status required")
	}

	order, err := h.orders.Advance(
		c.Context(),
		principal.Account,
		c.Params("id"),
		domain.OrderStatus(strings.ToUpper(req.Status)),
	)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// Cancel handles POST /orders/:id/cancel.
func (h *OrdersHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.CancelOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	order, err := h.orders.Cancel(c.Context(), principal.Account, c.Params("id"), req.Reason)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// History handles GET /orders/:id/history.
func (h *OrdersHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	entries, err := h.orders.History(
		c.Context(),
		principal.Account,
		c.Params("id"),
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return apperrors.MapError(err)
	}

	trail := make([]dto.OrderHistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		trail = append(trail, dto.OrderHistoryEntryResponse{
			ActorID:   entry.ActorID,
			ActorRole: string(entry.ActorRole),
			OldStatus: string(entry.OldStatus),
			NewStatus: string(entry.NewStatus),
			Comment:   entry.Comment,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": trail})
}

func statusesFromQuery(param string) []domain.OrderStatus {
	if param == "" {
		return nil
	}
	parts := strings.Split(param, ",")
	statuses := make([]domain.OrderStatus, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			statuses = append(statuses, domain.OrderStatus(strings.ToUpper(trimmed)))
		}
	}
	return statuses
}

func orderResponses(orders []domain.Order) []dto.OrderResponse {
	responses := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, dto.NewOrderResponse(&orders[i]))
	}
	return responses
}
