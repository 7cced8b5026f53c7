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

// RequestsHandler exposes the approval-workflow endpoints.
type RequestsHandler struct {
	requests *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{requests: requestService}
}

// Submit handles POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.SubmitRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	request, err := h.requests.Submit(
		c.Context(),
		principal.Account,
		domain.RequestType(strings.ToUpper(req.Type)),
		domain.RequestPriority(strings.ToUpper(req.Priority)),
		req.Data,
	)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// ListPending handles GET /requests/pending.
func (h *RequestsHandler) ListPending(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	filter := repository.RequestFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if typeParam := c.Query("type"); typeParam != "" {
		filter.Types = []domain.RequestType{domain.RequestType(strings.ToUpper(typeParam))}
	}

	requests, err := h.requests.ListPending(c.Context(), principal.Account, filter)
	if err != nil {
		return apperrors.MapError(err)
	}

	responses := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		responses = append(responses, dto.NewRequestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// Get handles GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	request, err := h.requests.Get(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Review handles POST /requests/:id/review.
func (h *RequestsHandler) Review(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ReviewRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	request, err := h.requests.Review(
		c.Context(),
		principal.Account,
		c.Params("id"),
		domain.ReviewAction(strings.ToUpper(req.Action)),
		req.Reason,
		req.Note,
	)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}
