package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grocery-service/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes. Postgres backs
// accounts, catalog and orders and is required; redis only backs the catalog
// cache, which degrades to direct reads, so a redis outage reports degraded
// rather than not-ready.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by probing the store and the catalog cache.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	status := "ready"

	if err := h.postgres.Ping(ctx); err != nil {
		deps["store"] = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "primary store unavailable",
				"details": deps,
			},
		})
	}
	deps["store"] = "ok"

	if err := h.redis.Ping(ctx); err != nil {
		deps["catalog_cache"] = err.Error()
		status = "degraded"
	} else {
		deps["catalog_cache"] = "ok"
	}

	return c.JSON(fiber.Map{
		"status":       status,
		"service":      h.serviceName,
		"dependencies": deps,
	})
}
