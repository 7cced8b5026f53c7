package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grocery-service/internal/api/http/handlers"
	"github.com/spec-kit/grocery-service/internal/auth"
	"github.com/spec-kit/grocery-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Catalog        *handlers.CatalogHandler
	Orders         *handlers.OrdersHandler
	Requests       *handlers.RequestsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Auth.ChangePassword)

	catalog := app.Group("/catalog")
	catalog.Get("/categories", cfg.Catalog.ListCategories)
	catalog.Get("/products", cfg.Catalog.ListProducts)
	catalog.Get("/products/:id", cfg.Catalog.GetProduct)
	catalog.Post("/products", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleAdmin, domain.RoleStoreManager), cfg.Catalog.CreateProduct)
	catalog.Put("/products/:id", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleAdmin, domain.RoleStoreManager), cfg.Catalog.UpdateProduct)

	orders := app.Group("/orders", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	orders.Post("/", cfg.Orders.Checkout)
	orders.Get("/", cfg.Orders.ListMine)
	orders.Get("/all", auth.RequireRole(domain.RoleAdmin), cfg.Orders.ListAll)
	orders.Get("/:id", cfg.Orders.Get)
	orders.Get("/:id/history", cfg.Orders.History)
	orders.Post("/:id/status", auth.RequireRole(domain.RoleAdmin), cfg.Orders.Advance)
	orders.Post("/:id/cancel", cfg.Orders.Cancel)

	requests := app.Group("/requests", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	requests.Post("/", cfg.Requests.Submit)
	requests.Get("/pending", auth.RequireRole(domain.RoleAdmin), cfg.Requests.ListPending)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Post("/:id/review", auth.RequireRole(domain.RoleAdmin), cfg.Requests.Review)
}
