package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-service/internal/api/http/handlers"
	"github.com/spec-kit/order-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Orders         *handlers.OrdersHandler
	Broadcast      *handlers.BroadcastHandler
	Reviews        *handlers.ReviewsHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/admin/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/orders", cfg.Orders.List)
	admin.Get("/orders/:id", cfg.Orders.Get)
	admin.Post("/orders/:id/status", cfg.Orders.UpdateStatus)
	admin.Post("/broadcast", cfg.Broadcast.Send)
	admin.Get("/reviews", cfg.Reviews.List)
	admin.Post("/reviews/:id/publish", cfg.Reviews.Publish)
	admin.Get("/stats", cfg.Stats.Get)
}
