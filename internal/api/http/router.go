package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	WorkItems *handlers.WorkItemsHandler
	Sync      *handlers.SyncHandler
	Dispatch  *handlers.DispatchHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	workitems := app.Group("/workitems")
	workitems.Get("/pending", cfg.WorkItems.ListPending)
	workitems.Post("/:id/complete", cfg.WorkItems.Complete)
	workitems.Post("/:id/escalate", cfg.WorkItems.Escalate)
	workitems.Post("/:id/reassign", cfg.WorkItems.Reassign)

	syncGroup := app.Group("/sync")
	syncGroup.Post("/run", cfg.Sync.Run)
	syncGroup.Get("/status", cfg.Sync.Status)
	syncGroup.Post("/cancel", cfg.Sync.Cancel)

	dispatch := app.Group("/dispatch")
	dispatch.Get("/pool", cfg.Dispatch.Pool)
	dispatch.Post("/publish", cfg.Dispatch.Publish)
}
