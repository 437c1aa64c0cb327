// Package http wires the fiber application: routes and middlewares.
package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsic-bank/dataquality-service/internal/api/http/handlers"
	"github.com/bsic-bank/dataquality-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Tickets           *handlers.TicketsHandler
	Reconciliation    *handlers.ReconciliationHandler
	Kpis              *handlers.KpiHandler
	Automation        *handlers.AutomationHandler
	TokenManager      *auth.TokenManager
	CallbackTokenHash string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	// The automation orchestrator authenticates with the shared callback
	// token, not a portal JWT.
	api.Post("/automation/callback", auth.RequireCallbackToken(cfg.CallbackTokenHash), cfg.Automation.Callback)

	protected := api.Group("", auth.RequireToken(cfg.TokenManager))

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/number/:number", cfg.Tickets.GetByNumber)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/status", cfg.Tickets.Transition)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Get("/:id/history", cfg.Tickets.History)

	reconciliation := protected.Group("/reconciliation")
	reconciliation.Post("/tasks", cfg.Reconciliation.CreateTask)
	reconciliation.Post("/tasks/:id/run", cfg.Reconciliation.Reconcile)
	reconciliation.Post("/tickets/:number/corrections", cfg.Reconciliation.ProposeCorrections)
	reconciliation.Post("/run", cfg.Reconciliation.ReconcileAll)
	reconciliation.Get("/pending", cfg.Reconciliation.ListPending)
	reconciliation.Get("/history", cfg.Reconciliation.ListHistory)
	reconciliation.Get("/stats", cfg.Reconciliation.Stats)

	kpis := protected.Group("/kpis")
	kpis.Post("/calculate", cfg.Kpis.Calculate)
	kpis.Get("/date/:date", cfg.Kpis.ByDate)
	kpis.Get("/agency/:code", cfg.Kpis.ByAgency)
	kpis.Get("/dashboard", cfg.Kpis.Dashboard)
}
