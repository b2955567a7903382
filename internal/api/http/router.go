package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Messages *handlers.TicketMessagesHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/ticket", cfg.Tickets.CreateTicket)
	app.Get("/ticket", cfg.Tickets.ListTickets)
	app.Get("/ticket/:id", cfg.Tickets.GetTicket)
	app.Patch("/ticket/:id/resolve", cfg.Tickets.ResolveTicket)

	app.Post("/ticket-message/:id", cfg.Messages.CreateMessage)
	app.Patch("/ticket-message/:id", cfg.Messages.UpdateMessage)
	app.Patch("/ticket-message/:id/publish", cfg.Messages.PublishMessage)
}
