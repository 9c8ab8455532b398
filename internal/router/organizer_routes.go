package router // router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterOrganizer registers ORGANIZER-scoped endpoints under /v1.
// All routes require a valid JWT and the ORGANIZER role.  Ownership of
// the targeted event is verified in the handlers.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ORGANIZER"),
    )

    // ---- Events ----
    g.POST("/events", o.CreateEvent)
    g.GET("/my-events", o.ListMyEvents)
    g.POST("/events/:id/publish", o.Publish)
    g.POST("/events/:id/cancel", o.CancelEvent)
    g.POST("/events/:id/complete", o.CompleteEvent)
    g.GET("/events/:id/bookings", o.ListEventBookings)

    // ---- Ticket types ----
    g.POST("/events/:id/ticket-types", o.CreateTicketType)
    g.GET("/events/:id/ticket-types", o.ListTicketTypes)
    g.PUT("/ticket-types/:ttid/pricing", o.UpdatePricing)
    g.PUT("/ticket-types/:ttid/sale-window", o.UpdateSaleWindow)
}
