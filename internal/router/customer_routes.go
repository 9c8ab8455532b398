package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role.  Customers can
// purchase tickets, cancel their bookings, view what they own and run
// group bookings.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, g *handler.GroupHandler, jwtSecret string) {
    grp := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("CUSTOMER"),
    )

    // ---- Bookings ----
    grp.POST("/bookings", b.Purchase)
    grp.GET("/bookings", b.List)
    grp.GET("/bookings/:id", b.Get)
    grp.DELETE("/bookings/:id", b.Cancel)

    // ---- Groups ----
    grp.POST("/groups", g.Create)
    grp.POST("/groups/join", g.Join)
    grp.GET("/groups/:id", g.Get)
    grp.POST("/groups/:id/purchase", g.Purchase)
}
