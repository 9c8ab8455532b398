package router

// This file registers staff-only routes: venue check-in and the
// payment signal endpoints.  Payment signals are posted by a trusted
// internal collaborator, so they ride on the STAFF role rather than a
// separate machine identity.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterStaff registers check-in and payment signal endpoints under
// /v1.  All routes require a valid JWT and the STAFF role.
func RegisterStaff(e *echo.Echo, ci *handler.CheckInHandler, pay *handler.PaymentHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("STAFF"),
    )

    // ---- Check-in ----
    g.POST("/checkin/validate", ci.Validate)
    g.POST("/checkin", ci.CheckIn)
    g.POST("/checkin/bulk", ci.BulkCheckIn)

    // ---- Payment signals ----
    g.POST("/payments/succeeded", pay.Succeeded)
    g.POST("/payments/failed", pay.Failed)
    g.POST("/payments/refunded", pay.Refunded)
}
