package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Used by load balancers and monitoring to verify the service is up.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Rotates the refresh token and returns a new pair.
    g.POST("/refresh", a.Refresh)
    // Logout accepts a refresh_token in the body; no JWT required.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
    // Authenticated logout without a body revokes every session.
    auth.POST("/logout", a.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints.  The
// PublicHandler returns sanitized event data for guests.  Extra
// middleware (typically the Redis response cache) applies to the
// listing and detail routes only: availability is a live snapshot
// read from the inventory ledger and must never be served stale.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
    e.GET("/v1/events", p.ListEvents, mw...)
    e.GET("/v1/events/:id", p.GetEvent, mw...)
    e.GET("/v1/events/:id/availability", p.GetAvailability)
}
