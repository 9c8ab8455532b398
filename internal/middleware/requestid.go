package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// RequestIDHeader is the header carrying the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a UUID unless the client already
// supplied one, and echoes it on the response so log lines and client
// reports can be correlated.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(RequestIDHeader)
            if id == "" {
                id = uuid.NewString()
            }
            c.Set("request_id", id)
            c.Response().Header().Set(RequestIDHeader, id)
            return next(c)
        }
    }
}
