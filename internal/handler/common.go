package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// The JWT middleware stores raw claim values, so the type varies with how the
// token was decoded.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// respondErr translates service and repository errors into a JSON error
// response. Handlers call it on any error coming out of the service
// layer so status mapping stays in one place.
func respondErr(c echo.Context, err error) error {
    if service.IsValidation(err) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if shortfall, ok := repository.IsInsufficientInventory(err); ok {
        return c.JSON(http.StatusConflict, echo.Map{
            "error":          "insufficient inventory",
            "ticket_type_id": shortfall.TicketTypeID,
            "requested":      shortfall.Requested,
            "available":      shortfall.Available,
        })
    }
    switch {
    case errors.Is(err, repository.ErrEventNotFound),
        errors.Is(err, repository.ErrTicketTypeNotFound),
        errors.Is(err, repository.ErrBookingNotFound),
        errors.Is(err, repository.ErrGroupNotFound),
        errors.Is(err, repository.ErrCredentialNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrStateConflict), errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting state"})
    case errors.Is(err, repository.ErrGroupFull):
        return c.JSON(http.StatusConflict, echo.Map{"error": "group is full"})
    case errors.Is(err, repository.ErrAlreadyMember):
        return c.JSON(http.StatusConflict, echo.Map{"error": "already a member"})
    case errors.Is(err, repository.ErrCredentialUsed):
        return c.JSON(http.StatusConflict, echo.Map{"error": "credential already used"})
    case errors.Is(err, service.ErrInvalidCredential):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid credential"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
