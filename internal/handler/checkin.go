// This file defines the staff check-in endpoints: validating a scanned
// QR payload, consuming it and bulk check-in by booking reference.

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/service"
)

// CheckInHandler bundles the credential service behind staff routes.
type CheckInHandler struct {
    Credentials *service.CredentialService
}

func NewCheckInHandler(credentials *service.CredentialService) *CheckInHandler {
    if credentials == nil {
        panic("nil dependency passed to NewCheckInHandler")
    }
    return &CheckInHandler{Credentials: credentials}
}

type scanReq struct {
    QRPayload string `json:"qr_payload" validate:"required"`
}

type bulkCheckInReq struct {
    References []string `json:"references" validate:"required,min=1,max=100,dive,required"`
}

// Validate checks a scanned payload without consuming the credential.
// The response deliberately carries no failure detail beyond "invalid
// credential".
func (h *CheckInHandler) Validate(c echo.Context) error {
    var req scanReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    cr, err := h.Credentials.Validate(c.Request().Context(), req.QRPayload)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "valid":           true,
        "booking_item_id": cr.BookingItemID,
        "ticket_number":   cr.TicketNumber,
        "expires_at":      cr.ExpiresAt,
    })
}

// CheckIn consumes a scanned credential. A second scan of the same
// ticket returns 409.
func (h *CheckInHandler) CheckIn(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req scanReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    res, err := h.Credentials.CheckIn(c.Request().Context(), req.QRPayload, uid)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// BulkCheckIn admits whole bookings by reference. Each reference gets
// its own result row; one bad reference does not fail the batch.
func (h *CheckInHandler) BulkCheckIn(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req bulkCheckInReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    results := h.Credentials.BulkCheckIn(c.Request().Context(), req.References, uid)
    return c.JSON(http.StatusOK, echo.Map{"results": results})
}
