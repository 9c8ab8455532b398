// This file defines the payment signal endpoints. The engine never
// talks to a payment gateway; an external collaborator reports the
// outcome of a payment here and the booking lifecycle reacts:
// succeeded confirms, failed cancels, refunded marks the booking
// REFUNDED without releasing inventory.

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/service"
)

// PaymentHandler receives payment outcome signals.
type PaymentHandler struct {
    Booking *service.BookingService
}

func NewPaymentHandler(booking *service.BookingService) *PaymentHandler {
    if booking == nil {
        panic("nil dependency passed to NewPaymentHandler")
    }
    return &PaymentHandler{Booking: booking}
}

type paymentSignalReq struct {
    BookingID  uint64 `json:"booking_id" validate:"required,gt=0"`
    PaymentRef string `json:"payment_ref"`
}

// Succeeded confirms the booking and mints its admission credentials.
// Signals are idempotent at the state machine level: a second
// succeeded signal for the same booking gets a 409.
func (h *PaymentHandler) Succeeded(c echo.Context) error {
    var req paymentSignalReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    b, err := h.Booking.PaymentSucceeded(c.Request().Context(), req.BookingID, req.PaymentRef)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusOK, toBookingResp(b))
}

// Failed cancels the pending booking so its inventory returns to the
// pool immediately instead of waiting for the sweeper.
func (h *PaymentHandler) Failed(c echo.Context) error {
    var req paymentSignalReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    if err := h.Booking.PaymentFailed(c.Request().Context(), req.BookingID); err != nil {
        return respondErr(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Refunded records a completed refund on a confirmed booking. Issued
// credentials stay valid and inventory is not released.
func (h *PaymentHandler) Refunded(c echo.Context) error {
    var req paymentSignalReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    if err := h.Booking.MarkRefunded(c.Request().Context(), req.BookingID); err != nil {
        return respondErr(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
