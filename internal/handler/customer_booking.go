// This file defines the customer-facing booking endpoints: purchasing
// tickets, cancelling bookings and listing what the caller owns.
// Confirmation is not exposed here; bookings are confirmed through the
// payment signal endpoints once the payment collaborator reports
// success.

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// BookingHandler bundles the services behind customer booking routes.
type BookingHandler struct {
    Booking     *service.BookingService
    Credentials *service.CredentialService
    Bookings    *repository.BookingRepo
}

func NewBookingHandler(booking *service.BookingService, credentials *service.CredentialService, bookings *repository.BookingRepo) *BookingHandler {
    if booking == nil || credentials == nil || bookings == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Booking: booking, Credentials: credentials, Bookings: bookings}
}

type purchaseReq struct {
    EventID uint64                  `json:"event_id" validate:"required,gt=0"`
    Tickets []service.TicketRequest `json:"tickets" validate:"required,min=1,dive"`
}

// bookingResp is the JSON shape of a booking in responses.
type bookingResp struct {
    ID                  uint64  `json:"id"`
    Reference           string  `json:"reference"`
    EventID             uint64  `json:"event_id"`
    GroupID             *uint64 `json:"group_id,omitempty"`
    Status              string  `json:"status"`
    TotalAmountCents    uint32  `json:"total_amount_cents"`
    DiscountAmountCents uint32  `json:"discount_amount_cents,omitempty"`
    CreatedAt           string  `json:"created_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
    return bookingResp{
        ID:                  b.ID,
        Reference:           b.Reference,
        EventID:             b.EventID,
        GroupID:             b.GroupID,
        Status:              b.Status,
        TotalAmountCents:    b.TotalAmountCents,
        DiscountAmountCents: b.DiscountAmountCents,
        CreatedAt:           b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
    }
}

// Purchase reserves inventory and creates a PENDING booking for the
// caller. On an inventory shortfall the response carries the requested
// and available counts for the offending ticket type.
func (h *BookingHandler) Purchase(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req purchaseReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    b, err := h.Booking.Purchase(c.Request().Context(), uid, req.EventID, req.Tickets)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Cancel cancels the caller's own booking, releasing its inventory.
func (h *BookingHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    b, err := h.Bookings.GetByID(ctx, id)
    if err != nil {
        return respondErr(c, err)
    }
    if b.UserID != uid {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    if err := h.Booking.Cancel(ctx, id); err != nil {
        return respondErr(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// List returns the caller's bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookings, err := h.Bookings.ListByUser(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]bookingResp, 0, len(bookings))
    for i := range bookings {
        out = append(out, toBookingResp(&bookings[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get returns one booking with its items and, when confirmed, the QR
// payloads of its admission credentials.
func (h *BookingHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    b, err := h.Bookings.GetByID(ctx, id)
    if err != nil {
        return respondErr(c, err)
    }
    if b.UserID != uid {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    items, err := h.Bookings.ItemsByBooking(ctx, b.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    type itemResp struct {
        ID             uint64 `json:"id"`
        TicketTypeID   uint64 `json:"ticket_type_id"`
        Quantity       uint32 `json:"quantity"`
        UnitPriceCents uint32 `json:"unit_price_cents"`
    }
    itemsOut := make([]itemResp, 0, len(items))
    for _, it := range items {
        itemsOut = append(itemsOut, itemResp{
            ID:             it.ID,
            TicketTypeID:   it.TicketTypeID,
            Quantity:       it.Quantity,
            UnitPriceCents: it.UnitPriceCents,
        })
    }

    resp := echo.Map{"booking": toBookingResp(b), "items": itemsOut}
    if b.Status == model.BookingStatusConfirmed || b.Status == model.BookingStatusRefunded {
        tickets, err := h.Credentials.TicketsForBooking(ctx, b.ID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ticket lookup failed"})
        }
        resp["tickets"] = tickets
    }
    return c.JSON(http.StatusOK, resp)
}
