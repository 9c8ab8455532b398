// This file defines handlers for the public browsing API. These routes
// allow unauthenticated users to discover published events and check
// live ticket availability. Organizer-only fields are filtered from
// responses.

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// PublicHandler aggregates dependencies for unauthenticated browsing.
// It produces sanitized responses suitable for public consumption.
type PublicHandler struct {
    Events  *repository.EventRepo
    Booking *service.BookingService
}

func NewPublicHandler(events *repository.EventRepo, booking *service.BookingService) *PublicHandler {
    if events == nil || booking == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Events: events, Booking: booking}
}

// PublicEvent represents an event exposed via the public API. It
// contains only safe fields.
type PublicEvent struct {
    ID       uint64 `json:"id"`
    Title    string `json:"title"`
    Venue    string `json:"venue"`
    StartsAt string `json:"starts_at"`
    EndsAt   string `json:"ends_at"`
}

// ListEvents returns all published events ordered by start time.
// Response JSON contains an "items" array of PublicEvent.
func (h *PublicHandler) ListEvents(c echo.Context) error {
    ctx := c.Request().Context()
    events, err := h.Events.ListPublished(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]PublicEvent, 0, len(events))
    for _, ev := range events {
        out = append(out, PublicEvent{
            ID:       ev.ID,
            Title:    ev.Title,
            Venue:    ev.Venue,
            StartsAt: ev.StartsAt.UTC().Format("2006-01-02 15:04:05"),
            EndsAt:   ev.EndsAt.UTC().Format("2006-01-02 15:04:05"),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetEvent returns one published event. Draft and cancelled events are
// hidden from the public as if they did not exist.
func (h *PublicHandler) GetEvent(c echo.Context) error {
    ctx := c.Request().Context()
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ev, err := h.Events.GetByID(ctx, id)
    if err != nil {
        return respondErr(c, err)
    }
    if ev.Status != model.EventStatusPublished && ev.Status != model.EventStatusCompleted {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    }
    return c.JSON(http.StatusOK, PublicEvent{
        ID:       ev.ID,
        Title:    ev.Title,
        Venue:    ev.Venue,
        StartsAt: ev.StartsAt.UTC().Format("2006-01-02 15:04:05"),
        EndsAt:   ev.EndsAt.UTC().Format("2006-01-02 15:04:05"),
    })
}

// GetAvailability returns the per-ticket-type availability snapshot of
// an event. The snapshot is advisory: the authoritative check happens
// inside the inventory ledger at purchase time.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
    ctx := c.Request().Context()
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    snapshot, err := h.Booking.Availability(ctx, id)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": id, "ticket_types": snapshot})
}
