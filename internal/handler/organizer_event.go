// This file defines organizer endpoints for managing events and their
// ticket types. Every mutation verifies the caller owns the event;
// status transitions ride on the guarded updates in the repository so
// racing calls cannot double-apply.

package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// OrganizerHandler bundles dependencies for event management.
type OrganizerHandler struct {
    Events   *repository.EventRepo
    Types    *repository.TicketTypeRepo
    Bookings *repository.BookingRepo
    Booking  *service.BookingService
}

func NewOrganizerHandler(events *repository.EventRepo, types *repository.TicketTypeRepo, bookings *repository.BookingRepo, booking *service.BookingService) *OrganizerHandler {
    if events == nil || types == nil || bookings == nil || booking == nil {
        panic("nil dependency passed to NewOrganizerHandler")
    }
    return &OrganizerHandler{Events: events, Types: types, Bookings: bookings, Booking: booking}
}

type createEventReq struct {
    Title    string    `json:"title" validate:"required,min=1,max=200"`
    Venue    string    `json:"venue" validate:"required,min=1,max=200"`
    StartsAt time.Time `json:"starts_at" validate:"required"`
    EndsAt   time.Time `json:"ends_at" validate:"required"`
}

type createTicketTypeReq struct {
    Name         string    `json:"name" validate:"required,min=1,max=100"`
    PriceCents   uint32    `json:"price_cents"`
    Capacity     uint32    `json:"capacity" validate:"required,gt=0"`
    SaleStartsAt time.Time `json:"sale_starts_at" validate:"required"`
    SaleEndsAt   time.Time `json:"sale_ends_at" validate:"required"`
}

type updatePricingReq struct {
    PriceCents uint32 `json:"price_cents"`
    Capacity   uint32 `json:"capacity" validate:"required,gt=0"`
}

type updateSaleWindowReq struct {
    SaleStartsAt time.Time `json:"sale_starts_at" validate:"required"`
    SaleEndsAt   time.Time `json:"sale_ends_at" validate:"required"`
}

type eventResp struct {
    ID       uint64 `json:"id"`
    Title    string `json:"title"`
    Venue    string `json:"venue"`
    StartsAt string `json:"starts_at"`
    EndsAt   string `json:"ends_at"`
    Status   string `json:"status"`
}

type ticketTypeResp struct {
    ID           uint64 `json:"id"`
    EventID      uint64 `json:"event_id"`
    Name         string `json:"name"`
    PriceCents   uint32 `json:"price_cents"`
    Capacity     uint32 `json:"capacity"`
    Reserved     uint32 `json:"reserved"`
    SaleStartsAt string `json:"sale_starts_at"`
    SaleEndsAt   string `json:"sale_ends_at"`
}

func toTicketTypeResp(t *model.TicketType) ticketTypeResp {
    return ticketTypeResp{
        ID:           t.ID,
        EventID:      t.EventID,
        Name:         t.Name,
        PriceCents:   t.PriceCents,
        Capacity:     t.Capacity,
        Reserved:     t.Reserved,
        SaleStartsAt: t.SaleStartsAt.UTC().Format("2006-01-02 15:04:05"),
        SaleEndsAt:   t.SaleEndsAt.UTC().Format("2006-01-02 15:04:05"),
    }
}

func toEventResp(ev *model.Event) eventResp {
    return eventResp{
        ID:       ev.ID,
        Title:    ev.Title,
        Venue:    ev.Venue,
        StartsAt: ev.StartsAt.UTC().Format("2006-01-02 15:04:05"),
        EndsAt:   ev.EndsAt.UTC().Format("2006-01-02 15:04:05"),
        Status:   ev.Status,
    }
}

// ownedEvent loads the event and verifies the caller is its organizer.
func (h *OrganizerHandler) ownedEvent(c echo.Context, eventID uint64) (*model.Event, error) {
    uid, err := getUserID(c)
    if err != nil {
        return nil, repository.ErrForbidden
    }
    ev, err := h.Events.GetByID(c.Request().Context(), eventID)
    if err != nil {
        return nil, err
    }
    if ev.OrganizerID != uid {
        return nil, repository.ErrForbidden
    }
    return ev, nil
}

// CreateEvent creates a DRAFT event owned by the caller.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createEventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    if !req.EndsAt.After(req.StartsAt) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
    }
    ev := &model.Event{
        OrganizerID: uid,
        Title:       req.Title,
        Venue:       req.Venue,
        StartsAt:    req.StartsAt.UTC(),
        EndsAt:      req.EndsAt.UTC(),
    }
    if err := h.Events.Create(c.Request().Context(), ev); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
    }
    return c.JSON(http.StatusCreated, toEventResp(ev))
}

// ListMyEvents returns every event owned by the caller.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    events, err := h.Events.ListByOrganizer(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]eventResp, 0, len(events))
    for i := range events {
        out = append(out, toEventResp(&events[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Publish moves a DRAFT event to PUBLISHED, opening it for booking.
func (h *OrganizerHandler) Publish(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.ownedEvent(c, id); err != nil {
        return respondErr(c, err)
    }
    ctx := c.Request().Context()
    types, err := h.Types.ListByEvent(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if len(types) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event has no ticket types"})
    }
    if err := h.Events.UpdateStatus(ctx, id, model.EventStatusDraft, model.EventStatusPublished); err != nil {
        return respondErr(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// CancelEvent cancels a published event and every active booking on
// it. Cancelled bookings release their inventory and trigger refund
// requests where a payment had completed.
func (h *OrganizerHandler) CancelEvent(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.ownedEvent(c, id); err != nil {
        return respondErr(c, err)
    }
    ctx := c.Request().Context()
    if err := h.Events.UpdateStatus(ctx, id, model.EventStatusPublished, model.EventStatusCancelled); err != nil {
        return respondErr(c, err)
    }
    cancelled, err := h.Booking.CancelEventBookings(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking cancellation failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"cancelled_bookings": cancelled})
}

// CompleteEvent marks a published event as COMPLETED after it ends.
func (h *OrganizerHandler) CompleteEvent(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ev, err := h.ownedEvent(c, id)
    if err != nil {
        return respondErr(c, err)
    }
    if time.Now().UTC().Before(ev.EndsAt) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event has not ended yet"})
    }
    if err := h.Events.UpdateStatus(c.Request().Context(), id, model.EventStatusPublished, model.EventStatusCompleted); err != nil {
        return respondErr(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// CreateTicketType adds a priced admission category to an event.
func (h *OrganizerHandler) CreateTicketType(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.ownedEvent(c, id); err != nil {
        return respondErr(c, err)
    }
    var req createTicketTypeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    if !req.SaleEndsAt.After(req.SaleStartsAt) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sale_ends_at must be after sale_starts_at"})
    }
    tt := &model.TicketType{
        EventID:      id,
        Name:         req.Name,
        PriceCents:   req.PriceCents,
        Capacity:     req.Capacity,
        SaleStartsAt: req.SaleStartsAt.UTC(),
        SaleEndsAt:   req.SaleEndsAt.UTC(),
    }
    if err := h.Types.Create(c.Request().Context(), tt); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket type failed"})
    }
    return c.JSON(http.StatusCreated, toTicketTypeResp(tt))
}

// ListTicketTypes returns the ticket types of an owned event with
// their live reserved counters.
func (h *OrganizerHandler) ListTicketTypes(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.ownedEvent(c, id); err != nil {
        return respondErr(c, err)
    }
    types, err := h.Types.ListByEvent(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]ticketTypeResp, 0, len(types))
    for i := range types {
        out = append(out, toTicketTypeResp(&types[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListEventBookings returns every booking on an owned event, newest
// first, for attendance planning and refund review.
func (h *OrganizerHandler) ListEventBookings(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.ownedEvent(c, id); err != nil {
        return respondErr(c, err)
    }
    bookings, err := h.Bookings.ListByEvent(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]bookingResp, 0, len(bookings))
    for i := range bookings {
        out = append(out, toBookingResp(&bookings[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ticketTypeOnOwnedEvent resolves a ticket type and verifies the
// caller owns its event.
func (h *OrganizerHandler) ticketTypeOnOwnedEvent(c echo.Context) (*model.TicketType, error) {
    ttID, ok := pathID(c, "ttid")
    if !ok {
        return nil, repository.ErrTicketTypeNotFound
    }
    tt, err := h.Types.GetByID(c.Request().Context(), ttID)
    if err != nil {
        return nil, err
    }
    if _, err := h.ownedEvent(c, tt.EventID); err != nil {
        return nil, err
    }
    return tt, nil
}

// UpdatePricing changes price and capacity. Capacity cannot drop below
// the reserved count.
func (h *OrganizerHandler) UpdatePricing(c echo.Context) error {
    tt, err := h.ticketTypeOnOwnedEvent(c)
    if err != nil {
        return respondErr(c, err)
    }
    var req updatePricingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    if err := h.Types.UpdatePricing(c.Request().Context(), tt.ID, req.PriceCents, req.Capacity); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below reserved count"})
        }
        return respondErr(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// UpdateSaleWindow adjusts when a ticket type is on sale.
func (h *OrganizerHandler) UpdateSaleWindow(c echo.Context) error {
    tt, err := h.ticketTypeOnOwnedEvent(c)
    if err != nil {
        return respondErr(c, err)
    }
    var req updateSaleWindowReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    if !req.SaleEndsAt.After(req.SaleStartsAt) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sale_ends_at must be after sale_starts_at"})
    }
    if err := h.Types.UpdateSaleWindow(c.Request().Context(), tt.ID, req.SaleStartsAt, req.SaleEndsAt); err != nil {
        return respondErr(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
