package service

import (
    "context"
    "log"
    "math"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/queue"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/utils"
)

// TicketRequest is one line of a purchase: a ticket type and how many
// tickets of it the buyer wants.
type TicketRequest struct {
    TicketTypeID uint64 `json:"ticket_type_id" validate:"required,gt=0"`
    Quantity     uint32 `json:"quantity" validate:"required,gt=0"`
}

// TypeAvailability is one row of an availability snapshot.
type TypeAvailability struct {
    TicketTypeID uint64 `json:"ticket_type_id"`
    Name         string `json:"name"`
    PriceCents   uint32 `json:"price_cents"`
    Capacity     uint32 `json:"capacity"`
    Available    uint32 `json:"available"`
    OnSale       bool   `json:"on_sale"`
}

// referenceAttempts bounds the collision-retry loop for booking
// references. With an 8-character code collisions are vanishingly
// rare; hitting the bound means something else is wrong.
const referenceAttempts = 5

// BookingService drives the booking lifecycle and coordinates
// reservations. Purchase is all-or-nothing: every inventory
// reservation made during a failed attempt is released (in LIFO
// order) before the error is returned, so a failed purchase leaves no
// trace. Transitions out of PENDING and CONFIRMED go through guarded
// status updates, so the lifecycle only ever moves forward.
type BookingService struct {
    events      EventStore
    types       TicketTypeStore
    ledger      InventoryLedger
    bookings    BookingStore
    credentials *CredentialService
    publisher   EventPublisher
    now         func() time.Time
}

// NewBookingService wires a BookingService. publisher may be nil, in
// which case domain events are not emitted.
func NewBookingService(events EventStore, types TicketTypeStore, ledger InventoryLedger,
    bookings BookingStore, credentials *CredentialService, publisher EventPublisher) *BookingService {
    if events == nil || types == nil || ledger == nil || bookings == nil || credentials == nil {
        panic("nil store passed to NewBookingService")
    }
    return &BookingService{
        events:      events,
        types:       types,
        ledger:      ledger,
        bookings:    bookings,
        credentials: credentials,
        publisher:   publisher,
        now:         func() time.Time { return time.Now().UTC() },
    }
}

// purchasableEvent loads the event and verifies it can currently be
// purchased against: published and not yet started.
func (s *BookingService) purchasableEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
    ev, err := s.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if ev.Status != model.EventStatusPublished {
        return nil, validationf("event %d is not open for booking", eventID)
    }
    if !ev.StartsAt.After(s.now()) {
        return nil, validationf("event %d has already started", eventID)
    }
    return ev, nil
}

// validateRequests checks every ticket request against the event's
// ticket types and returns the resolved types keyed by ID. Nothing is
// reserved during validation.
func (s *BookingService) validateRequests(ctx context.Context, eventID uint64, reqs []TicketRequest) (map[uint64]*model.TicketType, error) {
    if len(reqs) == 0 {
        return nil, validationf("at least one ticket request is required")
    }
    now := s.now()
    resolved := make(map[uint64]*model.TicketType, len(reqs))
    for _, req := range reqs {
        if req.Quantity == 0 {
            return nil, validationf("quantity must be positive for ticket type %d", req.TicketTypeID)
        }
        if _, dup := resolved[req.TicketTypeID]; dup {
            return nil, validationf("duplicate ticket type %d in request", req.TicketTypeID)
        }
        tt, err := s.types.GetByID(ctx, req.TicketTypeID)
        if err != nil {
            return nil, err
        }
        if tt.EventID != eventID {
            return nil, validationf("ticket type %d does not belong to event %d", tt.ID, eventID)
        }
        if !tt.OnSaleAt(now) {
            return nil, validationf("ticket type %d is not on sale", tt.ID)
        }
        resolved[tt.ID] = tt
    }
    return resolved, nil
}

// Purchase validates the request, reserves inventory for every line
// and creates a PENDING booking with unit prices snapshotted at this
// moment. If any reservation or the booking insert fails, all
// reservations made in this call are released in reverse order and
// the error is returned: there is no partial purchase.
func (s *BookingService) Purchase(ctx context.Context, buyerID, eventID uint64, reqs []TicketRequest) (*model.Booking, error) {
    if _, err := s.purchasableEvent(ctx, eventID); err != nil {
        return nil, err
    }
    resolved, err := s.validateRequests(ctx, eventID, reqs)
    if err != nil {
        return nil, err
    }

    reserved := make([]TicketRequest, 0, len(reqs))
    releaseAll := func() {
        for i := len(reserved) - 1; i >= 0; i-- {
            if relErr := s.ledger.Release(ctx, reserved[i].TicketTypeID, reserved[i].Quantity); relErr != nil {
                log.Printf("booking: rollback release failed for ticket type %d: %v", reserved[i].TicketTypeID, relErr)
            }
        }
    }
    for _, req := range reqs {
        if err := s.ledger.Reserve(ctx, req.TicketTypeID, req.Quantity); err != nil {
            releaseAll()
            return nil, err
        }
        reserved = append(reserved, req)
    }

    items := make([]model.BookingItem, 0, len(reqs))
    var total uint32
    for _, req := range reqs {
        tt := resolved[req.TicketTypeID]
        items = append(items, model.BookingItem{
            TicketTypeID:   tt.ID,
            Quantity:       req.Quantity,
            UnitPriceCents: tt.PriceCents,
        })
        total += tt.PriceCents * req.Quantity
    }

    booking := &model.Booking{
        UserID:           buyerID,
        EventID:          eventID,
        Status:           model.BookingStatusPending,
        TotalAmountCents: total,
    }
    if err := s.createWithReference(ctx, booking, items); err != nil {
        releaseAll()
        return nil, err
    }
    return booking, nil
}

// createWithReference generates a booking reference and inserts the
// booking, regenerating on the rare reference collision.
func (s *BookingService) createWithReference(ctx context.Context, b *model.Booking, items []model.BookingItem) error {
    var err error
    for attempt := 0; attempt < referenceAttempts; attempt++ {
        b.Reference, err = utils.NewBookingReference()
        if err != nil {
            return err
        }
        err = s.bookings.Create(ctx, b, items)
        if err != repository.ErrDuplicateReference {
            return err
        }
    }
    return err
}

// Confirm transitions a booking from PENDING to CONFIRMED and mints
// its admission credentials. The guarded status update claims the
// transition, so only one confirmer ever mints. If minting fails
// partway, the minted credentials are removed and the booking is
// restored to its prior state before the error surfaces.
func (s *BookingService) Confirm(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    b, err := s.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    ev, err := s.events.GetByID(ctx, b.EventID)
    if err != nil {
        return nil, err
    }
    if err := s.bookings.UpdateStatus(ctx, b.ID, model.BookingStatusPending, model.BookingStatusConfirmed); err != nil {
        if err == repository.ErrConflict {
            return nil, ErrStateConflict
        }
        return nil, err
    }

    items, err := s.bookings.ItemsByBooking(ctx, b.ID)
    if err == nil {
        err = s.mintCredentials(ctx, items, ev.EndsAt)
    }
    if err != nil {
        // Compensation: undo the claim so the booking is retryable.
        for _, it := range items {
            if delErr := s.credentials.store.DeleteByItem(ctx, it.ID); delErr != nil {
                log.Printf("booking: credential cleanup failed for item %d: %v", it.ID, delErr)
            }
        }
        if revErr := s.bookings.UpdateStatus(ctx, b.ID, model.BookingStatusConfirmed, model.BookingStatusPending); revErr != nil {
            log.Printf("booking: failed to restore booking %d to pending: %v", b.ID, revErr)
        }
        return nil, err
    }

    b, err = s.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if s.publisher != nil {
        var count uint32
        for _, it := range items {
            count += it.Quantity
        }
        _ = s.publisher.BookingConfirmed(ctx, queue.BookingConfirmedEvent{
            BookingID:        b.ID,
            Reference:        b.Reference,
            UserID:           b.UserID,
            EventID:          b.EventID,
            EventTitle:       ev.Title,
            TicketCount:      count,
            TotalAmountCents: b.TotalAmountCents,
            ConfirmedAt:      s.now().Format(time.RFC3339),
        })
    }
    return b, nil
}

func (s *BookingService) mintCredentials(ctx context.Context, items []model.BookingItem, eventEnd time.Time) error {
    for _, it := range items {
        if _, err := s.credentials.IssueForItem(ctx, it, eventEnd); err != nil {
            return err
        }
    }
    return nil
}

// Cancel transitions a booking to CANCELLED and releases its
// inventory. A confirmed booking can only be cancelled before the
// event starts; when it had a completed payment, a refund request is
// emitted. Cancelling an already-cancelled booking returns
// ErrStateConflict without side effects.
func (s *BookingService) Cancel(ctx context.Context, bookingID uint64) error {
    b, err := s.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return err
    }
    switch b.Status {
    case model.BookingStatusPending, model.BookingStatusConfirmed:
    default:
        return ErrStateConflict
    }
    wasConfirmed := b.Status == model.BookingStatusConfirmed
    if wasConfirmed {
        ev, err := s.events.GetByID(ctx, b.EventID)
        if err != nil {
            return err
        }
        if !ev.StartsAt.After(s.now()) {
            return ErrStateConflict
        }
    }
    if err := s.bookings.UpdateStatus(ctx, b.ID, b.Status, model.BookingStatusCancelled); err != nil {
        if err == repository.ErrConflict {
            return ErrStateConflict
        }
        return err
    }
    s.releaseItems(ctx, b.ID)

    if s.publisher != nil {
        refund := wasConfirmed && b.PaymentRef != nil
        if refund {
            _ = s.publisher.RefundRequested(ctx, queue.RefundRequestedEvent{
                BookingID:   b.ID,
                PaymentRef:  *b.PaymentRef,
                AmountCents: b.TotalAmountCents,
                RequestedAt: s.now().Format(time.RFC3339),
            })
        }
        _ = s.publisher.BookingCancelled(ctx, queue.BookingCancelledEvent{
            BookingID:      b.ID,
            Reference:      b.Reference,
            UserID:         b.UserID,
            EventID:        b.EventID,
            RefundExpected: refund,
            CancelledAt:    s.now().Format(time.RFC3339),
        })
    }
    return nil
}

// releaseItems returns every item's quantity to the ledger. Failures
// are logged and the remaining items are still released; a stuck
// counter is preferable to inventory that silently never returns.
func (s *BookingService) releaseItems(ctx context.Context, bookingID uint64) {
    items, err := s.bookings.ItemsByBooking(ctx, bookingID)
    if err != nil {
        log.Printf("booking: listing items for release of booking %d failed: %v", bookingID, err)
        return
    }
    for _, it := range items {
        if err := s.ledger.Release(ctx, it.TicketTypeID, it.Quantity); err != nil {
            log.Printf("booking: release failed for ticket type %d: %v", it.TicketTypeID, err)
        }
    }
}

// MarkRefunded records an externally completed refund on a confirmed
// booking. Inventory is deliberately not released: the admission
// credentials were already issued and must not be resold.
func (s *BookingService) MarkRefunded(ctx context.Context, bookingID uint64) error {
    if err := s.bookings.UpdateStatus(ctx, bookingID, model.BookingStatusConfirmed, model.BookingStatusRefunded); err != nil {
        if err == repository.ErrConflict {
            return ErrStateConflict
        }
        return err
    }
    return nil
}

// PaymentSucceeded is the payment collaborator's success signal.
func (s *BookingService) PaymentSucceeded(ctx context.Context, bookingID uint64, paymentRef string) (*model.Booking, error) {
    if paymentRef != "" {
        if err := s.bookings.SetPaymentRef(ctx, bookingID, paymentRef); err != nil {
            return nil, err
        }
    }
    return s.Confirm(ctx, bookingID)
}

// PaymentFailed cancels the pending booking so its inventory returns
// to the pool.
func (s *BookingService) PaymentFailed(ctx context.Context, bookingID uint64) error {
    return s.Cancel(ctx, bookingID)
}

// DestroyPending rolls a pending booking back out of existence:
// inventory released, rows deleted. Used by the group orchestrator to
// undo sibling bookings when a later member's purchase fails. Only
// pending bookings may be destroyed.
func (s *BookingService) DestroyPending(ctx context.Context, bookingID uint64) error {
    b, err := s.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return err
    }
    if b.Status != model.BookingStatusPending {
        return ErrStateConflict
    }
    s.releaseItems(ctx, b.ID)
    return s.bookings.Delete(ctx, b.ID)
}

// Availability returns a per-ticket-type snapshot for an event.
func (s *BookingService) Availability(ctx context.Context, eventID uint64) ([]TypeAvailability, error) {
    if _, err := s.events.GetByID(ctx, eventID); err != nil {
        return nil, err
    }
    types, err := s.types.ListByEvent(ctx, eventID)
    if err != nil {
        return nil, err
    }
    now := s.now()
    out := make([]TypeAvailability, 0, len(types))
    for i := range types {
        t := &types[i]
        out = append(out, TypeAvailability{
            TicketTypeID: t.ID,
            Name:         t.Name,
            PriceCents:   t.PriceCents,
            Capacity:     t.Capacity,
            Available:    t.Available(),
            OnSale:       t.OnSaleAt(now),
        })
    }
    return out, nil
}

// CancelEventBookings cancels every PENDING and CONFIRMED booking of
// an event. Invoked when an organizer cancels the event itself.
// Individual failures are logged and the sweep continues.
func (s *BookingService) CancelEventBookings(ctx context.Context, eventID uint64) (int, error) {
    active, err := s.bookings.ListActiveByEvent(ctx, eventID)
    if err != nil {
        return 0, err
    }
    cancelled := 0
    for _, b := range active {
        if err := s.Cancel(ctx, b.ID); err != nil {
            log.Printf("booking: event cancellation could not cancel booking %d: %v", b.ID, err)
            continue
        }
        cancelled++
    }
    return cancelled, nil
}

// ExpireStale cancels pending bookings older than ttl, releasing the
// inventory abandoned carts would otherwise hold forever. Returns the
// number of bookings expired.
func (s *BookingService) ExpireStale(ctx context.Context, ttl time.Duration, limit int) (int, error) {
    cutoff := s.now().Add(-ttl)
    stale, err := s.bookings.ExpiredPending(ctx, cutoff, limit)
    if err != nil {
        return 0, err
    }
    expired := 0
    for _, b := range stale {
        if err := s.Cancel(ctx, b.ID); err != nil {
            log.Printf("booking: expiry could not cancel booking %d: %v", b.ID, err)
            continue
        }
        expired++
    }
    return expired, nil
}

// discountCents rounds a discount amount to whole cents.
func discountCents(totalCents uint32, rate float64) uint32 {
    return uint32(math.Round(float64(totalCents) * rate))
}
