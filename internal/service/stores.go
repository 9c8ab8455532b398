package service

import (
    "context"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/queue"
)

// The store interfaces below are the persistence surface the engine
// runs on. They are satisfied by the repositories in
// internal/repository and by in-memory fakes in the tests.

// EventStore resolves events.
type EventStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// InventoryLedger owns the reserved counter of every ticket type.
// Reserve and Release are atomic; concurrent reserves against the
// same ticket type serialize, so availability can never be observed
// stale by two winners. No other component mutates inventory.
type InventoryLedger interface {
    Reserve(ctx context.Context, ticketTypeID uint64, qty uint32) error
    Release(ctx context.Context, ticketTypeID uint64, qty uint32) error
}

// TicketTypeStore resolves ticket types and their availability.
type TicketTypeStore interface {
    GetByID(ctx context.Context, id uint64) (*model.TicketType, error)
    ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error)
}

// BookingStore persists bookings and their items.
type BookingStore interface {
    Create(ctx context.Context, b *model.Booking, items []model.BookingItem) error
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    GetByReference(ctx context.Context, reference string) (*model.Booking, error)
    GetItem(ctx context.Context, itemID uint64) (*model.BookingItem, error)
    ItemsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingItem, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
    ListActiveByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error)
    UpdateStatus(ctx context.Context, id uint64, from, to string) error
    SetPaymentRef(ctx context.Context, id uint64, paymentRef string) error
    ApplyDiscount(ctx context.Context, id, groupID uint64, rate float64, discountCents, totalCents uint32) error
    Delete(ctx context.Context, id uint64) error
    ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error)
}

// CredentialStore persists admission credentials. Consume operations
// are compare-and-set on used_at.
type CredentialStore interface {
    CreateBatch(ctx context.Context, creds []model.AdmissionCredential) error
    DeleteByItem(ctx context.Context, itemID uint64) error
    ByItem(ctx context.Context, itemID uint64) ([]model.AdmissionCredential, error)
    Consume(ctx context.Context, token string, itemID, operatorID uint64) error
    ConsumeAllForItem(ctx context.Context, itemID, operatorID uint64) (int, error)
    CountByItem(ctx context.Context, itemID uint64) (total, used int, err error)
}

// GroupStore persists ticket groups and memberships.
type GroupStore interface {
    Create(ctx context.Context, g *model.Group) error
    GetByID(ctx context.Context, id uint64) (*model.Group, error)
    GetByInviteCode(ctx context.Context, code string) (*model.Group, error)
    AddMember(ctx context.Context, groupID, userID uint64) error
    Members(ctx context.Context, groupID uint64) ([]model.GroupMember, error)
    IsAdmin(ctx context.Context, groupID, userID uint64) (bool, error)
    AddAggregates(ctx context.Context, groupID uint64, bookings uint32, amountCents, discountCents uint64) error
}

// EventPublisher delivers domain events to the notification
// collaborator. Publishing is best-effort: a broker outage never
// fails the underlying state change, so implementations log and
// return rather than panic.
type EventPublisher interface {
    BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
    BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
    TicketCheckedIn(ctx context.Context, ev queue.TicketCheckedInEvent) error
    RefundRequested(ctx context.Context, ev queue.RefundRequestedEvent) error
}
