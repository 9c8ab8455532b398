package model

import "time"

// Booking lifecycle statuses as stored in bookings.status.  A booking
// moves strictly forward: PENDING -> CONFIRMED -> CANCELLED/REFUNDED,
// or PENDING -> CANCELLED.  There is no path back to PENDING.
const (
    BookingStatusPending   = "PENDING"
    BookingStatusConfirmed = "CONFIRMED"
    BookingStatusCancelled = "CANCELLED"
    BookingStatusRefunded  = "REFUNDED"
)

// Booking records one buyer's purchase transaction against an event.
// It aggregates one or more booking items and tracks the overall
// status, totals and the optional group it belongs to.
//
// Fields:
//  ID                  – primary key identifier.
//  Reference           – unique human-shareable code (generated with
//                        collision retry).
//  UserID              – buyer who made the booking.
//  EventID             – event being booked.
//  GroupID             – group this booking belongs to, if any.
//  Status              – state of the booking (PENDING, CONFIRMED,
//                        CANCELLED, REFUNDED).
//  TotalAmountCents    – total price in cents after discount.
//  DiscountAmountCents – amount deducted by a group discount.
//  DiscountRate        – applied discount rate in [0,1].
//  PaymentRef          – external payment reference, if any.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – timestamp of last update.
type Booking struct {
    ID                  uint64    // bookings.id
    Reference           string    // bookings.reference
    UserID              uint64    // bookings.user_id
    EventID             uint64    // bookings.event_id
    GroupID             *uint64   // bookings.group_id (nullable)
    Status              string    // bookings.status
    TotalAmountCents    uint32    // bookings.total_amount_cents
    DiscountAmountCents uint32    // bookings.discount_amount_cents
    DiscountRate        float64   // bookings.discount_rate
    PaymentRef          *string   // bookings.payment_ref (nullable)
    CreatedAt           time.Time // bookings.created_at
    UpdatedAt           time.Time // bookings.updated_at
}

// BookingItem is a quantity of one ticket type inside a booking.  The
// unit price is snapshotted at purchase time and never changes, even
// if the ticket type is repriced later.
//
// Fields:
//  ID             – primary key identifier.
//  BookingID      – booking this item belongs to.
//  TicketTypeID   – ticket type purchased.
//  Quantity       – number of tickets (always > 0).
//  UnitPriceCents – price per ticket in cents at purchase time.
//  CreatedAt      – creation timestamp.
type BookingItem struct {
    ID             uint64    // booking_items.id
    BookingID      uint64    // booking_items.booking_id
    TicketTypeID   uint64    // booking_items.ticket_type_id
    Quantity       uint32    // booking_items.quantity
    UnitPriceCents uint32    // booking_items.unit_price_cents
    CreatedAt      time.Time // booking_items.created_at
}
