package model

import "time"

// TicketType is a priced category of admission within one event.  The
// pair of counters capacity/reserved is the authoritative inventory
// record: available = capacity - reserved.  The reserved counter is
// only ever mutated by the inventory ledger under a row-level lock so
// that reserved <= capacity holds at all times.
//
// Fields:
//  ID           – primary key identifier.
//  EventID      – event this ticket type belongs to.
//  Name         – display name (e.g. "General Admission", "VIP").
//  PriceCents   – price in cents for one ticket of this type.
//  Capacity     – total number of sellable tickets.
//  Reserved     – tickets currently sold or pending (never exceeds Capacity).
//  SaleStartsAt – when tickets of this type go on sale.
//  SaleEndsAt   – when the sale window closes.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – timestamp of last update.
type TicketType struct {
    ID           uint64    // ticket_types.id
    EventID      uint64    // ticket_types.event_id
    Name         string    // ticket_types.name
    PriceCents   uint32    // ticket_types.price_cents
    Capacity     uint32    // ticket_types.capacity
    Reserved     uint32    // ticket_types.reserved
    SaleStartsAt time.Time // ticket_types.sale_starts_at
    SaleEndsAt   time.Time // ticket_types.sale_ends_at
    CreatedAt    time.Time // ticket_types.created_at
    UpdatedAt    time.Time // ticket_types.updated_at
}

// Available returns the number of tickets that can still be reserved.
func (t *TicketType) Available() uint32 {
    if t.Reserved >= t.Capacity {
        return 0
    }
    return t.Capacity - t.Reserved
}

// OnSaleAt reports whether the sale window covers the given instant.
func (t *TicketType) OnSaleAt(now time.Time) bool {
    return !now.Before(t.SaleStartsAt) && now.Before(t.SaleEndsAt)
}
