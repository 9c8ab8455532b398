package model

import "time"

// AdmissionCredential is a single-use, tokenized proof of one ticket's
// right to enter.  One credential admits exactly one person and is
// consumed at most once: used_at is set via compare-and-set at
// check-in, never cleared.
//
// Fields:
//  ID            – primary key identifier.
//  BookingItemID – booking item this credential belongs to.
//  TicketNumber  – sequence number within the item (1..quantity).
//  Token         – random unguessable token embedded in the QR payload.
//  IssuedAt      – when the credential was minted (at confirmation).
//  ExpiresAt     – event end plus a grace period; not valid afterwards.
//  UsedAt        – when the credential was consumed (null until check-in).
//  CheckedInBy   – operator who performed the check-in (null until used).
type AdmissionCredential struct {
    ID            uint64     // admission_credentials.id
    BookingItemID uint64     // admission_credentials.booking_item_id
    TicketNumber  uint32     // admission_credentials.ticket_number
    Token         string     // admission_credentials.token
    IssuedAt      time.Time  // admission_credentials.issued_at
    ExpiresAt     time.Time  // admission_credentials.expires_at
    UsedAt        *time.Time // admission_credentials.used_at (nullable)
    CheckedInBy   *uint64    // admission_credentials.checked_in_by (nullable)
}

// Used reports whether the credential has already been consumed.
func (c *AdmissionCredential) Used() bool { return c.UsedAt != nil }
