package model

import "time"

// Event lifecycle statuses as stored in events.status.  An event starts
// in DRAFT, becomes purchasable once PUBLISHED and is immutable after
// COMPLETED.  CANCELLED events release their outstanding bookings.
const (
    EventStatusDraft     = "DRAFT"
    EventStatusPublished = "PUBLISHED"
    EventStatusCancelled = "CANCELLED"
    EventStatusCompleted = "COMPLETED"
)

// Event represents a timed event with finite ticket inventory.  It is
// owned by an organizer and contains one or more ticket types, each
// with its own capacity and sale window.
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who created and manages the event.
//  Title       – public name of the event.
//  Venue       – free-form venue description.
//  StartsAt    – when the event begins.
//  EndsAt      – when the event ends (must be after StartsAt).
//  Status      – current state (DRAFT, PUBLISHED, CANCELLED, COMPLETED).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – timestamp of last update.
type Event struct {
    ID          uint64    // events.id
    OrganizerID uint64    // events.organizer_id
    Title       string    // events.title
    Venue       string    // events.venue
    StartsAt    time.Time // events.starts_at
    EndsAt      time.Time // events.ends_at
    Status      string    // events.status
    CreatedAt   time.Time // events.created_at
    UpdatedAt   time.Time // events.updated_at
}
