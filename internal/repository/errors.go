// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without string matching. For example, ErrForbidden
// indicates that the current user is not authorized to operate on a
// resource owned by someone else, while ErrConflict signals that an
// operation cannot proceed because of conflicting state (e.g. a
// status transition guard matched no row).
package repository

import (
    "errors"
    "fmt"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as confirming a booking that is no
// longer pending. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound is returned when an event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrTicketTypeNotFound is returned when a ticket type does not exist.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrBookingNotFound is returned when a booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrGroupNotFound is returned when a group does not exist.
var ErrGroupNotFound = errors.New("group not found")

// ErrGroupFull is returned when joining would exceed max_members.
var ErrGroupFull = errors.New("group is full")

// ErrAlreadyMember is returned when a user joins a group twice.
var ErrAlreadyMember = errors.New("already a group member")

// ErrCredentialNotFound is returned when no matching admission
// credential exists for a token/item pair, or when it has expired.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrCredentialUsed is returned when a credential has already been
// consumed. The consume operation never mutates state in this case,
// which is what makes check-in safe against double submission.
var ErrCredentialUsed = errors.New("credential already used")

// ErrDuplicateReference is returned when a generated booking
// reference or group invite code collides with an existing row.
// Callers regenerate and retry.
var ErrDuplicateReference = errors.New("duplicate reference")

// InsufficientInventoryError reports a failed reservation together
// with the offending ticket type and the shortfall, so the caller can
// retry with a reduced quantity without a second round-trip.
type InsufficientInventoryError struct {
    TicketTypeID uint64
    Requested    uint32
    Available    uint32
}

func (e *InsufficientInventoryError) Error() string {
    return fmt.Sprintf("insufficient inventory for ticket type %d: requested %d, available %d",
        e.TicketTypeID, e.Requested, e.Available)
}

// IsInsufficientInventory reports whether err is an inventory
// shortfall and returns the typed error when it is.
func IsInsufficientInventory(err error) (*InsufficientInventoryError, bool) {
    var ie *InsufficientInventoryError
    if errors.As(err, &ie) {
        return ie, true
    }
    return nil, false
}
