// Package service implements the booking engine: the reservation
// coordinator, the booking state machine, the group purchase
// orchestrator, the admission credential service and the pending
// sweeper. Services are written against the small store interfaces in
// stores.go so the engine can be exercised in tests with in-memory
// fakes; the MySQL repositories satisfy the interfaces in production.
package service

import (
    "errors"
    "fmt"
)

// ErrInvalidCredential is the single, deliberately non-diagnostic
// error returned for any failed credential validation. Which check
// failed (signature, expiry, unknown token, wrong item) is never
// disclosed to the scanner.
var ErrInvalidCredential = errors.New("invalid credential")

// ErrStateConflict is returned when a lifecycle transition is not
// legal from the booking's or event's current state. The operation is
// a no-op in that case.
var ErrStateConflict = errors.New("state conflict")

// ValidationError reports a malformed or ineligible request. Nothing
// has been reserved when it is returned, so the caller may correct
// the request and retry.
type ValidationError struct {
    Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...interface{}) error {
    return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
    var ve *ValidationError
    return errors.As(err, &ve)
}
