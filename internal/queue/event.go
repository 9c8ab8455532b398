// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used by the publisher and the background consumer.
const (
    BookingConfirmedQueue = "booking.confirmed"
    BookingCancelledQueue = "booking.cancelled"
    TicketCheckedInQueue  = "ticket.checkedin"
    RefundRequestedQueue  = "payment.refund.requested"
)

// BookingConfirmedEvent is published when a booking reaches CONFIRMED
// and its admission credentials have been minted. It carries enough
// information for downstream consumers to notify or log without
// querying the primary database.
type BookingConfirmedEvent struct {
    BookingID        uint64 `json:"booking_id"`
    Reference        string `json:"reference"`
    UserID           uint64 `json:"user_id"`
    EventID          uint64 `json:"event_id"`
    EventTitle       string `json:"event_title"`
    TicketCount      uint32 `json:"ticket_count"`
    TotalAmountCents uint32 `json:"total_amount_cents"`
    ConfirmedAt      string `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled and
// its inventory has been released.
type BookingCancelledEvent struct {
    BookingID      uint64 `json:"booking_id"`
    Reference      string `json:"reference"`
    UserID         uint64 `json:"user_id"`
    EventID        uint64 `json:"event_id"`
    RefundExpected bool   `json:"refund_expected"`
    CancelledAt    string `json:"cancelled_at"`
}

// TicketCheckedInEvent is published for every consumed admission
// credential.
type TicketCheckedInEvent struct {
    BookingItemID uint64 `json:"booking_item_id"`
    TicketNumber  uint32 `json:"ticket_number"`
    OperatorID    uint64 `json:"operator_id"`
    CheckedInAt   string `json:"checked_in_at"`
}

// RefundRequestedEvent asks the payment collaborator to reverse a
// completed payment. The booking engine never talks to a gateway
// directly; it only emits this signal.
type RefundRequestedEvent struct {
    BookingID   uint64 `json:"booking_id"`
    PaymentRef  string `json:"payment_ref"`
    AmountCents uint32 `json:"amount_cents"`
    RequestedAt string `json:"requested_at"`
}
