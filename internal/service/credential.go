package service

import (
    "context"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/queue"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/utils"
)

// credentialTokenLen is the byte length fed to the random token
// generator; the resulting hex string is twice as long.
const credentialTokenLen = 16

// IssuedTicket pairs a credential with its signed QR payload. The
// payload is what a buyer presents at the door.
type IssuedTicket struct {
    TicketNumber uint32     `json:"ticket_number"`
    QRPayload    string     `json:"qr_payload"`
    ExpiresAt    time.Time  `json:"expires_at"`
    UsedAt       *time.Time `json:"used_at,omitempty"`
}

// CheckInResult describes one consumed credential.
type CheckInResult struct {
    BookingItemID uint64 `json:"booking_item_id"`
    TicketNumber  uint32 `json:"ticket_number"`
}

// BulkCheckInResult reports the outcome of a bulk check-in for one
// booking reference.
type BulkCheckInResult struct {
    Reference string `json:"reference"`
    CheckedIn int    `json:"checked_in"`
    Skipped   int    `json:"skipped"`
    Error     string `json:"error,omitempty"`
}

// CredentialService mints and validates admission credentials. A
// credential is a random single-use token; what leaves the system is a
// signed QR payload wrapping it. Validation never trusts the payload
// alone: token, item and expiry are all re-checked against the stored
// credential, and every failure collapses into ErrInvalidCredential so
// a scanner learns nothing about why a code was rejected.
type CredentialService struct {
    store     CredentialStore
    bookings  BookingStore
    publisher EventPublisher
    secret    string
    grace     time.Duration
    now       func() time.Time
}

// NewCredentialService wires a CredentialService. grace is added to
// the event end time to form the credential expiry, so late leavers
// can still be re-scanned at the door.
func NewCredentialService(store CredentialStore, bookings BookingStore, publisher EventPublisher, secret string, grace time.Duration) *CredentialService {
    if store == nil || bookings == nil {
        panic("nil store passed to NewCredentialService")
    }
    return &CredentialService{
        store:     store,
        bookings:  bookings,
        publisher: publisher,
        secret:    secret,
        grace:     grace,
        now:       func() time.Time { return time.Now().UTC() },
    }
}

// IssueForItem mints one credential per ticket of a booking item,
// numbered 1..quantity. Called at confirmation time only.
func (s *CredentialService) IssueForItem(ctx context.Context, item model.BookingItem, eventEnd time.Time) ([]model.AdmissionCredential, error) {
    issued := s.now()
    expires := eventEnd.UTC().Add(s.grace)
    creds := make([]model.AdmissionCredential, 0, item.Quantity)
    for n := uint32(1); n <= item.Quantity; n++ {
        token, err := utils.RandomToken(credentialTokenLen)
        if err != nil {
            return nil, err
        }
        creds = append(creds, model.AdmissionCredential{
            BookingItemID: item.ID,
            TicketNumber:  n,
            Token:         token,
            IssuedAt:      issued,
            ExpiresAt:     expires,
        })
    }
    if err := s.store.CreateBatch(ctx, creds); err != nil {
        return nil, err
    }
    return creds, nil
}

// TicketsForBooking returns the signed QR payloads for every
// credential of a booking, grouped in item order. Only the booking
// owner should be handed the result; the handler enforces that.
func (s *CredentialService) TicketsForBooking(ctx context.Context, bookingID uint64) ([]IssuedTicket, error) {
    items, err := s.bookings.ItemsByBooking(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    tickets := make([]IssuedTicket, 0)
    for _, it := range items {
        creds, err := s.store.ByItem(ctx, it.ID)
        if err != nil {
            return nil, err
        }
        for _, cr := range creds {
            payload, err := utils.NewQRPayload(s.secret, utils.QRPayload{
                BookingItemID: cr.BookingItemID,
                TicketNumber:  cr.TicketNumber,
                Token:         cr.Token,
                ExpiresAt:     cr.ExpiresAt,
            })
            if err != nil {
                return nil, err
            }
            tickets = append(tickets, IssuedTicket{
                TicketNumber: cr.TicketNumber,
                QRPayload:    payload,
                ExpiresAt:    cr.ExpiresAt,
                UsedAt:       cr.UsedAt,
            })
        }
    }
    return tickets, nil
}

// resolve verifies a scanned payload end to end: signature, stored
// credential, expiry and the owning booking's status. It returns the
// matching stored credential. Every failure, whatever its cause, is
// reported as ErrInvalidCredential.
func (s *CredentialService) resolve(ctx context.Context, payload string) (*model.AdmissionCredential, error) {
    p, err := utils.ParseQRPayload(s.secret, payload)
    if err != nil {
        return nil, ErrInvalidCredential
    }
    item, err := s.bookings.GetItem(ctx, p.BookingItemID)
    if err != nil {
        return nil, ErrInvalidCredential
    }
    b, err := s.bookings.GetByID(ctx, item.BookingID)
    if err != nil {
        return nil, ErrInvalidCredential
    }
    // A refund does not revoke issued credentials; cancellation does.
    if b.Status != model.BookingStatusConfirmed && b.Status != model.BookingStatusRefunded {
        return nil, ErrInvalidCredential
    }
    creds, err := s.store.ByItem(ctx, item.ID)
    if err != nil {
        return nil, ErrInvalidCredential
    }
    for i := range creds {
        cr := &creds[i]
        if cr.Token == p.Token && cr.TicketNumber == p.TicketNumber {
            if !cr.ExpiresAt.After(s.now()) {
                return nil, ErrInvalidCredential
            }
            return cr, nil
        }
    }
    return nil, ErrInvalidCredential
}

// Validate checks a scanned payload without consuming it. An
// already-used credential validates as invalid like any other failure;
// only CheckIn distinguishes the already-used case, since that is the
// operation an operator retries.
func (s *CredentialService) Validate(ctx context.Context, payload string) (*model.AdmissionCredential, error) {
    cr, err := s.resolve(ctx, payload)
    if err != nil {
        return nil, err
    }
    if cr.Used() {
        return nil, ErrInvalidCredential
    }
    return cr, nil
}

// CheckIn consumes a scanned credential. The underlying store update
// is a compare-and-set on used_at, so two gates scanning the same
// ticket at once admit exactly one person.
func (s *CredentialService) CheckIn(ctx context.Context, payload string, operatorID uint64) (*CheckInResult, error) {
    cr, err := s.resolve(ctx, payload)
    if err != nil {
        return nil, err
    }
    if err := s.store.Consume(ctx, cr.Token, cr.BookingItemID, operatorID); err != nil {
        if err == repository.ErrCredentialUsed {
            return nil, repository.ErrCredentialUsed
        }
        return nil, ErrInvalidCredential
    }
    if s.publisher != nil {
        _ = s.publisher.TicketCheckedIn(ctx, queue.TicketCheckedInEvent{
            BookingItemID: cr.BookingItemID,
            TicketNumber:  cr.TicketNumber,
            OperatorID:    operatorID,
            CheckedInAt:   s.now().Format(time.RFC3339),
        })
    }
    return &CheckInResult{BookingItemID: cr.BookingItemID, TicketNumber: cr.TicketNumber}, nil
}

// BulkCheckIn admits whole bookings by reference, for tour groups
// arriving together. Each reference is processed independently:
// already-used credentials are skipped, a bad reference is reported in
// its own result row and the rest of the batch continues.
func (s *CredentialService) BulkCheckIn(ctx context.Context, references []string, operatorID uint64) []BulkCheckInResult {
    results := make([]BulkCheckInResult, 0, len(references))
    for _, ref := range references {
        results = append(results, s.bulkCheckInOne(ctx, ref, operatorID))
    }
    return results
}

func (s *CredentialService) bulkCheckInOne(ctx context.Context, ref string, operatorID uint64) BulkCheckInResult {
    res := BulkCheckInResult{Reference: ref}
    b, err := s.bookings.GetByReference(ctx, ref)
    if err != nil {
        res.Error = "booking not found"
        return res
    }
    if b.Status != model.BookingStatusConfirmed && b.Status != model.BookingStatusRefunded {
        res.Error = "booking not admissible"
        return res
    }
    items, err := s.bookings.ItemsByBooking(ctx, b.ID)
    if err != nil {
        res.Error = "booking not found"
        return res
    }
    for _, it := range items {
        total, _, err := s.store.CountByItem(ctx, it.ID)
        if err != nil {
            res.Error = "check-in failed"
            return res
        }
        n, err := s.store.ConsumeAllForItem(ctx, it.ID, operatorID)
        if err != nil {
            res.Error = "check-in failed"
            return res
        }
        res.CheckedIn += n
        res.Skipped += total - n // already used or expired
    }
    return res
}
