package service

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/utils"
)

// confirmBooking purchases and confirms a booking, returning it with
// the QR payloads of its tickets.
func confirmBooking(t *testing.T, store *memStore, booking *BookingService, creds *CredentialService,
    userID uint64, eventID, typeID uint64, qty uint32) (*model.Booking, []IssuedTicket) {
    t.Helper()
    ctx := context.Background()
    b, err := booking.Purchase(ctx, userID, eventID, []TicketRequest{{TicketTypeID: typeID, Quantity: qty}})
    require.NoError(t, err)
    b, err = booking.Confirm(ctx, b.ID)
    require.NoError(t, err)
    tickets, err := creds.TicketsForBooking(ctx, b.ID)
    require.NoError(t, err)
    require.Len(t, tickets, int(qty))
    return b, tickets
}

func TestValidateAndCheckIn(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    booking, _, creds, pub := newTestServices(store)
    ctx := context.Background()

    _, tickets := confirmBooking(t, store, booking, creds, 7, ev.ID, ga.ID, 2)

    cr, err := creds.Validate(ctx, tickets[0].QRPayload)
    require.NoError(t, err)
    assert.False(t, cr.Used())

    res, err := creds.CheckIn(ctx, tickets[0].QRPayload, 501)
    require.NoError(t, err)
    assert.Equal(t, cr.BookingItemID, res.BookingItemID)

    // A consumed credential validates as generically invalid.
    _, err = creds.Validate(ctx, tickets[0].QRPayload)
    assert.ErrorIs(t, err, ErrInvalidCredential)

    // The second ticket of the same item is untouched.
    _, err = creds.CheckIn(ctx, tickets[1].QRPayload, 501)
    require.NoError(t, err)

    require.Len(t, pub.checkedIn, 2)
    assert.Equal(t, uint64(501), pub.checkedIn[0].OperatorID)
}

func TestCheckInIsSingleUse(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    booking, _, creds, _ := newTestServices(store)
    ctx := context.Background()

    _, tickets := confirmBooking(t, store, booking, creds, 7, ev.ID, ga.ID, 1)

    _, err := creds.CheckIn(ctx, tickets[0].QRPayload, 501)
    require.NoError(t, err)
    _, err = creds.CheckIn(ctx, tickets[0].QRPayload, 502)
    assert.ErrorIs(t, err, repository.ErrCredentialUsed)
}

func TestValidateRejectsTamperedAndForeignPayloads(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    booking, _, creds, _ := newTestServices(store)
    ctx := context.Background()

    _, tickets := confirmBooking(t, store, booking, creds, 7, ev.ID, ga.ID, 1)

    cases := map[string]string{
        "garbage":        "not-a-jwt",
        "empty":          "",
        "tampered":       tickets[0].QRPayload + "x",
        "foreign secret": mustForeignPayload(t),
    }
    for name, payload := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := creds.Validate(ctx, payload)
            assert.ErrorIs(t, err, ErrInvalidCredential)
        })
    }
}

// mustForeignPayload builds a structurally valid payload signed with a
// different secret; the signature check must reject it.
func mustForeignPayload(t *testing.T) string {
    t.Helper()
    payload, err := utils.NewQRPayload("other-secret", utils.QRPayload{
        BookingItemID: 1,
        TicketNumber:  1,
        Token:         "abc",
        ExpiresAt:     time.Now().Add(time.Hour),
    })
    require.NoError(t, err)
    return payload
}

func TestValidateRejectsCancelledBooking(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    booking, _, creds, _ := newTestServices(store)
    ctx := context.Background()

    b, tickets := confirmBooking(t, store, booking, creds, 7, ev.ID, ga.ID, 1)
    require.NoError(t, booking.Cancel(ctx, b.ID))

    _, err := creds.Validate(ctx, tickets[0].QRPayload)
    assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestValidateAcceptsRefundedBooking(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    booking, _, creds, _ := newTestServices(store)
    ctx := context.Background()

    b, tickets := confirmBooking(t, store, booking, creds, 7, ev.ID, ga.ID, 1)
    require.NoError(t, booking.MarkRefunded(ctx, b.ID))

    // A refund does not revoke already-issued credentials.
    _, err := creds.Validate(ctx, tickets[0].QRPayload)
    assert.NoError(t, err)
}

func TestValidateRejectsExpiredCredential(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    booking, _, creds, _ := newTestServices(store)
    ctx := context.Background()

    _, tickets := confirmBooking(t, store, booking, creds, 7, ev.ID, ga.ID, 1)

    // Jump past event end plus the grace period.
    creds.now = func() time.Time { return ev.EndsAt.Add(7 * time.Hour) }
    _, err := creds.Validate(ctx, tickets[0].QRPayload)
    assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestBulkCheckIn(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 20)
    booking, _, creds, _ := newTestServices(store)
    ctx := context.Background()

    b1, tickets1 := confirmBooking(t, store, booking, creds, 7, ev.ID, ga.ID, 3)
    b2, _ := confirmBooking(t, store, booking, creds, 8, ev.ID, ga.ID, 2)

    // One ticket of the first booking is already used.
    _, err := creds.CheckIn(ctx, tickets1[0].QRPayload, 501)
    require.NoError(t, err)

    results := creds.BulkCheckIn(ctx, []string{b1.Reference, b2.Reference, "TKT-NOSUCH"}, 501)
    require.Len(t, results, 3)

    assert.Equal(t, 2, results[0].CheckedIn)
    assert.Equal(t, 1, results[0].Skipped)
    assert.Empty(t, results[0].Error)

    assert.Equal(t, 2, results[1].CheckedIn)
    assert.Equal(t, 0, results[1].Skipped)

    assert.Equal(t, 0, results[2].CheckedIn)
    assert.NotEmpty(t, results[2].Error)
}

func TestBulkCheckInSkipsPendingBooking(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    booking, _, creds, _ := newTestServices(store)
    ctx := context.Background()

    b, err := booking.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 2}})
    require.NoError(t, err)

    results := creds.BulkCheckIn(ctx, []string{b.Reference}, 501)
    require.Len(t, results, 1)
    assert.Equal(t, 0, results[0].CheckedIn)
    assert.NotEmpty(t, results[0].Error)
}
