package service

import (
    "context"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
)

func TestPurchaseCreatesPendingBooking(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 100)
    vip := store.addType(ev.ID, 10000, 10)
    svc, _, _, _ := newTestServices(store)

    b, err := svc.Purchase(context.Background(), 42, ev.ID, []TicketRequest{
        {TicketTypeID: ga.ID, Quantity: 3},
        {TicketTypeID: vip.ID, Quantity: 1},
    })
    require.NoError(t, err)
    assert.Equal(t, model.BookingStatusPending, b.Status)
    assert.Equal(t, uint32(3*2500+10000), b.TotalAmountCents)
    assert.True(t, strings.HasPrefix(b.Reference, "TKT-"), "reference %q", b.Reference)

    gaAfter, _ := store.GetTicketType(context.Background(), ga.ID)
    vipAfter, _ := store.GetTicketType(context.Background(), vip.ID)
    assert.Equal(t, uint32(3), gaAfter.Reserved)
    assert.Equal(t, uint32(1), vipAfter.Reserved)

    items, err := store.ItemsByBooking(context.Background(), b.ID)
    require.NoError(t, err)
    assert.Len(t, items, 2)
    for _, it := range items {
        if it.TicketTypeID == ga.ID {
            assert.Equal(t, uint32(2500), it.UnitPriceCents)
        }
    }
}

func TestPurchaseRejectsBadRequests(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 100)
    draft := store.addEvent(model.EventStatusDraft)
    svc, _, _, _ := newTestServices(store)
    ctx := context.Background()

    cases := []struct {
        name    string
        eventID uint64
        reqs    []TicketRequest
    }{
        {"no tickets", ev.ID, nil},
        {"zero quantity", ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 0}}},
        {"duplicate type", ev.ID, []TicketRequest{
            {TicketTypeID: ga.ID, Quantity: 1}, {TicketTypeID: ga.ID, Quantity: 2},
        }},
        {"unpublished event", draft.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 1}}},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := svc.Purchase(ctx, 1, tc.eventID, tc.reqs)
            require.Error(t, err)
            assert.True(t, IsValidation(err), "want validation error, got %v", err)
        })
    }
    // Nothing was reserved by any failed attempt.
    gaAfter, _ := store.GetTicketType(ctx, ga.ID)
    assert.Equal(t, uint32(0), gaAfter.Reserved)
}

func TestPurchaseInsufficientInventory(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 5)
    svc, _, _, _ := newTestServices(store)

    _, err := svc.Purchase(context.Background(), 1, ev.ID, []TicketRequest{
        {TicketTypeID: ga.ID, Quantity: 6},
    })
    shortfall, ok := repository.IsInsufficientInventory(err)
    require.True(t, ok, "got %v", err)
    assert.Equal(t, uint32(6), shortfall.Requested)
    assert.Equal(t, uint32(5), shortfall.Available)

    gaAfter, _ := store.GetTicketType(context.Background(), ga.ID)
    assert.Equal(t, uint32(0), gaAfter.Reserved)
}

func TestPurchaseRollsBackEarlierReservations(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 100)
    vip := store.addType(ev.ID, 10000, 2)
    svc, _, _, _ := newTestServices(store)

    // The second line fails after the first has reserved.
    _, err := svc.Purchase(context.Background(), 1, ev.ID, []TicketRequest{
        {TicketTypeID: ga.ID, Quantity: 10},
        {TicketTypeID: vip.ID, Quantity: 3},
    })
    _, ok := repository.IsInsufficientInventory(err)
    require.True(t, ok, "got %v", err)

    gaAfter, _ := store.GetTicketType(context.Background(), ga.ID)
    vipAfter, _ := store.GetTicketType(context.Background(), vip.ID)
    assert.Equal(t, uint32(0), gaAfter.Reserved, "earlier reservation must be released")
    assert.Equal(t, uint32(0), vipAfter.Reserved)
}

func TestPurchaseRollsBackWhenInsertFails(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 100)
    svc, _, _, _ := newTestServices(store)

    store.failCreateAt = 1
    _, err := svc.Purchase(context.Background(), 1, ev.ID, []TicketRequest{
        {TicketTypeID: ga.ID, Quantity: 4},
    })
    require.Error(t, err)

    gaAfter, _ := store.GetTicketType(context.Background(), ga.ID)
    assert.Equal(t, uint32(0), gaAfter.Reserved)
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 50)
    svc, _, _, _ := newTestServices(store)

    const buyers = 200
    var wg sync.WaitGroup
    var mu sync.Mutex
    succeeded := 0
    for i := 0; i < buyers; i++ {
        wg.Add(1)
        go func(uid uint64) {
            defer wg.Done()
            _, err := svc.Purchase(context.Background(), uid, ev.ID, []TicketRequest{
                {TicketTypeID: ga.ID, Quantity: 1},
            })
            if err == nil {
                mu.Lock()
                succeeded++
                mu.Unlock()
            }
        }(uint64(i + 1))
    }
    wg.Wait()

    assert.Equal(t, 50, succeeded, "exactly capacity purchases may win")
    gaAfter, _ := store.GetTicketType(context.Background(), ga.ID)
    assert.Equal(t, uint32(50), gaAfter.Reserved)
    assert.Equal(t, uint32(0), gaAfter.Available())
}

func TestConfirmMintsCredentials(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 100)
    svc, _, _, pub := newTestServices(store)
    ctx := context.Background()

    b, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 3}})
    require.NoError(t, err)

    confirmed, err := svc.Confirm(ctx, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

    items, _ := store.ItemsByBooking(ctx, b.ID)
    require.Len(t, items, 1)
    creds, _ := store.ByItem(ctx, items[0].ID)
    require.Len(t, creds, 3)
    seen := map[uint32]bool{}
    for _, cr := range creds {
        assert.NotEmpty(t, cr.Token)
        assert.True(t, cr.ExpiresAt.After(ev.EndsAt), "expiry includes grace period")
        seen[cr.TicketNumber] = true
    }
    assert.Len(t, seen, 3, "ticket numbers are distinct")

    require.Len(t, pub.confirmed, 1)
    assert.Equal(t, b.ID, pub.confirmed[0].BookingID)
    assert.Equal(t, uint32(3), pub.confirmed[0].TicketCount)
}

func TestConfirmIsSingleWinner(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 100)
    svc, _, _, _ := newTestServices(store)
    ctx := context.Background()

    b, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 1}})
    require.NoError(t, err)
    _, err = svc.Confirm(ctx, b.ID)
    require.NoError(t, err)

    _, err = svc.Confirm(ctx, b.ID)
    assert.ErrorIs(t, err, ErrStateConflict)

    items, _ := store.ItemsByBooking(ctx, b.ID)
    creds, _ := store.ByItem(ctx, items[0].ID)
    assert.Len(t, creds, 1, "second confirm must not mint again")
}

func TestConfirmCompensatesWhenMintingFails(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 100)
    svc, _, _, _ := newTestServices(store)
    ctx := context.Background()

    b, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 2}})
    require.NoError(t, err)

    store.failCredBatch = true
    _, err = svc.Confirm(ctx, b.ID)
    require.Error(t, err)

    after, _ := store.GetBooking(ctx, b.ID)
    assert.Equal(t, model.BookingStatusPending, after.Status, "booking restored for retry")
    items, _ := store.ItemsByBooking(ctx, b.ID)
    creds, _ := store.ByItem(ctx, items[0].ID)
    assert.Empty(t, creds)

    // Retry succeeds once minting works again.
    store.failCredBatch = false
    confirmed, err := svc.Confirm(ctx, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
}

func TestCancelPendingReleasesInventory(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    svc, _, _, pub := newTestServices(store)
    ctx := context.Background()

    b, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 4}})
    require.NoError(t, err)
    require.NoError(t, svc.Cancel(ctx, b.ID))

    after, _ := store.GetBooking(ctx, b.ID)
    assert.Equal(t, model.BookingStatusCancelled, after.Status)
    gaAfter, _ := store.GetTicketType(ctx, ga.ID)
    assert.Equal(t, uint32(0), gaAfter.Reserved)
    require.Len(t, pub.cancelled, 1)
    assert.False(t, pub.cancelled[0].RefundExpected)
    assert.Empty(t, pub.refunds)

    // Cancelling again is a conflict, not a double release.
    assert.ErrorIs(t, svc.Cancel(ctx, b.ID), ErrStateConflict)
    gaAgain, _ := store.GetTicketType(ctx, ga.ID)
    assert.Equal(t, uint32(0), gaAgain.Reserved)
}

func TestCancelConfirmedPaidBookingRequestsRefund(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    svc, _, _, pub := newTestServices(store)
    ctx := context.Background()

    b, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 2}})
    require.NoError(t, err)
    _, err = svc.PaymentSucceeded(ctx, b.ID, "pay_123")
    require.NoError(t, err)

    require.NoError(t, svc.Cancel(ctx, b.ID))

    gaAfter, _ := store.GetTicketType(ctx, ga.ID)
    assert.Equal(t, uint32(0), gaAfter.Reserved)
    require.Len(t, pub.refunds, 1)
    assert.Equal(t, "pay_123", pub.refunds[0].PaymentRef)
    require.Len(t, pub.cancelled, 1)
    assert.True(t, pub.cancelled[0].RefundExpected)
}

func TestCancelConfirmedRefusedAfterEventStart(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    svc, _, _, _ := newTestServices(store)
    ctx := context.Background()

    b, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 1}})
    require.NoError(t, err)
    _, err = svc.Confirm(ctx, b.ID)
    require.NoError(t, err)

    // Move the clock past the event start.
    svc.now = func() time.Time { return ev.StartsAt.Add(time.Minute) }
    assert.ErrorIs(t, svc.Cancel(ctx, b.ID), ErrStateConflict)

    after, _ := store.GetBooking(ctx, b.ID)
    assert.Equal(t, model.BookingStatusConfirmed, after.Status)
}

func TestMarkRefundedKeepsInventory(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    svc, _, _, _ := newTestServices(store)
    ctx := context.Background()

    b, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 2}})
    require.NoError(t, err)
    _, err = svc.Confirm(ctx, b.ID)
    require.NoError(t, err)

    require.NoError(t, svc.MarkRefunded(ctx, b.ID))
    after, _ := store.GetBooking(ctx, b.ID)
    assert.Equal(t, model.BookingStatusRefunded, after.Status)

    gaAfter, _ := store.GetTicketType(ctx, ga.ID)
    assert.Equal(t, uint32(2), gaAfter.Reserved, "refund must not release inventory")

    // Only CONFIRMED can be refunded.
    assert.ErrorIs(t, svc.MarkRefunded(ctx, b.ID), ErrStateConflict)
}

func TestExpireStaleCancelsOldPending(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    svc, _, _, _ := newTestServices(store)
    ctx := context.Background()

    stale, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 2}})
    require.NoError(t, err)
    confirmed, err := svc.Purchase(ctx, 8, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 1}})
    require.NoError(t, err)
    _, err = svc.Confirm(ctx, confirmed.ID)
    require.NoError(t, err)

    // Both bookings are old now, but only the pending one expires.
    svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
    n, err := svc.ExpireStale(ctx, 15*time.Minute, 100)
    require.NoError(t, err)
    assert.Equal(t, 1, n)

    staleAfter, _ := store.GetBooking(ctx, stale.ID)
    confirmedAfter, _ := store.GetBooking(ctx, confirmed.ID)
    assert.Equal(t, model.BookingStatusCancelled, staleAfter.Status)
    assert.Equal(t, model.BookingStatusConfirmed, confirmedAfter.Status)

    gaAfter, _ := store.GetTicketType(ctx, ga.ID)
    assert.Equal(t, uint32(1), gaAfter.Reserved, "only the confirmed booking still holds inventory")
}

func TestAvailabilitySnapshot(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 10)
    svc, _, _, _ := newTestServices(store)
    ctx := context.Background()

    _, err := svc.Purchase(ctx, 7, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 4}})
    require.NoError(t, err)

    snapshot, err := svc.Availability(ctx, ev.ID)
    require.NoError(t, err)
    require.Len(t, snapshot, 1)
    assert.Equal(t, uint32(10), snapshot[0].Capacity)
    assert.Equal(t, uint32(6), snapshot[0].Available)
    assert.True(t, snapshot[0].OnSale)
}

func TestCancelEventBookings(t *testing.T) {
    store := newMemStore()
    ev := store.addEvent(model.EventStatusPublished)
    ga := store.addType(ev.ID, 2500, 20)
    svc, _, _, pub := newTestServices(store)
    ctx := context.Background()

    b1, err := svc.Purchase(ctx, 1, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 2}})
    require.NoError(t, err)
    b2, err := svc.Purchase(ctx, 2, ev.ID, []TicketRequest{{TicketTypeID: ga.ID, Quantity: 3}})
    require.NoError(t, err)
    _, err = svc.Confirm(ctx, b2.ID)
    require.NoError(t, err)

    n, err := svc.CancelEventBookings(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, n)

    for _, id := range []uint64{b1.ID, b2.ID} {
        b, _ := store.GetBooking(ctx, id)
        assert.Equal(t, model.BookingStatusCancelled, b.Status)
    }
    gaAfter, _ := store.GetTicketType(ctx, ga.ID)
    assert.Equal(t, uint32(0), gaAfter.Reserved)
    assert.Len(t, pub.cancelled, 2)
}
