package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const qrTestSecret = "unit-test-secret"

func TestQRPayloadRoundTrip(t *testing.T) {
    in := QRPayload{
        BookingItemID: 42,
        TicketNumber:  3,
        Token:         "deadbeefcafe",
        ExpiresAt:     time.Now().UTC().Add(time.Hour).Truncate(time.Second),
    }
    signed, err := NewQRPayload(qrTestSecret, in)
    require.NoError(t, err)

    out, err := ParseQRPayload(qrTestSecret, signed)
    require.NoError(t, err)
    assert.Equal(t, in.BookingItemID, out.BookingItemID)
    assert.Equal(t, in.TicketNumber, out.TicketNumber)
    assert.Equal(t, in.Token, out.Token)
    assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt), "want %v got %v", in.ExpiresAt, out.ExpiresAt)
}

func TestParseQRPayloadRejectsBadInput(t *testing.T) {
    in := QRPayload{
        BookingItemID: 42,
        TicketNumber:  3,
        Token:         "deadbeefcafe",
        ExpiresAt:     time.Now().UTC().Add(time.Hour),
    }
    signed, err := NewQRPayload(qrTestSecret, in)
    require.NoError(t, err)

    expired, err := NewQRPayload(qrTestSecret, QRPayload{
        BookingItemID: 42,
        TicketNumber:  3,
        Token:         "deadbeefcafe",
        ExpiresAt:     time.Now().UTC().Add(-time.Hour),
    })
    require.NoError(t, err)

    cases := map[string]struct {
        secret  string
        payload string
    }{
        "empty":        {qrTestSecret, ""},
        "garbage":      {qrTestSecret, "not.a.jwt"},
        "tampered":     {qrTestSecret, signed + "x"},
        "wrong secret": {"another-secret", signed},
        "expired":      {qrTestSecret, expired},
    }
    for name, tc := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := ParseQRPayload(tc.secret, tc.payload)
            assert.ErrorIs(t, err, ErrBadQRPayload)
        })
    }
}
