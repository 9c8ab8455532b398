package utils

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// QRPayload is the decoded content of an admission QR code. The
// payload is an HS256-signed JWT so a scanned image cannot be forged
// offline, but it is still treated as untrusted input: every field is
// re-validated against the database when the credential is used.
type QRPayload struct {
    BookingItemID uint64
    TicketNumber  uint32
    Token         string
    ExpiresAt     time.Time
}

// ErrBadQRPayload is returned for any malformed, tampered or expired
// QR payload. Callers surface it as a generic invalid-credential
// response without detail.
var ErrBadQRPayload = errors.New("bad qr payload")

// NewQRPayload signs a QR payload for one admission credential.
func NewQRPayload(secret string, p QRPayload) (string, error) {
    claims := jwt.MapClaims{
        "item": p.BookingItemID,
        "num":  p.TicketNumber,
        "tok":  p.Token,
        "exp":  p.ExpiresAt.Unix(),
        "iat":  time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// ParseQRPayload verifies the signature and extracts the payload.
// Any failure collapses into ErrBadQRPayload.
func ParseQRPayload(secret, payload string) (*QRPayload, error) {
    tok, err := jwt.Parse(payload, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrBadQRPayload
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return nil, ErrBadQRPayload
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return nil, ErrBadQRPayload
    }
    item, ok := claims["item"].(float64)
    if !ok || item <= 0 {
        return nil, ErrBadQRPayload
    }
    num, ok := claims["num"].(float64)
    if !ok || num <= 0 {
        return nil, ErrBadQRPayload
    }
    token, ok := claims["tok"].(string)
    if !ok || token == "" {
        return nil, ErrBadQRPayload
    }
    exp, ok := claims["exp"].(float64)
    if !ok {
        return nil, ErrBadQRPayload
    }
    return &QRPayload{
        BookingItemID: uint64(item),
        TicketNumber:  uint32(num),
        Token:         token,
        ExpiresAt:     time.Unix(int64(exp), 0).UTC(),
    }, nil
}
