package utils

import "crypto/rand"

// referenceAlphabet avoids characters that read ambiguously when a
// booking code is spoken or handwritten (no 0/O, 1/I/L).
const referenceAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

func randomCode(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    out := make([]byte, n)
    for i, b := range buf {
        out[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
    }
    return string(out), nil
}

// NewBookingReference returns a human-shareable booking code such as
// "TKT-7GQ2MHZC". Uniqueness is enforced by the database; callers
// retry with a fresh code on collision.
func NewBookingReference() (string, error) {
    code, err := randomCode(8)
    if err != nil {
        return "", err
    }
    return "TKT-" + code, nil
}

// NewInviteCode returns a short group invite code such as "GRP-K4XN9T".
func NewInviteCode() (string, error) {
    code, err := randomCode(6)
    if err != nil {
        return "", err
    }
    return "GRP-" + code, nil
}
