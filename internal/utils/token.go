package utils

import (
    "crypto/rand"
    "encoding/hex"
)

// RandomToken returns a hex-encoded string generated from n bytes of
// cryptographically secure random data. Admission credential tokens
// use n=32 (256 bits of entropy).
func RandomToken(n int) (string, error) {
    b := make([]byte, n)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}
