package tenant

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveKey returns the first 16 hexadecimal characters of the SHA-256 of the email.
// Two emails differing only in case produce different keys; the email is never normalized.
func DeriveKey(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])[:16]
}
