package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Hasher derives privacy-safe identifiers from raw client data. IP hashes
// rotate by UTC calendar day so a single identifier is linkable for at most
// 24 hours while still supporting same-day rate limiting and dedup.
type Hasher struct {
	salt string
	now  func() time.Time
}

func NewHasher(salt string) *Hasher {
	return &Hasher{salt: salt, now: time.Now}
}

// NewHasherAt pins the clock. Used in tests.
func NewHasherAt(salt string, now func() time.Time) *Hasher {
	return &Hasher{salt: salt, now: now}
}

// HashIP returns SHA256(ip-salt-YYYY-MM-DD) as lowercase hex. Deterministic
// within one UTC day, non-reversible, different across days.
func (h *Hasher) HashIP(ip string) string {
	day := h.now().UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", ip, h.salt, day)))
	return hex.EncodeToString(sum[:])
}

// HashKey returns the plain SHA-256 hex digest of a client-supplied key.
// Assignment rows and user-agent hashes use this; unlike HashIP it does not
// rotate, since assignment stability must outlive a calendar day.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
