package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GenerateEventID derives a stable, content-addressed SwellEvent id from
// its defining fields, so re-fusing identical input always yields the same
// id rather than a random one.
func GenerateEventID(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
