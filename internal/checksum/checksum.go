// Package checksum derives content validators for served frames.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// ETag returns a strong HTTP entity tag for data: the first 16 hex digits of
// its SHA-256, quoted.
func ETag(data []byte) string {
	h := sha256.Sum256(data)
	return `"` + hex.EncodeToString(h[:8]) + `"`
}
