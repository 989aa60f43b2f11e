// Package checksum provides content digests used for change detection
// and payload integrity checks.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether data hashes to want. An empty want is treated
// as "no checksum recorded" and always matches.
func Matches(data []byte, want string) bool {
	if want == "" {
		return true
	}
	return Sum(data) == want
}
