// Package checksum provides content digests used for change detection and
// optimistic concurrency tokens.
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

// Short returns a 12-character prefix of Sum, compact enough for ETags and
// log lines.
func Short(data []byte) string {
	return Sum(data)[:12]
}
