package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenIDLen is the length of a hex-encoded token id.
const TokenIDLen = 16

// ComputeTokenID computes a deterministic token id using SHA256.
// Formula: SHA256(issuer_id|amount|payload|created_at_ns), hex, truncated
// to TokenIDLen characters. Uniqueness rests on payload entropy, not on
// timestamp granularity: two tokens minted in the same nanosecond still
// differ because their payloads differ.
func ComputeTokenID(issuerID string, amount int64, payload []byte, createdAt time.Time) string {
	data := fmt.Sprintf("%s|%d|%x|%d",
		issuerID,
		amount,
		payload,
		createdAt.UnixNano(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:TokenIDLen]
}
