package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeIssuerID computes a globally unique issuer id using SHA256.
// Formula: SHA256(name|seq|created_at_ns), hex-encoded (64 characters).
// seq is a per-process construction counter so two issuers created with
// the same name in the same instant still get distinct ids.
func ComputeIssuerID(name string, seq int64, createdAt time.Time) string {
	data := fmt.Sprintf("%s|%d|%d", name, seq, createdAt.UnixNano())

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
