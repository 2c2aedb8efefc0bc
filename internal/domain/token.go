package domain

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// Token is an immutable bearer record of value issued by one mint.
// A token is never mutated after construction; its ID is never reused.
type Token struct {
	ID        string    // deterministic hash of (issuer, amount, payload, created_at)
	IssuerID  string    // identity of the issuing mint
	Amount    int64     // positive, fixed at creation
	Payload   []byte    // high-entropy opaque blob, unrelated to any other token's
	CreatedAt time.Time // creation timestamp
}

// ShortPayload returns a compact base58 rendering of the payload prefix,
// suitable for log lines. The full payload never appears in logs.
func (t *Token) ShortPayload() string {
	const prefixLen = 12
	p := t.Payload
	if len(p) > prefixLen {
		p = p[:prefixLen]
	}
	return base58.Encode(p)
}

func (t *Token) String() string {
	return fmt.Sprintf("Token(id=%s, issuer=%.8s..., amount=%d)", t.ID, t.IssuerID, t.Amount)
}
