package domain

import "time"

// Receipt summarizes one redemption call against a single issuer.
type Receipt struct {
	IssuerID    string    // issuer that accepted the tokens
	IssuerName  string    // human-readable issuer label
	RedeemedIDs []string  // ids of the redeemed tokens, in submission order
	TotalAmount int64     // sum of redeemed token amounts
	Timestamp   time.Time // redemption time
}
