package domain

// IssuerStats is a point-in-time snapshot of one issuer's counters.
type IssuerStats struct {
	IssuerID            string `json:"issuer_id"`
	Name                string `json:"name"`
	TotalIssuedCount    int64  `json:"total_issued_count"`
	TotalRedeemedCount  int64  `json:"total_redeemed_count"`
	TotalAmountIssued   int64  `json:"total_amount_issued"`
	TotalAmountRedeemed int64  `json:"total_amount_redeemed"`
	// ActiveTokenCount is issued ledger size minus redeemed ledger size.
	// It goes negative when tokens minted elsewhere are redeemed here; not clamped.
	ActiveTokenCount int64 `json:"active_token_count"`
}
