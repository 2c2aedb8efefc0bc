// Package audit provides the structured audit log stream for mixing runs.
// Every significant event is a single JSON line carrying a "tag" field; an
// external harness asserts the presence and counts of specific tags, so the
// tag vocabulary below is a compatibility surface and must not change.
package audit

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// TagField is the JSON field that carries the operation tag.
const TagField = "tag"

// Run-level and vendor-level tags.
const (
	TagOrchestratorInit        = "ORCHESTRATOR_INIT"
	TagVendorDiscovery         = "VENDOR_DISCOVERY"
	TagVendorDiscovered        = "VENDOR_DISCOVERED"
	TagVendorDiscoveryComplete = "VENDOR_DISCOVERY_COMPLETE"
	TagMixStart                = "MIX_START"
	TagMixComplete             = "MIX_COMPLETE"
)

// Issuer-level tags.
const (
	TagMintInit       = "MINT_INIT"
	TagMintTokens     = "MINT_TOKENS"
	TagRedeemToken    = "REDEEM_TOKEN"
	TagRedeemComplete = "REDEEM_COMPLETE"
)

// Selection tags. TagMintSelection marks the degraded-selection fallback
// and is always logged at warn level.
const (
	TagMintSelected  = "MINT_SELECTED"
	TagMintSelection = "MINT_SELECTION"
)

// Per-hop tag phases, combined with the hop index via HopTag.
const (
	HopMint     = "MINT"
	HopRedeem   = "REDEEM"
	HopComplete = "COMPLETE"
)

// HopTag builds a per-hop tag such as "HOP_3_REDEEM".
func HopTag(hop int, phase string) string {
	return fmt.Sprintf("HOP_%d_%s", hop, phase)
}

// New returns a logger that emits one JSON line per event to w.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything. Used by tests that do not
// inspect the stream.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
