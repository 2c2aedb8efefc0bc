// Package orchestrator drives the end-to-end mixing cycle.
// It coordinates: initial mint → {select → redeem → re-mint}×N
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"token-mixer/internal/audit"
	"token-mixer/internal/domain"
	"token-mixer/internal/observability"
	"token-mixer/internal/vendor"
)

// Orchestrator executes multi-hop mixing runs against a shared vendor pool.
// Within one run the hops are strictly sequential: hop i's redemption needs
// tokens that exist only after hop i-1's mint completes. Separate runs may
// share the same pool concurrently; per-issuer locking keeps the ledgers
// consistent.
type Orchestrator struct {
	pool     *vendor.Pool
	selector *vendor.Selector
	logger   zerolog.Logger
}

// Options for creating Orchestrator.
type Options struct {
	// Pool is the fixed issuer pool for the session.
	Pool *vendor.Pool
	// Selector picks the issuer for each hop.
	Selector *vendor.Selector
	// Logger receives the run's audit events.
	Logger zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		pool:     opts.Pool,
		selector: opts.Selector,
		logger:   opts.Logger,
	}

	o.logger.Info().
		Str(audit.TagField, audit.TagOrchestratorInit).
		Int("vendor_pool_size", o.pool.Size()).
		Msg("orchestrator initialized")

	return o
}

// RunResult contains the outcome of one mixing run.
type RunResult struct {
	SessionID     string          // unique id of this run
	FinalTokens   []*domain.Token // tokens minted by the last hop
	FinalIssuerID string          // issuer that minted the final tokens
	Hops          int             // number of hops executed after the initial mint
	Duration      time.Duration   // wall-clock run duration
}

// Initiate seeds the chain: it selects an issuer with no exclusion and
// mints the initial tokens there. This is the only step that attaches
// sourceLabel; later hops never see it. Returns the minted tokens and the
// chosen issuer's id as the running previous-issuer pointer.
func (o *Orchestrator) Initiate(ctx context.Context, amount int64, sourceLabel string) ([]*domain.Token, string) {
	first := o.selector.SelectForHop(o.pool, 0, nil)

	o.logger.Info().
		Str(audit.TagField, audit.HopTag(0, audit.HopMint)).
		Str("mint", first.Name()).
		Int64("amount", amount).
		Str("source", sourceLabel).
		Msg("minting initial tokens")

	tokens := first.Issue(ctx, amount, sourceLabel)

	o.logger.Info().
		Str(audit.TagField, audit.HopTag(0, audit.HopComplete)).
		Str("mint", first.Name()).
		Strs("token_ids", tokenIDs(tokens)).
		Msg("initial tokens minted")

	return tokens, first.ID()
}

// Step executes one hop: it selects an issuer excluding previousIssuerID,
// redeems the current tokens there, and immediately re-mints the redeemed
// amount at the same issuer. Returns the fresh tokens and the issuer's id.
func (o *Orchestrator) Step(ctx context.Context, hop int, tokens []*domain.Token, previousIssuerID string) ([]*domain.Token, string) {
	start := time.Now()

	target := o.selector.SelectForHop(o.pool, hop, map[string]bool{previousIssuerID: true})

	o.logger.Info().
		Str(audit.TagField, audit.HopTag(hop, audit.HopRedeem)).
		Str("mint", target.Name()).
		Int("tokens", len(tokens)).
		Int64("amount", totalAmount(tokens)).
		Strs("original_mints", issuerPrefixes(tokens)).
		Msg("redeeming at new mint")

	receipt := target.Redeem(ctx, tokens)

	o.logger.Info().
		Str(audit.TagField, audit.HopTag(hop, audit.HopMint)).
		Str("mint", target.Name()).
		Int64("amount", receipt.TotalAmount).
		Msg("minting fresh tokens")

	fresh := target.Issue(ctx, receipt.TotalAmount, "")

	o.logger.Info().
		Str(audit.TagField, audit.HopTag(hop, audit.HopComplete)).
		Str("mint", target.Name()).
		Strs("old_tokens", tokenIDs(tokens)).
		Strs("new_tokens", tokenIDs(fresh)).
		Msg("custody chain severed")

	observability.RecordHop(time.Since(start).Seconds())

	return fresh, target.ID()
}

// Run executes Initiate once and then Step exactly hopCount times, each
// step consuming the prior step's output. The amount is conserved across
// every (redeem, re-mint) pair, so the final tokens carry the initial
// amount for any hopCount >= 0.
func (o *Orchestrator) Run(ctx context.Context, amount int64, sourceLabel string, hopCount int) (*RunResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}
	if hopCount < 0 {
		return nil, fmt.Errorf("hop count must be non-negative, got %d", hopCount)
	}

	sessionID := uuid.NewString()
	start := time.Now()

	o.logger.Info().
		Str(audit.TagField, audit.TagMixStart).
		Str("session_id", sessionID).
		Int("hops", hopCount).
		Int64("amount", amount).
		Str("source", sourceLabel).
		Msg("starting mixing run")
	observability.RecordSessionStart()

	tokens, previousIssuerID := o.Initiate(ctx, amount, sourceLabel)

	for hop := 1; hop <= hopCount; hop++ {
		tokens, previousIssuerID = o.Step(ctx, hop, tokens, previousIssuerID)
	}

	duration := time.Since(start)
	o.logger.Info().
		Str(audit.TagField, audit.TagMixComplete).
		Str("session_id", sessionID).
		Int("hops", hopCount).
		Dur("duration", duration).
		Strs("final_tokens", tokenIDs(tokens)).
		Str("final_mint", previousIssuerID[:16]).
		Msg("mixing run complete")
	observability.RecordSessionComplete(duration.Seconds())

	return &RunResult{
		SessionID:     sessionID,
		FinalTokens:   tokens,
		FinalIssuerID: previousIssuerID,
		Hops:          hopCount,
		Duration:      duration,
	}, nil
}

// tokenIDs collects token ids for log lines.
func tokenIDs(tokens []*domain.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.ID)
	}
	return out
}

// totalAmount sums token amounts.
func totalAmount(tokens []*domain.Token) int64 {
	var sum int64
	for _, t := range tokens {
		sum += t.Amount
	}
	return sum
}

// issuerPrefixes collects 16-character issuer id prefixes for log lines.
func issuerPrefixes(tokens []*domain.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		id := t.IssuerID
		if len(id) > 16 {
			id = id[:16]
		}
		out = append(out, id)
	}
	return out
}
