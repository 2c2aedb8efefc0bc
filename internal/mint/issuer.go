// Package mint implements the token issuer: a stateful service that issues
// and redeems bearer tokens with simulated network latency and an
// append-only issuance/redemption ledger.
package mint

import (
	"context"
	cryptorand "crypto/rand"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"token-mixer/internal/audit"
	"token-mixer/internal/domain"
	"token-mixer/internal/idhash"
	"token-mixer/internal/observability"
)

// payloadSize is the number of random bytes in a token payload.
const payloadSize = 32

// instanceSeq feeds the per-process construction counter that goes into
// issuer id derivation.
var instanceSeq atomic.Int64

// Issuer is a simulated token-issuing service ("mint"). It owns its ledgers
// and counters; all mutation goes through Issue and Redeem, which serialize
// on a per-instance mutex. Different issuers operate fully concurrently.
type Issuer struct {
	id         string
	name       string
	minLatency time.Duration
	maxLatency time.Duration

	logger zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu             sync.Mutex
	issued         map[string]*domain.Token // token id -> token, append-only
	redeemed       map[string]*domain.Token // token id -> token, append-only
	issuedCount    int64
	redeemedCount  int64
	amountIssued   int64
	amountRedeemed int64
}

// Config carries issuer construction parameters.
type Config struct {
	// Name is the human-readable label.
	Name string
	// MinLatency and MaxLatency bound the simulated per-operation delay,
	// sampled uniformly from [MinLatency, MaxLatency).
	MinLatency time.Duration
	MaxLatency time.Duration
	// Rand is the seedable source for latency sampling. A time-seeded
	// source is created when nil. Token payloads always come from
	// crypto/rand regardless of this source.
	Rand *rand.Rand
	// Logger receives the issuer's audit events.
	Logger zerolog.Logger
}

// New creates an Issuer with a freshly derived id. Issuers live for the
// whole session and are never destroyed mid-run.
func New(cfg Config) *Issuer {
	seq := instanceSeq.Add(1)
	now := time.Now()

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano() + seq))
	}

	iss := &Issuer{
		id:         idhash.ComputeIssuerID(cfg.Name, seq, now),
		name:       cfg.Name,
		minLatency: cfg.MinLatency,
		maxLatency: cfg.MaxLatency,
		logger:     cfg.Logger,
		rng:        rng,
		issued:     make(map[string]*domain.Token),
		redeemed:   make(map[string]*domain.Token),
	}

	iss.logger.Info().
		Str(audit.TagField, audit.TagMintInit).
		Str("mint", iss.name).
		Str("mint_id", shortID(iss.id)).
		Dur("min_latency", iss.minLatency).
		Dur("max_latency", iss.maxLatency).
		Msg("mint initialized")

	return iss
}

// ID returns the issuer's globally unique identity.
func (i *Issuer) ID() string { return i.id }

// Name returns the issuer's human-readable label.
func (i *Issuer) Name() string { return i.name }

// Issue mints fresh tokens for the given amount and returns them as a
// one-element slice; the slice shape leaves room for batch issuance even
// though the orchestrator never requests it. sourceLabel is an optional
// caller-supplied origin marker recorded only in the audit stream, never on
// the token itself.
//
// Issue cannot fail. The latency delay is not cancellable; a started
// operation always completes.
func (i *Issuer) Issue(_ context.Context, amount int64, sourceLabel string) []*domain.Token {
	latency := i.simulateLatency()

	now := time.Now()
	payload := make([]byte, payloadSize)
	cryptorand.Read(payload)

	token := &domain.Token{
		ID:        idhash.ComputeTokenID(i.id, amount, payload, now),
		IssuerID:  i.id,
		Amount:    amount,
		Payload:   payload,
		CreatedAt: now,
	}

	i.mu.Lock()
	i.issued[token.ID] = token
	i.issuedCount++
	i.amountIssued += amount
	i.mu.Unlock()

	if sourceLabel == "" {
		sourceLabel = "N/A"
	}
	i.logger.Info().
		Str(audit.TagField, audit.TagMintTokens).
		Str("mint", i.name).
		Str("token_id", token.ID).
		Int64("amount", amount).
		Str("source", sourceLabel).
		Str("token_data", token.ShortPayload()).
		Time("created_at", now).
		Msg("minted token")

	observability.RecordIssue(amount, latency.Seconds())

	return []*domain.Token{token}
}

// Redeem accepts the given tokens at face value and returns a receipt for
// their total amount. No provenance check is performed: the issuer trusts
// bearer possession, not origin, so tokens minted elsewhere are accepted.
//
// Resubmitting a token counts it again: the redeemed counters double-count
// its amount. Callers must never resubmit a token.
func (i *Issuer) Redeem(_ context.Context, tokens []*domain.Token) *domain.Receipt {
	latency := i.simulateLatency()

	now := time.Now()
	receipt := &domain.Receipt{
		IssuerID:    i.id,
		IssuerName:  i.name,
		RedeemedIDs: make([]string, 0, len(tokens)),
		Timestamp:   now,
	}

	i.mu.Lock()
	for _, t := range tokens {
		receipt.TotalAmount += t.Amount
		receipt.RedeemedIDs = append(receipt.RedeemedIDs, t.ID)

		i.redeemed[t.ID] = t
		i.redeemedCount++
		i.amountRedeemed += t.Amount
	}
	i.mu.Unlock()

	for _, t := range tokens {
		i.logger.Info().
			Str(audit.TagField, audit.TagRedeemToken).
			Str("mint", i.name).
			Str("token_id", t.ID).
			Str("original_mint", shortID(t.IssuerID)).
			Int64("amount", t.Amount).
			Time("redeemed_at", now).
			Msg("redeemed token")
	}
	i.logger.Info().
		Str(audit.TagField, audit.TagRedeemComplete).
		Str("mint", i.name).
		Int("tokens_redeemed", len(tokens)).
		Int64("total_amount", receipt.TotalAmount).
		Msg("redemption complete")

	observability.RecordRedeem(receipt.TotalAmount, len(tokens), latency.Seconds())

	return receipt
}

// Stats returns a snapshot of the issuer's counters. ActiveTokenCount is
// issued ledger size minus redeemed ledger size and may be negative when
// tokens minted elsewhere are redeemed here.
func (i *Issuer) Stats() domain.IssuerStats {
	i.mu.Lock()
	defer i.mu.Unlock()

	return domain.IssuerStats{
		IssuerID:            i.id,
		Name:                i.name,
		TotalIssuedCount:    i.issuedCount,
		TotalRedeemedCount:  i.redeemedCount,
		TotalAmountIssued:   i.amountIssued,
		TotalAmountRedeemed: i.amountRedeemed,
		ActiveTokenCount:    int64(len(i.issued)) - int64(len(i.redeemed)),
	}
}

// simulateLatency sleeps for a duration sampled uniformly from
// [minLatency, maxLatency) and returns it. The sleep happens outside the
// ledger mutex so one issuer's delay never blocks another session's
// operations on a different issuer.
func (i *Issuer) simulateLatency() time.Duration {
	span := i.maxLatency - i.minLatency

	latency := i.minLatency
	if span > 0 {
		i.rngMu.Lock()
		latency += time.Duration(i.rng.Int63n(int64(span)))
		i.rngMu.Unlock()
	}

	if latency > 0 {
		time.Sleep(latency)
	}
	return latency
}

// shortID truncates an issuer id for log lines, matching the 16-character
// prefix convention used across the audit stream.
func shortID(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}
