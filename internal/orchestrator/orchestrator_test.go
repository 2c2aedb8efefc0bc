package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-mixer/internal/audit"
	"token-mixer/internal/vendor"
)

// newTestMixer builds a zero-latency orchestrator over a fresh pool, with
// the audit stream captured by the returned recorder.
func newTestMixer(t *testing.T, poolSize int, seed int64) (*Orchestrator, *vendor.Pool, *audit.Recorder) {
	t.Helper()

	recorder := audit.NewRecorder()
	logger := audit.New(recorder)
	rng := rand.New(rand.NewSource(seed))

	pool, err := vendor.Discover(poolSize, vendor.DiscoverOptions{
		Rand:   rng,
		Logger: logger,
	})
	require.NoError(t, err)

	orch := New(Options{
		Pool:     pool,
		Selector: vendor.NewSelector(rng, logger),
		Logger:   logger,
	})
	return orch, pool, recorder
}

// sumStats aggregates issue/redeem operation counts across the pool.
func sumStats(pool *vendor.Pool) (issued, redeemed int64) {
	for _, s := range pool.Stats() {
		issued += s.TotalIssuedCount
		redeemed += s.TotalRedeemedCount
	}
	return issued, redeemed
}

func TestRun_ZeroHops(t *testing.T) {
	ctx := context.Background()
	orch, pool, _ := newTestMixer(t, 5, 1)

	result, err := orch.Run(ctx, 1000, "zero_hop_source", 0)
	require.NoError(t, err)

	require.Len(t, result.FinalTokens, 1)
	assert.Equal(t, int64(1000), result.FinalTokens[0].Amount)
	assert.Equal(t, result.FinalIssuerID, result.FinalTokens[0].IssuerID)
	assert.Equal(t, 0, result.Hops)

	issued, redeemed := sumStats(pool)
	assert.Equal(t, int64(1), issued, "zero hops means exactly the initial mint")
	assert.Equal(t, int64(0), redeemed)
}

func TestRun_TenHops(t *testing.T) {
	ctx := context.Background()
	orch, pool, recorder := newTestMixer(t, 15, 2)

	result, err := orch.Run(ctx, 10000, "test_source_data", 10)
	require.NoError(t, err)

	require.Len(t, result.FinalTokens, 1)
	assert.Equal(t, int64(10000), result.FinalTokens[0].Amount, "amount must be conserved")

	issued, redeemed := sumStats(pool)
	assert.Equal(t, int64(11), issued)
	assert.Equal(t, int64(10), redeemed)

	// No two tokens minted during the run share an id
	seen := make(map[string]bool)
	for _, e := range recorder.Entries() {
		if e.Tag != audit.TagMintTokens {
			continue
		}
		id, ok := e.Fields["token_id"].(string)
		require.True(t, ok)
		require.False(t, seen[id], "duplicate token id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 11)
}

func TestRun_SourceLabelSeverance(t *testing.T) {
	ctx := context.Background()
	orch, _, recorder := newTestMixer(t, 8, 3)

	const label = "very_identifiable_source"
	result, err := orch.Run(ctx, 5000, label, 4)
	require.NoError(t, err)

	// The final token carries no trace of the label
	final := result.FinalTokens[0]
	assert.NotContains(t, string(final.Payload), label)
	assert.NotContains(t, final.ID, label)

	// Only the initial mint saw the label; later mints record no source
	labeled := 0
	for _, e := range recorder.Entries() {
		if e.Tag != audit.TagMintTokens {
			continue
		}
		if src, _ := e.Fields["source"].(string); src == label {
			labeled++
		}
	}
	assert.Equal(t, 1, labeled)
}

func TestRun_PoolOfOne(t *testing.T) {
	ctx := context.Background()
	orch, pool, recorder := newTestMixer(t, 1, 4)

	result, err := orch.Run(ctx, 2000, "single_vendor", 3)
	require.NoError(t, err, "the run must complete via the degraded-selection fallback")

	assert.Equal(t, int64(2000), result.FinalTokens[0].Amount)

	issued, redeemed := sumStats(pool)
	assert.Equal(t, int64(4), issued)
	assert.Equal(t, int64(3), redeemed)

	// Every hop after the first had an empty candidate set
	assert.Equal(t, 3, recorder.CountTag(audit.TagMintSelection))
}

func TestRun_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	orch, _, _ := newTestMixer(t, 3, 5)

	_, err := orch.Run(ctx, 0, "src", 2)
	assert.Error(t, err)

	_, err = orch.Run(ctx, -50, "src", 2)
	assert.Error(t, err)

	_, err = orch.Run(ctx, 100, "src", -1)
	assert.Error(t, err)
}

func TestStep_AmountConservation(t *testing.T) {
	ctx := context.Background()
	orch, _, _ := newTestMixer(t, 6, 6)

	tokens, prevID := orch.Initiate(ctx, 500, "step_test")
	require.Len(t, tokens, 1)

	fresh, newID := orch.Step(ctx, 1, tokens, prevID)
	require.Len(t, fresh, 1)
	assert.Equal(t, int64(500), fresh[0].Amount)
	assert.NotEqual(t, prevID, newID, "the previous issuer is excluded when alternatives exist")
	assert.NotEqual(t, tokens[0].ID, fresh[0].ID)
	assert.NotEqual(t, tokens[0].Payload, fresh[0].Payload)
}

func TestRun_ConcurrentSessionsSharedPool(t *testing.T) {
	ctx := context.Background()
	orch, pool, _ := newTestMixer(t, 10, 7)

	const sessions = 4
	const hops = 5

	var wg sync.WaitGroup
	results := make([]*RunResult, sessions)
	errs := make([]error, sessions)

	for n := 0; n < sessions; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = orch.Run(ctx, 1000, "concurrent", hops)
		}(n)
	}
	wg.Wait()

	for n := 0; n < sessions; n++ {
		require.NoError(t, errs[n])
		assert.Equal(t, int64(1000), results[n].FinalTokens[0].Amount)
	}

	issued, redeemed := sumStats(pool)
	assert.Equal(t, int64(sessions*(hops+1)), issued)
	assert.Equal(t, int64(sessions*hops), redeemed)
}

func TestRun_FinalIssuerInPool(t *testing.T) {
	ctx := context.Background()
	orch, pool, _ := newTestMixer(t, 7, 8)

	result, err := orch.Run(ctx, 300, "membership", 6)
	require.NoError(t, err)

	assert.NotNil(t, pool.ByID(result.FinalIssuerID), "final issuer must belong to the pool")
}
