// Package verification checks a recorded audit stream against the expected
// shape of a completed mixing run. It is the in-process counterpart of the
// external audit harness: both assert the presence and counts of specific
// operation tags.
package verification

import (
	"token-mixer/internal/audit"
)

// Check is one tag assertion over the recorded stream.
type Check struct {
	Name  string // human-readable check name
	Tag   string // asserted tag
	Want  int    // expected count; minimum when Exact is false
	Got   int    // observed count
	Exact bool   // true if Got must equal Want, false if Got >= Want suffices
	Pass  bool
}

// Report contains the results of verifying one run.
type Report struct {
	HopCount int     // hop count the run was verified against
	Checks   []Check // individual assertions
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}

// Failures returns the checks that did not pass.
func (r *Report) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Pass {
			out = append(out, c)
		}
	}
	return out
}

// VerifyRun verifies the audit entries of one completed run with the given
// hop count. Counts assume the orchestrator's single-token-per-hop flow:
// hopCount+1 mint operations and hopCount single-token redemptions.
func VerifyRun(entries []audit.Entry, hopCount int) *Report {
	report := &Report{HopCount: hopCount}

	report.atLeast("orchestrator initialized", audit.TagOrchestratorInit, 1, entries)
	report.atLeast("vendor discovery started", audit.TagVendorDiscovery, 1, entries)
	report.atLeast("vendor discovery completed", audit.TagVendorDiscoveryComplete, 1, entries)

	report.exactly("run started", audit.TagMixStart, 1, entries)
	report.exactly("run completed", audit.TagMixComplete, 1, entries)

	report.exactly("initial mint", audit.HopTag(0, audit.HopMint), 1, entries)
	report.exactly("initial mint completed", audit.HopTag(0, audit.HopComplete), 1, entries)

	for hop := 1; hop <= hopCount; hop++ {
		report.exactly("hop redeemed", audit.HopTag(hop, audit.HopRedeem), 1, entries)
		report.exactly("hop minted", audit.HopTag(hop, audit.HopMint), 1, entries)
		report.exactly("hop completed", audit.HopTag(hop, audit.HopComplete), 1, entries)
	}

	report.exactly("mint operations", audit.TagMintTokens, hopCount+1, entries)
	report.exactly("token redemptions", audit.TagRedeemToken, hopCount, entries)
	report.exactly("redemption batches", audit.TagRedeemComplete, hopCount, entries)

	return report
}

// exactly appends a check requiring the tag count to equal want.
func (r *Report) exactly(name, tag string, want int, entries []audit.Entry) {
	got := countTag(entries, tag)
	r.Checks = append(r.Checks, Check{
		Name: name, Tag: tag, Want: want, Got: got, Exact: true, Pass: got == want,
	})
}

// atLeast appends a check requiring the tag count to be at least want.
func (r *Report) atLeast(name, tag string, want int, entries []audit.Entry) {
	got := countTag(entries, tag)
	r.Checks = append(r.Checks, Check{
		Name: name, Tag: tag, Want: want, Got: got, Exact: false, Pass: got >= want,
	})
}

// countTag counts entries carrying the given tag.
func countTag(entries []audit.Entry, tag string) int {
	n := 0
	for _, e := range entries {
		if e.Tag == tag {
			n++
		}
	}
	return n
}
