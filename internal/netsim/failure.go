package netsim

import (
	"fmt"

	"github.com/iti/rngstream"
)

// injectFailures marks at most floor(len(links) * pct/100) leaf-to-spine
// links as failed, per spec.md §4.3.5 ("a configurable fraction of
// non-critical links"): each link in order fails on an independent
// Bernoulli(pct/100) draw until that cap is reached, so fewer links may be
// marked. Server-to-leaf links are never candidates: failing a host's
// only link would make that host categorically unreachable rather than
// rerouteable, which is not what "non-critical" describes. Draws come from
// a named rngstream.RngStream seeded deterministically from the scenario
// seed, matching the teacher's per-device-stream convention (net.go's
// devRng) and spec.md §9's "every stochastic decision draws from an
// explicit, seeded PRNG."
func injectFailures(links []*Link, pct float64, seed uint64) error {
	if pct <= 0 {
		return nil
	}
	rng := rngstream.New(fmt.Sprintf("link-failure-%d", seed))
	target := int(float64(len(links)) * pct / 100.0)
	if target <= 0 {
		return nil
	}
	marked := 0
	// Single deterministic pass: a link is failed if an independent
	// Bernoulli(pct/100) draw succeeds, capped at target count so the
	// realized fraction never overshoots what was configured.
	for _, l := range links {
		if marked >= target {
			break
		}
		if rng.RandU01() < pct/100.0 {
			l.Failed = true
			marked++
		}
	}
	return nil
}
