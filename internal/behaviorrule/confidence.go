package behaviorrule

import "gonum.org/v1/gonum/stat/distuv"

// CredibleInterval is a (lower, upper) pair bounding the rule's true
// success probability at the given confidence level — e.g. for level
// 0.95 the 2.5th and 97.5th percentiles of Beta(alpha, beta).
type CredibleInterval struct {
	Lower, Upper float64
}

// CredibleInterval computes the equal-tailed credible interval for r's
// posterior, surfaced by GET /api/behavior-rules/:id so a caller can see
// not just the point estimate but how settled it is (a rule with one
// observation and a rule with a hundred can share a confidence but have
// very different interval widths).
func (r *Rule) CredibleInterval(level float64) CredibleInterval {
	tail := (1 - level) / 2
	beta := distuv.Beta{Alpha: r.Alpha, Beta: r.Beta}
	return CredibleInterval{
		Lower: beta.Quantile(tail),
		Upper: beta.Quantile(1 - tail),
	}
}

// Observe applies the standard Beta-Binomial posterior update for a
// batch of successes/failures (§10 supplement: "α' = α +
// successes, β' = β + failures, confidence = α'/(α'+β')") and returns
// the updated rule. The receiver is not mutated in place so a caller
// can diff before/after for a receipt.
func (r *Rule) Observe(successes, failures int) *Rule {
	updated := *r
	updated.Alpha = r.Alpha + float64(successes)
	updated.Beta = r.Beta + float64(failures)
	updated.ObservationCount = r.ObservationCount + successes + failures
	return &updated
}
