// Package behaviorrule tracks the durable "lessons learned" a user's
// tool runtime accumulates across turns — a short rule of thumb
// ("prefer X over Y for task type Z") whose trustworthiness is modeled
// as a Beta-Binomial posterior over observed successes/failures rather
// than a flat counter (§3's "Beta-Binomial confidence; α/β
// priors 2/5").
package behaviorrule

import "time"

// Severity is how strongly a rule should be weighed against a proposal.
type Severity string

const (
	SeverityMust   Severity = "must"
	SeverityShould Severity = "should"
	SeverityStyle  Severity = "style"
)

// DefaultAlpha and DefaultBeta are the weak priors §3 names: a
// rule starts out leaning slightly toward "not yet trusted" (mean
// 2/(2+5) ≈ 0.286) until evidence accumulates.
const (
	DefaultAlpha = 2.0
	DefaultBeta  = 5.0
)

// Scope narrows a rule to a task type; an empty TaskType applies it
// everywhere.
type Scope struct {
	TaskType string `json:"taskType,omitempty"`
}

// Rule is a BehaviorRule row.
type Rule struct {
	ID               string
	UserID           string
	Text             string
	Scope            Scope
	Alpha            float64
	Beta             float64
	ObservationCount int
	Severity         Severity
	CreatedAt        time.Time
}

// Confidence is the rule's current posterior mean — the probability
// mass the Beta-Binomial model assigns to "this rule should be
// followed," given everything observed so far.
func (r *Rule) Confidence() float64 {
	return r.Alpha / (r.Alpha + r.Beta)
}
