// Package budget implements the per-request admission check against cost and
// token ceilings.
package budget

import (
	"math"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
)

// Admission reasons.
const (
	ReasonWithinBudget = "within_budget"
	ReasonCentsOver    = "cents_over_ceiling"
	ReasonTokensOver   = "tokens_over_ceiling"
)

// Usage is the estimated (or actual) cost of one request. Nil fields are
// unknown and count as zero.
type Usage struct {
	Cents  *float64 `json:"cents,omitempty"`
	Tokens *float64 `json:"tokens,omitempty"`
}

// Decision is the outcome of Gate.Admit.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// UnderBudget reports whether a request fits both ceilings.
// Unknown, NaN or negative costs count as zero. A ceiling that is NaN, +Inf
// or <= 0 disables its dimension.
func UnderBudget(cents, tokens *float64, maxCents, maxTokens float64) bool {
	return !over(cost(cents), maxCents) && !over(cost(tokens), maxTokens)
}

func cost(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return 0
	}
	return *v
}

func over(v, ceiling float64) bool {
	if math.IsNaN(ceiling) || math.IsInf(ceiling, 1) || ceiling <= 0 {
		return false
	}
	return v > ceiling
}

// Gate holds the configured ceilings.
type Gate struct {
	MaxCents  float64
	MaxTokens float64
}

// NewGate builds a gate from the budget section of cfg.
func NewGate(cfg *config.Config) Gate {
	maxCents, maxTokens := cfg.EnforceBudgetLimits()
	return Gate{MaxCents: maxCents, MaxTokens: maxTokens}
}

// Admit checks u against the ceilings. Cents are checked first.
func (g Gate) Admit(u Usage) Decision {
	switch {
	case over(cost(u.Cents), g.MaxCents):
		logging.Budget("rejected: %.2f cents over ceiling %.2f", cost(u.Cents), g.MaxCents)
		return Decision{Allowed: false, Reason: ReasonCentsOver}
	case over(cost(u.Tokens), g.MaxTokens):
		logging.Budget("rejected: %.0f tokens over ceiling %.0f", cost(u.Tokens), g.MaxTokens)
		return Decision{Allowed: false, Reason: ReasonTokensOver}
	}
	logging.BudgetDebug("admitted cents=%.2f tokens=%.0f", cost(u.Cents), cost(u.Tokens))
	return Decision{Allowed: true, Reason: ReasonWithinBudget}
}
