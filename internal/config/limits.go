package config

import "math"

// BudgetLimits are the per-request admission ceilings.
// A ceiling that is <= 0 disables that dimension.
type BudgetLimits struct {
	MaxCents  float64 `yaml:"max_cents" json:"max_cents"`
	MaxTokens float64 `yaml:"max_tokens" json:"max_tokens"`
}

// EnforceBudgetLimits returns the effective ceilings, with disabled
// dimensions mapped to +Inf.
func (c *Config) EnforceBudgetLimits() (maxCents, maxTokens float64) {
	maxCents, maxTokens = c.Budget.MaxCents, c.Budget.MaxTokens
	if !(maxCents > 0) {
		maxCents = math.Inf(1)
	}
	if !(maxTokens > 0) {
		maxTokens = math.Inf(1)
	}
	return maxCents, maxTokens
}
