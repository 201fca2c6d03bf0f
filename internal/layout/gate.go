// Package layout decides whether a rendered page ships. The gate turns a
// layout quality rating (LQR) plus issue flags into ok/patch/downgrade, the
// guardrail maps that onto the allow/patch/block policy vocabulary and the
// sup gate onto the supervisor modes written to the audit trail.
package layout

import (
	"math"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
)

// Decision is the gate's internal verdict.
type Decision string

const (
	DecisionDowngrade Decision = "downgrade"
	DecisionPatch     Decision = "patch"
	DecisionOK        Decision = "ok"
)

// Tier orders decisions: downgrade < patch < ok. Unknown decisions are -1.
func (d Decision) Tier() int {
	switch d {
	case DecisionDowngrade:
		return 0
	case DecisionPatch:
		return 1
	case DecisionOK:
		return 2
	default:
		return -1
	}
}

// Gate reasons.
const (
	ReasonNoScore           = "no_lqr_score"
	ReasonNoScoreWithIssues = "no_lqr_but_issues"
	ReasonBelowHardFail     = "lqr_below_hard_fail"
	ReasonBetweenThresholds = "lqr_between_hard_and_soft"
	ReasonA11yIssues        = "a11y_issues"
	ReasonPerfIssues        = "perf_issues"
	ReasonA11yAndPerf       = "a11y_and_perf_issues"
	ReasonGood              = "good_lqr_and_no_issues"
)

// Default thresholds.
const (
	DefaultHardFail = 60
	DefaultSoft     = 80
)

// Input is what the renderer reports about a page.
type Input struct {
	LQRScore      *float64 `json:"lqr_score"`
	HasA11yIssues bool     `json:"has_a11y_issues"`
	HasPerfIssues bool     `json:"has_perf_issues"`
}

// Score returns the LQR when it is usable (finite, non-negative).
func (in Input) Score() (float64, bool) {
	if in.LQRScore == nil {
		return 0, false
	}
	v := *in.LQRScore
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// Options are the gate thresholds. The zero value means the defaults.
type Options struct {
	HardFail float64 `json:"hard_fail"`
	Soft     float64 `json:"soft"`
}

// DefaultOptions returns hardFail=60, soft=80.
func DefaultOptions() Options {
	return Options{HardFail: DefaultHardFail, Soft: DefaultSoft}
}

// OptionsFromConfig reads the thresholds from the layout config section.
func OptionsFromConfig(cfg config.LayoutConfig) Options {
	return Options{HardFail: cfg.HardFail, Soft: cfg.Soft}.normalized()
}

func (o Options) normalized() Options {
	if o == (Options{}) {
		return DefaultOptions()
	}
	if math.IsNaN(o.HardFail) || math.IsInf(o.HardFail, 0) ||
		math.IsNaN(o.Soft) || math.IsInf(o.Soft, 0) || o.HardFail > o.Soft {
		return DefaultOptions()
	}
	return o
}

// GateResult is the gate verdict with a machine-readable reason.
type GateResult struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}

// DecideGate is total and pure: unusable scores are routed to patch.
func DecideGate(in Input, opts Options) GateResult {
	opts = opts.normalized()
	hasIssues := in.HasA11yIssues || in.HasPerfIssues

	score, ok := in.Score()
	switch {
	case !ok && hasIssues:
		return GateResult{DecisionPatch, ReasonNoScoreWithIssues}
	case !ok:
		return GateResult{DecisionPatch, ReasonNoScore}
	case score < opts.HardFail:
		return GateResult{DecisionDowngrade, ReasonBelowHardFail}
	case score < opts.Soft:
		return GateResult{DecisionPatch, ReasonBetweenThresholds}
	case in.HasA11yIssues && in.HasPerfIssues:
		return GateResult{DecisionPatch, ReasonA11yAndPerf}
	case in.HasA11yIssues:
		return GateResult{DecisionPatch, ReasonA11yIssues}
	case in.HasPerfIssues:
		return GateResult{DecisionPatch, ReasonPerfIssues}
	}
	return GateResult{DecisionOK, ReasonGood}
}
