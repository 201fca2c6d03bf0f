package layout

import (
	"math"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"

	"github.com/google/uuid"
)

// Proposal is one candidate patch offered by the caller.
type Proposal struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// State is an input together with its gate verdict.
type State struct {
	Input Input      `json:"input"`
	Gate  GateResult `json:"gate"`
}

// TraceStep records one committed patch.
type TraceStep struct {
	Patch  Proposal `json:"patch"`
	Before State    `json:"before"`
	After  State    `json:"after"`
}

// ProposeFunc returns candidate patches for the current state.
type ProposeFunc func(state Input, gate GateResult) []Proposal

// ApplyFunc returns the state after applying p. An error skips the candidate.
type ApplyFunc func(state Input, p Proposal) (Input, error)

// SolverOptions bound the solver.
type SolverOptions struct {
	Gate          Options `json:"gate"`
	MaxIterations int     `json:"max_iterations"`
	MinLQRDelta   float64 `json:"min_lqr_delta"`
}

// DefaultSolverOptions returns 3 iterations with a minimum LQR gain of 1.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{Gate: DefaultOptions(), MaxIterations: 3, MinLQRDelta: 1}
}

// SolverOptionsFromConfig reads the layout config section.
func SolverOptionsFromConfig(cfg config.LayoutConfig) SolverOptions {
	return SolverOptions{
		Gate:          OptionsFromConfig(cfg),
		MaxIterations: cfg.MaxIterations,
		MinLQRDelta:   cfg.MinLQRDelta,
	}
}

// Result is the outcome of one solver run. Stalled is set when the run
// ended because no proposal cleared the acceptance bar.
type Result struct {
	RunID          string      `json:"run_id"`
	Initial        State       `json:"initial"`
	Final          State       `json:"final"`
	Decision       Decision    `json:"decision"`
	AppliedPatches []Proposal  `json:"applied_patches"`
	Trace          []TraceStep `json:"trace"`
	Stalled        bool        `json:"stalled"`
}

// RunSolver patches initial toward an ok verdict. Each iteration applies every
// proposal, re-gates the results and commits the best: a strictly higher tier
// wins outright, otherwise the same tier must gain at least MinLQRDelta.
// The committed tier never decreases and the loop runs at most MaxIterations.
func RunSolver(initial Input, propose ProposeFunc, apply ApplyFunc, opts SolverOptions) Result {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 3
	}
	if !(opts.MinLQRDelta > 0) || math.IsInf(opts.MinLQRDelta, 0) {
		opts.MinLQRDelta = 1
	}

	cur := State{Input: initial, Gate: DecideGate(initial, opts.Gate)}
	res := Result{
		RunID:          uuid.NewString(),
		Initial:        cur,
		AppliedPatches: []Proposal{},
		Trace:          []TraceStep{},
	}
	log := logging.Get(logging.CategoryLayout).With("run_id", res.RunID)

	for i := 0; i < opts.MaxIterations && cur.Gate.Decision != DecisionOK; i++ {
		if propose == nil || apply == nil {
			res.Stalled = true
			break
		}
		best, patch, found := pickBest(cur, propose(cur.Input, cur.Gate), apply, opts)
		if !found {
			log.Debug("iteration %d: no proposal improves %s (%s)", i+1, cur.Gate.Decision, cur.Gate.Reason)
			res.Stalled = true
			break
		}
		res.Trace = append(res.Trace, TraceStep{Patch: patch, Before: cur, After: best})
		res.AppliedPatches = append(res.AppliedPatches, patch)
		log.Debug("iteration %d: applied %s, %s -> %s", i+1, patch.ID, cur.Gate.Decision, best.Gate.Decision)
		cur = best
	}

	res.Final = cur
	res.Decision = cur.Gate.Decision
	log.Info("solver finished: %s after %d patches (stalled=%v)", res.Decision, len(res.AppliedPatches), res.Stalled)
	return res
}

func pickBest(cur State, proposals []Proposal, apply ApplyFunc, opts SolverOptions) (State, Proposal, bool) {
	curTier := cur.Gate.Decision.Tier()
	curLQR := lqr(cur.Input)

	var (
		best      State
		bestPatch Proposal
		found     bool
		bestUp    bool
	)
	for _, p := range proposals {
		next, err := apply(cur.Input, p)
		if err != nil {
			logging.LayoutDebug("proposal %s skipped: %v", p.ID, err)
			continue
		}
		cand := State{Input: next, Gate: DecideGate(next, opts.Gate)}
		tier := cand.Gate.Decision.Tier()

		var up bool
		switch {
		case tier > curTier:
			up = true
		case tier == curTier && lqr(next)-curLQR >= opts.MinLQRDelta:
		default:
			continue
		}

		if !found || better(cand, up, best, bestUp) {
			best, bestPatch, found, bestUp = cand, p, true, up
		}
	}
	return best, bestPatch, found
}

// better ranks tier-raising candidates above same-tier gains, then by tier,
// then by LQR. Earlier proposals win ties.
func better(a State, aUp bool, b State, bUp bool) bool {
	if aUp != bUp {
		return aUp
	}
	if at, bt := a.Gate.Decision.Tier(), b.Gate.Decision.Tier(); at != bt {
		return at > bt
	}
	return lqr(a.Input) > lqr(b.Input)
}

// lqr is the usable score, or 0 when unavailable.
func lqr(in Input) float64 {
	v, _ := in.Score()
	return v
}
