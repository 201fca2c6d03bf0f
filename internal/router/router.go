// Package router implements the Thompson-sampling routers that pick a
// generation strategy (or a named expert) per request.
//
// Each arm keeps a Beta(alpha, beta) belief over its success rate plus EMAs
// of latency, cost and token usage. PickArm samples every arm's belief and
// subtracts a weighted penalty for the EMAs; RecordOutcome folds one result
// back in. Storage failures never reach the caller: the router logs them,
// keeps the outcomes that could not be written and replays them over the
// persisted stats until a write succeeds.
package router

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/sampling"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store"
)

// ArmStats is the persisted belief for one arm.
type ArmStats struct {
	ArmID     string   `json:"arm_id"`
	Alpha     float64  `json:"alpha"`
	Beta      float64  `json:"beta"`
	EMAMs     *float64 `json:"ema_ms,omitempty"`
	EMACents  *float64 `json:"ema_cents,omitempty"`
	EMATokens *float64 `json:"ema_tokens,omitempty"`
	N         int64    `json:"n"`
}

// Outcome is what the caller observed after executing an arm.
// Nil metrics were not measured and leave their EMA untouched.
type Outcome struct {
	Success bool     `json:"success"`
	MS      *float64 `json:"ms,omitempty"`
	Cents   *float64 `json:"cents,omitempty"`
	Tokens  *float64 `json:"tokens,omitempty"`
}

// Router is a Thompson-sampling bandit over string-keyed arms.
type Router struct {
	kv  store.KV
	cfg config.BanditConfig
	src sampling.Source
	log *logging.Logger

	mu      sync.Mutex
	mem     map[string]ArmStats // last known state, served when the store fails
	pending []func(map[string]ArmStats)
}

// maxPending bounds the outcomes held back while writes fail.
const maxPending = 4096

// New creates a router persisting under cfg.StoreKey.
func New(kv store.KV, cfg config.BanditConfig, src sampling.Source, category logging.Category) *Router {
	if src == nil {
		src = sampling.NewTimeSource()
	}
	if !(cfg.PriorAlpha >= 1) || !finite(cfg.PriorAlpha) {
		cfg.PriorAlpha = 1
	}
	if !(cfg.PriorBeta >= 1) || !finite(cfg.PriorBeta) {
		cfg.PriorBeta = 1
	}
	if !(cfg.EMASmoothing > 0 && cfg.EMASmoothing <= 1) {
		cfg.EMASmoothing = 0.25
	}
	return &Router{
		kv:  kv,
		cfg: cfg,
		src: src,
		log: logging.Get(category),
		mem: make(map[string]ArmStats),
	}
}

// NewStrategy creates the generation-strategy router (prior 1/1, default arms).
func NewStrategy(kv store.KV, cfg *config.Config, src sampling.Source) *Router {
	return New(kv, cfg.Router, src, logging.CategoryRouter)
}

// NewExperts creates the named-expert router (prior 2/2).
func NewExperts(kv store.KV, cfg *config.Config, src sampling.Source) *Router {
	return New(kv, cfg.Experts, src, logging.CategoryExperts)
}

// DefaultArms returns the configured arm set.
func (r *Router) DefaultArms() []string {
	return append([]string(nil), r.cfg.Arms...)
}

// PickArm samples every arm and returns the best scoring one. An empty list
// means the configured default arms; ties go to the earliest arm.
// Returns "" only when there is nothing to choose from.
func (r *Router) PickArm(ctx context.Context, arms []string) string {
	if len(arms) == 0 {
		arms = r.DefaultArms()
	}
	if len(arms) == 0 {
		return ""
	}

	stats := r.load(ctx)
	best, bestScore := "", math.Inf(-1)
	for _, arm := range arms {
		s, ok := stats[arm]
		if !ok {
			s = r.fresh(arm)
		}
		score := r.score(s)
		r.log.Debug("arm %s alpha=%.1f beta=%.1f score=%.4f", arm, s.Alpha, s.Beta, score)
		if score > bestScore {
			best, bestScore = arm, score
		}
	}
	if best == "" {
		best = arms[0]
	}
	return best
}

func (r *Router) score(s ArmStats) float64 {
	draw := sampling.BetaSample(r.src, s.Alpha, s.Beta)
	penalty := 0.0
	if s.EMAMs != nil {
		penalty += r.cfg.LatencyWeight * *s.EMAMs / 1000
	}
	if s.EMACents != nil {
		penalty += r.cfg.CostWeight * *s.EMACents
	}
	if s.EMATokens != nil {
		penalty += r.cfg.TokenWeight * *s.EMATokens / 1000
	}
	return draw - penalty
}

// RecordOutcome folds one observed outcome into arm's stats and persists them.
// It never fails: storage errors are logged and the in-memory copy is updated.
func (r *Router) RecordOutcome(ctx context.Context, arm string, out Outcome) {
	if arm == "" {
		r.log.Warn("ignoring outcome for empty arm id")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	update := func(doc map[string]ArmStats) {
		s, ok := doc[arm]
		if !ok {
			s = r.fresh(arm)
		}
		doc[arm] = r.apply(s, out)
	}

	doc, err := store.MergeJSON(ctx, r.kv, r.cfg.StoreKey, func(doc *map[string]ArmStats) error {
		if *doc == nil {
			*doc = make(map[string]ArmStats)
		}
		r.repair(*doc)
		r.replay(*doc)
		update(*doc)
		return nil
	})
	if err != nil {
		r.log.Warn("persist %s outcome for %s failed, keeping in memory: %v", r.cfg.StoreKey, arm, err)
		if len(r.pending) >= maxPending {
			r.log.Warn("dropping oldest unpersisted outcome for %s", r.cfg.StoreKey)
			r.pending = r.pending[1:]
		}
		r.pending = append(r.pending, update)
		update(r.mem)
		return
	}
	if n := len(r.pending); n > 0 {
		r.log.Info("flushed %d unpersisted outcomes to %s", n, r.cfg.StoreKey)
		r.pending = nil
	}
	r.mem = doc
	r.log.Debug("recorded %s success=%v alpha=%.0f beta=%.0f n=%d", arm, out.Success, doc[arm].Alpha, doc[arm].Beta, doc[arm].N)
}

// replay applies the outcomes that have not reached the store yet.
func (r *Router) replay(doc map[string]ArmStats) {
	for _, fn := range r.pending {
		fn(doc)
	}
}

func (r *Router) apply(s ArmStats, out Outcome) ArmStats {
	if out.Success {
		s.Alpha++
	} else {
		s.Beta++
	}
	s.EMAMs = ema(s.EMAMs, out.MS, r.cfg.EMASmoothing)
	s.EMACents = ema(s.EMACents, out.Cents, r.cfg.EMASmoothing)
	s.EMATokens = ema(s.EMATokens, out.Tokens, r.cfg.EMASmoothing)
	s.N++
	return s
}

// ema blends x into prev. Missing or non-finite observations leave prev as is.
func ema(prev, x *float64, smoothing float64) *float64 {
	if x == nil || !finite(*x) {
		return prev
	}
	v := *x
	if prev != nil {
		v = (1-smoothing)**prev + smoothing*v
	}
	return &v
}

// Snapshot returns a copy of the current stats.
func (r *Router) Snapshot(ctx context.Context) map[string]ArmStats {
	stats := r.load(ctx)
	out := make(map[string]ArmStats, len(stats))
	for k, v := range stats {
		out[k] = v
	}
	return out
}

// load reads persisted stats with unpersisted outcomes replayed on top,
// falling back to the in-memory copy.
func (r *Router) load(ctx context.Context) map[string]ArmStats {
	var doc map[string]ArmStats
	err := store.GetJSON(ctx, r.kv, r.cfg.StoreKey, &doc)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case err == nil:
		if doc == nil {
			doc = make(map[string]ArmStats)
		}
		r.repair(doc)
		r.replay(doc)
		r.mem = doc
	case errors.Is(err, store.ErrNotFound):
		r.mem = make(map[string]ArmStats)
		r.replay(r.mem)
	default:
		r.log.Warn("load %s failed, using in-memory stats: %v", r.cfg.StoreKey, err)
	}
	out := make(map[string]ArmStats, len(r.mem))
	for k, v := range r.mem {
		out[k] = v
	}
	return out
}

func (r *Router) fresh(arm string) ArmStats {
	return ArmStats{ArmID: arm, Alpha: r.cfg.PriorAlpha, Beta: r.cfg.PriorBeta}
}

// repair resets corrupt entries in place so alpha and beta stay >= 1.
func (r *Router) repair(doc map[string]ArmStats) {
	for arm, s := range doc {
		if !finite(s.Alpha) || s.Alpha < 1 || !finite(s.Beta) || s.Beta < 1 || s.N < 0 {
			r.log.Warn("repairing corrupt stats for arm %s", arm)
			doc[arm] = r.fresh(arm)
			continue
		}
		s.ArmID = arm
		s.EMAMs = finiteOrNil(s.EMAMs)
		s.EMACents = finiteOrNil(s.EMACents)
		s.EMATokens = finiteOrNil(s.EMATokens)
		doc[arm] = s
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || !finite(*v) {
		return nil
	}
	return v
}
