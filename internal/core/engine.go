// Package core wires the decision components into one Engine that owns the
// configuration, the key/value store and every bandit, search and gate.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/audit"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/budget"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/design"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/layout"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/router"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/sampling"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/sections"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/usage"
)

// Option customizes engine construction.
type Option func(*engineOptions)

type engineOptions struct {
	kv    store.KV
	src   sampling.Source
	clock func() time.Time
}

// WithStore uses kv instead of opening cfg.Store.
func WithStore(kv store.KV) Option {
	return func(o *engineOptions) { o.kv = kv }
}

// WithSource shares src across every bandit.
func WithSource(src sampling.Source) Option {
	return func(o *engineOptions) { o.src = src }
}

// WithClock overrides the wall clock of time-aware components.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.clock = now }
}

// Engine is the adaptive decision core.
type Engine struct {
	cfg     *config.Config
	kv      store.KV
	durable bool

	gate     budget.Gate
	strategy *router.Router
	experts  *router.Router
	sections *sections.Bandit
	design   *design.Searcher
	ledger   *usage.Ledger
	audit    *logging.AuditLogger
	solver   layout.SolverOptions
}

// New builds an engine from cfg. A store that cannot be opened degrades to
// memory; an invalid configuration is an error.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "core.New")
	defer timer.Stop()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{cfg: cfg, kv: o.kv, durable: true}
	if e.kv == nil {
		e.kv, e.durable = store.OpenWithFallback(ctx, cfg.Store)
	}
	logging.Boot("store backend=%s durable=%v", cfg.Store.Backend, e.durable)

	srcFor := func(seed uint64) sampling.Source {
		switch {
		case o.src != nil:
			return o.src
		case seed != 0:
			return sampling.NewSource(seed)
		default:
			return sampling.NewTimeSource()
		}
	}

	var sectionOpts []sections.Option
	if o.clock != nil {
		sectionOpts = append(sectionOpts, sections.WithClock(o.clock))
	}

	e.gate = budget.NewGate(cfg)
	e.strategy = router.NewStrategy(e.kv, cfg, srcFor(cfg.Router.Seed))
	e.experts = router.NewExperts(e.kv, cfg, srcFor(cfg.Experts.Seed))
	e.sections = sections.New(e.kv, cfg.Sections, srcFor(cfg.Sections.Seed), sectionOpts...)
	e.design = design.NewSearcher(e.kv, cfg.Design)
	e.ledger = usage.NewLedger(e.kv, cfg.Store.LedgerKey)
	if o.clock != nil {
		e.ledger.SetClock(o.clock)
	}
	e.solver = layout.SolverOptionsFromConfig(cfg.Layout)

	if cfg.Logging.AuditEnabled() {
		al, err := logging.NewAuditLogger(cfg.Logging.LogsDir)
		if err != nil {
			logging.BootError("audit log disabled: %v", err)
		} else {
			e.audit = al
			logging.Boot("audit rows -> %s", al.Path())
		}
	}

	logging.Boot("engine ready: arms=%v budget=(%.2f cents, %.0f tokens)", cfg.Router.Arms, e.gate.MaxCents, e.gate.MaxTokens)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Durable reports whether state survives a restart.
func (e *Engine) Durable() bool { return e.durable }

// Close releases the audit log and the store.
func (e *Engine) Close() error {
	auditErr := e.audit.Close()
	if err := e.kv.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return auditErr
}

// -----------------------------------------------------------------------------
// Budget and routing
// -----------------------------------------------------------------------------

// UnderBudget checks estimated costs against the configured ceilings.
func (e *Engine) UnderBudget(cents, tokens *float64) bool {
	return budget.UnderBudget(cents, tokens, e.gate.MaxCents, e.gate.MaxTokens)
}

// Admit is UnderBudget with a reason.
func (e *Engine) Admit(u budget.Usage) budget.Decision {
	return e.gate.Admit(u)
}

// Route admits the request and, when allowed, picks a strategy arm.
// The arm is "" when the request is rejected.
func (e *Engine) Route(ctx context.Context, u budget.Usage, arms []string) (string, budget.Decision) {
	d := e.gate.Admit(u)
	if !d.Allowed {
		return "", d
	}
	return e.strategy.PickArm(ctx, arms), d
}

// PickArm chooses a generation strategy.
func (e *Engine) PickArm(ctx context.Context, arms []string) string {
	return e.strategy.PickArm(ctx, arms)
}

// RecordOutcome updates the strategy bandit and the spend ledger. A ledger
// attached with usage.NewContext receives the spend instead of the engine's.
func (e *Engine) RecordOutcome(ctx context.Context, arm string, out router.Outcome) {
	e.strategy.RecordOutcome(ctx, arm, out)
	ledger := usage.FromContext(ctx)
	if ledger == nil {
		ledger = e.ledger
	}
	ledger.Record(ctx, arm, out.Success, out.Cents, out.Tokens)
}

// PickExpert chooses among named experts.
func (e *Engine) PickExpert(ctx context.Context, experts []string) string {
	return e.experts.PickArm(ctx, experts)
}

// RecordExpertOutcome updates the expert bandit.
func (e *Engine) RecordExpertOutcome(ctx context.Context, expert string, out router.Outcome) {
	e.experts.RecordOutcome(ctx, expert, out)
}

// -----------------------------------------------------------------------------
// Sections
// -----------------------------------------------------------------------------

// SeedVariants registers sibling variants for a base section.
func (e *Engine) SeedVariants(ctx context.Context, baseID, audience string, siblings []string) {
	e.sections.SeedVariants(ctx, baseID, audience, siblings)
}

// PickVariant picks the variant of id to render for audience.
func (e *Engine) PickVariant(ctx context.Context, id, audience string) string {
	return e.sections.PickVariant(ctx, id, audience)
}

// RecordSectionOutcome records impressions, and a conversion when won.
func (e *Engine) RecordSectionOutcome(ctx context.Context, ids []string, audience string, won bool) {
	e.sections.RecordSectionOutcome(ctx, ids, audience, won)
}

// -----------------------------------------------------------------------------
// Theming
// -----------------------------------------------------------------------------

// TokenMixer derives tokens for one theme.
func (e *Engine) TokenMixer(primary string, dark bool, tone string) design.Tokens {
	return design.TokenMixer(primary, dark, tone)
}

// EvaluateDesign scores a token set.
func (e *Engine) EvaluateDesign(t design.Tokens) design.Evaluation {
	return design.EvaluateDesign(t)
}

// WideTokenSearch runs an uncached search against the stored taste priors.
func (e *Engine) WideTokenSearch(ctx context.Context, args design.Args) design.SearchResult {
	return e.design.WideTokenSearch(args, e.design.LoadPriors(ctx))
}

// SearchBestTokensCached returns the memoized search result for args.
func (e *Engine) SearchBestTokensCached(ctx context.Context, args design.Args) design.CacheEntry {
	entry, _ := e.design.SearchBestTokensCached(ctx, args)
	return entry
}

// -----------------------------------------------------------------------------
// Layout
// -----------------------------------------------------------------------------

// DecideGate runs the layout gate with configured thresholds.
func (e *Engine) DecideGate(in layout.Input) layout.GateResult {
	return layout.DecideGate(in, e.solver.Gate)
}

// Publish runs gate, guardrail and sup gate for a rendered page and appends
// the sup mode to the audit trail.
func (e *Engine) Publish(pageID string, in layout.Input) layout.Verdict {
	start := time.Now()
	v := layout.Evaluate(in, e.solver.Gate)
	e.audit.SupDecision(pageID, string(v.Sup.Mode), v.Sup.Reason, time.Since(start))
	logging.Layout("page %s: %s -> %s (%s)", pageID, v.Gate.Decision, v.Sup.Mode, v.Sup.Reason)
	return v
}

// RunSolver patches a page toward ok and audits the final sup mode.
func (e *Engine) RunSolver(pageID string, initial layout.Input, propose layout.ProposeFunc, apply layout.ApplyFunc) layout.Result {
	start := time.Now()
	res := layout.RunSolver(initial, propose, apply, e.solver)
	sup := layout.DecideSupGate(layout.DecideGuardrail(res.Final.Gate))
	elapsed := time.Since(start)
	e.audit.SupDecision(pageID, string(sup.Mode), sup.Reason, elapsed)

	log := logging.Get(logging.CategoryLayout)
	for i, step := range res.Trace {
		log.StructuredLog("debug", "solver step", map[string]interface{}{
			"run_id": res.RunID,
			"step":   i + 1,
			"patch":  step.Patch.ID,
			"before": string(step.Before.Gate.Decision),
			"after":  string(step.After.Gate.Decision),
		})
	}
	log.StructuredLog("info", "solver finished", map[string]interface{}{
		"run_id":   res.RunID,
		"page_id":  pageID,
		"decision": string(res.Decision),
		"sup":      string(sup.Mode),
		"patches":  len(res.AppliedPatches),
		"stalled":  res.Stalled,
		"elapsed":  elapsed,
	})
	return res
}

// -----------------------------------------------------------------------------
// Observability
// -----------------------------------------------------------------------------

// Summarize aggregates audit rows.
func (e *Engine) Summarize(rows [][]byte) audit.Summary {
	return audit.Summarize(rows)
}

// Stats is a point-in-time view of the learned state.
type Stats struct {
	Durable  bool                       `json:"durable"`
	Strategy map[string]router.ArmStats `json:"strategy"`
	Experts  map[string]router.ArmStats `json:"experts"`
	Sections sections.Doc               `json:"sections"`
	Spend    usage.AggregatedStats      `json:"spend"`
	Today    usage.Counts               `json:"today"`
}

// Stats snapshots every component.
func (e *Engine) Stats(ctx context.Context) Stats {
	return Stats{
		Durable:  e.durable,
		Strategy: e.strategy.Snapshot(ctx),
		Experts:  e.experts.Snapshot(ctx),
		Sections: e.sections.Snapshot(ctx),
		Spend:    e.ledger.Stats(ctx),
		Today:    e.ledger.Totals(ctx, e.ledger.Today()),
	}
}
