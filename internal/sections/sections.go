// Package sections implements the per-audience section variant bandit.
//
// Variants of one content block are grouped under "audience|baseID". Each
// variant keeps a Beta belief plus seen/win counters; picking adds a fading
// exploration bonus for cold arms and a small mean term. Beliefs that sit
// idle for longer than the decay window are shrunk back toward Beta(1,1).
// Updates that cannot be written are held in memory and replayed over the
// persisted document until a write succeeds.
package sections

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/sampling"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store"
)

// ArmStats is the persisted belief for one section variant.
// Seen and Win are fractional once decay has been applied.
type ArmStats struct {
	VariantID   string    `json:"variant_id"`
	Alpha       float64   `json:"alpha"`
	Beta        float64   `json:"beta"`
	Seen        float64   `json:"seen"`
	Win         float64   `json:"win"`
	LastUpdated time.Time `json:"last_updated"`
}

// Group holds the sibling variants of one base section, in seed order.
type Group struct {
	Variants []ArmStats `json:"variants"`
}

func (g *Group) index(id string) int {
	for i, v := range g.Variants {
		if v.VariantID == id {
			return i
		}
	}
	return -1
}

// Doc is the persisted document: group key -> group.
type Doc map[string]*Group

// Key builds the group key for a base section and audience.
func Key(audience, baseID string) string {
	return audience + "|" + baseID
}

// Option configures a Bandit.
type Option func(*Bandit)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(b *Bandit) { b.now = now }
}

// Bandit is the section variant bandit.
type Bandit struct {
	kv  store.KV
	cfg config.SectionsConfig
	src sampling.Source
	now func() time.Time

	decayAfter time.Duration
	halfLife   time.Duration

	mu      sync.Mutex
	mem     Doc
	pending []func(Doc)
}

// maxPending bounds the updates held back while writes fail.
const maxPending = 4096

// New creates a section bandit persisting under cfg.StoreKey.
func New(kv store.KV, cfg config.SectionsConfig, src sampling.Source, opts ...Option) *Bandit {
	if src == nil {
		src = sampling.NewTimeSource()
	}
	if cfg.StoreKey == "" {
		cfg.StoreKey = "sections.bandits"
	}
	if !(cfg.ExplorationFade > 0) {
		cfg.ExplorationFade = 6
	}
	if !(cfg.SeenCap >= 0) {
		cfg.SeenCap = 20
	}
	b := &Bandit{
		kv:         kv,
		cfg:        cfg,
		src:        src,
		now:        time.Now,
		decayAfter: cfg.GetDecayAfter(),
		halfLife:   cfg.GetDecayHalfLife(),
		mem:        make(Doc),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bandit) fresh(id string, now time.Time) ArmStats {
	return ArmStats{VariantID: id, Alpha: 1, Beta: 1, LastUpdated: now}
}

// SeedVariants ensures a Beta(1,1) arm exists for every sibling under
// audience|baseID. Existing arms are never touched.
func (b *Bandit) SeedVariants(ctx context.Context, baseID, audience string, siblings []string) {
	if baseID == "" {
		return
	}
	if len(siblings) == 0 {
		siblings = []string{baseID}
	}
	key := Key(audience, baseID)
	now := b.now()

	b.mutate(ctx, "seed "+key, func(doc Doc) {
		g := doc[key]
		if g == nil {
			g = &Group{}
			doc[key] = g
		}
		added := 0
		for _, id := range siblings {
			if id == "" || g.index(id) >= 0 {
				continue
			}
			g.Variants = append(g.Variants, b.fresh(id, now))
			added++
		}
		if added > 0 {
			logging.SectionsDebug("seeded %d variants under %s", added, key)
		}
	})
}

// PickVariant returns the variant to render for id. When id belongs to no
// seeded group it is returned unchanged.
func (b *Bandit) PickVariant(ctx context.Context, id, audience string) string {
	doc := b.load(ctx)
	key := resolve(doc, id, audience)
	g := doc[key]
	if g == nil || len(g.Variants) == 0 {
		return id
	}

	now := b.now()
	if b.needsDecay(g, now) {
		b.mutate(ctx, "decay "+key, func(doc Doc) {
			if pg := doc[key]; pg != nil {
				b.decay(pg, now)
			}
		})
		b.decay(g, now)
	}

	best, bestScore := g.Variants[0].VariantID, math.Inf(-1)
	for _, v := range g.Variants {
		score := b.score(v)
		if score > bestScore {
			best, bestScore = v.VariantID, score
		}
	}
	logging.SectionsDebug("picked %s for %s (score %.4f)", best, key, bestScore)
	return best
}

func (b *Bandit) score(v ArmStats) float64 {
	seen := math.Min(math.Max(v.Seen, 0), b.cfg.SeenCap)
	bonus := b.cfg.ExplorationBonus * math.Exp(-seen/b.cfg.ExplorationFade)
	return sampling.BetaSample(b.src, v.Alpha, v.Beta) + bonus + b.cfg.MeanWeight*sampling.BetaMean(v.Alpha, v.Beta)
}

// RecordSectionOutcome counts one impression for every id, and a win when won.
// Unknown ids are seeded lazily as single-variant groups.
func (b *Bandit) RecordSectionOutcome(ctx context.Context, ids []string, audience string, won bool) {
	if len(ids) == 0 {
		return
	}
	now := b.now()
	b.mutate(ctx, "outcome", func(doc Doc) {
		for _, id := range ids {
			if id == "" {
				continue
			}
			key := resolve(doc, id, audience)
			g := doc[key]
			if g == nil {
				key = Key(audience, id)
				g = &Group{}
				doc[key] = g
			}
			b.decay(g, now)
			i := g.index(id)
			if i < 0 {
				g.Variants = append(g.Variants, b.fresh(id, now))
				i = len(g.Variants) - 1
			}
			v := &g.Variants[i]
			v.Seen++
			if won {
				v.Win++
				v.Alpha++
			} else {
				v.Beta++
			}
			v.LastUpdated = now
		}
	})
}

// Snapshot returns a deep copy of every group.
func (b *Bandit) Snapshot(ctx context.Context) Doc {
	return b.load(ctx)
}

// resolve maps id to the group it was seeded under: a base id directly, or a
// sibling id by membership. Returns "" when id is unknown for audience.
func resolve(doc Doc, id, audience string) string {
	key := Key(audience, id)
	if g := doc[key]; g != nil {
		return key
	}
	prefix := audience + "|"
	match := ""
	for k, g := range doc {
		if !strings.HasPrefix(k, prefix) || g == nil || g.index(id) < 0 {
			continue
		}
		// Deterministic choice when a variant was seeded under several bases
		if match == "" || k < match {
			match = k
		}
	}
	return match
}

func (b *Bandit) needsDecay(g *Group, now time.Time) bool {
	for _, v := range g.Variants {
		if now.Sub(v.LastUpdated) > b.decayAfter {
			return true
		}
	}
	return false
}

// decay shrinks idle arms toward Beta(1,1) by 0.5^(idle/halfLife).
func (b *Bandit) decay(g *Group, now time.Time) {
	for i := range g.Variants {
		v := &g.Variants[i]
		idle := now.Sub(v.LastUpdated)
		if idle <= b.decayAfter {
			continue
		}
		factor := math.Pow(0.5, idle.Hours()/b.halfLife.Hours())
		v.Alpha = 1 + (v.Alpha-1)*factor
		v.Beta = 1 + (v.Beta-1)*factor
		v.Seen *= factor
		v.Win *= factor
		v.LastUpdated = now
		logging.SectionsDebug("decayed %s by %.3f after %s idle", v.VariantID, factor, idle.Round(time.Hour))
	}
}

// mutate applies fn through the store and mirrors the result in memory.
// On storage failure fn is applied to the in-memory copy and queued for replay.
func (b *Bandit) mutate(ctx context.Context, op string, fn func(Doc)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := store.MergeJSON(ctx, b.kv, b.cfg.StoreKey, func(doc *Doc) error {
		if *doc == nil {
			*doc = make(Doc)
		}
		repair(*doc)
		b.replay(*doc)
		fn(*doc)
		return nil
	})
	if err != nil {
		logging.SectionsWarn("%s: persist %s failed, keeping in memory: %v", op, b.cfg.StoreKey, err)
		if len(b.pending) >= maxPending {
			b.pending = b.pending[1:]
		}
		b.pending = append(b.pending, fn)
		fn(b.mem)
		return
	}
	if n := len(b.pending); n > 0 {
		logging.SectionsDebug("flushed %d unpersisted updates to %s", n, b.cfg.StoreKey)
		b.pending = nil
	}
	b.mem = doc
}

func (b *Bandit) replay(doc Doc) {
	for _, fn := range b.pending {
		fn(doc)
	}
}

// load returns a private copy of the current document.
func (b *Bandit) load(ctx context.Context) Doc {
	var doc Doc
	err := store.GetJSON(ctx, b.kv, b.cfg.StoreKey, &doc)

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		if doc == nil {
			doc = make(Doc)
		}
		repair(doc)
		b.replay(doc)
		b.mem = doc
	case errors.Is(err, store.ErrNotFound):
		b.mem = make(Doc)
		b.replay(b.mem)
	default:
		logging.SectionsWarn("load %s failed, using in-memory state: %v", b.cfg.StoreKey, err)
	}
	return b.mem.clone()
}

func (d Doc) clone() Doc {
	out := make(Doc, len(d))
	for k, g := range d {
		if g == nil {
			continue
		}
		out[k] = &Group{Variants: append([]ArmStats(nil), g.Variants...)}
	}
	return out
}

// repair drops nil groups and resets arms whose belief is not a valid Beta.
func repair(doc Doc) {
	for k, g := range doc {
		if g == nil {
			delete(doc, k)
			continue
		}
		for i := range g.Variants {
			v := &g.Variants[i]
			if !finite(v.Alpha) || v.Alpha < 1 || !finite(v.Beta) || v.Beta < 1 {
				logging.SectionsWarn("repairing corrupt arm %s under %s", v.VariantID, k)
				v.Alpha, v.Beta, v.Seen, v.Win = 1, 1, 0, 0
			}
			if !finite(v.Seen) || v.Seen < 0 {
				v.Seen = 0
			}
			if !finite(v.Win) || v.Win < 0 {
				v.Win = 0
			}
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
