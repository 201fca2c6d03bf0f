package usage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store"
)

type contextKey struct{}

// ledgerVersion is stamped on every persisted document.
const ledgerVersion = "1.0"

// Ledger aggregates spend per arm and per day in a KV document.
type Ledger struct {
	mu  sync.Mutex
	kv  store.KV
	key string
	now func() time.Time
	mem LedgerData // last known state, used when the store fails
}

// NewLedger creates a ledger persisting under key.
func NewLedger(kv store.KV, key string) *Ledger {
	if key == "" {
		key = "usage.ledger"
	}
	l := &Ledger{kv: kv, key: key, now: time.Now}
	l.mem.Version = ledgerVersion
	l.mem.Aggregate.ensure()
	return l
}

// SetClock overrides the wall clock used to stamp events.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Record adds one request outcome. Storage failures are logged and the
// in-memory aggregate is updated instead.
func (l *Ledger) Record(ctx context.Context, arm string, success bool, cents, tokens *float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Event{Timestamp: l.now(), Arm: arm, Success: success, Cents: cents, Tokens: tokens}
	if e.Arm == "" {
		e.Arm = "unknown"
	}

	doc, err := store.MergeJSON(ctx, l.kv, l.key, func(d *LedgerData) error {
		apply(d, e)
		return nil
	})
	if err != nil {
		logging.UsageWarn("persist %s failed, keeping in memory: %v", l.key, err)
		apply(&l.mem, e)
		return
	}
	l.mem = doc
	logging.UsageDebug("recorded %s on %s (success=%v)", e.Arm, e.Day(), success)
}

func apply(d *LedgerData, e Event) {
	d.Version = ledgerVersion
	d.Aggregate.ensure()
	d.Aggregate.Total.Add(e)
	addTo(d.Aggregate.ByArm, e.Arm, e)
	day := e.Day()
	addTo(d.Aggregate.ByDay, day, e)
	if d.Aggregate.ByDayArm[day] == nil {
		d.Aggregate.ByDayArm[day] = make(map[string]Counts)
	}
	addTo(d.Aggregate.ByDayArm[day], e.Arm, e)
}

func addTo(m map[string]Counts, key string, e Event) {
	entry := m[key]
	entry.Add(e)
	m[key] = entry
}

// Stats returns a copy of the aggregated stats.
func (l *Ledger) Stats(ctx context.Context) AggregatedStats {
	var doc LedgerData
	err := store.GetJSON(ctx, l.kv, l.key, &doc)

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case err == nil:
		doc.Aggregate.ensure()
		l.mem = doc
	case errors.Is(err, store.ErrNotFound):
	default:
		logging.UsageWarn("load %s failed, using in-memory ledger: %v", l.key, err)
	}

	stats := l.mem.Aggregate
	stats.ByArm = copyCountsMap(stats.ByArm)
	stats.ByDay = copyCountsMap(stats.ByDay)
	byDayArm := make(map[string]map[string]Counts, len(stats.ByDayArm))
	for day, m := range stats.ByDayArm {
		byDayArm[day] = copyCountsMap(m)
	}
	stats.ByDayArm = byDayArm
	return stats
}

// Totals returns the counts for one day ("2006-01-02"); an empty day means
// all time.
func (l *Ledger) Totals(ctx context.Context, day string) Counts {
	stats := l.Stats(ctx)
	if day == "" {
		return stats.Total
	}
	return stats.ByDay[day]
}

// Today returns the current UTC day key.
func (l *Ledger) Today() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now().UTC().Format(DayLayout)
}

func copyCountsMap(src map[string]Counts) map[string]Counts {
	dst := make(map[string]Counts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

// Context Helpers

// NewContext returns a new context carrying the ledger.
func NewContext(ctx context.Context, l *Ledger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext retrieves the ledger from the context.
func FromContext(ctx context.Context) *Ledger {
	val := ctx.Value(contextKey{})
	if val == nil {
		return nil
	}
	return val.(*Ledger)
}
