package sections

import (
	"context"
	"testing"
	"time"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/sampling"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newBandit(t *testing.T, kv store.KV) (*Bandit, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b := New(kv, config.DefaultConfig().Sections, sampling.NewSource(11), WithClock(clock.Now))
	return b, clock
}

func TestPickVariant_UnseededReturnsInput(t *testing.T) {
	b, _ := newBandit(t, store.NewMemoryStore())
	assert.Equal(t, "hero-a", b.PickVariant(context.Background(), "hero-a", "founders"))
}

func TestSeedVariants_Idempotent(t *testing.T) {
	ctx := context.Background()
	b, _ := newBandit(t, store.NewMemoryStore())

	b.SeedVariants(ctx, "hero", "founders", []string{"hero", "hero-b", "hero-c"})
	b.RecordSectionOutcome(ctx, []string{"hero-b"}, "founders", true)
	b.SeedVariants(ctx, "hero", "founders", []string{"hero", "hero-b", "hero-d"})

	g := b.Snapshot(ctx)[Key("founders", "hero")]
	require.NotNil(t, g)
	ids := []string{}
	for _, v := range g.Variants {
		ids = append(ids, v.VariantID)
	}
	assert.Equal(t, []string{"hero", "hero-b", "hero-c", "hero-d"}, ids)
	assert.Equal(t, 2.0, g.Variants[1].Alpha, "existing state must not be overwritten")
}

func TestPickVariant_ReturnsSibling(t *testing.T) {
	ctx := context.Background()
	b, _ := newBandit(t, store.NewMemoryStore())
	siblings := []string{"cta", "cta-bold", "cta-soft"}
	b.SeedVariants(ctx, "cta", "smb", siblings)

	for i := 0; i < 50; i++ {
		assert.Contains(t, siblings, b.PickVariant(ctx, "cta", "smb"))
	}
	// Audience isolation
	assert.Equal(t, "cta", b.PickVariant(ctx, "cta", "enterprise"))
}

func TestPickVariant_LearnsWinner(t *testing.T) {
	ctx := context.Background()
	b, _ := newBandit(t, store.NewMemoryStore())
	b.SeedVariants(ctx, "pricing", "all", []string{"pricing", "pricing-b"})

	for i := 0; i < 40; i++ {
		b.RecordSectionOutcome(ctx, []string{"pricing-b"}, "all", true)
		b.RecordSectionOutcome(ctx, []string{"pricing"}, "all", false)
	}
	wins := 0
	for i := 0; i < 200; i++ {
		if b.PickVariant(ctx, "pricing", "all") == "pricing-b" {
			wins++
		}
	}
	assert.Greater(t, wins, 190)
}

func TestRecordSectionOutcome_Counts(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	b, _ := newBandit(t, kv)
	b.SeedVariants(ctx, "hero", "a", []string{"hero", "hero-b"})

	b.RecordSectionOutcome(ctx, []string{"hero-b"}, "a", true)
	b.RecordSectionOutcome(ctx, []string{"hero-b"}, "a", false)
	b.RecordSectionOutcome(ctx, []string{"faq"}, "a", false)

	doc := b.Snapshot(ctx)
	v := doc[Key("a", "hero")].Variants[1]
	assert.Equal(t, 2.0, v.Seen)
	assert.Equal(t, 1.0, v.Win)
	assert.Equal(t, 2.0, v.Alpha)
	assert.Equal(t, 2.0, v.Beta)

	// Unknown ids get a lazily seeded group of their own
	faq := doc[Key("a", "faq")]
	require.NotNil(t, faq)
	require.Len(t, faq.Variants, 1)
	assert.Equal(t, 1.0, faq.Variants[0].Seen)
	assert.Equal(t, 2.0, faq.Variants[0].Beta)

	var persisted Doc
	require.NoError(t, store.GetJSON(ctx, kv, "sections.bandits", &persisted))
	assert.Len(t, persisted, 2)
}

func TestDecay_ShrinksIdleArms(t *testing.T) {
	ctx := context.Background()
	b, clock := newBandit(t, store.NewMemoryStore())
	b.SeedVariants(ctx, "hero", "a", []string{"hero", "hero-b"})
	for i := 0; i < 10; i++ {
		b.RecordSectionOutcome(ctx, []string{"hero-b"}, "a", true)
	}

	// Within the window nothing changes
	clock.Advance(6 * 24 * time.Hour)
	b.PickVariant(ctx, "hero", "a")
	v := b.Snapshot(ctx)[Key("a", "hero")].Variants[1]
	assert.Equal(t, 11.0, v.Alpha)

	// 60 idle days halve the evidence
	clock.Advance(54 * 24 * time.Hour)
	b.PickVariant(ctx, "hero", "a")
	v = b.Snapshot(ctx)[Key("a", "hero")].Variants[1]
	assert.InDelta(t, 6.0, v.Alpha, 1e-9)
	assert.InDelta(t, 1.0, v.Beta, 1e-9)
	assert.InDelta(t, 5.0, v.Seen, 1e-9)
	assert.InDelta(t, 5.0, v.Win, 1e-9)
	assert.Equal(t, clock.Now(), v.LastUpdated.UTC())

	// Stamped: picking again right away does not decay twice
	b.PickVariant(ctx, "hero", "a")
	v = b.Snapshot(ctx)[Key("a", "hero")].Variants[1]
	assert.InDelta(t, 6.0, v.Alpha, 1e-9)
}

func TestBandit_StorageFailure(t *testing.T) {
	ctx := context.Background()
	kv := storetest.Broken()
	b, _ := newBandit(t, kv)

	assert.NotPanics(t, func() {
		b.SeedVariants(ctx, "hero", "a", []string{"hero", "hero-b"})
		b.RecordSectionOutcome(ctx, []string{"hero-b"}, "a", true)
	})
	assert.Contains(t, []string{"hero", "hero-b"}, b.PickVariant(ctx, "hero", "a"))
	assert.Equal(t, 2.0, b.Snapshot(ctx)[Key("a", "hero")].Variants[1].Alpha)
}

func TestBandit_WriteFailuresWithReadableStoreKeepUpdates(t *testing.T) {
	ctx := context.Background()
	kv := storetest.NewFaulty(nil)
	b, _ := newBandit(t, kv)
	b.SeedVariants(ctx, "hero", "a", []string{"hero", "hero-b"})

	kv.FailWrites(true)
	for i := 0; i < 5; i++ {
		b.RecordSectionOutcome(ctx, []string{"hero-b"}, "a", true)
		b.PickVariant(ctx, "hero", "a")
	}
	v := b.Snapshot(ctx)[Key("a", "hero")].Variants[1]
	assert.Equal(t, 5.0, v.Seen)
	assert.Equal(t, 6.0, v.Alpha)

	kv.FailWrites(false)
	b.RecordSectionOutcome(ctx, []string{"hero-b"}, "a", false)

	var persisted Doc
	require.NoError(t, store.GetJSON(ctx, kv.Inner, "sections.bandits", &persisted))
	pv := persisted[Key("a", "hero")].Variants[1]
	assert.Equal(t, 6.0, pv.Seen)
	assert.Equal(t, 6.0, pv.Alpha)
	assert.Equal(t, 2.0, pv.Beta)
}

func TestBandit_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "sections.bandits", []byte(`{"a|hero":{"variants":[{"variant_id":"hero","alpha":-1,"beta":0,"seen":-4}]}}`)))
	b, _ := newBandit(t, kv)

	v := b.Snapshot(ctx)[Key("a", "hero")].Variants[0]
	assert.Equal(t, 1.0, v.Alpha)
	assert.Equal(t, 1.0, v.Beta)
	assert.Equal(t, 0.0, v.Seen)
}

func TestResolve(t *testing.T) {
	doc := Doc{
		Key("a", "hero"): {Variants: []ArmStats{{VariantID: "hero"}, {VariantID: "hero-b"}}},
		Key("b", "hero"): {Variants: []ArmStats{{VariantID: "hero"}}},
	}
	assert.Equal(t, Key("a", "hero"), resolve(doc, "hero", "a"))
	assert.Equal(t, Key("a", "hero"), resolve(doc, "hero-b", "a"))
	assert.Equal(t, "", resolve(doc, "hero-b", "b"))
	assert.Equal(t, "", resolve(doc, "nope", "a"))
}
