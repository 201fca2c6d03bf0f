package sampling

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGammaSample_MeanMatchesShape(t *testing.T) {
	src := NewSource(42)
	for _, shape := range []float64{0.3, 1, 2.5, 9} {
		const n = 20000
		sum := 0.0
		for i := 0; i < n; i++ {
			g := GammaSample(src, shape)
			require.False(t, math.IsNaN(g))
			require.GreaterOrEqual(t, g, 0.0)
			sum += g
		}
		mean := sum / n
		assert.InDelta(t, shape, mean, shape*0.08+0.02, "shape=%v", shape)
	}
}

func TestGammaSample_ClampsInvalidShape(t *testing.T) {
	src := NewSource(7)
	for _, shape := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		g := GammaSample(src, shape)
		assert.False(t, math.IsNaN(g))
		assert.GreaterOrEqual(t, g, 0.0)
	}
}

func TestBetaSample_InUnitIntervalWithExpectedMean(t *testing.T) {
	src := NewSource(1)
	const n = 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		x := BetaSample(src, 8, 2)
		require.GreaterOrEqual(t, x, 0.0)
		require.LessOrEqual(t, x, 1.0)
		sum += x
	}
	assert.InDelta(t, 0.8, sum/n, 0.02)
}

func TestBetaSample_Deterministic(t *testing.T) {
	a, b := NewSource(99), NewSource(99)
	for i := 0; i < 50; i++ {
		assert.Equal(t, BetaSample(a, 2, 3), BetaSample(b, 2, 3))
	}
}

func TestLockedSource_ConcurrentUse(t *testing.T) {
	src := NewSource(5)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = BetaSample(src, 1, 1)
			}
		}()
	}
	wg.Wait()
}

func TestBetaMean(t *testing.T) {
	assert.Equal(t, 0.5, BetaMean(0, 0))
	assert.InDelta(t, 0.75, BetaMean(3, 1), 1e-12)
}
