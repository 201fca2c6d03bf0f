// Package sampling provides the Gamma and Beta draws shared by every bandit.
//
// All randomness flows through a Source so callers can seed it in tests and
// share one goroutine-safe generator across request handlers.
package sampling

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the minimal random generator the samplers need.
type Source interface {
	Float64() float64
	NormFloat64() float64
}

// LockedSource wraps a *rand.Rand with a mutex so it can be shared.
type LockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSource returns a goroutine-safe PCG source seeded with seed.
func NewSource(seed uint64) *LockedSource {
	return &LockedSource{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSource returns a goroutine-safe source seeded from the wall clock.
func NewTimeSource() *LockedSource {
	return NewSource(uint64(time.Now().UnixNano()))
}

// Float64 returns a uniform draw in [0, 1).
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// NormFloat64 returns a standard normal draw.
func (s *LockedSource) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.NormFloat64()
}

// GammaSample draws from Gamma(shape, 1) using Marsaglia-Tsang.
// Shapes below 1 are boosted: Gamma(a) = Gamma(a+1) * U^(1/a).
// Non-positive or non-finite shapes are clamped to 1.
func GammaSample(src Source, shape float64) float64 {
	if !(shape > 0) || math.IsInf(shape, 0) {
		shape = 1
	}
	if shape < 1 {
		u := src.Float64()
		for u == 0 {
			u = src.Float64()
		}
		return GammaSample(src, shape+1) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = src.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := src.Float64()
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

// BetaSample draws from Beta(a, b) as X/(X+Y) with X~Gamma(a), Y~Gamma(b).
func BetaSample(src Source, a, b float64) float64 {
	x := GammaSample(src, a)
	y := GammaSample(src, b)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// BetaMean is the posterior mean a/(a+b), 0.5 for a degenerate prior.
func BetaMean(a, b float64) float64 {
	if a+b <= 0 {
		return 0.5
	}
	return a / (a + b)
}
