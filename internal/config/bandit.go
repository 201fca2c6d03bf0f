package config

import (
	"fmt"
	"time"
)

// BanditConfig configures a Thompson-sampling router (strategies or experts).
type BanditConfig struct {
	StoreKey   string   `yaml:"store_key" json:"store_key"`
	Arms       []string `yaml:"arms" json:"arms,omitempty"` // Default arm set when callers pass none
	PriorAlpha float64  `yaml:"prior_alpha" json:"prior_alpha"`
	PriorBeta  float64  `yaml:"prior_beta" json:"prior_beta"`

	// Penalty weights subtracted from each Beta draw
	LatencyWeight float64 `yaml:"latency_weight" json:"latency_weight"` // per second of EMA latency
	CostWeight    float64 `yaml:"cost_weight" json:"cost_weight"`       // per cent of EMA cost
	TokenWeight   float64 `yaml:"token_weight" json:"token_weight"`     // per 1000 EMA tokens

	EMASmoothing float64 `yaml:"ema_smoothing" json:"ema_smoothing"`
	Seed         uint64  `yaml:"seed" json:"seed,omitempty"` // 0 = seed from clock
}

func (b BanditConfig) validate(name string) error {
	if b.StoreKey == "" {
		return fmt.Errorf("%s.store_key is required", name)
	}
	if !finite(b.PriorAlpha) || b.PriorAlpha < 1 || !finite(b.PriorBeta) || b.PriorBeta < 1 {
		return fmt.Errorf("%s priors must be >= 1", name)
	}
	if !(b.EMASmoothing > 0 && b.EMASmoothing <= 1) {
		return fmt.Errorf("%s.ema_smoothing must be in (0, 1]", name)
	}
	return nil
}

// SectionsConfig configures the per-section variant bandit.
type SectionsConfig struct {
	StoreKey         string  `yaml:"store_key" json:"store_key"`
	ExplorationBonus float64 `yaml:"exploration_bonus" json:"exploration_bonus"` // cold-arm bonus at seen=0
	ExplorationFade  float64 `yaml:"exploration_fade" json:"exploration_fade"`   // e-folding trials of the bonus
	SeenCap          float64 `yaml:"seen_cap" json:"seen_cap"`
	MeanWeight       float64 `yaml:"mean_weight" json:"mean_weight"`
	DecayAfter       string  `yaml:"decay_after" json:"decay_after"`
	DecayHalfLife    string  `yaml:"decay_half_life" json:"decay_half_life"`
	Seed             uint64  `yaml:"seed" json:"seed,omitempty"`
}

// GetDecayAfter returns the idle period before decay kicks in.
func (s *SectionsConfig) GetDecayAfter() time.Duration {
	d, err := time.ParseDuration(s.DecayAfter)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// GetDecayHalfLife returns the decay half-life.
func (s *SectionsConfig) GetDecayHalfLife() time.Duration {
	d, err := time.ParseDuration(s.DecayHalfLife)
	if err != nil || d <= 0 {
		return 60 * 24 * time.Hour
	}
	return d
}

// DesignConfig configures the design token search.
type DesignConfig struct {
	CacheNamespace string  `yaml:"cache_namespace" json:"cache_namespace"`
	PriorsKey      string  `yaml:"priors_key" json:"priors_key"`
	MaxCandidates  int     `yaml:"max_candidates" json:"max_candidates"`
	TopK           int     `yaml:"top_k" json:"top_k"`
	A11yPenalty    float64 `yaml:"a11y_penalty" json:"a11y_penalty"`
	PriorWeight    float64 `yaml:"prior_weight" json:"prior_weight"`
	PriorCap       float64 `yaml:"prior_cap" json:"prior_cap"`
	BiasMatchBonus float64 `yaml:"bias_match_bonus" json:"bias_match_bonus"`
	GoalCap        float64 `yaml:"goal_cap" json:"goal_cap"`
}

// LayoutConfig configures the layout gate and solver.
type LayoutConfig struct {
	HardFail      float64 `yaml:"hard_fail" json:"hard_fail"`
	Soft          float64 `yaml:"soft" json:"soft"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
	MinLQRDelta   float64 `yaml:"min_lqr_delta" json:"min_lqr_delta"`
}

func (l LayoutConfig) validate() error {
	if !finite(l.HardFail) || !finite(l.Soft) || l.HardFail > l.Soft {
		return fmt.Errorf("layout thresholds must be finite with hard_fail <= soft")
	}
	if l.MaxIterations < 0 {
		return fmt.Errorf("layout.max_iterations must be >= 0")
	}
	return nil
}
