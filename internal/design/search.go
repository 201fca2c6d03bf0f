package design

import (
	"math"
	"sort"
	"strings"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
)

// Args describe one theming request.
type Args struct {
	Primary  string `json:"primary"`
	Dark     bool   `json:"dark"`
	Tone     string `json:"tone"`
	Goal     string `json:"goal,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Normalize canonicalizes the fields that feed hashing and search.
func (a Args) Normalize() Args {
	return Args{
		Primary:  NormalizeHex(a.Primary),
		Dark:     a.Dark,
		Tone:     NormalizeTone(a.Tone),
		Goal:     strings.ToLower(strings.TrimSpace(a.Goal)),
		Industry: strings.ToLower(strings.TrimSpace(a.Industry)),
	}
}

// Bias is the aggregate preference learned from past picks.
type Bias struct {
	Primary string `json:"primary,omitempty"`
	Dark    *bool  `json:"dark,omitempty"`
	Tone    string `json:"tone,omitempty"`
}

// SignatureScore is the historical win rate of one theme signature.
type SignatureScore struct {
	Sig   string  `json:"sig"`
	Score float64 `json:"score"`
}

// TastePriors are produced by an external learner and only read here.
type TastePriors struct {
	Bias Bias             `json:"bias"`
	Top  []SignatureScore `json:"top"`
}

// Signature identifies a candidate for prior lookups: "tone|dark|#rrggbb".
func Signature(tone string, dark bool, primary string) string {
	scheme := "light"
	if dark {
		scheme = "dark"
	}
	return tone + "|" + scheme + "|" + strings.ToLower(primary)
}

// Candidate is one evaluated point in the search space. Primary is the
// searched color; the tone may saturate it further in Tokens.
type Candidate struct {
	Primary  string  `json:"primary"`
	Dark     bool    `json:"dark"`
	Tone     string  `json:"tone"`
	Tokens   Tokens  `json:"tokens"`
	Fitness  float64 `json:"fitness"`
	A11yPass bool    `json:"a11y_pass"`
	Visual   float64 `json:"visual"`
}

// SearchResult is the ranked outcome of a wide search.
type SearchResult struct {
	Best  Candidate   `json:"best"`
	Tried int         `json:"tried"`
	Top   []Candidate `json:"top"`
}

// lightnessShifts are applied to the requested primary, in search order.
var lightnessShifts = []float64{0, 0.08, -0.08, 0.16, -0.16}

// DefaultSearchConfig returns the design defaults from config.
func DefaultSearchConfig() config.DesignConfig {
	return config.DefaultConfig().Design
}

// WideTokenSearch runs the search with the default configuration.
func WideTokenSearch(args Args, priors TastePriors) SearchResult {
	return Search(args, priors, DefaultSearchConfig())
}

// Search enumerates tone x scheme x lightness-shifted primaries (requested
// values first), scores every candidate and keeps the TopK best.
func Search(args Args, priors TastePriors, cfg config.DesignConfig) SearchResult {
	timer := logging.StartTimer(logging.CategoryDesign, "WideTokenSearch")
	defer timer.Stop()

	args = args.Normalize()
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 48
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	if !(cfg.A11yPenalty > 0 && cfg.A11yPenalty <= 1) {
		cfg.A11yPenalty = 0.72
	}

	tones := []string{args.Tone}
	for _, t := range Tones {
		if t != args.Tone {
			tones = append(tones, t)
		}
	}
	schemes := []bool{args.Dark, !args.Dark}

	var cands []Candidate
enumerate:
	for _, tone := range tones {
		for _, dark := range schemes {
			for _, shift := range lightnessShifts {
				if len(cands) >= cfg.MaxCandidates {
					break enumerate
				}
				primary := ShiftLightness(args.Primary, shift)
				cands = append(cands, score(args, priors, cfg, primary, dark, tone))
			}
		}
	}

	// Stable: generation order breaks the remaining ties
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Fitness != b.Fitness {
			return a.Fitness > b.Fitness
		}
		return a.Visual > b.Visual
	})

	tried := len(cands)
	if len(cands) > cfg.TopK {
		cands = cands[:cfg.TopK]
	}
	logging.DesignDebug("searched %d candidates for %s, best %s/%s fitness %.4f",
		tried, args.Primary, cands[0].Tone, cands[0].Primary, cands[0].Fitness)
	return SearchResult{Best: cands[0], Tried: tried, Top: cands}
}

func score(args Args, priors TastePriors, cfg config.DesignConfig, primary string, dark bool, tone string) Candidate {
	tokens := TokenMixer(primary, dark, tone)
	eval := EvaluateDesign(tokens)

	fitness := eval.VisualScore / 100
	if !eval.A11yPass {
		fitness *= cfg.A11yPenalty
	}
	fitness += priorBonus(priors, cfg, primary, dark, tone)
	fitness += goalBonus(args, cfg, dark, tone)

	return Candidate{
		Primary:  primary,
		Dark:     dark,
		Tone:     tone,
		Tokens:   tokens,
		Fitness:  math.Round(fitness*1e6) / 1e6,
		A11yPass: eval.A11yPass,
		Visual:   eval.VisualScore,
	}
}

// priorBonus rewards signatures that won before and matches on the learned
// bias dimensions, capped at cfg.PriorCap.
func priorBonus(p TastePriors, cfg config.DesignConfig, primary string, dark bool, tone string) float64 {
	sig := Signature(tone, dark, primary)
	bonus := 0.0
	for _, s := range p.Top {
		if strings.EqualFold(s.Sig, sig) {
			bonus += clamp(s.Score, 0, 1) * cfg.PriorWeight
			break
		}
	}
	if p.Bias.Primary != "" && strings.EqualFold(NormalizeHex(p.Bias.Primary), primary) {
		bonus += cfg.BiasMatchBonus
	}
	if p.Bias.Dark != nil && *p.Bias.Dark == dark {
		bonus += cfg.BiasMatchBonus
	}
	if p.Bias.Tone != "" && strings.EqualFold(p.Bias.Tone, tone) {
		bonus += cfg.BiasMatchBonus
	}
	return math.Min(bonus, cfg.PriorCap)
}

// goalBonus applies the hand-tuned goal/industry preferences.
func goalBonus(args Args, cfg config.DesignConfig, dark bool, tone string) float64 {
	text := args.Goal + " " + args.Industry
	bonus := 0.0
	switch {
	case strings.Contains(text, "saas"):
		if tone == ToneSerious || tone == ToneMinimal {
			bonus += 0.025
		}
		if !dark {
			bonus += 0.015
		}
	case strings.Contains(text, "ecommerce"), strings.Contains(text, "e-commerce"),
		strings.Contains(text, "shop"), strings.Contains(text, "retail"):
		if tone == TonePlayful {
			bonus += 0.03
		}
		if tone == ToneVibrant {
			bonus += 0.015
		}
	case strings.Contains(text, "portfolio"):
		if tone == ToneMinimal {
			bonus += 0.02
		}
	}
	return math.Min(bonus, cfg.GoalCap)
}
