// Package design derives theme tokens from a brand color and searches the
// neighbouring theme space for the candidate that best balances
// accessibility, visual heuristics and learned taste priors.
package design

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPrimary is used whenever the requested primary cannot be parsed.
const DefaultPrimary = "#4f46e5"

// Contrast targets (WCAG ratios).
const (
	BodyContrast   = 7.0
	AccentContrast = 4.5
	maxNudges      = 40
	nudgeStep      = 0.025
)

// Tones, in canonical search order.
const (
	ToneMinimal = "minimal"
	ToneSerious = "serious"
	TonePlayful = "playful"
	ToneVibrant = "vibrant"
)

// Tones lists every tone the mixer knows.
var Tones = []string{ToneMinimal, ToneSerious, TonePlayful, ToneVibrant}

type toneProfile struct {
	basePx      float64
	ratio       float64
	spacingUnit int
	radius      int
	saturation  float64 // multiplier applied to the primary
	shadowAlpha float64
}

var toneProfiles = map[string]toneProfile{
	ToneMinimal: {basePx: 16, ratio: 1.2, spacingUnit: 8, radius: 6, saturation: 0.85, shadowAlpha: 0.06},
	ToneSerious: {basePx: 16, ratio: 1.25, spacingUnit: 8, radius: 4, saturation: 0.9, shadowAlpha: 0.08},
	TonePlayful: {basePx: 17, ratio: 1.333, spacingUnit: 10, radius: 14, saturation: 1.1, shadowAlpha: 0.12},
	ToneVibrant: {basePx: 16, ratio: 1.3, spacingUnit: 8, radius: 10, saturation: 1.2, shadowAlpha: 0.14},
}

// NormalizeTone lower-cases tone and maps unknown values to minimal.
func NormalizeTone(tone string) string {
	tone = strings.ToLower(strings.TrimSpace(tone))
	if _, ok := toneProfiles[tone]; ok {
		return tone
	}
	return ToneMinimal
}

// Palette holds hex colors.
type Palette struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
	Primary    string `json:"primary"`
	OnPrimary  string `json:"on_primary"`
	Muted      string `json:"muted"`
	Border     string `json:"border"`
}

// TypeScale is a modular type scale from caption up to h1.
type TypeScale struct {
	BasePx float64   `json:"base_px"`
	Ratio  float64   `json:"ratio"`
	Sizes  []float64 `json:"sizes"`
}

// Contrast holds the achieved WCAG ratios.
type Contrast struct {
	Foreground float64 `json:"foreground"`
	OnPrimary  float64 `json:"on_primary"`
	Muted      float64 `json:"muted"`
}

// Tokens is the full theme handed to the renderer.
type Tokens struct {
	Tone       string    `json:"tone"`
	Dark       bool      `json:"dark"`
	Palette    Palette   `json:"palette"`
	Type       TypeScale `json:"type"`
	Spacing    []int     `json:"spacing"`
	Shadows    []string  `json:"shadows"`
	Radius     int       `json:"radius"`
	Contrast   Contrast  `json:"contrast"`
	ContrastOK bool      `json:"contrast_ok"`
}

// ParseHex parses "#rgb" or "#rrggbb" (leading # optional).
func ParseHex(s string) (colorful.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return colorful.Color{}, false
	}
	for _, r := range s[1:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return colorful.Color{}, false
		}
	}
	c, err := colorful.Hex(s)
	if err != nil || !c.IsValid() {
		return colorful.Color{}, false
	}
	return c, true
}

// NormalizeHex returns the canonical #rrggbb form of s, or DefaultPrimary.
func NormalizeHex(s string) string {
	c, ok := ParseHex(s)
	if !ok {
		return DefaultPrimary
	}
	return c.Clamped().Hex()
}

// ShiftLightness moves the HSL lightness of hex by delta, clamped to [0.05, 0.95].
func ShiftLightness(hex string, delta float64) string {
	c, ok := ParseHex(hex)
	if !ok {
		c, _ = ParseHex(DefaultPrimary)
	}
	h, s, l := c.Hsl()
	return colorful.Hsl(h, s, clamp(l+delta, 0.05, 0.95)).Clamped().Hex()
}

// TokenMixer derives a complete token set from a primary color, a light or
// dark scheme and a tone. It never fails: bad input falls back to defaults.
func TokenMixer(primary string, dark bool, tone string) Tokens {
	tone = NormalizeTone(tone)
	prof := toneProfiles[tone]

	base, ok := ParseHex(primary)
	if !ok {
		base, _ = ParseHex(DefaultPrimary)
	}
	h, s, l := base.Clamped().Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	s = clamp(s*prof.saturation, 0, 1)
	prim := colorful.Hsl(h, s, l).Clamped()

	var bg, fg, muted, border colorful.Color
	if dark {
		bg = colorful.Hsl(h, clamp(s*0.25, 0, 1), 0.08)
		fg = colorful.Hsl(h, 0.1, 0.9)
		muted = colorful.Hsl(h, 0.1, 0.68)
		border = colorful.Hsl(h, clamp(s*0.2, 0, 1), 0.2)
	} else {
		bg = colorful.Hsl(h, clamp(s*0.15, 0, 1), 0.98)
		fg = colorful.Hsl(h, 0.15, 0.14)
		muted = colorful.Hsl(h, 0.1, 0.42)
		border = colorful.Hsl(h, clamp(s*0.2, 0, 1), 0.88)
	}
	bg = bg.Clamped()

	fg, fgRatio := nudge(fg, bg, BodyContrast, dark)
	muted, mutedRatio := nudge(muted, bg, AccentContrast, dark)

	// Text on primary goes toward whichever extreme contrasts more
	towardLight := ContrastRatio(colorful.Color{R: 1, G: 1, B: 1}, prim) >= ContrastRatio(colorful.Color{}, prim)
	onStart := colorful.Hsl(h, 0.1, 0.2)
	if towardLight {
		onStart = colorful.Hsl(h, 0.1, 0.85)
	}
	onPrim, onRatio := nudge(onStart, prim, AccentContrast, towardLight)

	return Tokens{
		Tone: tone,
		Dark: dark,
		Palette: Palette{
			Background: bg.Hex(),
			Foreground: fg.Hex(),
			Primary:    prim.Hex(),
			OnPrimary:  onPrim.Hex(),
			Muted:      muted.Hex(),
			Border:     border.Clamped().Hex(),
		},
		Type:    typeScale(prof.basePx, prof.ratio),
		Spacing: spacingRamp(prof.spacingUnit),
		Shadows: shadows(prof.shadowAlpha, dark),
		Radius:  prof.radius,
		Contrast: Contrast{
			Foreground: round2(fgRatio),
			OnPrimary:  round2(onRatio),
			Muted:      round2(mutedRatio),
		},
		ContrastOK: fgRatio >= BodyContrast && onRatio >= AccentContrast,
	}
}

// nudge walks fg's lightness toward white (or black) until it reaches target
// contrast against bg or the iteration budget runs out.
func nudge(fg, bg colorful.Color, target float64, towardLight bool) (colorful.Color, float64) {
	fg = fg.Clamped()
	ratio := ContrastRatio(fg, bg)
	h, s, l := fg.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	for i := 0; i < maxNudges && ratio < target; i++ {
		if towardLight {
			l = math.Min(1, l+nudgeStep)
		} else {
			l = math.Max(0, l-nudgeStep)
		}
		fg = colorful.Hsl(h, s, l).Clamped()
		ratio = ContrastRatio(fg, bg)
		if l == 0 || l == 1 {
			break
		}
	}
	return fg, ratio
}

// RelativeLuminance is the WCAG relative luminance of c.
func RelativeLuminance(c colorful.Color) float64 {
	r, g, b := c.Clamped().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ContrastRatio is the WCAG contrast ratio between two colors (1 to 21).
func ContrastRatio(a, b colorful.Color) float64 {
	la, lb := RelativeLuminance(a), RelativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

func typeScale(base, ratio float64) TypeScale {
	sizes := make([]float64, 0, 7)
	for step := -1; step <= 5; step++ {
		sizes = append(sizes, round2(base*math.Pow(ratio, float64(step))))
	}
	return TypeScale{BasePx: base, Ratio: ratio, Sizes: sizes}
}

func spacingRamp(unit int) []int {
	steps := []float64{0.5, 1, 1.5, 2, 3, 4, 6, 8}
	out := make([]int, len(steps))
	for i, m := range steps {
		out[i] = int(math.Round(float64(unit) * m))
	}
	return out
}

func shadows(alpha float64, dark bool) []string {
	if dark {
		alpha *= 2
	}
	return []string{
		fmt.Sprintf("0 1px 2px rgba(0,0,0,%.2f)", alpha),
		fmt.Sprintf("0 4px 12px rgba(0,0,0,%.2f)", alpha*1.5),
		fmt.Sprintf("0 12px 32px rgba(0,0,0,%.2f)", alpha*2),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
