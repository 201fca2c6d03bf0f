package design

import (
	"fmt"
	"math"
)

// MinBasePx is the smallest body size considered accessible.
const MinBasePx = 16

// Evaluation scores one token set.
type Evaluation struct {
	VisualScore float64  `json:"visual_score"`
	A11yPass    bool     `json:"a11y_pass"`
	Notes       []string `json:"notes"`
}

// EvaluateDesign scores t on a 0-100 visual scale and checks accessibility.
// The visual score blends spacing generosity, body contrast (capped at 12:1),
// a constant simplicity share and how close the type ratio sits to 1.25.
func EvaluateDesign(t Tokens) Evaluation {
	notes := []string{}

	unit := 0.0
	if len(t.Spacing) > 1 {
		unit = float64(t.Spacing[1])
	}
	spacing := 25 * math.Min(unit/10, 1)
	if unit < 8 {
		notes = append(notes, "tight spacing")
	}

	contrast := 35 * math.Min(clamp(t.Contrast.Foreground, 0, 12), 12) / 12

	const simplicity = 15.0

	ratioDist := math.Abs(t.Type.Ratio - 1.25)
	typeWeight := 25 * math.Max(0, 1-ratioDist/0.25)

	a11y := t.ContrastOK && t.Type.BasePx >= MinBasePx
	if t.Contrast.Foreground < BodyContrast {
		notes = append(notes, fmt.Sprintf("body contrast %.2f below %.0f:1", t.Contrast.Foreground, BodyContrast))
	}
	if t.Contrast.OnPrimary < AccentContrast {
		notes = append(notes, fmt.Sprintf("on-primary contrast %.2f below %.1f:1", t.Contrast.OnPrimary, AccentContrast))
	}
	if t.Contrast.Muted < AccentContrast {
		notes = append(notes, fmt.Sprintf("muted contrast %.2f below %.1f:1", t.Contrast.Muted, AccentContrast))
	}
	if t.Type.BasePx < MinBasePx {
		notes = append(notes, fmt.Sprintf("base font %.0fpx below %dpx", t.Type.BasePx, MinBasePx))
	}

	score := clamp(spacing+contrast+simplicity+typeWeight, 0, 100)
	return Evaluation{
		VisualScore: round2(score),
		A11yPass:    a11y,
		Notes:       notes,
	}
}
