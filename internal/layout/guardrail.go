package layout

// Mode is the external policy signal.
type Mode string

const (
	ModeAllow Mode = "allow"
	ModePatch Mode = "patch"
	ModeBlock Mode = "block"
)

// Guardrail reasons.
const (
	ReasonLayoutOK         = "layout_ok"
	ReasonLayoutNeedsPatch = "layout_needs_patch"
	ReasonLayoutBad        = "layout_bad"
)

// Guardrail is the policy-facing verdict.
type Guardrail struct {
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason"`
}

// DecideGuardrail maps ok/patch/downgrade to allow/patch/block. Anything
// unrecognized blocks.
func DecideGuardrail(g GateResult) Guardrail {
	switch g.Decision {
	case DecisionOK:
		return Guardrail{ModeAllow, ReasonLayoutOK}
	case DecisionPatch:
		return Guardrail{ModePatch, ReasonLayoutNeedsPatch}
	default:
		return Guardrail{ModeBlock, ReasonLayoutBad}
	}
}

// SupMode is the supervisor mode recorded in the audit trail.
type SupMode string

const (
	SupAllow  SupMode = "allow"
	SupStrict SupMode = "strict"
	SupBlock  SupMode = "block"
)

// SupGate is the supervisor verdict.
type SupGate struct {
	Mode   SupMode `json:"mode"`
	Reason string  `json:"reason"`
}

// DecideSupGate maps allow/patch/block to allow/strict/block, carrying the
// guardrail reason.
func DecideSupGate(g Guardrail) SupGate {
	switch g.Mode {
	case ModeAllow:
		return SupGate{SupAllow, g.Reason}
	case ModePatch:
		return SupGate{SupStrict, g.Reason}
	default:
		reason := g.Reason
		if reason == "" {
			reason = ReasonLayoutBad
		}
		return SupGate{SupBlock, reason}
	}
}

// Verdict chains gate, guardrail and sup gate for one input.
type Verdict struct {
	Gate      GateResult `json:"gate"`
	Guardrail Guardrail  `json:"guardrail"`
	Sup       SupGate    `json:"sup"`
}

// Evaluate runs the full publish-time chain.
func Evaluate(in Input, opts Options) Verdict {
	gate := DecideGate(in, opts)
	guard := DecideGuardrail(gate)
	return Verdict{Gate: gate, Guardrail: guard, Sup: DecideSupGate(guard)}
}
