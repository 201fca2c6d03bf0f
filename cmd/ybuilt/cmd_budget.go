package main

import (
	"math"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/budget"

	"github.com/spf13/cobra"
)

// budgetCmd groups the budget commands
var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Per-request cost admission",
}

var budgetCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check an estimated cost against the budget ceilings",
	Long: `Prints the admission decision for an estimated request cost. Ceilings come
from the budget section of the config (or the YBUILT_MAX_CENTS and
YBUILT_MAX_TOKENS environment variables).

Example:
  ybuilt budget check --cents 4 --tokens 12000`,
	RunE: runBudget,
}

func init() {
	budgetCheckCmd.Flags().Float64("cents", 0, "Estimated cost in cents")
	budgetCheckCmd.Flags().Float64("tokens", 0, "Estimated tokens")

	budgetCmd.AddCommand(budgetCheckCmd)
}

func runBudget(cmd *cobra.Command, args []string) error {
	u := budget.Usage{
		Cents:  optionalFloat(cmd, "cents"),
		Tokens: optionalFloat(cmd, "tokens"),
	}
	gate := budget.NewGate(cfg)
	return printJSON(cmd.OutOrStdout(), struct {
		budget.Decision
		MaxCents  float64 `json:"max_cents"`
		MaxTokens float64 `json:"max_tokens"`
	}{gate.Admit(u), jsonSafe(gate.MaxCents), jsonSafe(gate.MaxTokens)})
}

// jsonSafe maps a disabled (infinite) ceiling to 0 so it encodes.
func jsonSafe(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}
