package main

import (
	"context"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/budget"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/core"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/router"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// routeCmd groups the strategy bandit commands
var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Pick and reward generation strategies",
}

var routePickCmd = &cobra.Command{
	Use:   "pick [arms...]",
	Short: "Admit a request against the budget and pick a strategy arm",
	Long: `Checks the estimated cost against the budget ceilings and, when admitted,
samples every arm's belief. Without arguments the configured arms are used.

Example:
  ybuilt route pick --cents 2 --tokens 1500
  ybuilt route pick fast_template cloud_llm`,
	RunE: runRoutePick,
}

var routeRecordCmd = &cobra.Command{
	Use:   "record [arm]",
	Short: "Record the outcome of an executed strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordOutcome(cmd, args[0], func(ctx context.Context, e *core.Engine, out router.Outcome) {
			e.RecordOutcome(ctx, args[0], out)
		})
	},
}

// expertCmd groups the expert bandit commands
var expertCmd = &cobra.Command{
	Use:   "expert",
	Short: "Pick and reward named experts",
}

var expertPickCmd = &cobra.Command{
	Use:   "pick [experts...]",
	Short: "Pick among named experts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
			return printJSON(cmd.OutOrStdout(), map[string]string{"expert": e.PickExpert(ctx, args)})
		})
	},
}

var expertRecordCmd = &cobra.Command{
	Use:   "record [expert]",
	Short: "Record the outcome of a named expert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordOutcome(cmd, args[0], func(ctx context.Context, e *core.Engine, out router.Outcome) {
			e.RecordExpertOutcome(ctx, args[0], out)
		})
	},
}

func init() {
	routePickCmd.Flags().Float64("cents", 0, "Estimated cost in cents")
	routePickCmd.Flags().Float64("tokens", 0, "Estimated tokens")

	for _, c := range []*cobra.Command{routeRecordCmd, expertRecordCmd} {
		c.Flags().Bool("success", false, "The generation succeeded")
		c.Flags().Float64("ms", 0, "Observed latency in milliseconds")
		c.Flags().Float64("cents", 0, "Observed cost in cents")
		c.Flags().Float64("tokens", 0, "Observed tokens")
	}

	routeCmd.AddCommand(routePickCmd)
	routeCmd.AddCommand(routeRecordCmd)
	expertCmd.AddCommand(expertPickCmd)
	expertCmd.AddCommand(expertRecordCmd)
}

func runRoutePick(cmd *cobra.Command, args []string) error {
	u := budget.Usage{
		Cents:  optionalFloat(cmd, "cents"),
		Tokens: optionalFloat(cmd, "tokens"),
	}
	return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
		arm, decision := e.Route(ctx, u, args)
		logger.Debug("route pick", zap.String("arm", arm), zap.String("reason", decision.Reason))
		return printJSON(cmd.OutOrStdout(), struct {
			Arm    string          `json:"arm"`
			Budget budget.Decision `json:"budget"`
		}{arm, decision})
	})
}

func recordOutcome(cmd *cobra.Command, id string, record func(context.Context, *core.Engine, router.Outcome)) error {
	success, _ := cmd.Flags().GetBool("success")
	out := router.Outcome{
		Success: success,
		MS:      optionalFloat(cmd, "ms"),
		Cents:   optionalFloat(cmd, "cents"),
		Tokens:  optionalFloat(cmd, "tokens"),
	}
	return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
		record(ctx, e, out)
		return printJSON(cmd.OutOrStdout(), map[string]any{"recorded": id, "outcome": out})
	})
}
