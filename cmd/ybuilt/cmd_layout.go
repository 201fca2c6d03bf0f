package main

import (
	"context"
	"fmt"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/core"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/layout"

	"github.com/spf13/cobra"
)

// layoutCmd groups the layout quality commands
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Gate rendered pages on layout quality",
}

var layoutGateCmd = &cobra.Command{
	Use:   "gate [page-id]",
	Short: "Run gate, guardrail and sup gate for a rendered page",
	Long: `Classifies a page from its layout quality rating (LQR) and issue flags.
The final sup mode is appended to the audit log when auditing is enabled.

Example:
  ybuilt layout gate landing-42 --lqr 72 --a11y`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLayoutGate,
}

func init() {
	layoutGateCmd.Flags().Float64("lqr", 0, "Layout quality rating (omit when unknown)")
	layoutGateCmd.Flags().Bool("a11y", false, "The page has accessibility issues")
	layoutGateCmd.Flags().Bool("perf", false, "The page has performance issues")

	layoutCmd.AddCommand(layoutGateCmd)
}

func runLayoutGate(cmd *cobra.Command, args []string) error {
	pageID := "cli"
	if len(args) == 1 {
		pageID = args[0]
	}
	in := layout.Input{LQRScore: optionalFloat(cmd, "lqr")}
	in.HasA11yIssues, _ = cmd.Flags().GetBool("a11y")
	in.HasPerfIssues, _ = cmd.Flags().GetBool("perf")

	return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
		v := e.Publish(pageID, in)
		if err := printJSON(cmd.OutOrStdout(), v); err != nil {
			return err
		}
		if v.Sup.Mode == layout.SupBlock {
			return fmt.Errorf("page %s blocked: %s", pageID, v.Sup.Reason)
		}
		return nil
	})
}
