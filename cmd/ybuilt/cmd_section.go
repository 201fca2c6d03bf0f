package main

import (
	"context"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/core"

	"github.com/spf13/cobra"
)

// sectionCmd groups the section variant bandit commands
var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Seed, pick and reward section variants per audience",
}

var sectionSeedCmd = &cobra.Command{
	Use:   "seed [base] [siblings...]",
	Short: "Register sibling variants for a base section",
	Long: `Creates the variant group for (audience, base) when it does not exist yet.
Seeding an existing group is a no-op.

Example:
  ybuilt section seed hero-basic hero-basic hero-split hero-video --audience founders`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		audience, _ := cmd.Flags().GetString("audience")
		return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
			e.SeedVariants(ctx, args[0], audience, args[1:])
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"base":     args[0],
				"audience": audience,
				"variants": args[1:],
			})
		})
	},
}

var sectionPickCmd = &cobra.Command{
	Use:   "pick [section]",
	Short: "Pick the variant to render for a section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audience, _ := cmd.Flags().GetString("audience")
		return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"section": args[0],
				"variant": e.PickVariant(ctx, args[0], audience),
			})
		})
	},
}

var sectionRecordCmd = &cobra.Command{
	Use:   "record [variants...]",
	Short: "Record a win or loss for every shown variant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audience, _ := cmd.Flags().GetString("audience")
		won, _ := cmd.Flags().GetBool("won")
		return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
			e.RecordSectionOutcome(ctx, args, audience, won)
			return printJSON(cmd.OutOrStdout(), map[string]any{"recorded": args, "won": won})
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{sectionSeedCmd, sectionPickCmd, sectionRecordCmd} {
		c.Flags().String("audience", "", "Audience segment (empty = all)")
	}
	sectionRecordCmd.Flags().Bool("won", false, "The page converted")

	sectionCmd.AddCommand(sectionSeedCmd)
	sectionCmd.AddCommand(sectionPickCmd)
	sectionCmd.AddCommand(sectionRecordCmd)
}
