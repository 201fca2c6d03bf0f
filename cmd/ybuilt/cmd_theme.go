package main

import (
	"context"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/core"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/design"

	"github.com/spf13/cobra"
)

// themeCmd groups the design token commands
var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Mix and search design tokens",
}

var themeMixCmd = &cobra.Command{
	Use:   "mix",
	Short: "Build the token set for one primary/scheme/tone and score it",
	RunE:  runThemeMix,
}

var themeSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the token space, reusing cached results",
	Long: `Enumerates tones, schemes and primary shifts, scores each candidate and
returns the best. Results are cached per argument set; learned taste priors
bias the ranking.

Example:
  ybuilt theme search --primary "#0ea5e9" --tone serious --goal saas`,
	RunE: runThemeSearch,
}

func init() {
	for _, c := range []*cobra.Command{themeMixCmd, themeSearchCmd} {
		c.Flags().String("primary", design.DefaultPrimary, "Brand primary color (#rgb or #rrggbb)")
		c.Flags().Bool("dark", false, "Dark color scheme")
		c.Flags().String("tone", "minimal", "Tone (minimal, serious, playful, vibrant)")
	}
	themeSearchCmd.Flags().String("goal", "", "Business goal (saas, ecommerce, portfolio)")
	themeSearchCmd.Flags().String("industry", "", "Industry hint")

	themeCmd.AddCommand(themeMixCmd)
	themeCmd.AddCommand(themeSearchCmd)
}

func runThemeMix(cmd *cobra.Command, args []string) error {
	primary, _ := cmd.Flags().GetString("primary")
	dark, _ := cmd.Flags().GetBool("dark")
	tone, _ := cmd.Flags().GetString("tone")

	tokens := design.TokenMixer(primary, dark, tone)
	return printJSON(cmd.OutOrStdout(), struct {
		Tokens     design.Tokens     `json:"tokens"`
		Evaluation design.Evaluation `json:"evaluation"`
	}{tokens, design.EvaluateDesign(tokens)})
}

func runThemeSearch(cmd *cobra.Command, args []string) error {
	var a design.Args
	a.Primary, _ = cmd.Flags().GetString("primary")
	a.Dark, _ = cmd.Flags().GetBool("dark")
	a.Tone, _ = cmd.Flags().GetString("tone")
	a.Goal, _ = cmd.Flags().GetString("goal")
	a.Industry, _ = cmd.Flags().GetString("industry")

	return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
		return printJSON(cmd.OutOrStdout(), e.SearchBestTokensCached(ctx, a))
	})
}
