package main

import (
	"context"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/core"

	"github.com/spf13/cobra"
)

// statsCmd prints the learned state and spend
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bandit state, section groups and spend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *core.Engine) error {
			return printJSON(cmd.OutOrStdout(), e.Stats(ctx))
		})
	},
}
