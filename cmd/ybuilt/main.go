package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/core"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	storeFlag  string
	pathFlag   string
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ybuilt",
	Short: "ybuilt - adaptive decision core for prompt-to-page generation",
	Long: `ybuilt exposes the decision core used by the page generator:

  route / expert   Thompson-sampling routers over strategies and experts
  section          per-audience section variant bandit
  theme            design token mixing and cached token search
  layout           layout quality gate, guardrail and sup gate
  budget           per-request cost admission
  audit            sup-gate audit log summaries
  stats            learned state and spend

Every command prints JSON on stdout.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if storeFlag != "" {
			cfg.Store.Backend = storeFlag
		}
		if pathFlag != "" {
			cfg.Store.Path = pathFlag
		}

		if verbose {
			zc := zap.NewProductionConfig()
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			logger, err = zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logging.UseLogger(logger)
			return nil
		}
		logger = zap.NewNop()
		return logging.Initialize(cfg.Logging)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging on stderr")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ybuilt.yaml", "Config file (missing file = defaults)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Override store backend (memory, file, sqlite, pebble, redis)")
	rootCmd.PersistentFlags().StringVar(&pathFlag, "store-path", "", "Override store path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(expertCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withEngine opens the engine for one command and closes it afterwards.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *core.Engine) error) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	e, err := core.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logger.Warn("failed to close engine", zap.Error(cerr))
		}
	}()
	if !e.Durable() {
		logger.Warn("store unavailable, state will not persist", zap.String("backend", cfg.Store.Backend))
	}
	return fn(ctx, e)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// optionalFloat returns a pointer to the flag value when the flag was set.
func optionalFloat(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		return nil
	}
	return &v
}
