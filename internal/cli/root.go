// Package cli provides the command-line interface for options-lab.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-lab/internal/config"
	"options-lab/internal/logging"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	// Source supplies live snapshots. When nil, one is built from the
	// configured API key on first use.
	Source SnapshotSource
}

// NewRootCmd creates the root command. Configuration is loaded from the
// --config directory before any subcommand runs.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{Logger: zerolog.Nop()})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "optionslab",
		Short: "Options analytics: Black-Scholes against forecast distributions",
		Long: `optionslab prices options with Black-Scholes and measures strategies
against Synth percentile forecasts.

Pricing commands (price, greeks, iv) work from flags alone. Forecast commands
(payoff, strategy, distribution, chain) use live Synth data when an API key is
configured and the bundled demo snapshots otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/options-lab)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addPricingCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addDistributionCommands(rootCmd, app)
	addChainCommands(rootCmd, app)

	return rootCmd
}

// init loads configuration and builds the logger unless already injected.
func (app *App) init(cmd *cobra.Command) error {
	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		if dir == "" {
			dir = config.DefaultConfigDir()
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg
		app.ConfigDir = dir
		app.Logger = logging.NewLoggerWithConfig(cfg.Log.LoggingConfig())
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	app.Logger = logging.WithOperation(app.Logger, cmd.CommandPath())
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("optionslab v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.Path(app.ConfigDir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Pricing")
	output.Printf("  Risk-free rate:   %s\n", FormatVol(cfg.Pricing.RiskFreeRate))
	output.Printf("  IV initial guess: %s\n", FormatVol(cfg.Pricing.InitialVolGuess))
	output.Printf("  IV tolerance:     %g\n", cfg.Pricing.IVTolerance)
	output.Printf("  IV iterations:    %d\n", cfg.Pricing.IVMaxIterations)
	output.Printf("  Vol bounds:       [%s, %s]\n", FormatVol(cfg.Pricing.VolFloor), FormatVol(cfg.Pricing.VolCap))
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Scan points:      %d\n", cfg.Analysis.BreakevenSamples)
	output.Printf("  Histogram bins:   %d\n", cfg.Analysis.HistogramBins)
	output.Printf("  Range padding:    %s\n", FormatVol(cfg.Analysis.RangePadding))
	output.Printf("  Fair edge band:   ±%s\n", FormatVol(cfg.Analysis.FairEdgeThreshold))
	output.Println()

	output.Bold("Synth")
	output.Printf("  Base URL:         %s\n", cfg.Synth.BaseURL)
	output.Printf("  Timeframe:        %s\n", cfg.Synth.Timeframe)
	output.Printf("  Timeout:          %s\n", cfg.Synth.Timeout)
	output.Printf("  Retries:          %d (from %s)\n", cfg.Synth.RetryAttempts, cfg.Synth.RetryDelay)
	output.Printf("  API key:          %s\n", maskKey(cfg.Credentials.Synth.APIKey))
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Log.Level)
	output.Printf("  File:             %v\n", cfg.Log.File)
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "not set"
	case len(key) <= 4:
		return "****"
	default:
		return fmt.Sprintf("****%s", key[len(key)-4:])
	}
}
