package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"options-lab/internal/distribution"
	"options-lab/internal/edge"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
)

// addDistributionCommands adds forecast distribution commands.
func addDistributionCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "distribution",
		Aliases: []string{"dist"},
		Short:   "Forecast distribution analytics",
		Long:    "Shape, tail risk, histogram, prediction cone and ITM probabilities of the Synth forecast.",
	}

	cmd.AddCommand(newShapeCmd(app))
	cmd.AddCommand(newHistogramCmd(app))
	cmd.AddCommand(newConeCmd(app))
	cmd.AddCommand(newProbCmd(app))

	rootCmd.AddCommand(cmd)
}

type shapeReport struct {
	Asset       string                      `json:"asset"`
	Horizon     string                      `json:"horizon"`
	Analysis    models.DistributionAnalysis `json:"analysis"`
	Description distribution.Description    `json:"description"`
	Vol         *edge.VolProfile            `json:"vol,omitempty"`
}

func newShapeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shape",
		Short: "Skew, tails, VaR/CVaR and volatility regime",
		Example: `  optionslab distribution shape
  optionslab distribution shape --asset ETH --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}

			a, err := distribution.AnalyzeShapeChecked(f.Samples, f.Snapshot.Pricing.CurrentPrice)
			if err != nil {
				return err
			}
			report := shapeReport{
				Asset:       f.Distribution.Asset,
				Horizon:     f.Distribution.Horizon,
				Analysis:    a,
				Description: distribution.Describe(a),
			}
			vol := f.Snapshot.Volatility
			if v, err := edge.ClassifyVol(vol.ImpliedVolatility, vol.RealizedVolatility); err == nil {
				report.Vol = &v
			} else {
				app.Logger.Debug().Err(err).Msg("Skipping volatility regime")
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			f.header(output)
			lines := []string{
				fmt.Sprintf("Skewness:      %.3f (%s)", a.Skewness, report.Description.Skew),
				fmt.Sprintf("Tail ratio:    %.3f", a.TailRatio),
				fmt.Sprintf("Max drawdown:  %s", FormatPercent(-a.MaxDrawdown*100)),
				fmt.Sprintf("Max upside:    %s", FormatPercent(a.MaxUpside*100)),
				fmt.Sprintf("IQR:           %.2f%% of median", a.InterquartileRangePct*100),
				fmt.Sprintf("VaR 95%%:       %s", FormatPercent(a.VaR95*100)),
				fmt.Sprintf("CVaR 95%%:      %s", FormatPercent(a.CVaR95*100)),
			}
			if report.Description.FatTails {
				lines = append(lines, output.Yellow("Fat tails: extreme moves more likely than normal"))
			}
			if v := report.Vol; v != nil {
				lines = append(lines,
					"",
					fmt.Sprintf("Implied vol:   %s", FormatVol(v.Forward)),
					fmt.Sprintf("Realized vol:  %s", FormatVol(v.Realized)),
					fmt.Sprintf("Regime:        %s (ratio %.2f)", output.Regime(v.Regime), v.Ratio),
				)
			}
			output.Box("Distribution Shape", lines)
			return nil
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func newHistogramCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Histogram of forecast percentile values",
		Example: `  optionslab distribution histogram --bins 10
  optionslab distribution histogram --csv -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}

			bins, _ := cmd.Flags().GetInt("bins")
			if bins <= 0 {
				bins = app.Config.Analysis.HistogramBins
			}
			hist, err := distribution.Histogram(f.Samples, bins)
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("csv"); path != "" {
				return writeCSV(cmd, path, &hist)
			}
			if output.IsJSON() {
				return output.JSON(hist)
			}

			f.header(output)
			peak := 0
			for _, b := range hist {
				if b.Count > peak {
					peak = b.Count
				}
			}
			table := NewTable(output, "Range", "Count", "").AlignRight(1)
			for _, b := range hist {
				bar := ""
				if peak > 0 {
					bar = strings.Repeat("█", b.Count*30/peak)
				}
				table.AddRow(
					fmt.Sprintf("%s - %s", FormatCompact(b.Low), FormatCompact(b.High)),
					fmt.Sprintf("%d", b.Count),
					output.ColoredString(ColorCyan, bar),
				)
			}
			table.Render()
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().Int("bins", 0, "Number of bins (default from config)")
	cmd.Flags().String("csv", "", "Write bins as CSV to a file ('-' for stdout)")
	return cmd
}

func newConeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cone",
		Short: "Prediction cone from now to the forecast horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}

			cone, err := distribution.Cone(f.Distribution, f.Snapshot.Pricing.CurrentPrice)
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("csv"); path != "" {
				return writeCSV(cmd, path, &cone)
			}
			if output.IsJSON() {
				return output.JSON(cone)
			}

			f.header(output)
			table := NewTable(output, "Time", "P5", "P25", "P50", "P75", "P95").AlignRight(1, 2, 3, 4, 5)
			for _, c := range cone {
				table.AddRow(c.Label,
					FormatUSD(c.P5), FormatUSD(c.P25), FormatUSD(c.P50), FormatUSD(c.P75), FormatUSD(c.P95))
			}
			table.Render()
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("csv", "", "Write the cone as CSV to a file ('-' for stdout)")
	return cmd
}

type probReport struct {
	Strike       float64           `json:"strike"`
	Kind         models.OptionKind `json:"kind"`
	Empirical    float64           `json:"empirical"`
	Interpolated float64           `json:"interpolated"`
	BlackScholes float64           `json:"black_scholes"`
}

func newProbCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prob",
		Short: "Probability an option finishes in the money",
		Long: `Probability an option finishes in the money, three ways: the share of
forecast percentiles beyond the strike, an interpolated forecast CDF, and the
risk-neutral Black-Scholes N(d2) at the implied volatility.`,
		Example: `  optionslab distribution prob --strike 90000
  optionslab distribution prob --strike 85000 --kind put`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}

			strike, _ := cmd.Flags().GetFloat64("strike")
			kindStr, _ := cmd.Flags().GetString("kind")
			kind, err := parseKind(kindStr)
			if err != nil {
				return err
			}

			empirical, err := distribution.ProbabilityITM(f.Samples, strike, kind)
			if err != nil {
				return err
			}
			interpolated, err := distribution.ProbabilityITMInterpolated(f.Distribution, strike, kind)
			if err != nil {
				return err
			}
			bs, err := pricing.ProbabilityITM(f.Snapshot.Market(strike, app.rate(cmd)), kind)
			if err != nil {
				return err
			}
			report := probReport{Strike: strike, Kind: kind, Empirical: empirical, Interpolated: interpolated, BlackScholes: bs}

			if output.IsJSON() {
				return output.JSON(report)
			}

			f.header(output)
			output.Bold("%s %s", FormatUSD(strike), kind)
			output.Printf("  Forecast:      %s\n", FormatProb(empirical))
			output.Printf("  Interpolated:  %s\n", FormatProb(interpolated))
			output.Printf("  Black-Scholes: %s %s\n", FormatProb(bs), output.SourceTag(SourceBS))
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().Float64("strike", 0, "Strike price")
	cmd.Flags().String("kind", "call", "Option kind: call or put")
	cmd.Flags().Float64("rate", -1, "Annual risk-free rate (default from config)")
	_ = cmd.MarkFlagRequired("strike")
	return cmd
}
