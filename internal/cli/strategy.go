package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"options-lab/internal/edge"
	"options-lab/internal/errors"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
	"options-lab/internal/strategy"
)

// addStrategyCommands adds payoff and strategy analysis commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPayoffCmd(app))
	rootCmd.AddCommand(newStrategyCmd(app))
}

func addStrategyFlags(cmd *cobra.Command) {
	addSourceFlags(cmd)
	cmd.Flags().StringArray("leg", nil, "Leg as position:kind:strike:premium[:quantity] (repeatable)")
	cmd.Flags().String("template", "", "Strategy template, e.g. bull-call-spread (see 'strategy templates')")
	cmd.Flags().Float64("center", 0, "Template center strike (default: quoted strike nearest spot)")
	cmd.Flags().Float64("width", 0, "Template strike spacing (default: quoted strike spacing)")
	cmd.Flags().Int("points", 0, "Price scan points (default from config)")
	cmd.Flags().Float64("padding", -1, "Scan range padding as a fraction (default from config)")
	cmd.Flags().Float64("rate", -1, "Annual risk-free rate (default from config)")
}

func (app *App) rate(cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("rate") {
		r, _ := cmd.Flags().GetFloat64("rate")
		return r
	}
	return app.Config.Pricing.RiskFreeRate
}

// buildStrategy assembles the strategy from --leg flags or a template. Template
// legs are priced at the provider quote when the strike is quoted and at the
// Black-Scholes value otherwise.
func (app *App) buildStrategy(cmd *cobra.Command, f *forecast) (models.Strategy, error) {
	legSpecs, _ := cmd.Flags().GetStringArray("leg")
	templateName, _ := cmd.Flags().GetString("template")

	switch {
	case len(legSpecs) > 0 && templateName != "":
		return models.Strategy{}, errors.NewValidationError("strategy", templateName, "use either --leg or --template, not both")
	case len(legSpecs) > 0:
		s := models.Strategy{Name: "Custom", Legs: make([]models.OptionLeg, 0, len(legSpecs))}
		for _, spec := range legSpecs {
			leg, err := parseLeg(spec)
			if err != nil {
				return models.Strategy{}, err
			}
			s.Legs = append(s.Legs, leg)
		}
		if err := strategy.Validate(s); err != nil {
			return models.Strategy{}, err
		}
		return s, nil
	case templateName != "":
		tmpl, err := strategy.TemplateFor(templateName)
		if err != nil {
			return models.Strategy{}, err
		}
		center, _ := cmd.Flags().GetFloat64("center")
		width, _ := cmd.Flags().GetFloat64("width")
		strikes := f.Snapshot.Pricing.StrikeList()
		if center == 0 {
			center = nearest(strikes, f.Snapshot.Pricing.CurrentPrice)
		}
		if width == 0 {
			width = strikeSpacing(strikes, center)
		}
		return tmpl.Build(center, width, app.premiumFunc(cmd, f))
	default:
		return models.Strategy{}, errors.NewValidationError("strategy", "", "give --leg flags or --template")
	}
}

func (app *App) premiumFunc(cmd *cobra.Command, f *forecast) strategy.PremiumFunc {
	rate := app.rate(cmd)
	return func(kind models.OptionKind, strike float64) (float64, error) {
		if q, ok := f.Snapshot.Pricing.Quote(strike); ok {
			return q.Price(kind), nil
		}
		return pricing.Price(f.Snapshot.Market(strike, rate), kind)
	}
}

func (app *App) scanGrid(cmd *cobra.Command, f *forecast, s models.Strategy) strategy.Grid {
	points, _ := cmd.Flags().GetInt("points")
	padding, _ := cmd.Flags().GetFloat64("padding")
	if points <= 0 {
		points = app.Config.Analysis.BreakevenSamples
	}
	if padding < 0 {
		padding = app.Config.Analysis.RangePadding
	}
	return strategy.AutoGrid(f.Samples, s.Strikes(), padding, points)
}

// nearest returns the value in xs closest to target, or target when xs is empty.
func nearest(xs []float64, target float64) float64 {
	best := target
	bestDist := math.Inf(1)
	for _, x := range xs {
		if d := math.Abs(x - target); d < bestDist {
			best, bestDist = x, d
		}
	}
	return best
}

// strikeSpacing is the smallest gap between center and a neighbouring quoted
// strike, or 5% of center when no neighbour exists.
func strikeSpacing(strikes []float64, center float64) float64 {
	gap := math.Inf(1)
	for _, k := range strikes {
		if d := math.Abs(k - center); d > 0 && d < gap {
			gap = d
		}
	}
	if math.IsInf(gap, 1) {
		return center * 0.05
	}
	return gap
}

func printLegs(output *Output, s models.Strategy) {
	table := NewTable(output, "Side", "Kind", "Strike", "Qty", "Premium").AlignRight(2, 3, 4)
	for _, leg := range s.Legs {
		table.AddRow(
			strings.ToUpper(string(leg.Position)),
			strings.ToUpper(string(leg.Kind)),
			FormatUSD(leg.Strike),
			fmt.Sprintf("%g", leg.Quantity),
			FormatUSD(leg.EntryPrice),
		)
	}
	table.Render()
	net := s.NetPremium()
	if net >= 0 {
		output.Printf("Net debit: %s\n", FormatUSD(net))
	} else {
		output.Printf("Net credit: %s\n", FormatUSD(-net))
	}
}

type payoffReport struct {
	Strategy   models.Strategy      `json:"strategy"`
	Grid       strategy.Grid        `json:"grid"`
	Breakevens []float64            `json:"breakevens"`
	Curve      []models.PayoffPoint `json:"curve"`
}

func newPayoffCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payoff",
		Short: "Payoff at expiry across a price range",
		Long: `Payoff at expiry of a strategy across a price range spanning the forecast
and every strike. Use --csv to export the full curve.`,
		Example: `  optionslab payoff --leg long:call:87000:2240
  optionslab payoff --template iron-condor --csv condor.csv
  optionslab payoff --leg long:call:87000:2240 --leg short:call:90000:880 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}
			s, err := app.buildStrategy(cmd, f)
			if err != nil {
				return err
			}

			g := app.scanGrid(cmd, f, s)
			curve, err := strategy.PayoffCurve(s, g)
			if err != nil {
				return err
			}
			breakevens, err := strategy.FindBreakevens(s, g)
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("csv"); path != "" {
				return writeCSV(cmd, path, &curve)
			}
			if output.IsJSON() {
				return output.JSON(payoffReport{Strategy: s, Grid: g, Breakevens: breakevens, Curve: curve})
			}

			f.header(output)
			output.Bold(s.Name)
			printLegs(output, s)
			output.Println()

			rows, _ := cmd.Flags().GetInt("rows")
			table := NewTable(output, "Price", "P&L").AlignRight(0, 1)
			for _, pt := range thin(curve, rows) {
				table.AddRow(FormatUSD(pt.Price), output.FormatPnL(pt.PnL))
			}
			table.Render()
			output.Printf("Breakevens: %s\n", FormatPrices(breakevens))
			return nil
		},
	}
	addStrategyFlags(cmd)
	cmd.Flags().String("csv", "", "Write the full curve as CSV to a file ('-' for stdout)")
	cmd.Flags().Int("rows", 21, "Rows to display")
	return cmd
}

// thin keeps about n evenly spaced points, always including both ends.
func thin(curve []models.PayoffPoint, n int) []models.PayoffPoint {
	if n < 2 || len(curve) <= n {
		return curve
	}
	out := make([]models.PayoffPoint, 0, n)
	step := float64(len(curve)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, curve[int(math.Round(float64(i)*step))])
	}
	return out
}

func newStrategyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Strategy analysis against the forecast",
		Long:  "Evaluate option strategies against the Synth forecast distribution.",
	}

	cmd.AddCommand(newStrategyEvaluateCmd(app))
	cmd.AddCommand(newStrategyTemplatesCmd())

	return cmd
}

type strategyReport struct {
	Strategy   models.Strategy         `json:"strategy"`
	Metrics    models.StrategyMetrics  `json:"metrics"`
	Comparison edge.StrategyComparison `json:"comparison"`
	Greeks     models.Greeks           `json:"greeks"`
	Grid       strategy.Grid           `json:"grid"`
}

func newStrategyEvaluateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Expected value, probability of profit and risk of a strategy",
		Example: `  optionslab strategy evaluate --template straddle
  optionslab strategy evaluate --leg long:put:85000:940 --asset ETH --demo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}
			s, err := app.buildStrategy(cmd, f)
			if err != nil {
				return err
			}

			g := app.scanGrid(cmd, f, s)
			metrics, err := strategy.Evaluate(s, f.Samples, g)
			if err != nil {
				return err
			}
			snap := f.Snapshot
			market := snap.Market(snap.Pricing.CurrentPrice, app.rate(cmd))
			cmp, err := edge.CompareStrategy(s, f.Samples, market, g)
			if err != nil {
				return err
			}
			greeks, err := strategy.NetGreeks(s, market)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(strategyReport{Strategy: s, Metrics: metrics, Comparison: cmp, Greeks: greeks, Grid: g})
			}

			f.header(output)
			output.Bold(s.Name)
			printLegs(output, s)
			output.Println()

			maxProfit := FormatSignedUSD(metrics.MaxProfit)
			if metrics.UnboundedProfit {
				maxProfit = "unlimited"
			}
			maxLoss := FormatSignedUSD(metrics.MaxLoss)
			if metrics.UnboundedLoss {
				maxLoss = "unlimited"
			}

			output.Box("Strategy Metrics", []string{
				fmt.Sprintf("Expected value:       %s", output.FormatPnL(metrics.EV)),
				fmt.Sprintf("P(profit) forecast:   %s", FormatProb(cmp.SynthPoP)),
				fmt.Sprintf("P(profit) lognormal:  %s  (%s)", FormatProb(cmp.BSPoP), FormatPercent(cmp.Diff*100)),
				fmt.Sprintf("Avg profit if profit: %s", FormatSignedUSD(metrics.ExpectedProfitGivenProfit)),
				fmt.Sprintf("Avg loss if loss:     %s", FormatSignedUSD(metrics.ExpectedLossGivenLoss)),
				fmt.Sprintf("Max profit:           %s", maxProfit),
				fmt.Sprintf("Max loss:             %s", maxLoss),
				fmt.Sprintf("Risk/reward:          %s", FormatRiskReward(metrics.RiskReward)),
				fmt.Sprintf("Breakevens:           %s", FormatPrices(metrics.Breakevens)),
				fmt.Sprintf("Net Greeks:           %s", FormatGreeks(greeks)),
			})
			return nil
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func newStrategyTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List strategy templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			templates := strategy.Templates()

			if output.IsJSON() {
				return output.JSON(templates)
			}

			table := NewTable(output, "Template", "Name", "Legs", "Description")
			for _, t := range templates {
				table.AddRow(
					strings.ToLower(strings.ReplaceAll(string(t.Type), "_", "-")),
					t.Name,
					fmt.Sprintf("%d", t.LegCount()),
					t.Description,
				)
			}
			table.Render()
			return nil
		},
	}
}
