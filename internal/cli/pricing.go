package cli

import (
	"github.com/spf13/cobra"

	"options-lab/internal/errors"
	"options-lab/internal/logging"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
)

// addPricingCommands adds the Black-Scholes commands.
func addPricingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
	rootCmd.AddCommand(newIVCmd(app))
}

func addMarketFlags(cmd *cobra.Command, withVol bool) {
	cmd.Flags().Float64("spot", 0, "Underlying price")
	cmd.Flags().Float64("strike", 0, "Strike price")
	cmd.Flags().Float64("days", 7, "Calendar days to expiry")
	cmd.Flags().Float64("rate", -1, "Annual risk-free rate (default from config)")
	cmd.Flags().String("kind", "call", "Option kind: call or put")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
	if withVol {
		cmd.Flags().Float64("vol", 0, "Annualized volatility, e.g. 0.5 for 50%")
		_ = cmd.MarkFlagRequired("vol")
	}
}

// marketFromFlags reads the contract flags. The rate falls back to config.
func (app *App) marketFromFlags(cmd *cobra.Command) (models.MarketParameters, models.OptionKind, error) {
	spot, _ := cmd.Flags().GetFloat64("spot")
	strike, _ := cmd.Flags().GetFloat64("strike")
	days, _ := cmd.Flags().GetFloat64("days")
	rate, _ := cmd.Flags().GetFloat64("rate")
	kindStr, _ := cmd.Flags().GetString("kind")

	if !cmd.Flags().Changed("rate") {
		rate = app.Config.Pricing.RiskFreeRate
	}
	var vol float64
	if cmd.Flags().Lookup("vol") != nil {
		vol, _ = cmd.Flags().GetFloat64("vol")
	}

	kind, err := parseKind(kindStr)
	if err != nil {
		return models.MarketParameters{}, "", err
	}
	if days < 0 {
		return models.MarketParameters{}, "", errors.NewValidationError("days", days, "must be non-negative")
	}

	return models.MarketParameters{
		Spot:         spot,
		Strike:       strike,
		TimeToExpiry: days / 365,
		RiskFreeRate: rate,
		Volatility:   vol,
	}, kind, nil
}

type priceReport struct {
	Params    models.MarketParameters `json:"params"`
	Kind      models.OptionKind       `json:"kind"`
	Price     float64                 `json:"price"`
	Intrinsic float64                 `json:"intrinsic"`
	TimeValue float64                 `json:"time_value"`
	Moneyness float64                 `json:"moneyness"`
	ProbITM   float64                 `json:"prob_itm"`
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Black-Scholes price of a European option",
		Example: `  optionslab price --spot 87420 --strike 87000 --days 7 --vol 0.5
  optionslab price --spot 100 --strike 95 --days 30 --vol 0.2 --kind put`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			p, kind, err := app.marketFromFlags(cmd)
			if err != nil {
				return err
			}

			price, err := pricing.Price(p, kind)
			if err != nil {
				return err
			}
			prob, err := pricing.ProbabilityITM(p, kind)
			if err != nil {
				return err
			}
			intrinsic := pricing.Intrinsic(p.Spot, p.Strike, kind)
			report := priceReport{
				Params:    p,
				Kind:      kind,
				Price:     price,
				Intrinsic: intrinsic,
				TimeValue: price - intrinsic,
				Moneyness: pricing.Moneyness(p.Spot, p.Strike),
				ProbITM:   prob,
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			output.Bold("%s %s @ %s", FormatUSD(p.Strike), kind, FormatUSD(p.Spot))
			output.Printf("  Price:       %s\n", FormatUSD(report.Price))
			output.Printf("  Intrinsic:   %s\n", FormatUSD(report.Intrinsic))
			output.Printf("  Time value:  %s\n", FormatUSD(report.TimeValue))
			output.Printf("  Moneyness:   %.4f (S/K)\n", report.Moneyness)
			output.Printf("  P(ITM):      %s (risk-neutral)\n", FormatProb(report.ProbITM))
			return nil
		},
	}
	addMarketFlags(cmd, true)
	return cmd
}

func newGreeksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Price and Greeks of a European option",
		Long: `Price and Greeks under Black-Scholes.

Vega and rho are per 1 percentage point, theta is per calendar day.`,
		Example: `  optionslab greeks --spot 87420 --strike 87000 --days 7 --vol 0.5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			p, kind, err := app.marketFromFlags(cmd)
			if err != nil {
				return err
			}

			res, err := pricing.Evaluate(p, kind)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}

			output.Bold("%s %s @ %s  price %s", FormatUSD(p.Strike), kind, FormatUSD(p.Spot), FormatUSD(res.Price))
			table := NewTable(output, "Greek", "Value", "Meaning").AlignRight(1)
			table.AddRow("Delta", FormatPrice(res.Greeks.Delta), "price change per $1 in spot")
			table.AddRow("Gamma", FormatPrice(res.Greeks.Gamma), "delta change per $1 in spot")
			table.AddRow("Vega", FormatPrice(res.Greeks.Vega), "price change per 1 vol point")
			table.AddRow("Theta", FormatPrice(res.Greeks.Theta), "price change per day")
			table.AddRow("Rho", FormatPrice(res.Greeks.Rho), "price change per 1 rate point")
			table.Render()
			return nil
		},
	}
	addMarketFlags(cmd, true)
	return cmd
}

func newIVCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iv",
		Short: "Implied volatility from an option price",
		Example: `  optionslab iv --spot 87420 --strike 87000 --days 7 --premium 2240
  optionslab iv --spot 100 --strike 100 --days 365 --premium 10.45 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			p, kind, err := app.marketFromFlags(cmd)
			if err != nil {
				return err
			}
			premium, _ := cmd.Flags().GetFloat64("premium")

			res, err := pricing.ImpliedVolatility(premium, p, kind, app.Config.Pricing.IVConfig())
			if err != nil {
				return err
			}
			if !res.Converged {
				logging.LogNonConvergence(app.Logger, p.Strike, string(kind), res.Sigma, res.Residual, res.Iterations)
			}

			if output.IsJSON() {
				return output.JSON(res)
			}

			output.Bold("%s %s @ %s  premium %s", FormatUSD(p.Strike), kind, FormatUSD(p.Spot), FormatUSD(premium))
			output.Printf("  Implied vol: %s\n", FormatVol(res.Sigma))
			output.Printf("  Iterations:  %d\n", res.Iterations)
			output.Printf("  Residual:    %.2e\n", res.Residual)
			if !res.Converged {
				output.Warning("Solver did not converge; the value above is the best estimate")
			}
			return nil
		},
	}
	addMarketFlags(cmd, false)
	cmd.Flags().Float64("premium", 0, "Observed option price")
	_ = cmd.MarkFlagRequired("premium")
	return cmd
}
