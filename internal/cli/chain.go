package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"options-lab/internal/edge"
	"options-lab/internal/errors"
	"options-lab/internal/logging"
	"options-lab/internal/models"
)

// addChainCommands adds the option chain comparison and snapshot commands.
func addChainCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newSnapshotCmd(app))
}

// chainCSVRow is one flattened strike/kind row for CSV export.
type chainCSVRow struct {
	Strike         float64 `csv:"strike"`
	Kind           string  `csv:"kind"`
	Moneyness      float64 `csv:"moneyness"`
	QuotedPrice    float64 `csv:"quoted_price"`
	BSPrice        float64 `csv:"bs_price"`
	SynthPrice     float64 `csv:"synth_price"`
	Edge           float64 `csv:"edge"`
	SynthProbITM   float64 `csv:"synth_prob_itm"`
	BSProbITM      float64 `csv:"bs_prob_itm"`
	SynthIV        float64 `csv:"synth_iv"`
	IVConverged    bool    `csv:"iv_converged"`
	Recommendation string  `csv:"recommendation"`
}

type chainReport struct {
	Asset        string           `json:"asset"`
	CurrentPrice float64          `json:"current_price"`
	Volatility   float64          `json:"volatility"`
	Vol          *edge.VolProfile `json:"vol,omitempty"`
	Rows         []edge.ChainRow  `json:"rows"`
}

func chainKinds(s string) ([]models.OptionKind, error) {
	if s == "both" || s == "" {
		return []models.OptionKind{models.Call, models.Put}, nil
	}
	kind, err := parseKind(s)
	if err != nil {
		return nil, errors.NewValidationError("kind", s, "want call, put or both")
	}
	return []models.OptionKind{kind}, nil
}

func pick(row edge.ChainRow, kind models.OptionKind) edge.Quote {
	if kind == models.Put {
		return row.Put
	}
	return row.Call
}

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Forecast vs Black-Scholes across the option chain",
		Long: `Price every quoted strike from the forecast distribution and from
Black-Scholes at the implied volatility. Edge is (forecast - BS) / BS; quotes
outside the fair band are flagged BUY or SELL.`,
		Example: `  optionslab chain
  optionslab chain --asset SOL --kind put
  optionslab chain --csv chain.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			kindStr, _ := cmd.Flags().GetString("kind")
			kinds, err := chainKinds(kindStr)
			if err != nil {
				return err
			}

			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}
			snap := f.Snapshot
			cfg := edge.Config{
				FairThreshold: app.Config.Analysis.FairEdgeThreshold,
				IV:            app.Config.Pricing.IVConfig(),
			}
			market := snap.Market(snap.Pricing.CurrentPrice, app.rate(cmd))
			rows, err := edge.CompareChain(f.Samples, market, snap.Pricing.StrikeList(), cfg)
			if err != nil {
				return err
			}

			for _, row := range rows {
				for _, q := range []edge.Quote{row.Call, row.Put} {
					if !q.SynthIV.Converged {
						logging.LogNonConvergence(app.Logger, row.Strike, string(q.Kind),
							q.SynthIV.Sigma, q.SynthIV.Residual, q.SynthIV.Iterations)
					}
				}
			}

			if path, _ := cmd.Flags().GetString("csv"); path != "" {
				flat := make([]chainCSVRow, 0, len(rows)*len(kinds))
				for _, row := range rows {
					quoted, _ := snap.Pricing.Quote(row.Strike)
					for _, kind := range kinds {
						q := pick(row, kind)
						flat = append(flat, chainCSVRow{
							Strike:         row.Strike,
							Kind:           string(kind),
							Moneyness:      row.Moneyness,
							QuotedPrice:    quoted.Price(kind),
							BSPrice:        q.BSPrice,
							SynthPrice:     q.SynthPrice,
							Edge:           q.Edge,
							SynthProbITM:   q.SynthProbITM,
							BSProbITM:      q.BSProbITM,
							SynthIV:        q.SynthIV.Sigma,
							IVConverged:    q.SynthIV.Converged,
							Recommendation: string(q.Recommendation),
						})
					}
				}
				return writeCSV(cmd, path, &flat)
			}

			report := chainReport{
				Asset:        snap.Pricing.Asset,
				CurrentPrice: snap.Pricing.CurrentPrice,
				Volatility:   market.Volatility,
				Rows:         rows,
			}
			if v, err := edge.ClassifyVol(snap.Volatility.ImpliedVolatility, snap.Volatility.RealizedVolatility); err == nil {
				report.Vol = &v
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			f.header(output)
			if report.Vol != nil {
				output.Printf("Implied vol %s, realized %s: %s\n",
					FormatVol(report.Vol.Forward), FormatVol(report.Vol.Realized), output.Regime(report.Vol.Regime))
			}
			for _, kind := range kinds {
				output.Println()
				output.Bold("%ss", kind)
				table := NewTable(output, "Strike", "Quoted", "BS", "Forecast", "Edge", "P(ITM) fcst", "P(ITM) BS", "Fcst IV", "Signal").AlignRight(0, 1, 2, 3, 4, 5, 6, 7)
				for _, row := range rows {
					q := pick(row, kind)
					quoted := "-"
					if sq, ok := snap.Pricing.Quote(row.Strike); ok {
						quoted = FormatUSD(sq.Price(kind))
					}
					iv := FormatVol(q.SynthIV.Sigma)
					if !q.SynthIV.Converged {
						iv += "*"
					}
					table.AddRow(
						FormatUSD(row.Strike),
						quoted,
						FormatUSD(q.BSPrice),
						FormatUSD(q.SynthPrice),
						output.FormatEdge(q.Edge),
						FormatProb(q.SynthProbITM),
						FormatProb(q.BSProbITM),
						iv,
						output.Recommendation(q.Recommendation),
					)
				}
				table.Render()
			}
			output.Dim("Fair band ±%s. * implied vol solver did not converge.", FormatVol(cfg.FairThreshold))
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("kind", "both", "Option kind: call, put or both")
	cmd.Flags().Float64("rate", -1, "Annual risk-free rate (default from config)")
	cmd.Flags().String("csv", "", "Write the chain as CSV to a file ('-' for stdout)")
	return cmd
}

func newSnapshotCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch and save a forecast snapshot",
		Long: `Fetch option pricing, prediction percentiles and volatility for an asset
and print them as one JSON document. The output can be replayed later with
--fixture.`,
		Example: `  optionslab snapshot --asset BTC --out btc.json
  optionslab chain --fixture btc.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.loadForecast(cmd)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(f.Snapshot, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encoding snapshot")
			}
			data = append(data, '\n')

			path, _ := cmd.Flags().GetString("out")
			if path == "" || path == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			app.Logger.Info().Str("path", path).Str("source", f.Source).Msg("Snapshot saved")
			NewOutput(cmd).Success("✓ Saved %s snapshot to %s", f.Snapshot.Pricing.Asset, path)
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("out", "", "Write to a file instead of stdout")
	return cmd
}
