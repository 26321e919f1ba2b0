package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"options-lab/internal/distribution"
	"options-lab/internal/errors"
	"options-lab/internal/logging"
	"options-lab/internal/models"
	"options-lab/internal/synth"
)

// SnapshotSource supplies forecast snapshots for an asset.
type SnapshotSource interface {
	Snapshot(ctx context.Context, asset, timeframe string) (*synth.Snapshot, error)
}

// forecast is the resolved input of every forecast-driven command.
type forecast struct {
	Snapshot     *synth.Snapshot
	Distribution models.PercentileDistribution
	Samples      []float64
	Source       string
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("asset", "BTC", "Asset symbol (BTC, ETH, SOL)")
	cmd.Flags().String("timeframe", "", "Forecast horizon (default from config)")
	cmd.Flags().String("fixture", "", "Read a saved snapshot JSON instead of calling the API")
	cmd.Flags().Bool("demo", false, "Use the bundled demo snapshot")
}

// loadForecast resolves the snapshot from a fixture file, the bundled demo
// data or the live API, in that order of precedence. Without an API key the
// demo data is used.
func (app *App) loadForecast(cmd *cobra.Command) (*forecast, error) {
	asset, _ := cmd.Flags().GetString("asset")
	timeframe, _ := cmd.Flags().GetString("timeframe")
	fixture, _ := cmd.Flags().GetString("fixture")
	demo, _ := cmd.Flags().GetBool("demo")

	var (
		snap   *synth.Snapshot
		source string
		err    error
	)

	switch {
	case fixture != "":
		snap, err = synth.LoadFixture(fixture)
		source = SourceFixture
	case demo || (app.Source == nil && !app.Config.HasAPIKey()):
		if !demo {
			app.Logger.Info().Str("asset", asset).Msg("No Synth API key configured, using demo data")
		}
		snap, err = synth.Demo(asset)
		source = SourceDemo
	default:
		src, serr := app.source()
		if serr != nil {
			return nil, serr
		}
		ctx := logging.WithLogger(cmd.Context(), app.Logger)
		ctx, cancel := context.WithTimeout(ctx, app.fetchTimeout())
		defer cancel()
		snap, err = src.Snapshot(ctx, asset, timeframe)
		source = SourceSynth
	}
	if err != nil {
		return nil, err
	}

	dist, err := snap.Percentiles.Distribution()
	if err != nil {
		return nil, errors.Wrapf(err, "%s percentiles", snap.Percentiles.Asset)
	}
	dist.Asset = snap.Percentiles.Asset
	dist.Horizon = snap.Percentiles.Timeframe

	return &forecast{
		Snapshot:     snap,
		Distribution: dist,
		Samples:      distribution.Values(dist),
		Source:       source,
	}, nil
}

func (app *App) source() (SnapshotSource, error) {
	if app.Source != nil {
		return app.Source, nil
	}
	client, err := synth.NewClient(app.Config.Synth, app.Config.Credentials.Synth.APIKey)
	if err != nil {
		return nil, err
	}
	app.Source = client
	return client, nil
}

// fetchTimeout covers every attempt of the three concurrent requests.
func (app *App) fetchTimeout() time.Duration {
	attempts := time.Duration(app.Config.Synth.RetryAttempts + 1)
	return attempts*app.Config.Synth.Timeout + 10*app.Config.Synth.RetryDelay
}

func (f *forecast) header(output *Output) {
	p := f.Snapshot.Pricing
	output.Printf("%s %s  Spot: %s  Horizon: %s  Expiry: %s\n",
		output.SourceTag(f.Source), p.Asset, FormatUSD(p.CurrentPrice),
		f.Distribution.Horizon, time.UnixMilli(p.Expiration).UTC().Format("2006-01-02 15:04 MST"))
}

// writeCSV exports rows (a pointer to a slice of csv-tagged structs) to
// path, or to the command's stdout when path is "-".
func writeCSV(cmd *cobra.Command, path string, rows interface{}) error {
	if path == "-" {
		return gocsv.Marshal(rows, cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// parseLeg parses "position:kind:strike:premium[:quantity]", for example
// "long:call:87000:2240" or "short:put:85000:940:2".
func parseLeg(spec string) (models.OptionLeg, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 4 || len(parts) > 5 {
		return models.OptionLeg{}, errors.NewValidationError("leg", spec, "want position:kind:strike:premium[:quantity]")
	}

	pos, ok := models.ParsePosition(parts[0])
	if !ok {
		return models.OptionLeg{}, errors.NewValidationError("leg.position", parts[0], "want long or short")
	}
	kind, ok := models.ParseOptionKind(parts[1])
	if !ok {
		return models.OptionLeg{}, errors.NewValidationError("leg.kind", parts[1], "want call or put")
	}

	nums := make([]float64, 0, 3)
	for _, p := range parts[2:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.OptionLeg{}, errors.NewValidationError("leg", spec, "strike, premium and quantity must be numbers")
		}
		nums = append(nums, v)
	}

	leg := models.OptionLeg{
		Kind:       kind,
		Position:   pos,
		Strike:     nums[0],
		EntryPrice: nums[1],
		Quantity:   1,
	}
	if len(nums) == 3 {
		leg.Quantity = nums[2]
	}
	return leg, nil
}

func parseKind(s string) (models.OptionKind, error) {
	kind, ok := models.ParseOptionKind(s)
	if !ok {
		return "", errors.NewValidationError("kind", s, "want call or put")
	}
	return kind, nil
}
