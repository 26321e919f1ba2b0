// Package distribution turns empirical percentile forecasts into probability
// and shape statistics.
//
// A forecast is treated as a discrete sample: every percentile point counts
// once. This assumes roughly uniform spacing of ranks; unevenly spaced
// percentile sets bias means and counts toward the denser region.
package distribution

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// RequiredRanks is the minimum percentile set a forecast must carry.
var RequiredRanks = []float64{5, 50, 95}

// FromPercentileMap converts a provider percentile map ("5" -> 81200.5, ...)
// into an ordered distribution. Keys must parse as ranks in (0, 100), values
// must be positive prices, and the ranks in RequiredRanks must be present.
func FromPercentileMap(raw map[string]float64, currentPrice float64) (models.PercentileDistribution, error) {
	points := make([]models.Percentile, 0, len(raw))
	seen := make(map[float64]string, len(raw))

	for key, value := range raw {
		rank, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
		if err != nil {
			return models.PercentileDistribution{}, errors.NewValidationError("percentile", key, "rank is not a number")
		}
		if prev, dup := seen[rank]; dup {
			return models.PercentileDistribution{}, errors.NewValidationError("percentile", key,
				fmt.Sprintf("duplicates rank %q", prev))
		}
		seen[rank] = key
		points = append(points, models.Percentile{Rank: rank, Value: value})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Rank < points[j].Rank })

	d := models.PercentileDistribution{CurrentPrice: currentPrice, Points: points}
	if err := Validate(d); err != nil {
		return models.PercentileDistribution{}, err
	}

	var missing []string
	for _, rank := range RequiredRanks {
		if _, ok := seen[rank]; !ok {
			missing = append(missing, "p"+strconv.FormatFloat(rank, 'f', -1, 64))
		}
	}
	if len(missing) > 0 {
		return models.PercentileDistribution{}, errors.NewValidationError("percentiles", strings.Join(missing, ","), "required percentiles missing")
	}

	return d, nil
}

// Validate checks that a distribution has at least two points, ranks strictly
// increasing inside (0, 100), and positive values non-decreasing with rank.
func Validate(d models.PercentileDistribution) error {
	if d.Len() < 2 {
		return errors.Wrapf(errors.ErrDegenerateDistribution, "%d point(s), need at least 2", d.Len())
	}

	for i, p := range d.Points {
		if math.IsNaN(p.Rank) || p.Rank <= 0 || p.Rank >= 100 {
			return errors.NewValidationError("rank", p.Rank, "must lie in (0, 100)")
		}
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value <= 0 {
			return errors.NewValidationError("value", p.Value, fmt.Sprintf("p%g must be a positive price", p.Rank))
		}
		if i == 0 {
			continue
		}
		prev := d.Points[i-1]
		if p.Rank <= prev.Rank {
			return errors.NewValidationError("rank", p.Rank, "ranks must be strictly increasing")
		}
		if p.Value < prev.Value {
			return errors.NewValidationError("value", p.Value,
				fmt.Sprintf("p%g below p%g (%g)", p.Rank, prev.Rank, prev.Value))
		}
	}

	if d.CurrentPrice != 0 && (math.IsNaN(d.CurrentPrice) || math.IsInf(d.CurrentPrice, 0) || d.CurrentPrice < 0) {
		return errors.NewValidationError("current_price", d.CurrentPrice, "must be a positive price")
	}
	return nil
}

// Values returns the sample values of a distribution in rank order.
func Values(d models.PercentileDistribution) []float64 {
	return d.Values()
}

func checkSamples(samples []float64) error {
	if len(samples) == 0 {
		return errors.NewValidationError("samples", 0, "at least one sample required")
	}
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValidationError("samples", v, "must be finite")
		}
	}
	return nil
}
