package distribution

import (
	"gonum.org/v1/gonum/floats"
	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// Histogram buckets samples into equal-width bins over [min, max]. Bins are
// half-open [low, high) except the last, which also holds the maximum.
// All samples land in one bin when they are identical.
func Histogram(samples []float64, bins int) ([]models.HistogramBin, error) {
	if err := checkSamples(samples); err != nil {
		return nil, err
	}
	if bins <= 0 {
		return nil, errors.NewValidationError("bins", bins, "must be positive")
	}

	lo, hi := floats.Min(samples), floats.Max(samples)
	if lo == hi {
		return []models.HistogramBin{{Low: lo, High: hi, Midpoint: lo, Count: len(samples)}}, nil
	}

	width := (hi - lo) / float64(bins)
	out := make([]models.HistogramBin, bins)
	for i := range out {
		low := lo + float64(i)*width
		out[i] = models.HistogramBin{Low: low, High: low + width, Midpoint: low + width/2}
	}
	out[bins-1].High = hi

	for _, v := range samples {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out, nil
}

// ConeLabels are the timepoints of a prediction cone.
var ConeLabels = []string{"Now", "6h", "12h", "24h"}

var coneWidths = []float64{0, 0.4, 0.7, 1.0}

// Cone fans the p5/p25/p50/p75/p95 band out from currentPrice at "Now" to the
// full forecast at the horizon. Missing percentiles fall back to fixed
// multiples of currentPrice.
func Cone(d models.PercentileDistribution, currentPrice float64) ([]models.ConePoint, error) {
	if currentPrice <= 0 {
		return nil, errors.NewValidationError("current_price", currentPrice, "must be positive")
	}

	band := [5]float64{
		rankOr(d, 5, currentPrice*0.9),
		rankOr(d, 25, currentPrice*0.95),
		rankOr(d, 50, currentPrice),
		rankOr(d, 75, currentPrice*1.05),
		rankOr(d, 95, currentPrice*1.1),
	}

	out := make([]models.ConePoint, len(ConeLabels))
	for i, label := range ConeLabels {
		w := coneWidths[i]
		at := func(v float64) float64 { return currentPrice + (v-currentPrice)*w }
		out[i] = models.ConePoint{
			Label:  label,
			P5:     at(band[0]),
			P25:    at(band[1]),
			P50:    at(band[2]),
			P75:    at(band[3]),
			P95:    at(band[4]),
			Actual: currentPrice,
		}
	}
	return out, nil
}

func rankOr(d models.PercentileDistribution, rank, fallback float64) float64 {
	if v, ok := d.At(rank); ok && v > 0 {
		return v
	}
	return fallback
}
