package distribution

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// Shape labels for Describe.
const (
	SkewLeft      = "left-skewed"
	SkewRight     = "right-skewed"
	SkewSymmetric = "symmetric"
)

const (
	skewThreshold = 0.1
	// p95/p5 of a normal-like forecast is about 2.5; tails are fat beyond 20% above it.
	normalTailRatio = 2.5
	fatTailFactor   = 1.2
	tailFraction    = 0.05
)

// Neutral is the analysis reported for an empty sample set.
var Neutral = models.DistributionAnalysis{TailRatio: 1}

// AnalyzeShape computes skewness, tail ratio, drawdown/upside, IQR and tail
// risk of a sample set relative to currentPrice.
//
// Skewness is the population third standardized moment (divisor n).
// Percentiles use the nearest-rank index floor(n·p) into the sorted samples.
// tailRatio is p95/max(p5, 1). VaR and CVaR are normalized by the mean.
// An empty sample set yields Neutral; it never fails. Non-finite inputs
// propagate into the result, so untrusted data goes through
// AnalyzeShapeChecked.
func AnalyzeShape(samples []float64, currentPrice float64) models.DistributionAnalysis {
	n := len(samples)
	if n == 0 {
		return Neutral
	}

	values := make([]float64, n)
	copy(values, samples)
	sort.Float64s(values)

	mean, std := stat.PopMeanStdDev(values, nil)
	median := medianOf(values)

	p5 := nearestRank(values, 0.05)
	p25 := nearestRank(values, 0.25)
	p75 := nearestRank(values, 0.75)
	p95 := nearestRank(values, 0.95)

	a := models.DistributionAnalysis{
		Skewness:  popSkewness(values, mean, std),
		TailRatio: p95 / math.Max(p5, 1),
	}

	if currentPrice > 0 {
		a.MaxDrawdown = math.Max(0, (mean-values[0])/currentPrice)
		a.MaxUpside = math.Max(0, (values[n-1]-mean)/currentPrice)
	}
	if median != 0 {
		a.InterquartileRangePct = (p75 - p25) / median
	}
	if mean != 0 {
		k := int(math.Ceil(float64(n) * tailFraction))
		tailMean := floats.Sum(values[:k]) / float64(k)
		a.VaR95 = (p5 - mean) / mean
		a.CVaR95 = (tailMean - mean) / mean
	}
	return a
}

// AnalyzeShapeChecked is AnalyzeShape with input validation: samples must be
// finite and currentPrice finite and non-negative. An empty sample set still
// yields Neutral.
func AnalyzeShapeChecked(samples []float64, currentPrice float64) (models.DistributionAnalysis, error) {
	if math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) || currentPrice < 0 {
		return models.DistributionAnalysis{}, errors.NewValidationError("current_price", currentPrice, "must be a finite non-negative price")
	}
	if len(samples) == 0 {
		return Neutral, nil
	}
	if err := checkSamples(samples); err != nil {
		return models.DistributionAnalysis{}, err
	}
	return AnalyzeShape(samples, currentPrice), nil
}

// Description is a human-readable classification of a DistributionAnalysis.
type Description struct {
	Skew     string `json:"skew"`
	FatTails bool   `json:"fat_tails"`
}

// Describe labels the skew direction and flags fat tails.
func Describe(a models.DistributionAnalysis) Description {
	d := Description{Skew: SkewSymmetric}
	switch {
	case a.Skewness < -skewThreshold:
		d.Skew = SkewLeft
	case a.Skewness > skewThreshold:
		d.Skew = SkewRight
	}
	d.FatTails = a.TailRatio > normalTailRatio*fatTailFactor
	return d
}

func popSkewness(values []float64, mean, std float64) float64 {
	if len(values) < 2 || std == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		z := (v - mean) / std
		sum += z * z * z
	}
	return sum / float64(len(values))
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func nearestRank(sorted []float64, p float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
