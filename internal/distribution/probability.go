package distribution

import (
	"math"

	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// ProbabilityITM returns the fraction of samples that finish in the money:
// value > strike for calls, value < strike for puts. Samples are a discrete
// empirical set, so tail accuracy depends on how densely the tails are sampled.
func ProbabilityITM(samples []float64, strike float64, kind models.OptionKind) (float64, error) {
	if err := checkSamples(samples); err != nil {
		return 0, err
	}
	if err := checkStrike(strike, kind); err != nil {
		return 0, err
	}

	var count int
	for _, v := range samples {
		if kind == models.Call && v > strike {
			count++
		}
		if kind == models.Put && v < strike {
			count++
		}
	}
	return float64(count) / float64(len(samples)), nil
}

// ProbabilityITMInterpolated reads the probability off a piecewise-linear CDF
// through the (value, rank/100) anchors of d. Outside the anchor range the CDF
// is flat at the first and last rank. Used for display next to the empirical
// count, which stays canonical.
func ProbabilityITMInterpolated(d models.PercentileDistribution, strike float64, kind models.OptionKind) (float64, error) {
	if err := Validate(d); err != nil {
		return 0, err
	}
	if err := checkStrike(strike, kind); err != nil {
		return 0, err
	}

	cdf := cdfAt(d.Points, strike)
	if kind == models.Call {
		return 1 - cdf, nil
	}
	return cdf, nil
}

func cdfAt(points []models.Percentile, x float64) float64 {
	first, last := points[0], points[len(points)-1]
	if x <= first.Value {
		return first.Rank / 100
	}
	if x >= last.Value {
		return last.Rank / 100
	}

	for i := 1; i < len(points); i++ {
		lo, hi := points[i-1], points[i]
		if x > hi.Value {
			continue
		}
		if hi.Value == lo.Value {
			return hi.Rank / 100
		}
		w := (x - lo.Value) / (hi.Value - lo.Value)
		return (lo.Rank + w*(hi.Rank-lo.Rank)) / 100
	}
	return last.Rank / 100
}

func checkStrike(strike float64, kind models.OptionKind) error {
	if math.IsNaN(strike) || math.IsInf(strike, 0) || strike <= 0 {
		return errors.NewValidationError("strike", strike, "must be a positive price")
	}
	if !kind.IsValid() {
		return errors.NewValidationError("option_kind", kind, "must be call or put")
	}
	return nil
}
