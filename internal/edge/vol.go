package edge

import (
	"math"

	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// VolProfile is forward volatility measured against realized volatility.
type VolProfile struct {
	Forward  float64          `json:"forward_vol"`
	Realized float64          `json:"realized_vol"`
	Ratio    float64          `json:"ratio"`
	Regime   models.VolRegime `json:"regime"`
}

// ClassifyVol buckets forward/realized into LOW (< 0.8), NORMAL (<= 1.2),
// HIGH (<= 1.5) or EXTREME.
func ClassifyVol(forward, realized float64) (VolProfile, error) {
	if math.IsNaN(forward) || math.IsInf(forward, 0) || forward < 0 {
		return VolProfile{}, errors.NewValidationError("forward_vol", forward, "must be a non-negative number")
	}
	if math.IsNaN(realized) || math.IsInf(realized, 0) || realized <= 0 {
		return VolProfile{}, errors.NewValidationError("realized_vol", realized, "must be positive")
	}

	v := VolProfile{Forward: forward, Realized: realized, Ratio: forward / realized}
	switch {
	case v.Ratio < 0.8:
		v.Regime = models.VolLow
	case v.Ratio <= 1.2:
		v.Regime = models.VolNormal
	case v.Ratio <= 1.5:
		v.Regime = models.VolHigh
	default:
		v.Regime = models.VolExtreme
	}
	return v, nil
}
