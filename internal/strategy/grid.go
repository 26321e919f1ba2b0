package strategy

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"options-lab/internal/errors"
)

// DefaultGridPoints is the scan resolution used when none is configured.
const DefaultGridPoints = 200

// Grid is an evenly spaced price range [Low, High] sampled at Points prices.
type Grid struct {
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Points int     `json:"points"`
}

// Validate checks the grid bounds and resolution.
func (g Grid) Validate() error {
	if !finite(g.Low) || !finite(g.High) || g.Low < 0 {
		return errors.NewValidationError("grid", [2]float64{g.Low, g.High}, "bounds must be finite and non-negative")
	}
	if g.High <= g.Low {
		return errors.NewValidationError("grid", [2]float64{g.Low, g.High}, "high must exceed low")
	}
	if g.Points < 2 {
		return errors.NewValidationError("grid_points", g.Points, "need at least 2 points")
	}
	return nil
}

// Step returns the spacing between grid points.
func (g Grid) Step() float64 {
	return (g.High - g.Low) / float64(g.Points-1)
}

// AutoGrid spans every sample and strike, widened by padding on both sides.
// The lower bound never goes below zero.
func AutoGrid(samples, strikes []float64, padding float64, points int) Grid {
	all := make([]float64, 0, len(samples)+len(strikes))
	all = append(all, samples...)
	all = append(all, strikes...)
	if len(all) == 0 {
		return Grid{Points: points}
	}

	lo, hi := floats.Min(all), floats.Max(all)
	if lo == hi {
		lo, hi = lo*0.9, hi*1.1
	}
	return Grid{
		Low:    math.Max(0, lo*(1-padding)),
		High:   hi * (1 + padding),
		Points: points,
	}
}
