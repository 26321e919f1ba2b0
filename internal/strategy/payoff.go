// Package strategy evaluates multi-leg option strategies at expiry against an
// empirical price distribution.
package strategy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// Validate checks that a strategy has at least one well-formed leg.
func Validate(s models.Strategy) error {
	if len(s.Legs) == 0 {
		return errors.NewValidationError("legs", 0, "strategy needs at least one leg")
	}
	for i, leg := range s.Legs {
		if !leg.Kind.IsValid() {
			return errors.NewValidationError("kind", leg.Kind, legLabel(i, "must be call or put"))
		}
		if !leg.Position.IsValid() {
			return errors.NewValidationError("position", leg.Position, legLabel(i, "must be long or short"))
		}
		if !finite(leg.Strike) || leg.Strike <= 0 {
			return errors.NewValidationError("strike", leg.Strike, legLabel(i, "must be a positive price"))
		}
		if !finite(leg.Quantity) || leg.Quantity <= 0 {
			return errors.NewValidationError("quantity", leg.Quantity, legLabel(i, "must be positive"))
		}
		if !finite(leg.EntryPrice) || leg.EntryPrice < 0 {
			return errors.NewValidationError("entry_price", leg.EntryPrice, legLabel(i, "must be non-negative"))
		}
	}
	return nil
}

// PayoffAt returns the total P&L of s if the underlying settles at price.
// Each leg contributes sign · quantity · (payoff - entryPrice).
func PayoffAt(s models.Strategy, price float64) float64 {
	var pnl float64
	for _, leg := range s.Legs {
		var payoff float64
		if leg.Kind == models.Call {
			payoff = math.Max(price-leg.Strike, 0)
		} else {
			payoff = math.Max(leg.Strike-price, 0)
		}
		pnl += leg.Position.Sign() * leg.Quantity * (payoff - leg.EntryPrice)
	}
	return pnl
}

// PayoffCurve samples PayoffAt over an evenly spaced grid for charting.
func PayoffCurve(s models.Strategy, g Grid) ([]models.PayoffPoint, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	prices := floats.Span(make([]float64, g.Points), g.Low, g.High)
	curve := make([]models.PayoffPoint, len(prices))
	for i, p := range prices {
		curve[i] = models.PayoffPoint{Price: p, PnL: PayoffAt(s, p)}
	}
	return curve, nil
}

// ExpectedValue averages strategy P&L over the samples, each weighted equally.
// This assumes roughly uniform spacing of percentile ranks.
func ExpectedValue(s models.Strategy, samples []float64) (models.ExpectedValueResult, error) {
	if err := Validate(s); err != nil {
		return models.ExpectedValueResult{}, err
	}
	if len(samples) == 0 {
		return models.ExpectedValueResult{}, errors.NewValidationError("samples", 0, "at least one sample required")
	}

	var (
		total, profit, loss    float64
		profitCount, lossCount int
	)
	for _, v := range samples {
		if !finite(v) {
			return models.ExpectedValueResult{}, errors.NewValidationError("samples", v, "must be finite")
		}
		pnl := PayoffAt(s, v)
		total += pnl
		switch {
		case pnl > 0:
			profitCount++
			profit += pnl
		case pnl < 0:
			lossCount++
			loss -= pnl
		}
	}

	n := float64(len(samples))
	res := models.ExpectedValueResult{
		EV:                  total / n,
		ProbabilityOfProfit: float64(profitCount) / n,
	}
	if profitCount > 0 {
		res.ExpectedProfitGivenProfit = profit / float64(profitCount)
	}
	if lossCount > 0 {
		res.ExpectedLossGivenLoss = loss / float64(lossCount)
	}
	return res, nil
}

// FindBreakevens scans g and returns, in ascending order, every price where
// the P&L changes sign between consecutive grid points. Crossings are located
// by linear interpolation, exact unless a strike lies inside the step. A run
// of grid points sitting exactly on zero between opposite signs reports its
// first point.
func FindBreakevens(s models.Strategy, g Grid) ([]float64, error) {
	curve, err := PayoffCurve(s, g)
	if err != nil {
		return nil, err
	}

	breakevens := []float64{}
	last := -1 // index of the last non-zero sample
	for i, pt := range curve {
		if pt.PnL == 0 {
			continue
		}
		if last >= 0 && sign(curve[last].PnL) != sign(pt.PnL) {
			if i-last > 1 {
				breakevens = append(breakevens, curve[last+1].Price)
			} else {
				breakevens = append(breakevens, interpolateZero(curve[last], pt))
			}
		}
		last = i
	}
	return breakevens, nil
}

func interpolateZero(a, b models.PayoffPoint) float64 {
	return a.Price + (b.Price-a.Price)*a.PnL/(a.PnL-b.PnL)
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	return -1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func legLabel(i int, msg string) string {
	return fmt.Sprintf("leg %d: %s", i+1, msg)
}
