package strategy

import (
	"math"

	"options-lab/internal/models"
)

// Evaluate computes the full metric set of a strategy: expected value bundle
// over samples, max profit and loss within g, risk/reward and breakevens.
//
// Payoffs are piecewise linear with kinks at strikes, so extremes inside g are
// read at the grid points and at every strike within it. Beyond the highest
// strike only calls move the P&L; a non-zero net call quantity there marks the
// profit or loss as unbounded.
func Evaluate(s models.Strategy, samples []float64, g Grid) (models.StrategyMetrics, error) {
	ev, err := ExpectedValue(s, samples)
	if err != nil {
		return models.StrategyMetrics{}, err
	}
	curve, err := PayoffCurve(s, g)
	if err != nil {
		return models.StrategyMetrics{}, err
	}
	breakevens, err := FindBreakevens(s, g)
	if err != nil {
		return models.StrategyMetrics{}, err
	}

	m := models.StrategyMetrics{
		ExpectedValueResult: ev,
		MaxProfit:           math.Inf(-1),
		MaxLoss:             math.Inf(1),
		Breakevens:          breakevens,
		NetPremium:          s.NetPremium(),
	}

	observe := func(pnl float64) {
		m.MaxProfit = math.Max(m.MaxProfit, pnl)
		m.MaxLoss = math.Min(m.MaxLoss, pnl)
	}
	for _, pt := range curve {
		observe(pt.PnL)
	}
	for _, k := range s.Strikes() {
		if k >= g.Low && k <= g.High {
			observe(PayoffAt(s, k))
		}
	}

	if m.MaxLoss < 0 {
		m.RiskReward = m.MaxProfit / math.Abs(m.MaxLoss)
	}

	switch slope := upsideSlope(s); {
	case slope > 0:
		m.UnboundedProfit = true
	case slope < 0:
		m.UnboundedLoss = true
	}
	return m, nil
}

// upsideSlope is dP&L/dPrice above every strike.
func upsideSlope(s models.Strategy) float64 {
	var slope float64
	for _, leg := range s.Legs {
		if leg.Kind == models.Call {
			slope += leg.Position.Sign() * leg.Quantity
		}
	}
	return slope
}
