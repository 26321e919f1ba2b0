package edge

import (
	"math"

	"options-lab/internal/errors"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
	"options-lab/internal/strategy"
)

// StrategyComparison sets the forecast probability of profit against the
// lognormal one for the same strategy.
type StrategyComparison struct {
	SynthPoP float64 `json:"synth_pop"`
	BSPoP    float64 `json:"bs_pop"`
	Diff     float64 `json:"diff"`
}

// CompareStrategy computes both probabilities of profit. The lognormal side
// sums the risk-neutral mass of every profitable interval between the
// breakevens found on g; crossings outside g are not seen.
func CompareStrategy(s models.Strategy, samples []float64, market models.MarketParameters, g strategy.Grid) (StrategyComparison, error) {
	ev, err := strategy.ExpectedValue(s, samples)
	if err != nil {
		return StrategyComparison{}, err
	}
	if err := pricing.Validate(market.WithStrike(market.Spot)); err != nil {
		return StrategyComparison{}, err
	}
	breakevens, err := strategy.FindBreakevens(s, g)
	if err != nil {
		return StrategyComparison{}, err
	}

	edges := append([]float64{0}, breakevens...)
	edges = append(edges, math.Inf(1))

	var bsPoP float64
	for i := 1; i < len(edges); i++ {
		lo, hi := edges[i-1], edges[i]
		if strategy.PayoffAt(s, interior(lo, hi, market.Spot)) <= 0 {
			continue
		}
		pHi, err := below(market, hi)
		if err != nil {
			return StrategyComparison{}, err
		}
		pLo, err := below(market, lo)
		if err != nil {
			return StrategyComparison{}, err
		}
		bsPoP += pHi - pLo
	}

	return StrategyComparison{
		SynthPoP: ev.ProbabilityOfProfit,
		BSPoP:    bsPoP,
		Diff:     ev.ProbabilityOfProfit - bsPoP,
	}, nil
}

// below is the lognormal P(S_T < x).
func below(market models.MarketParameters, x float64) (float64, error) {
	switch {
	case x <= 0:
		return 0, nil
	case math.IsInf(x, 1):
		return 1, nil
	}
	p, err := pricing.ProbabilityITM(market.WithStrike(x), models.Put)
	if err != nil {
		return 0, errors.Wrapf(err, "lognormal mass below %g", x)
	}
	return p, nil
}

// interior picks a price strictly inside (lo, hi).
func interior(lo, hi, spot float64) float64 {
	switch {
	case math.IsInf(hi, 1) && lo == 0:
		return spot
	case math.IsInf(hi, 1):
		return lo * 2
	default:
		return (lo + hi) / 2
	}
}
