// Package edge compares the empirical forecast with Black-Scholes on the same
// contracts and reports where the two disagree.
package edge

import (
	"math"

	"options-lab/internal/distribution"
	"options-lab/internal/errors"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
)

// Config controls how disagreements are classified.
type Config struct {
	// FairThreshold is the relative edge at or below which a quote is FAIR.
	FairThreshold float64
	IV            pricing.IVConfig
}

// DefaultConfig returns a 5% fair band and the default solver settings.
func DefaultConfig() Config {
	return Config{FairThreshold: 0.05, IV: pricing.DefaultIVConfig()}
}

// Quote compares one option under both models.
type Quote struct {
	Kind           models.OptionKind     `json:"kind"`
	SynthProbITM   float64               `json:"synth_prob_itm"`
	BSProbITM      float64               `json:"bs_prob_itm"`
	SynthPrice     float64               `json:"synth_price"`
	BSPrice        float64               `json:"bs_price"`
	SynthIV        pricing.IVResult      `json:"synth_iv"` // volatility that reprices the forecast fair value
	Edge           float64               `json:"edge"`
	Recommendation models.Recommendation `json:"recommendation"`
}

// ChainRow holds the call and put comparison at one strike.
type ChainRow struct {
	Strike    float64 `json:"strike"`
	Moneyness float64 `json:"moneyness"`
	Call      Quote   `json:"call"`
	Put       Quote   `json:"put"`
}

// CompareChain prices every strike under both models. The strike field of
// market is ignored. The forecast fair value is the discounted mean payoff
// over samples; edge is (forecast - BS) / BS, reported as 0 when the BS
// price is zero.
func CompareChain(samples []float64, market models.MarketParameters, strikes []float64, cfg Config) ([]ChainRow, error) {
	if len(strikes) == 0 {
		return nil, errors.NewValidationError("strikes", 0, "at least one strike required")
	}

	rows := make([]ChainRow, 0, len(strikes))
	for _, k := range strikes {
		p := market.WithStrike(k)
		if err := pricing.Validate(p); err != nil {
			return nil, err
		}

		row := ChainRow{Strike: k, Moneyness: pricing.Moneyness(p.Spot, k)}
		for _, kind := range []models.OptionKind{models.Call, models.Put} {
			q, err := compare(samples, p, kind, cfg)
			if err != nil {
				return nil, errors.Wrapf(err, "strike %g %s", k, kind)
			}
			if kind == models.Call {
				row.Call = q
			} else {
				row.Put = q
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Recommend maps a relative edge to BUY, SELL or FAIR.
func Recommend(edge, threshold float64) models.Recommendation {
	switch {
	case edge > threshold:
		return models.RecommendBuy
	case edge < -threshold:
		return models.RecommendSell
	default:
		return models.RecommendFair
	}
}

func compare(samples []float64, p models.MarketParameters, kind models.OptionKind, cfg Config) (Quote, error) {
	synthProb, err := distribution.ProbabilityITM(samples, p.Strike, kind)
	if err != nil {
		return Quote{}, err
	}
	bsProb, err := pricing.ProbabilityITM(p, kind)
	if err != nil {
		return Quote{}, err
	}
	bsPrice, err := pricing.Price(p, kind)
	if err != nil {
		return Quote{}, err
	}

	var payoff float64
	for _, v := range samples {
		payoff += pricing.Intrinsic(v, p.Strike, kind)
	}
	synthPrice := math.Exp(-p.RiskFreeRate*p.TimeToExpiry) * payoff / float64(len(samples))

	q := Quote{
		Kind:         kind,
		SynthProbITM: synthProb,
		BSProbITM:    bsProb,
		SynthPrice:   synthPrice,
		BSPrice:      bsPrice,
	}
	if bsPrice > 0 {
		q.Edge = (synthPrice - bsPrice) / bsPrice
	}
	q.Recommendation = Recommend(q.Edge, cfg.FairThreshold)

	iv, err := pricing.ImpliedVolatility(synthPrice, p, kind, cfg.IV)
	if err != nil {
		return Quote{}, err
	}
	q.SynthIV = iv
	return q, nil
}
