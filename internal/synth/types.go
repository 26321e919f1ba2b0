package synth

import (
	"time"

	"options-lab/internal/distribution"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
)

// StrikeQuote is one row of the provider's option chain.
type StrikeQuote struct {
	Strike    float64 `json:"strike"`
	CallPrice float64 `json:"call_price"`
	PutPrice  float64 `json:"put_price"`
	CallIV    float64 `json:"call_iv"`
	PutIV     float64 `json:"put_iv"`
}

// Price returns the quoted premium for kind.
func (q StrikeQuote) Price(kind models.OptionKind) float64 {
	if kind == models.Put {
		return q.PutPrice
	}
	return q.CallPrice
}

// OptionPricing is the option-pricing response.
// Timestamps are Unix milliseconds.
type OptionPricing struct {
	Asset        string        `json:"asset"`
	Timestamp    int64         `json:"timestamp"`
	Expiration   int64         `json:"expiration"`
	CurrentPrice float64       `json:"current_price"`
	Strikes      []StrikeQuote `json:"strikes"`
}

// StrikeList returns the quoted strikes in response order.
func (o OptionPricing) StrikeList() []float64 {
	out := make([]float64, len(o.Strikes))
	for i, q := range o.Strikes {
		out[i] = q.Strike
	}
	return out
}

// Quote finds the row for strike.
func (o OptionPricing) Quote(strike float64) (StrikeQuote, bool) {
	for _, q := range o.Strikes {
		if q.Strike == strike {
			return q, true
		}
	}
	return StrikeQuote{}, false
}

// YearsToExpiry is the time between the quote and expiration in years.
func (o OptionPricing) YearsToExpiry() float64 {
	return pricing.TimeToExpiry(time.UnixMilli(o.Timestamp), time.UnixMilli(o.Expiration))
}

// ConfidenceInterval is the provider's central forecast band.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// PredictionPercentiles is the prediction-percentiles response. Percentile
// keys are ranks such as "0.5", "5" or "97.5".
type PredictionPercentiles struct {
	Asset              string             `json:"asset"`
	Timestamp          int64              `json:"timestamp"`
	Timeframe          string             `json:"timeframe"`
	CurrentPrice       float64            `json:"current_price"`
	Percentiles        map[string]float64 `json:"percentiles"`
	DistributionType   string             `json:"distribution_type"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
}

// Distribution converts the response into a validated distribution.
func (p PredictionPercentiles) Distribution() (models.PercentileDistribution, error) {
	return distribution.FromPercentileMap(p.Percentiles, p.CurrentPrice)
}

// TermPoint is one tenor of the volatility term structure.
type TermPoint struct {
	Tenor      string  `json:"tenor"`
	Volatility float64 `json:"volatility"`
}

// Volatility is the volatility response.
type Volatility struct {
	Asset                  string      `json:"asset"`
	Timestamp              int64       `json:"timestamp"`
	Timeframe              string      `json:"timeframe"`
	ImpliedVolatility      float64     `json:"implied_volatility"`
	RealizedVolatility     float64     `json:"realized_volatility"`
	VolatilityOfVolatility float64     `json:"volatility_of_volatility"`
	Skew                   float64     `json:"skew"`
	Kurtosis               float64     `json:"kurtosis"`
	TermStructure          []TermPoint `json:"term_structure"`
}

// Snapshot bundles the three responses for one asset.
type Snapshot struct {
	Pricing     OptionPricing         `json:"option_pricing"`
	Percentiles PredictionPercentiles `json:"prediction_percentiles"`
	Volatility  Volatility            `json:"volatility"`
}

// Market returns Black-Scholes inputs for strike using the snapshot's spot,
// expiry and forward volatility.
func (s *Snapshot) Market(strike, rate float64) models.MarketParameters {
	return models.MarketParameters{
		Spot:         s.Pricing.CurrentPrice,
		Strike:       strike,
		TimeToExpiry: s.Pricing.YearsToExpiry(),
		RiskFreeRate: rate,
		Volatility:   s.Volatility.ImpliedVolatility,
	}
}
