package models

// MarketParameters holds the Black-Scholes-Merton inputs for a single contract.
type MarketParameters struct {
	Spot         float64 `json:"spot"`
	Strike       float64 `json:"strike"`
	TimeToExpiry float64 `json:"time_to_expiry"` // years
	RiskFreeRate float64 `json:"risk_free_rate"` // annualized
	Volatility   float64 `json:"volatility"`     // annualized fraction
}

// WithVolatility returns a copy of p with the volatility replaced.
func (p MarketParameters) WithVolatility(sigma float64) MarketParameters {
	p.Volatility = sigma
	return p
}

// WithStrike returns a copy of p with the strike replaced.
func (p MarketParameters) WithStrike(strike float64) MarketParameters {
	p.Strike = strike
	return p
}

// Greeks represents option sensitivities.
//
// Vega and Rho are reported per 1 percentage point move (raw / 100).
// Theta is reported per calendar day (annualized / 365).
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Add returns the element-wise sum of two Greeks, scaled by weight.
func (g Greeks) Add(other Greeks, weight float64) Greeks {
	return Greeks{
		Delta: g.Delta + weight*other.Delta,
		Gamma: g.Gamma + weight*other.Gamma,
		Vega:  g.Vega + weight*other.Vega,
		Theta: g.Theta + weight*other.Theta,
		Rho:   g.Rho + weight*other.Rho,
	}
}

// OptionLeg represents a leg of an option strategy.
type OptionLeg struct {
	Kind       OptionKind `json:"kind" csv:"kind"`
	Strike     float64    `json:"strike" csv:"strike"`
	Quantity   float64    `json:"quantity" csv:"quantity"`
	Position   Position   `json:"position" csv:"position"`
	EntryPrice float64    `json:"entry_price" csv:"entry_price"` // premium paid or received per unit
}

// Strategy is an ordered collection of legs. Order only matters for display.
type Strategy struct {
	Name string      `json:"name"`
	Legs []OptionLeg `json:"legs"`
}

// NetPremium returns the premium paid (positive) or received (negative).
func (s Strategy) NetPremium() float64 {
	var net float64
	for _, leg := range s.Legs {
		net += leg.Position.Sign() * leg.Quantity * leg.EntryPrice
	}
	return net
}

// Strikes returns the strikes of all legs in leg order.
func (s Strategy) Strikes() []float64 {
	strikes := make([]float64, len(s.Legs))
	for i, leg := range s.Legs {
		strikes[i] = leg.Strike
	}
	return strikes
}

// ExpectedValueResult is the probability-weighted outcome of a strategy.
type ExpectedValueResult struct {
	EV                        float64 `json:"ev"`
	ProbabilityOfProfit       float64 `json:"probability_of_profit"`
	ExpectedProfitGivenProfit float64 `json:"expected_profit_given_profit"`
	ExpectedLossGivenLoss     float64 `json:"expected_loss_given_loss"`
}

// StrategyMetrics summarizes a strategy against a distribution.
type StrategyMetrics struct {
	ExpectedValueResult
	MaxProfit       float64   `json:"max_profit"`
	MaxLoss         float64   `json:"max_loss"`
	RiskReward      float64   `json:"risk_reward"`
	Breakevens      []float64 `json:"breakevens"`
	NetPremium      float64   `json:"net_premium"`
	UnboundedProfit bool      `json:"unbounded_profit"`
	UnboundedLoss   bool      `json:"unbounded_loss"`
}

// PayoffPoint is one sample of a payoff curve.
type PayoffPoint struct {
	Price float64 `json:"price" csv:"price"`
	PnL   float64 `json:"pnl" csv:"pnl"`
}
