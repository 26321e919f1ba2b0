// Package pricing provides Black-Scholes-Merton valuation, Greeks and
// implied volatility for European options.
//
// Every function is pure: inputs are validated on entry and no state is kept
// between calls. Greeks use the following reporting scales everywhere:
//
//   - Vega and Rho: change in price for a 1 percentage point move (raw / 100)
//   - Theta: change in price per calendar day (annualized / 365)
//
// The unscaled vega used by the implied volatility solver is exposed as Vega.
package pricing

import (
	"math"
	"time"

	"options-lab/internal/models"
)

const (
	daysPerYear  = 365.0
	percentScale = 100.0
	yearDuration = 365.25 * 24 * time.Hour
)

// Result bundles a price with its Greeks.
type Result struct {
	Price  float64       `json:"price"`
	Greeks models.Greeks `json:"greeks"`
}

// Price returns the Black-Scholes value of a call or put.
// At expiry (T == 0) it returns intrinsic value without dividing by T.
func Price(p models.MarketParameters, kind models.OptionKind) (float64, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	if err := validateKind(kind); err != nil {
		return 0, err
	}
	return price(p, kind), nil
}

// ComputeGreeks returns delta, gamma, vega, theta and rho.
func ComputeGreeks(p models.MarketParameters, kind models.OptionKind) (models.Greeks, error) {
	if err := Validate(p); err != nil {
		return models.Greeks{}, err
	}
	if err := validateKind(kind); err != nil {
		return models.Greeks{}, err
	}
	return greeks(p, kind), nil
}

// Evaluate returns price and Greeks in one pass.
func Evaluate(p models.MarketParameters, kind models.OptionKind) (Result, error) {
	if err := Validate(p); err != nil {
		return Result{}, err
	}
	if err := validateKind(kind); err != nil {
		return Result{}, err
	}
	return Result{Price: price(p, kind), Greeks: greeks(p, kind)}, nil
}

// Vega returns the unscaled vega S·φ(d1)·√T (per unit of volatility).
// It is zero at expiry and for zero volatility.
func Vega(p models.MarketParameters) (float64, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	return rawVega(p), nil
}

// Intrinsic returns the exercise value of the option at spot.
func Intrinsic(spot, strike float64, kind models.OptionKind) float64 {
	if kind == models.Call {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

// ProbabilityITM returns the risk-neutral probability of finishing in the money,
// N(d2) for calls and N(-d2) for puts. At expiry it is 1 or 0.
func ProbabilityITM(p models.MarketParameters, kind models.OptionKind) (float64, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	if err := validateKind(kind); err != nil {
		return 0, err
	}

	if degenerate(p) {
		fwdStrike := p.Strike * math.Exp(-p.RiskFreeRate*p.TimeToExpiry)
		if kind == models.Call && p.Spot > fwdStrike {
			return 1, nil
		}
		if kind == models.Put && p.Spot < fwdStrike {
			return 1, nil
		}
		return 0, nil
	}

	_, d2 := d1d2(p)
	if kind == models.Call {
		return NormCDF(d2), nil
	}
	return NormCDF(-d2), nil
}

// Moneyness returns S/K.
func Moneyness(spot, strike float64) float64 {
	if strike == 0 {
		return 0
	}
	return spot / strike
}

// TimeToExpiry converts an expiry instant to years from now, floored at zero.
func TimeToExpiry(now, expiry time.Time) float64 {
	diff := expiry.Sub(now)
	if diff <= 0 {
		return 0
	}
	return float64(diff) / float64(yearDuration)
}

func d1d2(p models.MarketParameters) (float64, float64) {
	sqrtT := math.Sqrt(p.TimeToExpiry)
	d1 := (math.Log(p.Spot/p.Strike) + (p.RiskFreeRate+0.5*p.Volatility*p.Volatility)*p.TimeToExpiry) / (p.Volatility * sqrtT)
	return d1, d1 - p.Volatility*sqrtT
}

// degenerate reports whether the lognormal spread σ√T is zero.
func degenerate(p models.MarketParameters) bool {
	return p.TimeToExpiry == 0 || p.Volatility == 0
}

func price(p models.MarketParameters, kind models.OptionKind) float64 {
	if p.TimeToExpiry == 0 {
		return Intrinsic(p.Spot, p.Strike, kind)
	}

	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
	if p.Volatility == 0 {
		// Deterministic forward: value is the discounted intrinsic.
		return Intrinsic(p.Spot, p.Strike*discount, kind)
	}

	d1, d2 := d1d2(p)
	if kind == models.Call {
		return p.Spot*NormCDF(d1) - p.Strike*discount*NormCDF(d2)
	}
	return p.Strike*discount*NormCDF(-d2) - p.Spot*NormCDF(-d1)
}

func rawVega(p models.MarketParameters) float64 {
	if degenerate(p) {
		return 0
	}
	d1, _ := d1d2(p)
	return p.Spot * NormPDF(d1) * math.Sqrt(p.TimeToExpiry)
}

func greeks(p models.MarketParameters, kind models.OptionKind) models.Greeks {
	if p.TimeToExpiry == 0 {
		return expiryGreeks(p, kind)
	}
	if p.Volatility == 0 {
		return zeroVolGreeks(p, kind)
	}

	sqrtT := math.Sqrt(p.TimeToExpiry)
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
	d1, d2 := d1d2(p)
	pdf := NormPDF(d1)

	g := models.Greeks{
		Gamma: pdf / (p.Spot * p.Volatility * sqrtT),
		Vega:  p.Spot * pdf * sqrtT / percentScale,
	}

	decay := -(p.Spot * pdf * p.Volatility) / (2 * sqrtT)
	if kind == models.Call {
		g.Delta = NormCDF(d1)
		g.Theta = (decay - p.RiskFreeRate*p.Strike*discount*NormCDF(d2)) / daysPerYear
		g.Rho = p.Strike * p.TimeToExpiry * discount * NormCDF(d2) / percentScale
	} else {
		g.Delta = NormCDF(d1) - 1
		g.Theta = (decay + p.RiskFreeRate*p.Strike*discount*NormCDF(-d2)) / daysPerYear
		g.Rho = -p.Strike * p.TimeToExpiry * discount * NormCDF(-d2) / percentScale
	}
	return g
}

// expiryGreeks: delta is the sign of moneyness using strict inequality, the rest vanish.
func expiryGreeks(p models.MarketParameters, kind models.OptionKind) models.Greeks {
	var g models.Greeks
	if kind == models.Call && p.Spot > p.Strike {
		g.Delta = 1
	}
	if kind == models.Put && p.Spot < p.Strike {
		g.Delta = -1
	}
	return g
}

func zeroVolGreeks(p models.MarketParameters, kind models.OptionKind) models.Greeks {
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
	fwdStrike := p.Strike * discount

	var g models.Greeks
	switch {
	case kind == models.Call && p.Spot > fwdStrike:
		g.Delta = 1
		g.Theta = -p.RiskFreeRate * fwdStrike / daysPerYear
		g.Rho = p.Strike * p.TimeToExpiry * discount / percentScale
	case kind == models.Put && p.Spot < fwdStrike:
		g.Delta = -1
		g.Theta = p.RiskFreeRate * fwdStrike / daysPerYear
		g.Rho = -p.Strike * p.TimeToExpiry * discount / percentScale
	}
	return g
}
