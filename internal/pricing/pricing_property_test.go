package pricing

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"options-lab/internal/models"
)

// marketGen generates valid parameters with strictly positive time and volatility.
func marketGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.MarketParameters{}), map[string]gopter.Gen{
		"Spot":         gen.Float64Range(10, 1000),
		"Strike":       gen.Float64Range(10, 1000),
		"TimeToExpiry": gen.Float64Range(0.01, 3),
		"RiskFreeRate": gen.Float64Range(0, 0.1),
		"Volatility":   gen.Float64Range(0.05, 1.5),
	})
}

// nearMoneyGen keeps strike within 10% of a fixed spot so vega stays large
// enough for a price tolerance to pin volatility.
func nearMoneyGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.MarketParameters{}), map[string]gopter.Gen{
		"Spot":         gen.Const(100.0),
		"Strike":       gen.Float64Range(90, 110),
		"TimeToExpiry": gen.Float64Range(0.25, 2),
		"RiskFreeRate": gen.Float64Range(0, 0.08),
		"Volatility":   gen.Float64Range(0.05, 1.5),
	})
}

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	return gopter.NewProperties(parameters)
}

func TestProperty_PutCallParity(t *testing.T) {
	properties := newProperties()

	properties.Property("C - P = S - K·e^(-rT)", prop.ForAll(
		func(p models.MarketParameters) bool {
			call, err := Price(p, models.Call)
			if err != nil {
				t.Logf("call: %v", err)
				return false
			}
			put, err := Price(p, models.Put)
			if err != nil {
				t.Logf("put: %v", err)
				return false
			}
			lhs := call - put
			rhs := p.Spot - p.Strike*math.Exp(-p.RiskFreeRate*p.TimeToExpiry)
			if math.Abs(lhs-rhs) > 1e-6 {
				t.Logf("parity broken for %+v: C-P=%.10f, S-Ke^-rT=%.10f", p, lhs, rhs)
				return false
			}
			return true
		},
		marketGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_PriceBounds(t *testing.T) {
	properties := newProperties()

	properties.Property("call in [max(S-Ke^-rT,0), S], put in [max(Ke^-rT-S,0), Ke^-rT]", prop.ForAll(
		func(p models.MarketParameters) bool {
			discounted := p.Strike * math.Exp(-p.RiskFreeRate*p.TimeToExpiry)
			call, _ := Price(p, models.Call)
			put, _ := Price(p, models.Put)

			const eps = 1e-9
			if call < math.Max(p.Spot-discounted, 0)-eps || call > p.Spot+eps {
				t.Logf("call %v out of bounds for %+v", call, p)
				return false
			}
			if put < math.Max(discounted-p.Spot, 0)-eps || put > discounted+eps {
				t.Logf("put %v out of bounds for %+v", put, p)
				return false
			}
			return true
		},
		marketGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_GreekBounds(t *testing.T) {
	properties := newProperties()

	properties.Property("call delta in [0,1], put delta in [-1,0], gamma and vega non-negative", prop.ForAll(
		func(p models.MarketParameters) bool {
			call, _ := ComputeGreeks(p, models.Call)
			put, _ := ComputeGreeks(p, models.Put)

			if call.Delta < 0 || call.Delta > 1 {
				t.Logf("call delta %v for %+v", call.Delta, p)
				return false
			}
			if put.Delta < -1 || put.Delta > 0 {
				t.Logf("put delta %v for %+v", put.Delta, p)
				return false
			}
			if call.Gamma < 0 || call.Vega < 0 {
				t.Logf("negative gamma/vega %+v", call)
				return false
			}
			if math.Abs(call.Delta-put.Delta-1) > 1e-12 {
				t.Logf("delta parity broken: call %v put %v", call.Delta, put.Delta)
				return false
			}
			return call.Rho >= 0 && put.Rho <= 0
		},
		marketGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_ImpliedVolatilityRoundTrip(t *testing.T) {
	properties := newProperties()

	properties.Property("ImpliedVolatility(Price(σ)) recovers σ", prop.ForAll(
		func(p models.MarketParameters, isCall bool) bool {
			kind := models.Put
			if isCall {
				kind = models.Call
			}

			// Flat vega regions cannot resolve σ from a price tolerance.
			if v, _ := Vega(p); v < 1 {
				return true
			}

			target, err := Price(p, kind)
			if err != nil {
				t.Logf("price: %v", err)
				return false
			}
			res, err := ImpliedVolatility(target, p, kind, DefaultIVConfig())
			if err != nil {
				t.Logf("solve: %v", err)
				return false
			}
			if !res.Converged {
				t.Logf("no convergence for %+v: %+v", p, res)
				return false
			}
			if math.Abs(res.Sigma-p.Volatility) > 1e-4 {
				t.Logf("σ=%v recovered as %v for %+v", p.Volatility, res.Sigma, p)
				return false
			}
			return true
		},
		nearMoneyGen(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_MonotoneInVolatility(t *testing.T) {
	properties := newProperties()

	properties.Property("price is non-decreasing in σ", prop.ForAll(
		func(p models.MarketParameters, bump float64) bool {
			lo, _ := Price(p, models.Call)
			hi, _ := Price(p.WithVolatility(p.Volatility+bump), models.Call)
			return hi >= lo-1e-9
		},
		marketGen(),
		gen.Float64Range(0.001, 0.5),
	))

	properties.TestingRun(t)
}
