package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"options-lab/internal/models"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	return gopter.NewProperties(parameters)
}

func TestProperty_LongCallPayoffMonotonic(t *testing.T) {
	properties := newProperties()

	properties.Property("long call P&L is non-decreasing in settlement price", prop.ForAll(
		func(strike, premium, p1, delta float64) bool {
			s := single(leg(models.Call, models.Long, strike, premium))
			return PayoffAt(s, p1+delta) >= PayoffAt(s, p1)
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(0, 50),
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_LongCallSingleBreakeven(t *testing.T) {
	properties := newProperties()

	properties.Property("long call has exactly one breakeven at strike + premium", prop.ForAll(
		func(strike, premium float64) bool {
			s := single(leg(models.Call, models.Long, strike, premium))
			g := Grid{Low: strike / 2, High: strike * 2, Points: DefaultGridPoints}

			got, err := FindBreakevens(s, g)
			if err != nil {
				t.Logf("FindBreakevens: %v", err)
				return false
			}
			if len(got) != 1 {
				t.Logf("strike %v premium %v: breakevens %v", strike, premium, got)
				return false
			}
			return math.Abs(got[0]-(strike+premium)) <= g.Step()
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(1, 20),
	))

	properties.TestingRun(t)
}

func TestProperty_PayoffLinearBetweenStrikes(t *testing.T) {
	properties := newProperties()

	properties.Property("payoff is linear between consecutive strikes", prop.ForAll(
		func(lower, gap, premium, w float64) bool {
			upper := lower + gap
			s := models.Strategy{Legs: []models.OptionLeg{
				leg(models.Put, models.Long, lower, premium),
				leg(models.Call, models.Short, upper, premium/2),
			}}
			x := lower + w*gap
			interp := (1-w)*PayoffAt(s, lower) + w*PayoffAt(s, upper)
			return math.Abs(PayoffAt(s, x)-interp) < 1e-9
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(1, 100),
		gen.Float64Range(0, 20),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestProperty_ExpectedValueBounds(t *testing.T) {
	properties := newProperties()

	properties.Property("EV lies between the worst and best sample P&L", prop.ForAll(
		func(samples []float64, strike, premium float64) bool {
			if len(samples) == 0 {
				return true
			}
			s := models.Strategy{Legs: []models.OptionLeg{
				leg(models.Call, models.Long, strike, premium),
				leg(models.Put, models.Long, strike, premium),
			}}
			res, err := ExpectedValue(s, samples)
			if err != nil {
				return false
			}

			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range samples {
				pnl := PayoffAt(s, v)
				lo, hi = math.Min(lo, pnl), math.Max(hi, pnl)
			}
			return res.EV >= lo-1e-9 && res.EV <= hi+1e-9 &&
				res.ProbabilityOfProfit >= 0 && res.ProbabilityOfProfit <= 1
		},
		gen.SliceOfN(15, gen.Float64Range(50, 150)),
		gen.Float64Range(80, 120),
		gen.Float64Range(0, 15),
	))

	properties.TestingRun(t)
}
