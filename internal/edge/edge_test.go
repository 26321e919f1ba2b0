package edge

import (
	"math"
	"testing"

	"options-lab/internal/errors"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
	"options-lab/internal/strategy"
)

var btcSamples = []float64{80000, 84000, 87000, 90000, 95000}

func btcMarket() models.MarketParameters {
	return models.MarketParameters{
		Spot:         87000,
		TimeToExpiry: 7.0 / 365.0,
		RiskFreeRate: 0.05,
		Volatility:   0.5,
	}
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestCompareChain(t *testing.T) {
	market := btcMarket()
	rows, err := CompareChain(btcSamples, market, []float64{85000, 87000, 90000}, DefaultConfig())
	if err != nil {
		t.Fatalf("CompareChain: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}

	atm := rows[1]
	if atm.Strike != 87000 || atm.Moneyness != 1 {
		t.Errorf("row = %+v", atm)
	}
	if atm.Call.SynthProbITM != 0.4 || atm.Put.SynthProbITM != 0.4 {
		t.Errorf("synth P(ITM) call %v put %v, want 0.4/0.4", atm.Call.SynthProbITM, atm.Put.SynthProbITM)
	}

	discount := math.Exp(-market.RiskFreeRate * market.TimeToExpiry)
	if !approxEqual(atm.Call.SynthPrice, discount*(3000+8000)/5, 1e-9) {
		t.Errorf("synth call = %v", atm.Call.SynthPrice)
	}
	// Forecast prices obey parity against the forecast mean.
	if !approxEqual(atm.Call.SynthPrice-atm.Put.SynthPrice, discount*(87200-87000), 1e-9) {
		t.Errorf("synth parity broken: call %v put %v", atm.Call.SynthPrice, atm.Put.SynthPrice)
	}

	bs, _ := pricing.Price(market.WithStrike(87000), models.Call)
	if atm.Call.BSPrice != bs {
		t.Errorf("BS call = %v, want %v", atm.Call.BSPrice, bs)
	}
	if !approxEqual(atm.Call.Edge, (atm.Call.SynthPrice-bs)/bs, 1e-12) {
		t.Errorf("edge = %v", atm.Call.Edge)
	}

	for _, row := range rows {
		for _, q := range []Quote{row.Call, row.Put} {
			if q.Recommendation != Recommend(q.Edge, 0.05) {
				t.Errorf("strike %v %s: recommendation %s for edge %v", row.Strike, q.Kind, q.Recommendation, q.Edge)
			}
			if q.BSProbITM <= 0 || q.BSProbITM >= 1 {
				t.Errorf("strike %v %s: BS P(ITM) = %v", row.Strike, q.Kind, q.BSProbITM)
			}
		}
	}
}

func TestCompareChain_SynthIVRoundTrips(t *testing.T) {
	market := btcMarket()
	rows, err := CompareChain(btcSamples, market, []float64{87000}, DefaultConfig())
	if err != nil {
		t.Fatalf("CompareChain: %v", err)
	}
	q := rows[0].Call
	if !q.SynthIV.Converged {
		t.Fatalf("solver did not converge on the forecast price: %+v", q)
	}
	back, _ := pricing.Price(market.WithStrike(87000).WithVolatility(q.SynthIV.Sigma), models.Call)
	if !approxEqual(back, q.SynthPrice, 1e-4) {
		t.Errorf("price at synth IV = %v, want %v", back, q.SynthPrice)
	}
}

func TestCompareChain_Errors(t *testing.T) {
	if _, err := CompareChain(btcSamples, btcMarket(), nil, DefaultConfig()); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("no strikes: got %v", err)
	}
	if _, err := CompareChain(nil, btcMarket(), []float64{87000}, DefaultConfig()); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("no samples: got %v", err)
	}
	if _, err := CompareChain(btcSamples, btcMarket(), []float64{-1}, DefaultConfig()); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("negative strike: got %v", err)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		edge float64
		want models.Recommendation
	}{
		{0.2, models.RecommendBuy},
		{0.05, models.RecommendFair},
		{0, models.RecommendFair},
		{-0.05, models.RecommendFair},
		{-0.06, models.RecommendSell},
	}
	for _, tt := range tests {
		if got := Recommend(tt.edge, 0.05); got != tt.want {
			t.Errorf("Recommend(%v) = %s, want %s", tt.edge, got, tt.want)
		}
	}
}

func TestCompareStrategy_LongCall(t *testing.T) {
	market := models.MarketParameters{Spot: 100, TimeToExpiry: 1, Volatility: 0.2}
	s := models.Strategy{Legs: []models.OptionLeg{
		{Kind: models.Call, Position: models.Long, Strike: 100, Quantity: 1, EntryPrice: 5},
	}}
	g := strategy.Grid{Low: 1, High: 300, Points: strategy.DefaultGridPoints}

	got, err := CompareStrategy(s, []float64{90, 100, 110, 120}, market, g)
	if err != nil {
		t.Fatalf("CompareStrategy: %v", err)
	}
	if got.SynthPoP != 0.5 {
		t.Errorf("synth PoP = %v, want 0.5", got.SynthPoP)
	}
	want, _ := pricing.ProbabilityITM(market.WithStrike(105), models.Call)
	if !approxEqual(got.BSPoP, want, 1e-9) {
		t.Errorf("BS PoP = %v, want P(S_T > 105) = %v", got.BSPoP, want)
	}
	if !approxEqual(got.Diff, got.SynthPoP-got.BSPoP, 1e-15) {
		t.Errorf("diff = %v", got.Diff)
	}
}

func TestCompareStrategy_Straddle(t *testing.T) {
	market := models.MarketParameters{Spot: 100, TimeToExpiry: 0.5, RiskFreeRate: 0.02, Volatility: 0.3}
	s := models.Strategy{Legs: []models.OptionLeg{
		{Kind: models.Call, Position: models.Long, Strike: 100, Quantity: 1, EntryPrice: 5},
		{Kind: models.Put, Position: models.Long, Strike: 100, Quantity: 1, EntryPrice: 5},
	}}
	g := strategy.Grid{Low: 1, High: 300, Points: strategy.DefaultGridPoints}

	got, err := CompareStrategy(s, []float64{80, 95, 105, 120}, market, g)
	if err != nil {
		t.Fatalf("CompareStrategy: %v", err)
	}
	below, _ := pricing.ProbabilityITM(market.WithStrike(90), models.Put)
	above, _ := pricing.ProbabilityITM(market.WithStrike(110), models.Call)
	if !approxEqual(got.BSPoP, below+above, 1e-9) {
		t.Errorf("BS PoP = %v, want %v", got.BSPoP, below+above)
	}
	if got.SynthPoP != 0.5 {
		t.Errorf("synth PoP = %v", got.SynthPoP)
	}
}

func TestCompareStrategy_Errors(t *testing.T) {
	call := models.Strategy{Legs: []models.OptionLeg{
		{Kind: models.Call, Position: models.Long, Strike: 100, Quantity: 1, EntryPrice: 5},
	}}
	g := strategy.Grid{Low: 1, High: 300, Points: strategy.DefaultGridPoints}
	valid := models.MarketParameters{Spot: 100, TimeToExpiry: 1, Volatility: 0.2}

	tests := []struct {
		name    string
		samples []float64
		edit    func(*models.MarketParameters)
	}{
		{"no samples", nil, func(*models.MarketParameters) {}},
		{"zero spot", []float64{90, 110}, func(m *models.MarketParameters) { m.Spot = 0 }},
		{"negative volatility", []float64{90, 110}, func(m *models.MarketParameters) { m.Volatility = -0.2 }},
		{"NaN rate", []float64{90, 110}, func(m *models.MarketParameters) { m.RiskFreeRate = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := valid
			tt.edit(&market)
			if _, err := CompareStrategy(call, tt.samples, market, g); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestBelow(t *testing.T) {
	market := models.MarketParameters{Spot: 100, TimeToExpiry: 1, Volatility: 0.2}

	if p, err := below(market, 0); err != nil || p != 0 {
		t.Errorf("below(0) = %v, %v", p, err)
	}
	if p, err := below(market, math.Inf(1)); err != nil || p != 1 {
		t.Errorf("below(+Inf) = %v, %v", p, err)
	}
	want, _ := pricing.ProbabilityITM(market.WithStrike(105), models.Put)
	if p, err := below(market, 105); err != nil || p != want {
		t.Errorf("below(105) = %v, %v, want %v", p, err, want)
	}

	market.Volatility = math.NaN()
	if _, err := below(market, 105); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("NaN volatility: expected ErrInvalidInput, got %v", err)
	}
}

func TestClassifyVol(t *testing.T) {
	tests := []struct {
		forward float64
		want    models.VolRegime
	}{
		{0.5, models.VolLow},
		{0.79, models.VolLow},
		{0.8, models.VolNormal},
		{1.2, models.VolNormal},
		{1.3, models.VolHigh},
		{1.5, models.VolHigh},
		{1.6, models.VolExtreme},
	}
	for _, tt := range tests {
		v, err := ClassifyVol(tt.forward, 1)
		if err != nil {
			t.Fatalf("ClassifyVol: %v", err)
		}
		if v.Regime != tt.want {
			t.Errorf("ratio %v: regime %s, want %s", v.Ratio, v.Regime, tt.want)
		}
	}

	if _, err := ClassifyVol(0.5, 0); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("zero realized: got %v", err)
	}
	if _, err := ClassifyVol(math.NaN(), 0.4); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("NaN forward: got %v", err)
	}
}
