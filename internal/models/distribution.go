package models

// Percentile is one (rank, value) point of an empirical price forecast.
type Percentile struct {
	Rank  float64 `json:"rank" csv:"rank"`   // in (0, 100)
	Value float64 `json:"value" csv:"value"` // price at that rank
}

// PercentileDistribution is an ordered forecast of an asset price at a fixed horizon.
// Points are sorted by rank and values are non-decreasing with rank.
type PercentileDistribution struct {
	Asset        string       `json:"asset,omitempty"`
	Horizon      string       `json:"horizon,omitempty"`
	CurrentPrice float64      `json:"current_price"`
	Points       []Percentile `json:"points"`
}

// Values returns the price values in rank order.
func (d PercentileDistribution) Values() []float64 {
	values := make([]float64, len(d.Points))
	for i, p := range d.Points {
		values[i] = p.Value
	}
	return values
}

// At returns the value at an exact rank, if present.
func (d PercentileDistribution) At(rank float64) (float64, bool) {
	for _, p := range d.Points {
		if p.Rank == rank {
			return p.Value, true
		}
	}
	return 0, false
}

// Len returns the number of points.
func (d PercentileDistribution) Len() int {
	return len(d.Points)
}

// DistributionAnalysis is a shape and tail-risk snapshot of a distribution.
type DistributionAnalysis struct {
	Skewness              float64 `json:"skewness"`
	TailRatio             float64 `json:"tail_ratio"`
	MaxDrawdown           float64 `json:"max_drawdown"`
	MaxUpside             float64 `json:"max_upside"`
	InterquartileRangePct float64 `json:"iqr_pct"`
	VaR95                 float64 `json:"var95"`
	CVaR95                float64 `json:"cvar95"`
}

// HistogramBin is one equal-width bin of a value histogram.
type HistogramBin struct {
	Low      float64 `json:"low" csv:"low"`
	High     float64 `json:"high" csv:"high"`
	Midpoint float64 `json:"midpoint" csv:"midpoint"`
	Count    int     `json:"count" csv:"count"`
}

// ConePoint is one timepoint of a prediction cone.
type ConePoint struct {
	Label  string  `json:"label" csv:"time"`
	P5     float64 `json:"p5" csv:"p5"`
	P25    float64 `json:"p25" csv:"p25"`
	P50    float64 `json:"p50" csv:"p50"`
	P75    float64 `json:"p75" csv:"p75"`
	P95    float64 `json:"p95" csv:"p95"`
	Actual float64 `json:"actual" csv:"actual"`
}
