package pricing

import (
	"math"

	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// minSolverVega aborts Newton-Raphson before dividing by a vanishing vega.
const minSolverVega = 1e-10

// IVConfig controls the Newton-Raphson implied volatility solver.
type IVConfig struct {
	InitialGuess  float64
	Tolerance     float64 // absolute price tolerance
	MaxIterations int
	MinVol        float64
	MaxVol        float64
}

// DefaultIVConfig returns the default solver configuration.
func DefaultIVConfig() IVConfig {
	return IVConfig{
		InitialGuess:  0.5,
		Tolerance:     1e-6,
		MaxIterations: 100,
		MinVol:        0.001,
		MaxVol:        2.0,
	}
}

// Validate checks the solver configuration.
func (c IVConfig) Validate() error {
	if c.Tolerance <= 0 || math.IsNaN(c.Tolerance) {
		return errors.NewValidationError("iv_tolerance", c.Tolerance, "must be positive")
	}
	if c.MaxIterations <= 0 {
		return errors.NewValidationError("iv_max_iterations", c.MaxIterations, "must be positive")
	}
	if !(c.MinVol > 0) || !(c.MaxVol > c.MinVol) {
		return errors.NewValidationError("vol_bounds", [2]float64{c.MinVol, c.MaxVol}, "need 0 < min < max")
	}
	if !(c.InitialGuess >= c.MinVol && c.InitialGuess <= c.MaxVol) {
		return errors.NewValidationError("initial_vol_guess", c.InitialGuess, "must lie within vol bounds")
	}
	return nil
}

// IVResult is the outcome of an implied volatility solve. Sigma is always the
// best estimate found, even when Converged is false.
type IVResult struct {
	Sigma      float64 `json:"sigma"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Residual   float64 `json:"residual"` // model price minus market price at Sigma
}

// Err returns a ConvergenceError when the solver gave up, nil otherwise.
func (r IVResult) Err() error {
	if r.Converged {
		return nil
	}
	return &errors.ConvergenceError{
		Solver:     "implied volatility",
		Iterations: r.Iterations,
		Estimate:   r.Sigma,
		Residual:   r.Residual,
	}
}

// ImpliedVolatility inverts the Black-Scholes price with Newton-Raphson.
// The volatility field of params is ignored. Errors are returned only for
// invalid inputs; non-convergence is reported through IVResult.
func ImpliedVolatility(marketPrice float64, params models.MarketParameters, kind models.OptionKind, cfg IVConfig) (IVResult, error) {
	if err := cfg.Validate(); err != nil {
		return IVResult{}, err
	}
	params.Volatility = cfg.InitialGuess
	if err := Validate(params); err != nil {
		return IVResult{}, err
	}
	if err := validateKind(kind); err != nil {
		return IVResult{}, err
	}
	if err := requireFinite("market_price", marketPrice); err != nil {
		return IVResult{}, err
	}
	if marketPrice < 0 {
		return IVResult{}, errors.NewValidationError("market_price", marketPrice, "must be non-negative")
	}

	sigma := cfg.InitialGuess
	for i := 0; i < cfg.MaxIterations; i++ {
		p := params.WithVolatility(sigma)
		diff := price(p, kind) - marketPrice

		if math.Abs(diff) < cfg.Tolerance {
			return IVResult{Sigma: sigma, Iterations: i, Converged: true, Residual: diff}, nil
		}

		vega := rawVega(p)
		if math.Abs(vega) < minSolverVega {
			return IVResult{Sigma: sigma, Iterations: i, Residual: diff}, nil
		}

		sigma = clamp(sigma-diff/vega, cfg.MinVol, cfg.MaxVol)
	}

	diff := price(params.WithVolatility(sigma), kind) - marketPrice
	return IVResult{
		Sigma:      sigma,
		Iterations: cfg.MaxIterations,
		Converged:  math.Abs(diff) < cfg.Tolerance,
		Residual:   diff,
	}, nil
}

// ImpliedVol is the bare-number form of ImpliedVolatility with default settings.
// The estimate is best effort; use ImpliedVolatility to inspect convergence.
func ImpliedVol(marketPrice float64, params models.MarketParameters, kind models.OptionKind) (float64, error) {
	res, err := ImpliedVolatility(marketPrice, params, kind, DefaultIVConfig())
	if err != nil {
		return 0, err
	}
	return res.Sigma, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
