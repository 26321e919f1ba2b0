package pricing

import (
	"math"

	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// Validate checks market parameters before any logarithm or division is taken.
func Validate(p models.MarketParameters) error {
	if err := requireFinite("spot", p.Spot); err != nil {
		return err
	}
	if p.Spot <= 0 {
		return errors.NewValidationError("spot", p.Spot, "must be positive")
	}
	if err := requireFinite("strike", p.Strike); err != nil {
		return err
	}
	if p.Strike <= 0 {
		return errors.NewValidationError("strike", p.Strike, "must be positive")
	}
	if err := requireFinite("time_to_expiry", p.TimeToExpiry); err != nil {
		return err
	}
	if p.TimeToExpiry < 0 {
		return errors.NewValidationError("time_to_expiry", p.TimeToExpiry, "must be non-negative")
	}
	if err := requireFinite("risk_free_rate", p.RiskFreeRate); err != nil {
		return err
	}
	if err := requireFinite("volatility", p.Volatility); err != nil {
		return err
	}
	if p.Volatility < 0 {
		return errors.NewValidationError("volatility", p.Volatility, "must be non-negative")
	}
	return nil
}

func validateKind(kind models.OptionKind) error {
	if !kind.IsValid() {
		return errors.NewValidationError("option_kind", kind, "must be call or put")
	}
	return nil
}

func requireFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.NewValidationError(field, v, "must be a finite number")
	}
	return nil
}
