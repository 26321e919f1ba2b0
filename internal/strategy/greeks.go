package strategy

import (
	"options-lab/internal/errors"
	"options-lab/internal/models"
	"options-lab/internal/pricing"
)

// NetGreeks sums the Black-Scholes Greeks of every leg, signed by position and
// scaled by quantity. The strike field of market is replaced per leg.
func NetGreeks(s models.Strategy, market models.MarketParameters) (models.Greeks, error) {
	if err := Validate(s); err != nil {
		return models.Greeks{}, err
	}

	var net models.Greeks
	for i, leg := range s.Legs {
		g, err := pricing.ComputeGreeks(market.WithStrike(leg.Strike), leg.Kind)
		if err != nil {
			return models.Greeks{}, errors.Wrapf(err, "leg %d", i+1)
		}
		net = net.Add(g, leg.Position.Sign()*leg.Quantity)
	}
	return net, nil
}
