package strategy

import (
	"strings"

	"options-lab/internal/errors"
	"options-lab/internal/models"
)

// TemplateType identifies a predefined strategy shape.
type TemplateType string

const (
	LongCall       TemplateType = "LONG_CALL"
	LongPut        TemplateType = "LONG_PUT"
	BullCallSpread TemplateType = "BULL_CALL_SPREAD"
	BearPutSpread  TemplateType = "BEAR_PUT_SPREAD"
	Straddle       TemplateType = "STRADDLE"
	Strangle       TemplateType = "STRANGLE"
	IronCondor     TemplateType = "IRON_CONDOR"
	Butterfly      TemplateType = "BUTTERFLY"
)

// legSpec places a leg at center + offset·width.
type legSpec struct {
	kind     models.OptionKind
	position models.Position
	offset   float64
	quantity float64
}

// Template is a strategy shape that can be instantiated around a center strike.
type Template struct {
	Type        TemplateType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	legs        []legSpec
}

// LegCount returns the number of legs the template builds.
func (t Template) LegCount() int {
	return len(t.legs)
}

// PremiumFunc quotes the entry price of a leg.
type PremiumFunc func(kind models.OptionKind, strike float64) (float64, error)

var templates = []Template{
	{
		Type: LongCall, Name: "Long Call", Description: "Bullish, limited risk",
		legs: []legSpec{{models.Call, models.Long, 0, 1}},
	},
	{
		Type: LongPut, Name: "Long Put", Description: "Bearish, limited risk",
		legs: []legSpec{{models.Put, models.Long, 0, 1}},
	},
	{
		Type: BullCallSpread, Name: "Bull Call Spread", Description: "Moderately bullish, capped both ways",
		legs: []legSpec{
			{models.Call, models.Long, 0, 1},
			{models.Call, models.Short, 1, 1},
		},
	},
	{
		Type: BearPutSpread, Name: "Bear Put Spread", Description: "Moderately bearish, capped both ways",
		legs: []legSpec{
			{models.Put, models.Long, 0, 1},
			{models.Put, models.Short, -1, 1},
		},
	},
	{
		Type: Straddle, Name: "Straddle", Description: "Long volatility at one strike",
		legs: []legSpec{
			{models.Call, models.Long, 0, 1},
			{models.Put, models.Long, 0, 1},
		},
	},
	{
		Type: Strangle, Name: "Strangle", Description: "Long volatility with OTM wings",
		legs: []legSpec{
			{models.Put, models.Long, -1, 1},
			{models.Call, models.Long, 1, 1},
		},
	},
	{
		Type: IronCondor, Name: "Iron Condor", Description: "Short volatility inside a range, defined risk",
		legs: []legSpec{
			{models.Put, models.Long, -2, 1},
			{models.Put, models.Short, -1, 1},
			{models.Call, models.Short, 1, 1},
			{models.Call, models.Long, 2, 1},
		},
	},
	{
		Type: Butterfly, Name: "Butterfly", Description: "Pins the center strike, defined risk",
		legs: []legSpec{
			{models.Call, models.Long, -1, 1},
			{models.Call, models.Short, 0, 2},
			{models.Call, models.Long, 1, 1},
		},
	},
}

// Templates returns every predefined strategy template.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// TemplateFor looks up a template by type, accepting "iron-condor" style names.
func TemplateFor(name string) (Template, error) {
	key := TemplateType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_")))
	for _, t := range templates {
		if t.Type == key {
			return t, nil
		}
	}
	return Template{}, errors.NewValidationError("template", name, "unknown strategy template")
}

// Build instantiates the template with strikes at center + offset·width.
// premium quotes each leg's entry price; nil leaves entry prices at zero.
func (t Template) Build(center, width float64, premium PremiumFunc) (models.Strategy, error) {
	if !finite(center) || center <= 0 {
		return models.Strategy{}, errors.NewValidationError("center", center, "must be a positive price")
	}
	if !finite(width) || width <= 0 {
		return models.Strategy{}, errors.NewValidationError("width", width, "must be positive")
	}

	s := models.Strategy{Name: t.Name, Legs: make([]models.OptionLeg, 0, len(t.legs))}
	for _, spec := range t.legs {
		leg := models.OptionLeg{
			Kind:     spec.kind,
			Strike:   center + spec.offset*width,
			Quantity: spec.quantity,
			Position: spec.position,
		}
		if premium != nil {
			p, err := premium(leg.Kind, leg.Strike)
			if err != nil {
				return models.Strategy{}, errors.Wrapf(err, "pricing %s leg at %g", leg.Kind, leg.Strike)
			}
			leg.EntryPrice = p
		}
		s.Legs = append(s.Legs, leg)
	}

	if err := Validate(s); err != nil {
		return models.Strategy{}, err
	}
	return s, nil
}
