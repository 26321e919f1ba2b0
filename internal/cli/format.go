package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"options-lab/internal/models"
)

// FormatUSD formats an amount as dollars with thousands separators, rounded
// half away from zero to cents.
func FormatUSD(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Sprint(amount)
	}

	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()

	str := d.Abs().StringFixed(2)
	parts := strings.SplitN(str, ".", 2)

	result := "$" + formatThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatThousands groups an integer string in threes: 1,234,567.
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatSignedUSD formats P&L with an explicit + for gains.
func FormatSignedUSD(pnl float64) string {
	formatted := FormatUSD(pnl)
	if pnl > 0 && formatted != "$0.00" {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatProb formats a probability in [0, 1] as a percentage.
func FormatProb(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// FormatVol formats an annualized volatility fraction.
func FormatVol(sigma float64) string {
	return fmt.Sprintf("%.2f%%", sigma*100)
}

// FormatCompact formats a dollar amount in compact form (K/M/B).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	sign := ""
	if amount < 0 {
		sign = "-"
	}

	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, abs/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%s$%.2fM", sign, abs/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%s$%.2fK", sign, abs/1e3)
	}
	return FormatUSD(amount)
}

// FormatPrice formats a price with appropriate decimal places.
func FormatPrice(price float64) string {
	if math.Abs(price) >= 1 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.4f", price)
}

// FormatGreeks formats option Greeks.
func FormatGreeks(g models.Greeks) string {
	return fmt.Sprintf("Δ: %.4f  Γ: %.6f  Θ: %.4f  ν: %.4f  ρ: %.4f", g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho)
}

// FormatRiskReward formats a risk-reward ratio.
func FormatRiskReward(rr float64) string {
	return fmt.Sprintf("1:%.2f", rr)
}

// FormatPrices joins prices for one-line display, "none" when empty.
func FormatPrices(prices []float64) string {
	if len(prices) == 0 {
		return "none"
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = FormatUSD(p)
	}
	return strings.Join(parts, ", ")
}
