// Package models provides domain models for the options analytics library.
package models

import "strings"

// OptionKind represents the kind of a vanilla option.
type OptionKind string

const (
	Call OptionKind = "call"
	Put  OptionKind = "put"
)

// IsValid reports whether k is a known option kind.
func (k OptionKind) IsValid() bool {
	return k == Call || k == Put
}

// ParseOptionKind parses "call"/"put" (also CE/PE and C/P) case-insensitively.
func ParseOptionKind(s string) (OptionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "ce":
		return Call, true
	case "put", "p", "pe":
		return Put, true
	default:
		return "", false
	}
}

// Position represents the side of an option leg.
type Position string

const (
	Long  Position = "long"
	Short Position = "short"
)

// Sign returns +1 for long and -1 for short.
func (p Position) Sign() float64 {
	if p == Short {
		return -1
	}
	return 1
}

// IsValid reports whether p is a known position.
func (p Position) IsValid() bool {
	return p == Long || p == Short
}

// ParsePosition parses "long"/"short" (also BUY/SELL) case-insensitively.
func ParsePosition(s string) (Position, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "b":
		return Long, true
	case "short", "sell", "s":
		return Short, true
	default:
		return "", false
	}
}

// VolRegime classifies forward volatility relative to realized volatility.
type VolRegime string

const (
	VolLow     VolRegime = "LOW"
	VolNormal  VolRegime = "NORMAL"
	VolHigh    VolRegime = "HIGH"
	VolExtreme VolRegime = "EXTREME"
)

// Recommendation is the outcome of a Synth vs Black-Scholes comparison.
type Recommendation string

const (
	RecommendBuy  Recommendation = "BUY"
	RecommendSell Recommendation = "SELL"
	RecommendFair Recommendation = "FAIR"
)
