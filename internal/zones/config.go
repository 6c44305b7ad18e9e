// Package zones detects order blocks, fair value gaps, liquidity sweeps,
// displacement, and premium/discount zones from a candle window. Like
// package structure, every function here is recomputed per evaluation —
// nothing is cached or persisted.
package zones

import "github.com/shopspring/decimal"

// Config holds the symbol-aware thresholds the zone detectors need.
type Config struct {
	MinWickToBodyRatio    decimal.Decimal
	MinGapSize            decimal.Decimal
	ATRLookbackPeriod     int
	StrongBodyMinPct      decimal.Decimal
	StrongATRMinMultiple  decimal.Decimal
	VolatileSymbols       map[string]bool
	ITFWindow             int
	HTFWindow             int
	EqualLevelTolerance   decimal.Decimal
	SweepATRMultiple      decimal.Decimal
}

// DefaultConfig returns thresholds with sane defaults; callers override
// MinGapSize per symbol (XAUUSD ~0.5, US30 ~5.0, FX ~0.0001).
func DefaultConfig() Config {
	return Config{
		MinWickToBodyRatio:   decimal.NewFromFloat(1.5),
		MinGapSize:           decimal.NewFromFloat(0.0001),
		ATRLookbackPeriod:    14,
		StrongBodyMinPct:     decimal.NewFromFloat(55),
		StrongATRMinMultiple: decimal.NewFromFloat(1.2),
		VolatileSymbols:      map[string]bool{"XAUUSD": true, "US30": true},
		ITFWindow:            25,
		HTFWindow:            100,
		EqualLevelTolerance:  decimal.NewFromFloat(0.1),
		SweepATRMultiple:     decimal.NewFromFloat(0.5),
	}
}

// MinGapSizeFor returns the symbol-aware minimum FVG size.
func MinGapSizeFor(symbol string) decimal.Decimal {
	switch symbol {
	case "XAUUSD":
		return decimal.NewFromFloat(0.5)
	case "US30":
		return decimal.NewFromFloat(5.0)
	default:
		return decimal.NewFromFloat(0.0001)
	}
}
