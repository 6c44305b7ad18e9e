// Package bias computes H4 bias, the M15 setup zone, and M1 entry
// refinement — the multi-timeframe funnel that narrows a directional read
// down to a concrete entry, stop loss and take profit.
package bias

import "github.com/shopspring/decimal"

// Config holds the tunables used across the H4/M15/M1 funnel.
type Config struct {
	SwingIndexLookback int
	StrictClose        bool
	UseICTModel        bool

	ZoneTolerancePct       decimal.Decimal // M15/M1 zone proximity band, default 10%
	DecisiveBiasThreshold  decimal.Decimal // fraction of range for "decisive" displacement bias
	ConfiguredRR           decimal.Decimal // default 1:3
	MinRRFloorMultiple     decimal.Decimal // never below 0.6 * configuredRR
	SnapTPMinRR            decimal.Decimal // 2.0
	SnapTPMaxRR            decimal.Decimal // 3.0
	NearMarketPct          decimal.Decimal // 0.05% => market order
	SymbolBuffer           map[string]decimal.Decimal
	DeepDiscountPct        decimal.Decimal
	DeepPremiumPct         decimal.Decimal
}

// DefaultConfig returns the spec's defaults.
func DefaultConfig() Config {
	return Config{
		SwingIndexLookback:    20,
		StrictClose:           true,
		UseICTModel:           true,
		ZoneTolerancePct:      decimal.NewFromFloat(10),
		DecisiveBiasThreshold: decimal.NewFromFloat(0.2),
		ConfiguredRR:          decimal.NewFromFloat(3.0),
		MinRRFloorMultiple:    decimal.NewFromFloat(0.6),
		SnapTPMinRR:           decimal.NewFromFloat(2.0),
		SnapTPMaxRR:           decimal.NewFromFloat(3.0),
		NearMarketPct:         decimal.NewFromFloat(0.05),
		SymbolBuffer: map[string]decimal.Decimal{
			"XAUUSD": decimal.NewFromFloat(1.0),
		},
		DeepDiscountPct: decimal.NewFromFloat(50),
		DeepPremiumPct:  decimal.NewFromFloat(50),
	}
}

// BufferFor returns the symbol-aware stop-loss buffer (XAUUSD >= $1, FX >= 1 pip).
func (c Config) BufferFor(symbol string) decimal.Decimal {
	if b, ok := c.SymbolBuffer[symbol]; ok {
		return b
	}
	return decimal.NewFromFloat(0.0001)
}
