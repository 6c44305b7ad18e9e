package zones

import (
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// PremiumDiscountResult is the outcome of computing a symbol's position
// relative to its recent swing range.
type PremiumDiscountResult struct {
	SwingHigh decimal.Decimal
	SwingLow  decimal.Decimal
	Fib50     decimal.Decimal
	Zone      types.PremiumDiscount
}

// ComputePremiumDiscount computes the premium/discount zone for the given
// symbol using the volatility-appropriate lookback window.
func ComputePremiumDiscount(candles []types.Candle, symbol string, price decimal.Decimal, cfg Config) PremiumDiscountResult {
	window := cfg.HTFWindow
	if cfg.VolatileSymbols[symbol] {
		window = cfg.ITFWindow
	}
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	slice := candles[start:]

	if len(slice) == 0 {
		return PremiumDiscountResult{Zone: types.Neutral}
	}

	high, low := slice[0].High, slice[0].Low
	for _, c := range slice {
		if c.High.GreaterThan(high) {
			high = c.High
		}
		if c.Low.LessThan(low) {
			low = c.Low
		}
	}
	fib50 := high.Add(low).Div(decimal.NewFromInt(2))

	zone := types.Neutral
	if price.GreaterThan(fib50) {
		zone = types.Premium
	} else if price.LessThan(fib50) {
		zone = types.Discount
	}

	return PremiumDiscountResult{SwingHigh: high, SwingLow: low, Fib50: fib50, Zone: zone}
}
