package zones

import "github.com/atlas-desktop/trading-backend/pkg/types"
import "github.com/shopspring/decimal"

// TrueRange is the classic true-range: max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(c types.Candle, prevClose decimal.Decimal, hasPrev bool) decimal.Decimal {
	tr := c.High.Sub(c.Low)
	if !hasPrev {
		return tr
	}
	hc := c.High.Sub(prevClose).Abs()
	lc := c.Low.Sub(prevClose).Abs()
	if hc.GreaterThan(tr) {
		tr = hc
	}
	if lc.GreaterThan(tr) {
		tr = lc
	}
	return tr
}

// ATR computes the average true range over the last `period` candles ending
// at index i (inclusive).
func ATR(candles []types.Candle, i, period int) decimal.Decimal {
	if i < 0 || i >= len(candles) {
		return decimal.Zero
	}
	start := i - period + 1
	if start < 1 {
		start = 1
	}
	if start > i {
		return TrueRange(candles[i], decimal.Zero, false)
	}

	sum := decimal.Zero
	count := 0
	for j := start; j <= i; j++ {
		tr := TrueRange(candles[j], candles[j-1].Close, true)
		sum = sum.Add(tr)
		count++
	}
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count)))
}
