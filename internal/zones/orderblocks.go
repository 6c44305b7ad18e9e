package zones

import (
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// DetectOrderBlocks iterates candles newest-to-oldest and returns every
// qualifying order block, oldest first. Mitigation is computed against
// every later candle in the window.
func DetectOrderBlocks(candles []types.Candle, tf types.Timeframe, cfg Config) []types.OrderBlock {
	var obs []types.OrderBlock

	for i := len(candles) - 1; i >= 1; i-- {
		c := candles[i]
		prev := candles[i-1]
		body := c.Body()
		if body.IsZero() {
			continue
		}

		if c.Bullish() && c.Close.GreaterThan(prev.High) {
			ratio := c.LowerWick().Div(body)
			if ratio.GreaterThanOrEqual(cfg.MinWickToBodyRatio) {
				obs = append(obs, buildOB(candles, i, types.OrderBlockBullish, tf, ratio))
			}
		}
		if c.Bearish() && c.Close.LessThan(prev.Low) {
			ratio := c.UpperWick().Div(body)
			if ratio.GreaterThanOrEqual(cfg.MinWickToBodyRatio) {
				obs = append(obs, buildOB(candles, i, types.OrderBlockBearish, tf, ratio))
			}
		}
	}

	// Restore oldest-first order (the scan above runs newest to oldest).
	for l, r := 0, len(obs)-1; l < r; l, r = l+1, r-1 {
		obs[l], obs[r] = obs[r], obs[l]
	}
	return obs
}

func buildOB(candles []types.Candle, i int, typ types.OrderBlockType, tf types.Timeframe, ratio decimal.Decimal) types.OrderBlock {
	c := candles[i]
	ob := types.OrderBlock{
		Type:            typ,
		High:            c.High,
		Low:             c.Low,
		Timestamp:       c.StartTime,
		Timeframe:       tf,
		WickToBodyRatio: ratio,
		VolumeImbalance: hasVolumeImbalance(candles, i),
		CandleIndex:     i,
	}
	ob.Mitigated = isMitigated(candles, i, ob)
	return ob
}

func hasVolumeImbalance(candles []types.Candle, i int) bool {
	const lookback = 10
	start := i - lookback
	if start < 0 {
		start = 0
	}
	if start >= i {
		return false
	}
	sum := decimal.Zero
	count := 0
	for j := start; j < i; j++ {
		sum = sum.Add(candles[j].Volume)
		count++
	}
	if count == 0 {
		return false
	}
	mean := sum.Div(decimal.NewFromInt(int64(count)))
	threshold := mean.Mul(decimal.NewFromFloat(1.5))
	return candles[i].Volume.GreaterThan(threshold)
}

// isMitigated reports whether a later candle's close pierced the opposite
// edge of the order block.
func isMitigated(candles []types.Candle, obIndex int, ob types.OrderBlock) bool {
	for j := obIndex + 1; j < len(candles); j++ {
		if ob.Type == types.OrderBlockBullish && candles[j].Close.LessThan(ob.Low) {
			return true
		}
		if ob.Type == types.OrderBlockBearish && candles[j].Close.GreaterThan(ob.High) {
			return true
		}
	}
	return false
}
