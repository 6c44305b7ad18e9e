package zones

import (
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// DetectLiquiditySweeps finds wick-violations of swing levels that close
// back inside the pre-sweep range, tagging equal-highs/equal-lows clusters.
func DetectLiquiditySweeps(candles []types.Candle, swings []types.SwingPoint, tf types.Timeframe, cfg Config) []types.LiquiditySweep {
	var sweeps []types.LiquiditySweep

	for i := range candles {
		atr := ATR(candles, i, cfg.ATRLookbackPeriod)
		if atr.IsZero() {
			continue
		}
		threshold := atr.Mul(cfg.SweepATRMultiple)

		for _, s := range swings {
			if s.Index >= i {
				continue
			}
			if s.Type == types.SwingHigh {
				violation := candles[i].High.Sub(s.Price)
				if violation.GreaterThanOrEqual(threshold) && candles[i].Close.LessThanOrEqual(s.Price) {
					sweepType := types.Sweep
					if equalHighsNear(swings, s, cfg.EqualLevelTolerance) {
						sweepType = types.EqualHighs
					}
					sweeps = append(sweeps, types.LiquiditySweep{
						Type:      sweepType,
						Level:     s.Price,
						Timestamp: candles[i].StartTime,
						Confirmed: true,
						Timeframe: tf,
					})
				}
			} else {
				violation := s.Price.Sub(candles[i].Low)
				if violation.GreaterThanOrEqual(threshold) && candles[i].Close.GreaterThanOrEqual(s.Price) {
					sweepType := types.Sweep
					if equalLowsNear(swings, s, cfg.EqualLevelTolerance) {
						sweepType = types.EqualLows
					}
					sweeps = append(sweeps, types.LiquiditySweep{
						Type:      sweepType,
						Level:     s.Price,
						Timestamp: candles[i].StartTime,
						Confirmed: true,
						Timeframe: tf,
					})
				}
			}
		}
	}

	return sweeps
}

func equalHighsNear(swings []types.SwingPoint, target types.SwingPoint, tolerance decimal.Decimal) bool {
	count := 0
	for _, s := range swings {
		if s.Type != types.SwingHigh {
			continue
		}
		if s.Price.Sub(target.Price).Abs().LessThanOrEqual(tolerance) {
			count++
		}
	}
	return count >= 2
}

func equalLowsNear(swings []types.SwingPoint, target types.SwingPoint, tolerance decimal.Decimal) bool {
	count := 0
	for _, s := range swings {
		if s.Type != types.SwingLow {
			continue
		}
		if s.Price.Sub(target.Price).Abs().LessThanOrEqual(tolerance) {
			count++
		}
	}
	return count >= 2
}

// ValidSweep reports the signal pipeline's setup-gate liquidity check: a
// violation of at least 0.5 ATR whose candle closed back inside the
// pre-sweep range. DetectLiquiditySweeps already enforces this; this helper
// lets callers re-check a specific candle directly.
func ValidSweep(candles []types.Candle, i int, level decimal.Decimal, isHigh bool, cfg Config) bool {
	atr := ATR(candles, i, cfg.ATRLookbackPeriod)
	if atr.IsZero() {
		return false
	}
	threshold := atr.Mul(cfg.SweepATRMultiple)
	c := candles[i]
	if isHigh {
		return c.High.Sub(level).GreaterThanOrEqual(threshold) && c.Close.LessThanOrEqual(level)
	}
	return level.Sub(c.Low).GreaterThanOrEqual(threshold) && c.Close.GreaterThanOrEqual(level)
}
