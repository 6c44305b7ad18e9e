package bias

import (
	"github.com/atlas-desktop/trading-backend/internal/structure"
	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/atlas-desktop/trading-backend/pkg/types"
)

// Result is a resolved directional bias and the method that produced it.
type Result struct {
	Trend  types.Trend
	Method string
}

// ComputeH4Bias resolves the higher-timeframe bias for a candle window.
func ComputeH4Bias(candles []types.Candle, symbol string, cfg Config, zcfg zones.Config) Result {
	if len(candles) == 0 {
		return Result{Trend: types.TrendNeutral, Method: "insufficient"}
	}

	swings := structure.DetectSwings(candles, structure.SwingStructural, 0, 0)
	bosEvents := structure.DetectBOS(candles, swings, cfg.SwingIndexLookback, cfg.StrictClose)
	choch := structure.RunChochMachine(candles, bosEvents, swings, cfg.StrictClose)

	if choch.Bias == types.TrendBullish || choch.Bias == types.TrendBearish {
		method := "bos"
		if len(choch.Events) > 0 {
			method = "choch"
		}
		return Result{Trend: choch.Bias, Method: method}
	}

	bullCount, bearCount := 0, 0
	for _, b := range bosEvents {
		if b.Direction == types.TrendBullish {
			bullCount++
		} else {
			bearCount++
		}
	}
	if bullCount-bearCount >= 2 {
		return Result{Trend: types.TrendBullish, Method: "bos"}
	}
	if bearCount-bullCount >= 2 {
		return Result{Trend: types.TrendBearish, Method: "bos"}
	}

	pd := zones.ComputePremiumDiscount(candles, symbol, candles[len(candles)-1].Close, zcfg)
	if !pd.SwingHigh.IsZero() || !pd.SwingLow.IsZero() {
		rng := pd.SwingHigh.Sub(pd.SwingLow)
		if !rng.IsZero() {
			distance := candles[len(candles)-1].Close.Sub(pd.Fib50).Abs().Div(rng)
			if distance.GreaterThanOrEqual(cfg.DecisiveBiasThreshold) {
				if candles[len(candles)-1].Close.GreaterThan(pd.Fib50) {
					return Result{Trend: types.TrendBullish, Method: "displacement"}
				}
				return Result{Trend: types.TrendBearish, Method: "displacement"}
			}
		}
	}

	return Result{Trend: types.TrendNeutral, Method: "neutral"}
}

// IsSideways reports whether a candle window shows no structural direction
// at all — no BOS of either kind in the window.
func IsSideways(candles []types.Candle, cfg Config) bool {
	swings := structure.DetectSwings(candles, structure.SwingStructural, 0, 0)
	bosEvents := structure.DetectBOS(candles, swings, cfg.SwingIndexLookback, cfg.StrictClose)
	return len(bosEvents) == 0
}
