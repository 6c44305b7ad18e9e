package bias

import (
	"github.com/atlas-desktop/trading-backend/internal/structure"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// StopTP is a computed stop-loss/take-profit pair for a directional entry.
type StopTP struct {
	Valid      bool
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	RR         decimal.Decimal
	Reasons    []string
}

// ComputeStopTP anchors the stop loss to the most recent M15 structural swing
// on the stop side of entry and derives take profit from the configured
// risk/reward, optionally snapping to an opposing swing beyond entry when
// that keeps RR within [SnapTPMinRR, SnapTPMaxRR].
func ComputeStopTP(m15Candles []types.Candle, entry decimal.Decimal, direction types.Trend, symbol string, cfg Config) StopTP {
	swings := structure.DetectSwings(m15Candles, structure.SwingStructural, 0, 0)
	buffer := cfg.BufferFor(symbol)

	var anchor *types.SwingPoint
	wantType := types.SwingLow
	if direction == types.TrendBearish {
		wantType = types.SwingHigh
	}
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Type == wantType && onStopSide(swings[i].Price, entry, direction) {
			s := swings[i]
			anchor = &s
			break
		}
	}
	if anchor == nil {
		return StopTP{Reasons: []string{"no structural swing available to anchor the stop loss"}}
	}

	var stopLoss decimal.Decimal
	if direction == types.TrendBullish {
		stopLoss = anchor.Price.Sub(buffer)
	} else {
		stopLoss = anchor.Price.Add(buffer)
	}

	risk := entry.Sub(stopLoss).Abs()
	if risk.IsZero() {
		return StopTP{Reasons: []string{"zero-distance stop loss"}}
	}

	takeProfit := projectTP(entry, risk, direction, cfg.ConfiguredRR)
	rr := cfg.ConfiguredRR

	oppType := types.SwingHigh
	if direction == types.TrendBearish {
		oppType = types.SwingLow
	}
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Type != oppType || onStopSide(swings[i].Price, entry, direction) {
			continue
		}
		candidateRisk := swings[i].Price.Sub(entry).Abs()
		if candidateRisk.IsZero() {
			continue
		}
		candidateRR := candidateRisk.Div(risk)
		if candidateRR.GreaterThanOrEqual(cfg.SnapTPMinRR) && candidateRR.LessThanOrEqual(cfg.SnapTPMaxRR) {
			takeProfit = swings[i].Price
			rr = candidateRR
			break
		}
	}

	floor := cfg.ConfiguredRR.Mul(cfg.MinRRFloorMultiple)
	if rr.LessThan(floor) {
		rr = floor
		takeProfit = projectTP(entry, risk, direction, floor)
	}

	return StopTP{Valid: true, StopLoss: stopLoss, TakeProfit: takeProfit, RR: rr}
}

// onStopSide reports whether price lies on the loss side of entry: below it
// for a bullish trade, above it for a bearish one.
func onStopSide(price, entry decimal.Decimal, direction types.Trend) bool {
	if direction == types.TrendBearish {
		return price.GreaterThan(entry)
	}
	return price.LessThan(entry)
}

func projectTP(entry, risk decimal.Decimal, direction types.Trend, rr decimal.Decimal) decimal.Decimal {
	reward := risk.Mul(rr)
	if direction == types.TrendBullish {
		return entry.Add(reward)
	}
	return entry.Sub(reward)
}
