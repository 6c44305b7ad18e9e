package zones

import (
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// DetectFairValueGaps scans candle triplets for three-candle price
// imbalances, oldest first.
func DetectFairValueGaps(candles []types.Candle, tf types.Timeframe, minGapSize decimal.Decimal) []types.FairValueGap {
	var gaps []types.FairValueGap

	for i := 1; i < len(candles)-1; i++ {
		prev, next := candles[i-1], candles[i+1]

		if prev.High.LessThan(next.Low) {
			gap := next.Low.Sub(prev.High)
			if gap.GreaterThanOrEqual(minGapSize) {
				gaps = append(gaps, buildFVG(candles, i, types.FVGContinuation, prev.High, next.Low, gap, minGapSize, tf))
			}
		}
		if prev.Low.GreaterThan(next.High) {
			gap := prev.Low.Sub(next.High)
			if gap.GreaterThanOrEqual(minGapSize) {
				gaps = append(gaps, buildFVG(candles, i, types.FVGReversal, next.High, prev.Low, gap, minGapSize, tf))
			}
		}
	}

	return gaps
}

func buildFVG(candles []types.Candle, i int, typ types.FVGType, low, high, gap, minGapSize decimal.Decimal, tf types.Timeframe) types.FairValueGap {
	grade := types.FVGNested
	if gap.GreaterThan(minGapSize.Mul(decimal.NewFromInt(3))) {
		grade = types.FVGWide
	} else if gap.GreaterThan(minGapSize.Mul(decimal.NewFromFloat(1.5))) {
		grade = types.FVGNarrow
	}

	fvg := types.FairValueGap{
		Type:          typ,
		Grade:         grade,
		High:          high,
		Low:           low,
		Timestamp:     candles[i].StartTime,
		Timeframe:     tf,
		CandleIndices: [3]int{i - 1, i, i + 1},
	}
	fvg.Filled = isFilled(candles, i, fvg)
	return fvg
}

func isFilled(candles []types.Candle, gapIndex int, fvg types.FairValueGap) bool {
	for j := gapIndex + 1; j < len(candles); j++ {
		if candles[j].Low.LessThanOrEqual(fvg.Low) && candles[j].High.GreaterThanOrEqual(fvg.High) {
			return true
		}
	}
	return false
}
