package bias

import (
	"github.com/atlas-desktop/trading-backend/internal/structure"
	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// SetupZone is the M15 zone a directional setup must pull back into.
type SetupZone struct {
	Valid   bool
	High    decimal.Decimal
	Low     decimal.Decimal
	Source  string // "fvg", "ob", "intersection"
	Reasons []string
}

// ComputeM15SetupZone derives the setup zone for the given H4 bias.
func ComputeM15SetupZone(candles []types.Candle, htfBias types.Trend, symbol string, cfg Config, zcfg zones.Config) SetupZone {
	if htfBias != types.TrendBullish && htfBias != types.TrendBearish {
		return SetupZone{Reasons: []string{"HTF bias is not directional"}}
	}
	opposite := oppositeOf(htfBias)

	swings := structure.DetectSwings(candles, structure.SwingStructural, 0, 0)
	bosEvents := structure.DetectBOS(candles, swings, cfg.SwingIndexLookback, cfg.StrictClose)
	choch := structure.RunChochMachine(candles, bosEvents, swings, cfg.StrictClose)
	msbs := structure.DetectMSB(candles, choch.Events, swings)

	pivotIndex := -1
	for i := len(choch.Events) - 1; i >= 0; i-- {
		if choch.Events[i].ToTrend == opposite {
			pivotIndex = choch.Events[i].Index
			break
		}
	}
	for _, m := range msbs {
		if m.ToTrend == opposite && m.Index > pivotIndex {
			pivotIndex = m.Index
		}
	}
	if pivotIndex == -1 && !cfg.UseICTModel {
		for i := len(bosEvents) - 1; i >= 0; i-- {
			if bosEvents[i].Direction == opposite {
				pivotIndex = bosEvents[i].Index
				break
			}
		}
	}
	if pivotIndex == -1 {
		return SetupZone{Reasons: []string{"no opposite-direction CHoCH/MSB found on M15"}}
	}

	dispIndex := -1
	for j := pivotIndex + 1; j < len(candles); j++ {
		if j == 0 {
			continue
		}
		if candles[j].Body().GreaterThan(candles[j-1].Body().Mul(decimal.NewFromFloat(1.5))) && directionMatches(candles[j], opposite) {
			dispIndex = j
			break
		}
	}
	if dispIndex == -1 {
		return SetupZone{Reasons: []string{"no displacement candle after the CHoCH"}}
	}

	minGap := zones.MinGapSizeFor(symbol)
	fvgs := zones.DetectFairValueGaps(candles[:min(dispIndex+2, len(candles))], types.M15, minGap)
	var bornDuringDisplacement *types.FairValueGap
	for i := range fvgs {
		if fvgs[i].CandleIndices[1] == dispIndex {
			bornDuringDisplacement = &fvgs[i]
		}
	}

	obs := zones.DetectOrderBlocks(candles[:pivotIndex], types.M15, zcfg)
	wantOBType := types.OrderBlockBullish
	if htfBias == types.TrendBearish {
		wantOBType = types.OrderBlockBearish
	}
	var priorOB *types.OrderBlock
	for i := len(obs) - 1; i >= 0; i-- {
		if obs[i].Type == wantOBType && !obs[i].Mitigated {
			priorOB = &obs[i]
			break
		}
	}

	if bornDuringDisplacement == nil && priorOB == nil {
		return SetupZone{Reasons: []string{"no FVG or order block available to form the setup zone"}}
	}

	zone := SetupZone{Valid: true}
	switch {
	case bornDuringDisplacement != nil && priorOB != nil:
		lo, hi, ok := intersect(bornDuringDisplacement.Low, bornDuringDisplacement.High, priorOB.Low, priorOB.High)
		if ok {
			zone.Low, zone.High, zone.Source = lo, hi, "intersection"
		} else {
			zone.Low, zone.High, zone.Source = bornDuringDisplacement.Low, bornDuringDisplacement.High, "fvg"
		}
	case bornDuringDisplacement != nil:
		zone.Low, zone.High, zone.Source = bornDuringDisplacement.Low, bornDuringDisplacement.High, "fvg"
	default:
		zone.Low, zone.High, zone.Source = priorOB.Low, priorOB.High, "ob"
	}

	last := candles[len(candles)-1].Close
	zoneSize := zone.High.Sub(zone.Low)
	tolerance := zoneSize.Mul(cfg.ZoneTolerancePct).Div(decimal.NewFromInt(100))
	if last.LessThan(zone.Low.Sub(tolerance)) || last.GreaterThan(zone.High.Add(tolerance)) {
		zone.Valid = false
		zone.Reasons = append(zone.Reasons, "price outside setup zone tolerance")
	}

	return zone
}

func oppositeOf(t types.Trend) types.Trend {
	if t == types.TrendBullish {
		return types.TrendBearish
	}
	return types.TrendBullish
}

func directionMatches(c types.Candle, direction types.Trend) bool {
	if direction == types.TrendBullish {
		return c.Bullish()
	}
	return c.Bearish()
}

func intersect(lo1, hi1, lo2, hi2 decimal.Decimal) (decimal.Decimal, decimal.Decimal, bool) {
	lo := lo1
	if lo2.GreaterThan(lo) {
		lo = lo2
	}
	hi := hi1
	if hi2.LessThan(hi) {
		hi = hi2
	}
	if lo.GreaterThan(hi) {
		return decimal.Zero, decimal.Zero, false
	}
	return lo, hi, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
