package bias

import (
	"github.com/atlas-desktop/trading-backend/internal/structure"
	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// EntryResult is the refined M1 entry produced from a valid M15 setup zone.
type EntryResult struct {
	Valid     bool
	Entry     decimal.Decimal
	EntryType types.EntryType
	Reasons   []string
}

// ComputeM1Entry refines an M15 setup zone into a concrete M1 entry.
func ComputeM1Entry(m1Candles []types.Candle, zone SetupZone, direction types.Trend, symbol string, cfg Config, zcfg zones.Config) EntryResult {
	if !zone.Valid {
		return EntryResult{Reasons: []string{"M15 setup zone is not valid"}}
	}
	if len(m1Candles) == 0 {
		return EntryResult{Reasons: []string{"no M1 candles available"}}
	}

	last := m1Candles[len(m1Candles)-1]
	hundred := decimal.NewFromInt(100)
	zoneSize := zone.High.Sub(zone.Low)
	tolerance := zoneSize.Mul(cfg.ZoneTolerancePct).Div(hundred)
	if last.Close.LessThan(zone.Low.Sub(tolerance)) || last.Close.GreaterThan(zone.High.Add(tolerance)) {
		return EntryResult{Reasons: []string{"price not inside the M15 setup zone on M1"}}
	}
	if zoneSize.IsPositive() {
		retraced, minPct := zone.High.Sub(last.Close), cfg.DeepDiscountPct
		if direction == types.TrendBearish {
			retraced, minPct = last.Close.Sub(zone.Low), cfg.DeepPremiumPct
		}
		if retraced.Div(zoneSize).Mul(hundred).LessThan(minPct) {
			return EntryResult{Reasons: []string{"price has not retraced deep enough into the M15 setup zone"}}
		}
	}

	swings := structure.DetectSwings(m1Candles, structure.SwingStructural, 0, 0)
	bosEvents := structure.DetectBOS(m1Candles, swings, cfg.SwingIndexLookback, cfg.StrictClose)
	choch := structure.RunChochMachine(m1Candles, bosEvents, swings, cfg.StrictClose)

	confirmed := false
	if choch.Bias == direction {
		confirmed = true
	}
	for _, b := range bosEvents {
		if b.Direction == direction {
			confirmed = true
		}
	}
	if !confirmed {
		return EntryResult{Reasons: []string{"no local CHoCH or same-direction BOS on M1"}}
	}

	wantOBType := types.OrderBlockBullish
	if direction == types.TrendBearish {
		wantOBType = types.OrderBlockBearish
	}
	obs := zones.DetectOrderBlocks(m1Candles, types.M1, zcfg)
	var refinedOB *types.OrderBlock
	for i := len(obs) - 1; i >= 0; i-- {
		if obs[i].Type == wantOBType && !obs[i].Mitigated {
			refinedOB = &obs[i]
			break
		}
	}

	minGap := zones.MinGapSizeFor(symbol)
	fvgs := zones.DetectFairValueGaps(m1Candles, types.M1, minGap)
	var refinedFVG *types.FairValueGap
	for i := len(fvgs) - 1; i >= 0; i-- {
		if !fvgs[i].Filled {
			refinedFVG = &fvgs[i]
			break
		}
	}

	entry := entryPriceFor(direction, refinedOB, refinedFVG, zone)
	entryType := classifyEntryType(entry, last.Close, direction, cfg)

	return EntryResult{Valid: true, Entry: entry, EntryType: entryType}
}

// entryPriceFor picks the concrete M1 entry price once a refined order block
// or FVG has been chosen. An order block's entry is its opposite edge: buy
// setups enter at the block's low (the discount edge), sell setups at its
// high (the premium edge).
func entryPriceFor(direction types.Trend, refinedOB *types.OrderBlock, refinedFVG *types.FairValueGap, zone SetupZone) decimal.Decimal {
	switch {
	case refinedOB != nil:
		if direction == types.TrendBullish {
			return refinedOB.Low
		}
		return refinedOB.High
	case refinedFVG != nil:
		return refinedFVG.High.Add(refinedFVG.Low).Div(decimal.NewFromInt(2))
	default:
		return zone.High.Add(zone.Low).Div(decimal.NewFromInt(2))
	}
}

func classifyEntryType(entry, marketPrice decimal.Decimal, direction types.Trend, cfg Config) types.EntryType {
	diffPct := entry.Sub(marketPrice).Abs().Div(marketPrice).Mul(decimal.NewFromInt(100))
	if diffPct.LessThanOrEqual(cfg.NearMarketPct) {
		return types.EntryMarket
	}
	if direction == types.TrendBullish {
		if entry.LessThan(marketPrice) {
			return types.EntryLimit
		}
		return types.EntryStop
	}
	if entry.GreaterThan(marketPrice) {
		return types.EntryLimit
	}
	return types.EntryStop
}
