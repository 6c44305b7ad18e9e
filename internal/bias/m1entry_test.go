package bias

import (
	"testing"

	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// TestEntryPriceFor_OrderBlock covers the spec's S1 worked scenario: a
// refined M1 order block at [4101.5, 4102.4] on a bullish setup must enter
// at the block's low (the discount edge), not its high.
func TestEntryPriceFor_OrderBlock(t *testing.T) {
	ob := &types.OrderBlock{Low: d(4101.5), High: d(4102.4)}

	buyEntry := entryPriceFor(types.TrendBullish, ob, nil, SetupZone{})
	if !buyEntry.Equal(d(4101.5)) {
		t.Fatalf("expected buy entry at OB low 4101.5, got %s", buyEntry)
	}

	sellEntry := entryPriceFor(types.TrendBearish, ob, nil, SetupZone{})
	if !sellEntry.Equal(d(4102.4)) {
		t.Fatalf("expected sell entry at OB high 4102.4, got %s", sellEntry)
	}
}

func TestEntryPriceFor_FVGMidpoint(t *testing.T) {
	fvg := &types.FairValueGap{Low: d(100), High: d(110)}
	entry := entryPriceFor(types.TrendBullish, nil, fvg, SetupZone{})
	if !entry.Equal(d(105)) {
		t.Fatalf("expected FVG midpoint 105, got %s", entry)
	}
}

func TestEntryPriceFor_ZoneMidpointFallback(t *testing.T) {
	zone := SetupZone{Low: d(50), High: d(70)}
	entry := entryPriceFor(types.TrendBullish, nil, nil, zone)
	if !entry.Equal(d(60)) {
		t.Fatalf("expected zone midpoint 60, got %s", entry)
	}
}

func TestComputeM1Entry_InvalidZone(t *testing.T) {
	res := ComputeM1Entry(nil, SetupZone{Valid: false}, types.TrendBullish, "XAUUSD", DefaultConfig(), zones.DefaultConfig())
	if res.Valid {
		t.Fatal("expected an invalid M15 setup zone to reject the M1 entry")
	}
}

func TestComputeM1Entry_NoCandles(t *testing.T) {
	zone := SetupZone{Valid: true, Low: d(100), High: d(110)}
	res := ComputeM1Entry(nil, zone, types.TrendBullish, "XAUUSD", DefaultConfig(), zones.DefaultConfig())
	if res.Valid {
		t.Fatal("expected no M1 candles to reject the M1 entry")
	}
}

func TestComputeM1Entry_PriceOutsideZone(t *testing.T) {
	zone := SetupZone{Valid: true, Low: d(100), High: d(110)}
	candles := []types.Candle{candle(120, 121, 119, 120)}
	res := ComputeM1Entry(candles, zone, types.TrendBullish, "XAUUSD", DefaultConfig(), zones.DefaultConfig())
	if res.Valid {
		t.Fatal("expected price outside the M15 setup zone to reject the M1 entry")
	}
}
