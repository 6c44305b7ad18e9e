package zones

import (
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

func candle(o, h, l, c, v float64) types.Candle {
	return types.Candle{
		Symbol:    "XAUUSD",
		Timeframe: types.M15,
		StartTime: time.Now(),
		EndTime:   time.Now(),
		Open:      decimal.NewFromFloat(o),
		High:      decimal.NewFromFloat(h),
		Low:       decimal.NewFromFloat(l),
		Close:     decimal.NewFromFloat(c),
		Volume:    decimal.NewFromFloat(v),
	}
}

func TestDetectOrderBlocksBullish(t *testing.T) {
	candles := []types.Candle{
		candle(100, 101, 98, 99, 500),  // prior candle, bearish
		candle(99, 103, 93, 102.5, 500), // bullish OB: lower wick big, closes above prev high (101)
		candle(102.5, 106, 102, 105, 500),
	}
	cfg := DefaultConfig()
	obs := DetectOrderBlocks(candles, types.M15, cfg)
	found := false
	for _, ob := range obs {
		if ob.CandleIndex == 1 && ob.Type == types.OrderBlockBullish {
			found = true
		}
	}
	if !found {
		t.Errorf("expected bullish order block at index 1, got %+v", obs)
	}
}

func TestDetectFairValueGapsBullish(t *testing.T) {
	candles := []types.Candle{
		candle(100, 101, 99, 100.5, 100),
		candle(100.5, 102, 100, 101.8, 100),
		candle(103, 106, 102.5, 105, 100), // low (102.5) > candles[0].high (101) -> bullish gap
	}
	gaps := DetectFairValueGaps(candles, types.M15, decimal.NewFromFloat(0.5))
	if len(gaps) == 0 {
		t.Fatal("expected at least one FVG")
	}
	if gaps[0].Type != types.FVGContinuation {
		t.Errorf("expected continuation-type gap, got %v", gaps[0].Type)
	}
}

func TestDisplacementResult_Outcome(t *testing.T) {
	valid := DisplacementResult{IsValid: true, Score: 15}
	invalid := DisplacementResult{IsValid: false, Score: -15}

	if pass, score := valid.Outcome(DisplacementHard); !pass || score != 0 {
		t.Fatalf("hard mode on a valid result: expected (true, 0), got (%v, %d)", pass, score)
	}
	if pass, score := invalid.Outcome(DisplacementHard); pass || score != 0 {
		t.Fatalf("hard mode on an invalid result: expected (false, 0), got (%v, %d)", pass, score)
	}
	if pass, score := invalid.Outcome(DisplacementSoft); !pass || score != -15 {
		t.Fatalf("soft mode on an invalid result: expected (true, -15), got (%v, %d)", pass, score)
	}
	if pass, score := valid.Outcome(DisplacementSoft); !pass || score != 15 {
		t.Fatalf("soft mode on a valid result: expected (true, 15), got (%v, %d)", pass, score)
	}
}

func TestComputePremiumDiscount(t *testing.T) {
	var candles []types.Candle
	for i := 0; i < 30; i++ {
		candles = append(candles, candle(100, 110, 90, 100, 100))
	}
	cfg := DefaultConfig()
	res := ComputePremiumDiscount(candles, "XAUUSD", decimal.NewFromFloat(95), cfg)
	if res.Zone != types.Discount {
		t.Errorf("expected discount zone for price below fib50, got %v", res.Zone)
	}
}
