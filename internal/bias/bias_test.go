package bias

import (
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

func candle(o, h, l, c float64) types.Candle {
	return types.Candle{
		Symbol:    "XAUUSD",
		Timeframe: types.M15,
		StartTime: time.Now(),
		EndTime:   time.Now(),
		Open:      decimal.NewFromFloat(o),
		High:      decimal.NewFromFloat(h),
		Low:       decimal.NewFromFloat(l),
		Close:     decimal.NewFromFloat(c),
		Volume:    decimal.NewFromFloat(100),
	}
}

func uptrend() []types.Candle {
	var out []types.Candle
	base := 100.0
	for i := 0; i < 40; i++ {
		base += 1
		out = append(out, candle(base-1, base+1, base-2, base))
	}
	return out
}

func TestComputeH4BiasBullish(t *testing.T) {
	cfg := DefaultConfig()
	zcfg := zones.DefaultConfig()
	res := ComputeH4Bias(uptrend(), "XAUUSD", cfg, zcfg)
	if res.Trend != types.TrendBullish {
		t.Errorf("expected bullish bias on a steady uptrend, got %v (%s)", res.Trend, res.Method)
	}
}

func TestComputeH4BiasEmpty(t *testing.T) {
	cfg := DefaultConfig()
	zcfg := zones.DefaultConfig()
	res := ComputeH4Bias(nil, "XAUUSD", cfg, zcfg)
	if res.Trend != types.TrendNeutral {
		t.Errorf("expected neutral bias for empty candles, got %v", res.Trend)
	}
}

func TestComputeStopTPRejectsWithoutSwing(t *testing.T) {
	cfg := DefaultConfig()
	res := ComputeStopTP(nil, decimal.NewFromFloat(100), types.TrendBullish, "XAUUSD", cfg)
	if res.Valid {
		t.Error("expected invalid stop/TP with no candles")
	}
}

func TestComputeStopTPBullish(t *testing.T) {
	cfg := DefaultConfig()
	candles := uptrend()
	candles[30].Low = decimal.NewFromFloat(125) // pivot low below the final close
	res := ComputeStopTP(candles, candles[len(candles)-1].Close, types.TrendBullish, "XAUUSD", cfg)
	if !res.Valid {
		t.Fatalf("expected valid stop/TP, got reasons %v", res.Reasons)
	}
	if res.StopLoss.GreaterThanOrEqual(candles[len(candles)-1].Close) {
		t.Errorf("expected stop loss below entry for bullish trade, got %v vs entry %v", res.StopLoss, candles[len(candles)-1].Close)
	}
}
