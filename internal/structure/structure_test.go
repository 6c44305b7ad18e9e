package structure

import (
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

func candle(o, h, l, c float64) types.Candle {
	return types.Candle{
		Symbol:    "XAUUSD",
		Timeframe: types.H4,
		StartTime: time.Now(),
		EndTime:   time.Now(),
		Open:      decimal.NewFromFloat(o),
		High:      decimal.NewFromFloat(h),
		Low:       decimal.NewFromFloat(l),
		Close:     decimal.NewFromFloat(c),
		Volume:    decimal.NewFromFloat(1000),
	}
}

func TestDetectSwingsStructuralPivot(t *testing.T) {
	candles := []types.Candle{
		candle(100, 102, 99, 101),
		candle(101, 105, 100, 104), // pivot high at index 1
		candle(104, 104, 101, 102),
		candle(102, 103, 95, 97),   // pivot low at index 3
		candle(97, 99, 96, 98),
	}

	swings := DetectSwings(candles, SwingStructural, 0, 0)

	var gotHigh, gotLow bool
	for _, s := range swings {
		if s.Index == 1 && s.Type == types.SwingHigh {
			gotHigh = true
		}
		if s.Index == 3 && s.Type == types.SwingLow {
			gotLow = true
		}
	}
	if !gotHigh {
		t.Errorf("expected pivot high at index 1, got %+v", swings)
	}
	if !gotLow {
		t.Errorf("expected pivot low at index 3, got %+v", swings)
	}
}

func TestDetectBOSBullish(t *testing.T) {
	candles := []types.Candle{
		candle(100, 102, 99, 101),
		candle(101, 105, 100, 104),
		candle(104, 104, 101, 102),
		candle(102, 103, 101, 102.5),
		candle(102.5, 108, 102, 107), // closes above swing high of 105
	}
	swings := DetectSwings(candles, SwingStructural, 0, 0)

	events := DetectBOS(candles, swings, 10, true)
	if len(events) == 0 {
		t.Fatal("expected at least one BOS event")
	}
	found := false
	for _, e := range events {
		if e.Index == 4 && e.Direction == types.TrendBullish {
			found = true
		}
	}
	if !found {
		t.Errorf("expected bullish BOS at index 4, got %+v", events)
	}
}

func TestDetectBOSDeterministic(t *testing.T) {
	candles := []types.Candle{
		candle(100, 102, 99, 101),
		candle(101, 105, 100, 104),
		candle(104, 104, 101, 102),
		candle(102, 103, 101, 102.5),
		candle(102.5, 108, 102, 107),
		candle(107, 109, 104, 105),
	}
	swings := DetectSwings(candles, SwingStructural, 0, 0)

	a := DetectBOS(candles, swings, 10, true)
	b := DetectBOS(candles, swings, 10, true)

	if len(a) != len(b) {
		t.Fatalf("non-deterministic BOS count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic BOS event at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestChochMachineFlipsBias(t *testing.T) {
	candles := []types.Candle{
		candle(100, 101, 95, 96),   // low swing candidate area
		candle(96, 99, 94, 98),
		candle(98, 110, 97, 109),   // pivot high ~110
		candle(109, 109, 102, 103),
		candle(103, 104, 90, 92),   // breaks below prior low -> bearish BOS, the first break, which sets the bias
		candle(92, 93, 85, 86),
	}
	swings := DetectSwings(candles, SwingStructural, 0, 0)
	bos := DetectBOS(candles, swings, 10, true)
	result := RunChochMachine(candles, bos, swings, true)

	if result.Bias == types.TrendUnknown {
		t.Errorf("expected a resolved bias, got unknown")
	}
}
