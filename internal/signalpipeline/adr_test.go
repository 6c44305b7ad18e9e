package signalpipeline

import (
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

func h4Candle(start time.Time, high, low float64) types.Candle {
	return types.Candle{
		Symbol:    "XAUUSD",
		Timeframe: types.H4,
		StartTime: start,
		EndTime:   start.Add(4 * time.Hour),
		High:      decimal.NewFromFloat(high),
		Low:       decimal.NewFromFloat(low),
		Open:      decimal.NewFromFloat((high + low) / 2),
		Close:     decimal.NewFromFloat((high + low) / 2),
	}
}

func TestGroupByDay(t *testing.T) {
	day1 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	candles := []types.Candle{
		h4Candle(day1, 110, 100),
		h4Candle(day1.Add(4*time.Hour), 115, 105),
		h4Candle(day2, 120, 112),
	}
	days := groupByDay(candles)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if len(days[0]) != 2 || len(days[1]) != 1 {
		t.Fatalf("expected day groups of size [2,1], got [%d,%d]", len(days[0]), len(days[1]))
	}
}

func TestDayRange(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := []types.Candle{
		h4Candle(day, 110, 100),
		h4Candle(day.Add(4*time.Hour), 118, 104),
	}
	r := dayRange(candles)
	if !r.Equal(decimal.NewFromFloat(18)) {
		t.Fatalf("expected day range 18 (118-100), got %s", r)
	}
}

func TestComputeADRScore_FavorableWhenRangeBarelyUsed(t *testing.T) {
	day1 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	candles := []types.Candle{
		h4Candle(day1, 2020, 2000),
		h4Candle(day2, 2040, 2020),
		h4Candle(day3, 2101, 2100),
	}
	score := computeADRScore(candles)
	if score != 10 {
		t.Fatalf("expected favorable +10 ADR score, got %d", score)
	}
}

func TestComputeADRScore_UnfavorableWhenRangeExhausted(t *testing.T) {
	day1 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	candles := []types.Candle{
		h4Candle(day1, 2020, 2000),
		h4Candle(day2, 2200, 2000),
	}
	score := computeADRScore(candles)
	if score != -15 {
		t.Fatalf("expected unfavorable -15 ADR score, got %d", score)
	}
}

func TestComputeADRScore_NeutralWithoutPriorDay(t *testing.T) {
	day1 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := []types.Candle{h4Candle(day1, 2020, 2000)}
	if score := computeADRScore(candles); score != 0 {
		t.Fatalf("expected neutral 0 ADR score with no prior day, got %d", score)
	}
}
