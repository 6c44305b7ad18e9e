package signalpipeline

import (
	"context"
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/bias"
	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeCandleSource struct {
	byTF map[types.Timeframe][]types.Candle
}

func (f *fakeCandleSource) LoadLatest(ctx context.Context, symbol string, tf types.Timeframe, n int) ([]types.Candle, error) {
	cs := f.byTF[tf]
	if len(cs) <= n {
		return cs, nil
	}
	return cs[len(cs)-n:], nil
}

type fakeSessionResolver struct {
	session string
	open    bool
}

func (f *fakeSessionResolver) CurrentSession() string { return f.session }
func (f *fakeSessionResolver) IsMarketOpen() bool     { return f.open }

func flatCandles(n int, base float64) []types.Candle {
	var out []types.Candle
	now := time.Now()
	for i := 0; i < n; i++ {
		out = append(out, types.Candle{
			Symbol:    "XAUUSD",
			StartTime: now.Add(time.Duration(i) * time.Minute),
			EndTime:   now.Add(time.Duration(i+1) * time.Minute),
			Open:      decimal.NewFromFloat(base),
			High:      decimal.NewFromFloat(base + 1),
			Low:       decimal.NewFromFloat(base - 1),
			Close:     decimal.NewFromFloat(base),
			Volume:    decimal.NewFromFloat(100),
		})
	}
	return out
}

func TestGenerateRejectsOnInsufficientCandles(t *testing.T) {
	logger := zap.NewNop()
	source := &fakeCandleSource{byTF: map[types.Timeframe][]types.Candle{
		types.H4:  flatCandles(3, 100),
		types.M15: flatCandles(3, 100),
		types.M1:  flatCandles(3, 100),
	}}
	sessions := &fakeSessionResolver{session: "london", open: true}
	p := New(logger, source, sessions, DefaultConfig(), bias.DefaultConfig(), zones.DefaultConfig())

	signal, rejection, err := p.Generate(context.Background(), "XAUUSD")
	if err != nil {
		t.Fatalf("unexpected infrastructure error: %v", err)
	}
	if signal != nil {
		t.Fatal("expected no signal with insufficient candles")
	}
	if rejection == nil || rejection.Gate != "gate-1-candles" {
		t.Fatalf("expected gate-1-candles rejection, got %+v", rejection)
	}
}

// TestGenerateRejectsSidewaysHTF exercises the spec's S2 scenario: H4
// candles oscillating with no directional structure must be rejected for a
// neutral/sideways HTF bias, never reach the setup gates.
func TestGenerateRejectsSidewaysHTF(t *testing.T) {
	logger := zap.NewNop()
	source := &fakeCandleSource{byTF: map[types.Timeframe][]types.Candle{
		types.H4:  flatCandles(80, 2000),
		types.M15: flatCandles(80, 2000),
		types.M1:  flatCandles(80, 2000),
	}}
	sessions := &fakeSessionResolver{session: "london", open: true}
	p := New(logger, source, sessions, DefaultConfig(), bias.DefaultConfig(), zones.DefaultConfig())

	signal, rejection, err := p.Generate(context.Background(), "XAUUSD")
	if err != nil {
		t.Fatalf("unexpected infrastructure error: %v", err)
	}
	if signal != nil {
		t.Fatal("expected no signal for a sideways HTF")
	}
	if rejection == nil {
		t.Fatal("expected a rejection for a sideways HTF")
	}
	if rejection.Gate != "gate-2-htf-bias" && rejection.Gate != "gate-3-sideways" {
		t.Fatalf("expected an HTF-bias or sideways rejection, got gate %q reason %q", rejection.Gate, rejection.Reason)
	}
}

func TestValidateSignalRejectsBadOrdering(t *testing.T) {
	sig := &types.Signal{
		Symbol:          "XAUUSD",
		Direction:       types.Buy,
		Entry:           decimal.NewFromFloat(100),
		StopLoss:        decimal.NewFromFloat(101),
		TakeProfit:      decimal.NewFromFloat(110),
		ConfluenceScore: 50,
	}
	if err := ValidateSignal(sig, 0.6); err == nil {
		t.Fatal("expected error for stop loss above entry on a buy")
	}
}

func TestValidateSignalAcceptsWellFormed(t *testing.T) {
	sig := &types.Signal{
		Symbol:          "XAUUSD",
		Direction:       types.Buy,
		Entry:           decimal.NewFromFloat(100),
		StopLoss:        decimal.NewFromFloat(98),
		TakeProfit:      decimal.NewFromFloat(106),
		ConfluenceScore: 65,
	}
	if err := ValidateSignal(sig, 0.6); err != nil {
		t.Fatalf("expected well-formed signal to validate, got %v", err)
	}
}
