package execfilter

import (
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/sessions"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testClock(t *testing.T) *sessions.Clock {
	t.Helper()
	c, err := sessions.New(nil)
	if err != nil {
		t.Fatalf("sessions.New: %v", err)
	}
	return c
}

func nyTime(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		t.Fatalf("ParseInLocation: %v", err)
	}
	return parsed
}

func TestCheck_MaxTradesPerDay(t *testing.T) {
	f := New(zap.NewNop(), BaseConfig{MaxTradesPerDay: 2, SessionWindows: []string{"newyork"}}, testClock(t))
	now := nyTime(t, "2026-03-05 14:00")
	res := f.Check(types.AccountInfo{}, "XAUUSD", 2, time.Time{}, decimal.Zero, now)
	if res.Action != ActionSkip {
		t.Fatal("expected skip once daily trade cap is reached")
	}
}

func TestCheck_Cooldown(t *testing.T) {
	f := New(zap.NewNop(), BaseConfig{CooldownMinutes: 30, SessionWindows: []string{"newyork"}}, testClock(t))
	now := nyTime(t, "2026-03-05 14:00")
	last := now.Add(-10 * time.Minute)
	res := f.Check(types.AccountInfo{}, "XAUUSD", 0, last, decimal.Zero, now)
	if res.Action != ActionSkip {
		t.Fatal("expected skip while inside the cooldown window")
	}
}

func TestCheck_SessionNotAllowed(t *testing.T) {
	f := New(zap.NewNop(), BaseConfig{SessionWindows: []string{"asian"}}, testClock(t))
	now := nyTime(t, "2026-03-05 14:00") // newyork session
	res := f.Check(types.AccountInfo{}, "XAUUSD", 0, time.Time{}, decimal.Zero, now)
	if res.Action != ActionSkip {
		t.Fatal("expected skip outside the account's allowed session windows")
	}
}

func TestCheck_MaxSpreadExceeded(t *testing.T) {
	f := New(zap.NewNop(), BaseConfig{SessionWindows: []string{"newyork"}, MaxSpreadPips: decimal.NewFromFloat(3)}, testClock(t))
	now := nyTime(t, "2026-03-05 14:00")
	res := f.Check(types.AccountInfo{}, "XAUUSD", 0, time.Time{}, decimal.NewFromFloat(5), now)
	if res.Action != ActionSkip {
		t.Fatal("expected skip when spread exceeds the max")
	}
}

func TestCheck_AllowsTrade(t *testing.T) {
	f := New(zap.NewNop(), DefaultBaseConfig(), testClock(t))
	now := nyTime(t, "2026-03-05 14:00")
	res := f.Check(types.AccountInfo{}, "XAUUSD", 0, time.Time{}, decimal.NewFromFloat(1), now)
	if res.Action != ActionTrade {
		t.Fatalf("expected trade allowed, got reasons %v", res.Reasons)
	}
}

func TestEffective_AccountOverrideMergesAndIgnoresMinSpread(t *testing.T) {
	f := New(zap.NewNop(), DefaultBaseConfig(), testClock(t))
	acct := types.AccountInfo{
		ExecutionFilter: &types.ExecutionFilterConfig{
			MaxTradesPerDay: 1,
			MinSpreadPips:   decimal.NewFromFloat(100),
		},
	}
	cfg := f.effective(acct)
	if cfg.MaxTradesPerDay != 1 {
		t.Fatalf("expected override to apply, got %d", cfg.MaxTradesPerDay)
	}
	if !cfg.MaxSpreadPips.Equal(DefaultBaseConfig().MaxSpreadPips) {
		t.Fatalf("MinSpreadPips override must never affect MaxSpreadPips, got %s", cfg.MaxSpreadPips)
	}
}
