// Package execfilter provides the Per-Account Execution Filter (C9): session
// windows, cooldowns, max-trades-per-day and max-spread checks layered with
// per-account overrides on top of a base configuration.
package execfilter

import (
	"fmt"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/sessions"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BaseConfig is the process-wide default execution filter, overridden
// per-account by types.ExecutionFilterConfig where present.
type BaseConfig struct {
	MaxTradesPerDay int
	CooldownMinutes int
	SessionWindows  []string
	MaxSpreadPips   decimal.Decimal
}

// DefaultBaseConfig returns permissive defaults; accounts narrow these down.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		MaxTradesPerDay: 10,
		CooldownMinutes: 15,
		SessionWindows:  []string{"london", "newyork", "asian"},
		MaxSpreadPips:   decimal.NewFromFloat(3.0),
	}
}

// Action is the execution filter's verdict.
type Action string

const (
	ActionTrade Action = "TRADE"
	ActionSkip  Action = "SKIP"
)

// Result is the filter's outcome for one account/symbol evaluation.
type Result struct {
	Action  Action
	Reasons []string
}

// Filter evaluates the execution-filter gate.
type Filter struct {
	logger *zap.Logger
	base   BaseConfig
	clock  *sessions.Clock
}

// New constructs a Filter sharing the given session clock with the rest of
// the engine so session computation is consistent across C5 and C9.
func New(logger *zap.Logger, base BaseConfig, clock *sessions.Clock) *Filter {
	return &Filter{logger: logger.Named("execfilter"), base: base, clock: clock}
}

// Check evaluates the gate for one account against one symbol, given how
// many trades the account has already taken today and the time of its last
// trade on this symbol (zero value means none yet).
func (f *Filter) Check(account types.AccountInfo, symbol string, tradesTakenToday int, lastTradeTime time.Time, currentSpreadPips decimal.Decimal, now time.Time) Result {
	cfg := f.effective(account)

	var reasons []string

	if cfg.MaxTradesPerDay > 0 && tradesTakenToday >= cfg.MaxTradesPerDay {
		reasons = append(reasons, fmt.Sprintf("max trades per day (%d) reached", cfg.MaxTradesPerDay))
	}

	if cfg.CooldownMinutes > 0 && !lastTradeTime.IsZero() {
		elapsed := now.Sub(lastTradeTime)
		cooldown := time.Duration(cfg.CooldownMinutes) * time.Minute
		if elapsed < cooldown {
			reasons = append(reasons, fmt.Sprintf("cooldown active: %s remaining", (cooldown - elapsed).Round(time.Second)))
		}
	}

	session := f.clock.SessionAt(now)
	if !sessionAllowed(session, cfg.SessionWindows) {
		reasons = append(reasons, fmt.Sprintf("session %q not in the account's allowed windows", session))
	}

	if !cfg.MaxSpreadPips.IsZero() && currentSpreadPips.GreaterThan(cfg.MaxSpreadPips) {
		reasons = append(reasons, fmt.Sprintf("spread %s pips exceeds max %s", currentSpreadPips, cfg.MaxSpreadPips))
	}

	if len(reasons) > 0 {
		return Result{Action: ActionSkip, Reasons: reasons}
	}
	return Result{Action: ActionTrade}
}

// effective merges an account's ExecutionFilterConfig override onto the base
// config. MinSpreadPips, if present on the override, is deliberately never
// used to replace MaxSpreadPips — that field belongs to a different gate
// entirely and mixing the two would silently widen the spread tolerance.
func (f *Filter) effective(account types.AccountInfo) BaseConfig {
	cfg := f.base
	override := account.ExecutionFilter
	if override == nil {
		return cfg
	}
	if override.MaxTradesPerDay > 0 {
		cfg.MaxTradesPerDay = override.MaxTradesPerDay
	}
	if override.CooldownMinutes > 0 {
		cfg.CooldownMinutes = override.CooldownMinutes
	}
	if len(override.SessionWindows) > 0 {
		cfg.SessionWindows = override.SessionWindows
	}
	return cfg
}

func sessionAllowed(session string, allowed []string) bool {
	if session == "" {
		return false
	}
	for _, a := range allowed {
		if a == session {
			return true
		}
	}
	return false
}
