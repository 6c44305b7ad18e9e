// Package killswitch provides the Per-Account Kill Switch (C8): a stateful,
// collect-all-reasons evaluator over drawdown, consecutive-loss, spread and
// exposure thresholds, with append-only persistence of every activation and
// deactivation transition.
package killswitch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventStore persists kill-switch transitions and seeds the initial
// in-memory state from the latest event row per account. Satisfied by
// *internal/persistence.Store.
type EventStore interface {
	InsertKillSwitchEvent(ctx context.Context, accountID string, eventType types.KillSwitchEventType, reason string) error
	LatestKillSwitchStates(ctx context.Context) (map[string]types.AccountKillSwitchState, error)
}

// Switch is the per-account kill switch. Its in-memory states map is the
// only thing it mutates; mutation happens exclusively under its own lock.
type Switch struct {
	logger *zap.Logger
	store  EventStore

	mu     sync.RWMutex
	states map[string]types.AccountKillSwitchState

	// perSymbolMaxSpread is the env-bound PER_ACCOUNT_MAX_SPREAD_PIPS_PER_SYMBOL
	// override table, keyed by symbol.
	perSymbolMaxSpread map[string]decimal.Decimal
	defaultMaxSpread   decimal.Decimal
}

// New constructs a Switch and seeds its in-memory state from the event
// store's latest row per account. A nil store yields an in-memory-only
// switch (DB outage degrades gracefully, per §5's non-fatal pool errors).
func New(ctx context.Context, logger *zap.Logger, store EventStore, defaultMaxSpreadPips decimal.Decimal, perSymbolMaxSpreadPips map[string]decimal.Decimal) *Switch {
	sw := &Switch{
		logger:             logger.Named("killswitch"),
		store:              store,
		states:             make(map[string]types.AccountKillSwitchState),
		perSymbolMaxSpread: perSymbolMaxSpreadPips,
		defaultMaxSpread:   defaultMaxSpreadPips,
	}
	if perSymbolMaxSpreadPips == nil {
		sw.perSymbolMaxSpread = map[string]decimal.Decimal{}
	}

	if store != nil {
		seeded, err := store.LatestKillSwitchStates(ctx)
		if err != nil {
			sw.logger.Warn("failed to seed kill-switch state from persistence, starting clean", zap.Error(err))
		} else {
			sw.states = seeded
		}
	}
	return sw
}

// ParsePerSymbolMaxSpread parses the PER_ACCOUNT_MAX_SPREAD_PIPS_PER_SYMBOL
// env format: "XAUUSD:3,US30:10".
func ParsePerSymbolMaxSpread(raw string) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(kv[0])] = decimal.NewFromFloat(v)
	}
	return out
}

// Result is the outcome of one Evaluate call.
type Result struct {
	Blocked bool
	Reasons []string
}

// Evaluate checks every kill-switch condition, collecting all reasons that
// fire rather than stopping at the first one, then transitions the
// account's persisted state if the blocked/unblocked status changed.
func (sw *Switch) Evaluate(ctx context.Context, account types.AccountInfo, tctx types.TradingContext, symbol string) Result {
	cfg := account.KillSwitch
	var reasons []string

	if !cfg.Enabled {
		sw.transition(ctx, account.ID, Result{Blocked: false})
		return Result{Blocked: false}
	}

	if !cfg.DailyDDLimit.IsZero() && tctx.TodayRealizedPnL.Abs().GreaterThanOrEqual(cfg.DailyDDLimit) {
		reasons = append(reasons, fmt.Sprintf("daily drawdown %s has reached the limit %s", tctx.TodayRealizedPnL.Abs(), cfg.DailyDDLimit))
	}
	if !cfg.WeeklyDDLimit.IsZero() && tctx.WeekRealizedPnL.Abs().GreaterThanOrEqual(cfg.WeeklyDDLimit) {
		reasons = append(reasons, fmt.Sprintf("weekly drawdown %s has reached the limit %s", tctx.WeekRealizedPnL.Abs(), cfg.WeeklyDDLimit))
	}
	if cfg.MaxConsecutiveLosses > 0 && tctx.ConsecutiveLosses >= cfg.MaxConsecutiveLosses {
		reasons = append(reasons, fmt.Sprintf("consecutive losses %d reached the limit %d", tctx.ConsecutiveLosses, cfg.MaxConsecutiveLosses))
	}
	if maxSpread := sw.maxSpreadFor(account, symbol); !maxSpread.IsZero() && tctx.CurrentSpreadPips.GreaterThan(maxSpread) {
		reasons = append(reasons, fmt.Sprintf("spread %s pips exceeds the maximum %s for %s", tctx.CurrentSpreadPips, maxSpread, symbol))
	}
	if !cfg.MaxExposure.IsZero() && tctx.CurrentExposure.GreaterThanOrEqual(cfg.MaxExposure) {
		reasons = append(reasons, fmt.Sprintf("exposure %s reached the maximum %s", tctx.CurrentExposure, cfg.MaxExposure))
	}

	result := Result{Blocked: len(reasons) > 0, Reasons: reasons}
	sw.transition(ctx, account.ID, result)
	return result
}

// maxSpreadFor resolves the effective max spread: per-symbol override first,
// then the account's own config, then the process-wide env default.
func (sw *Switch) maxSpreadFor(account types.AccountInfo, symbol string) decimal.Decimal {
	if v, ok := sw.perSymbolMaxSpread[symbol]; ok {
		return v
	}
	if !account.KillSwitch.MaxSpreadPips.IsZero() {
		return account.KillSwitch.MaxSpreadPips
	}
	return sw.defaultMaxSpread
}

// transition compares the new result against the in-memory state and, if the
// active/inactive status flipped, persists an activated/deactivated event
// and updates the in-memory state. Persistence failure is logged only —
// it never blocks the evaluation result.
func (sw *Switch) transition(ctx context.Context, accountID string, result Result) {
	sw.mu.Lock()
	prev := sw.states[accountID]
	changed := prev.Active != result.Blocked
	next := types.AccountKillSwitchState{AccountID: accountID, Active: result.Blocked, Reasons: result.Reasons}
	if result.Blocked {
		if changed {
			next.ActivatedAt = time.Now()
		} else {
			next.ActivatedAt = prev.ActivatedAt
		}
	}
	sw.states[accountID] = next
	sw.mu.Unlock()

	if !changed || sw.store == nil {
		return
	}

	eventType := types.KillSwitchDeactivated
	reason := "all kill-switch conditions cleared"
	if result.Blocked {
		eventType = types.KillSwitchActivated
		reason = strings.Join(result.Reasons, "; ")
	}
	if err := sw.store.InsertKillSwitchEvent(ctx, accountID, eventType, reason); err != nil {
		sw.logger.Warn("failed to persist kill-switch event",
			zap.String("accountId", accountID),
			zap.String("eventType", string(eventType)),
			zap.Error(err))
	}
	sw.logger.Info("kill-switch transition",
		zap.String("accountId", accountID),
		zap.String("eventType", string(eventType)),
		zap.String("reason", reason))
}

// State returns the current in-memory kill-switch state for an account.
func (sw *Switch) State(accountID string) types.AccountKillSwitchState {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.states[accountID]
}
