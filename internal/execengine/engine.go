// Package execengine implements the Account Execution Engine (C10): the
// strictly sequential per-account pipeline that turns one signal into a
// broker order for one account, or a structured SKIP — kill switch, risk
// check, execution filter, lot sizing, market-hours check, broker call,
// persistence, never an exception across its boundary.
package execengine

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/broker"
	"github.com/atlas-desktop/trading-backend/internal/execfilter"
	"github.com/atlas-desktop/trading-backend/internal/killswitch"
	"github.com/atlas-desktop/trading-backend/internal/metrics"
	"github.com/atlas-desktop/trading-backend/internal/risk"
	"github.com/atlas-desktop/trading-backend/internal/sessions"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Registry is the subset of *accounts.Registry the engine needs.
type Registry interface {
	State(id string) types.AccountRuntimeState
	PauseAccount(id, reason string)
	RecordTrade(id, symbol string)
	RecordError(id string, err error)
}

// ContextProvider resolves the point-in-time equity/PnL/trade-count/exposure
// reading for one account, normally backed by internal/persistence.
type ContextProvider interface {
	TradingContext(ctx context.Context, accountID, symbol string) (types.TradingContext, error)
}

// DecisionRecorder persists one AccountExecutionResult row. Failure is
// logged only, per §7's persistence error policy.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, accountID, symbol, strategy string, result types.AccountExecutionResult) error
}

// Engine runs the per-account pipeline.
type Engine struct {
	logger      *zap.Logger
	registry    Registry
	killSwitch  *killswitch.Switch
	riskSvc     *risk.Service
	filter      *execfilter.Filter
	brokerCli   *broker.Client
	ctxProvider ContextProvider
	recorder    DecisionRecorder
	clock       *sessions.Clock
	metrics     *metrics.Metrics

	checkMarketHours bool
}

// New constructs an Engine from its per-account collaborators. m may be nil.
func New(
	logger *zap.Logger,
	registry Registry,
	killSwitch *killswitch.Switch,
	riskSvc *risk.Service,
	filter *execfilter.Filter,
	brokerCli *broker.Client,
	ctxProvider ContextProvider,
	recorder DecisionRecorder,
	clock *sessions.Clock,
	m *metrics.Metrics,
	checkMarketHours bool,
) *Engine {
	return &Engine{
		logger:           logger.Named("execengine"),
		registry:         registry,
		killSwitch:       killSwitch,
		riskSvc:          riskSvc,
		filter:           filter,
		brokerCli:        brokerCli,
		ctxProvider:      ctxProvider,
		recorder:         recorder,
		clock:            clock,
		metrics:          m,
		checkMarketHours: checkMarketHours,
	}
}

// Run executes the pipeline for one account against one signal, producing an
// AccountExecutionResult whatever happens. It never returns an error or
// panics to its caller.
func (e *Engine) Run(ctx context.Context, account types.AccountInfo, signal types.Signal, strategy string) types.AccountExecutionResult {
	result := e.run(ctx, account, signal, strategy)
	if err := e.recorder.RecordDecision(ctx, account.ID, signal.Symbol, strategy, result); err != nil {
		e.logger.Warn("failed to persist account trade decision",
			zap.String("accountId", account.ID),
			zap.String("symbol", signal.Symbol),
			zap.Error(err))
	}
	return result
}

func (e *Engine) run(ctx context.Context, account types.AccountInfo, signal types.Signal, strategy string) types.AccountExecutionResult {
	// 1. Symbol eligibility and runtime state.
	if !symbolEnabled(account, signal.Symbol) {
		return skip("symbol not enabled for this account")
	}
	runtime := e.registry.State(account.ID)
	if runtime.Paused {
		return skip("account is paused")
	}
	if !runtime.IsConnected {
		return skip("account is not connected")
	}

	tctx, err := e.ctxProvider.TradingContext(ctx, account.ID, signal.Symbol)
	if err != nil {
		e.registry.RecordError(account.ID, err)
		return types.AccountExecutionResult{Success: false, Decision: types.DecisionSkip, Error: fmt.Sprintf("failed to load trading context: %v", err)}
	}

	// 2. Kill switch.
	ksResult := e.killSwitch.Evaluate(ctx, account, tctx, signal.Symbol)
	if ksResult.Blocked {
		reason := joinReasons(ksResult.Reasons)
		e.registry.PauseAccount(account.ID, reason)
		if e.metrics != nil {
			e.metrics.KillSwitchActivations.WithLabelValues(account.ID).Inc()
		}
		return types.AccountExecutionResult{Decision: types.DecisionSkip, Reasons: ksResult.Reasons, KillSwitchReason: reason}
	}

	// 3. Risk check.
	riskDecision := e.riskSvc.CanTakeNewTrade(account, tctx, nil)
	if !riskDecision.Allowed {
		if e.metrics != nil {
			e.metrics.RiskRejections.WithLabelValues(account.ID, riskDecision.Reason).Inc()
		}
		return types.AccountExecutionResult{Decision: types.DecisionSkip, RiskReason: riskDecision.Reason}
	}

	// 4. Execution filter.
	var lastTradeOnSymbol time.Time
	if runtime.LastTradeSymbol == signal.Symbol {
		lastTradeOnSymbol = runtime.LastTradeTime
	}
	filterResult := e.filter.Check(account, signal.Symbol, tctx.TradesTakenToday, lastTradeOnSymbol, tctx.CurrentSpreadPips, time.Now())
	if filterResult.Action == execfilter.ActionSkip {
		if e.metrics != nil {
			e.metrics.FilterRejections.WithLabelValues(account.ID).Inc()
		}
		return types.AccountExecutionResult{Decision: types.DecisionSkip, Reasons: filterResult.Reasons, FilterReason: joinReasons(filterResult.Reasons)}
	}

	// 5. Lot sizing.
	stopLossPips := slPipsFor(signal)
	lotSize := e.riskSvc.CalculateLotSize(account, tctx, stopLossPips, signal.Entry, signal.Symbol, &riskDecision.AdjustedRiskPercent)
	if lotSize.LessThanOrEqual(decimal.Zero) {
		return types.AccountExecutionResult{Decision: types.DecisionSkip, Error: "calculated lot size is zero"}
	}

	// 6. Market-hours check.
	if e.checkMarketHours && !e.clock.IsMarketOpen() {
		return types.AccountExecutionResult{Decision: types.DecisionSkip, FilterReason: "market is closed"}
	}

	// 7. Build order and call the broker.
	order := broker.OrderRequest{
		Symbol:          signal.Symbol,
		Direction:       directionFor(signal.Direction),
		EntryType:       entryTypeFor(signal.EntryType),
		OrderKind:       string(signal.EntryType),
		EntryPrice:      signal.Entry.InexactFloat64(),
		LotSize:         lotSize.InexactFloat64(),
		StopLossPrice:   signal.StopLoss.InexactFloat64(),
		TakeProfitPrice: signal.TakeProfit.InexactFloat64(),
		StrategyID:      strategy,
		Metadata:        account.Metadata,
	}

	resp, err := e.brokerCli.OpenTrade(ctx, account.ID, account.MT5.BaseURL, order)
	if err != nil {
		e.registry.RecordError(account.ID, err)
		return types.AccountExecutionResult{Success: false, Decision: types.DecisionSkip, Error: err.Error()}
	}

	// 8. Success.
	e.registry.RecordTrade(account.ID, signal.Symbol)
	return types.AccountExecutionResult{Success: true, Decision: types.DecisionTrade, Ticket: resp.Ticket.String()}
}

func symbolEnabled(account types.AccountInfo, symbol string) bool {
	if !account.Enabled {
		return false
	}
	for _, s := range account.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

func slPipsFor(signal types.Signal) decimal.Decimal {
	return signal.Entry.Sub(signal.StopLoss).Abs()
}

func directionFor(d types.Direction) string {
	if d == types.Sell {
		return "SELL"
	}
	return "BUY"
}

func entryTypeFor(t types.EntryType) string {
	switch t {
	case types.EntryStop:
		return "STOP"
	case types.EntryLimit:
		return "LIMIT"
	default:
		return "MARKET"
	}
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

func skip(reason string) types.AccountExecutionResult {
	return types.AccountExecutionResult{Decision: types.DecisionSkip, Reasons: []string{reason}}
}
