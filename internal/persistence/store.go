// Package persistence owns the three tables the core writes to:
// account_live_equity, account_trade_decisions and account_kill_switch_events
// (§6). It uses raw database/sql with the lib/pq driver rather than an ORM,
// matching the reference's hand-rolled style everywhere else (raw JSON in
// internal/candles, raw net/http in internal/broker) — an ORM would be the
// outlier in this codebase, not the default.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// pgDuplicateIndex is the Postgres error code for "relation already exists"
// raised by a concurrent CREATE INDEX IF NOT EXISTS race; it is idempotent
// and swallowed by Init rather than surfaced.
const pgDuplicateIndex = "42P17"

// Store wraps a *sql.DB with the core's parameterised queries. Query errors
// are wrapped and returned to the caller. The pool is always non-nil: the
// methods have no nil-receiver or nil-pool guard.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open prepares a connection pool for databaseURL and returns a Store. It
// does not dial the database: an unreachable server surfaces as an error from
// the first statement (normally Init), not from Open.
func Open(logger *zap.Logger, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("persistence: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, logger: logger.Named("persistence")}, nil
}

// Init creates the three tables and their indexes if they do not already
// exist. It is safe to call on every process start — CREATE TABLE/INDEX IF
// NOT EXISTS is idempotent, and a concurrent-creation duplicate-index error
// (42P17) is swallowed rather than surfaced.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS account_live_equity (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			broker_account TEXT,
			timestamp TIMESTAMPTZ NOT NULL,
			balance DOUBLE PRECISION NOT NULL,
			equity DOUBLE PRECISION NOT NULL,
			floating_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
			closed_pnl_today DOUBLE PRECISION NOT NULL DEFAULT 0,
			closed_pnl_week DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_drawdown_abs DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_account_live_equity_account_ts
			ON account_live_equity (account_id, timestamp DESC)`,

		`CREATE TABLE IF NOT EXISTS account_trade_decisions (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
			symbol TEXT NOT NULL,
			strategy TEXT,
			decision TEXT NOT NULL,
			risk_reason TEXT,
			filter_reason TEXT,
			kill_switch_reason TEXT,
			execution_result JSONB,
			pnl DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_decisions_account_ts
			ON account_trade_decisions (account_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_decisions_account_symbol
			ON account_trade_decisions (account_id, symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_decisions_account_date
			ON account_trade_decisions (account_id, (timestamp::date))`,

		`CREATE TABLE IF NOT EXISTS account_kill_switch_events (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kill_switch_events_account
			ON account_kill_switch_events (account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_kill_switch_events_created
			ON account_kill_switch_events (created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if isDuplicateIndex(err) {
				s.logger.Debug("ignoring idempotent duplicate-index error", zap.Error(err))
				continue
			}
			return fmt.Errorf("persistence: init: %w", err)
		}
	}
	return nil
}

func isDuplicateIndex(err error) bool {
	return err != nil && strings.Contains(err.Error(), pgDuplicateIndex)
}

// TradingContext assembles a types.TradingContext by reading equity from the
// latest account_live_equity row and today's trade count/PnL from
// account_trade_decisions. It satisfies internal/execengine.ContextProvider.
func (s *Store) TradingContext(ctx context.Context, accountID, symbol string) (types.TradingContext, error) {
	var tctx types.TradingContext

	row := s.db.QueryRowContext(ctx, `
		SELECT equity, closed_pnl_today, closed_pnl_week
		FROM account_live_equity
		WHERE account_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`, accountID)

	var equity, pnlToday, pnlWeek float64
	switch err := row.Scan(&equity, &pnlToday, &pnlWeek); err {
	case nil:
		tctx.Equity = decimal.NewFromFloat(equity)
		tctx.TodayRealizedPnL = decimal.NewFromFloat(pnlToday)
		tctx.WeekRealizedPnL = decimal.NewFromFloat(pnlWeek)
	case sql.ErrNoRows:
		// No equity snapshot yet; leave zero values.
	default:
		return tctx, fmt.Errorf("persistence: query equity: %w", err)
	}

	var tradesTakenToday int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM account_trade_decisions
		WHERE account_id = $1 AND decision = 'TRADE' AND timestamp::date = now()::date`,
		accountID).Scan(&tradesTakenToday)
	if err != nil && err != sql.ErrNoRows {
		return tctx, fmt.Errorf("persistence: query trade count: %w", err)
	}
	tctx.TradesTakenToday = tradesTakenToday

	var concurrentTrades int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM account_trade_decisions
		WHERE account_id = $1 AND symbol = $2 AND decision = 'TRADE' AND timestamp::date = now()::date`,
		accountID, symbol).Scan(&concurrentTrades)
	if err != nil && err != sql.ErrNoRows {
		return tctx, fmt.Errorf("persistence: query concurrent trades: %w", err)
	}
	tctx.ConcurrentTrades = concurrentTrades

	return tctx, nil
}

// RecordDecision inserts one account_trade_decisions row. Satisfies
// internal/execengine.DecisionRecorder.
func (s *Store) RecordDecision(ctx context.Context, accountID, symbol, strategy string, result types.AccountExecutionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("persistence: marshal execution result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO account_trade_decisions
			(account_id, timestamp, symbol, strategy, decision, risk_reason, filter_reason, kill_switch_reason, execution_result)
		VALUES ($1, now(), $2, $3, $4, $5, $6, $7, $8)`,
		accountID, symbol, strategy, string(result.Decision),
		nullIfEmpty(result.RiskReason), nullIfEmpty(result.FilterReason), nullIfEmpty(result.KillSwitchReason), payload)
	if err != nil {
		return fmt.Errorf("persistence: insert trade decision: %w", err)
	}
	return nil
}

// InsertKillSwitchEvent appends one account_kill_switch_events row.
// Satisfies internal/killswitch.EventStore.
func (s *Store) InsertKillSwitchEvent(ctx context.Context, accountID string, eventType types.KillSwitchEventType, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_kill_switch_events (account_id, event_type, reason, created_at)
		VALUES ($1, $2, $3, now())`,
		accountID, string(eventType), reason)
	if err != nil {
		return fmt.Errorf("persistence: insert kill-switch event: %w", err)
	}
	return nil
}

// LatestKillSwitchStates returns the last event row per account, used to
// seed a killswitch.Switch's in-memory state on process start. Satisfies
// internal/killswitch.EventStore.
func (s *Store) LatestKillSwitchStates(ctx context.Context) (map[string]types.AccountKillSwitchState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (account_id) account_id, event_type, reason, created_at
		FROM account_kill_switch_events
		ORDER BY account_id, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("persistence: query kill-switch states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.AccountKillSwitchState)
	for rows.Next() {
		var (
			accountID, eventType, reason string
			createdAt                    time.Time
		)
		if err := rows.Scan(&accountID, &eventType, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("persistence: scan kill-switch state: %w", err)
		}
		state := types.AccountKillSwitchState{AccountID: accountID}
		if eventType == string(types.KillSwitchActivated) {
			state.Active = true
			state.Reasons = strings.Split(reason, "; ")
			state.ActivatedAt = createdAt
		}
		out[accountID] = state
	}
	return out, rows.Err()
}

// RecordEquitySnapshot inserts one account_live_equity row. Not exercised by
// the core's own pipeline — it is the write-side of data a connector or
// reconciliation job external to this package would supply — but it is the
// one piece of §6's equity table the core's read path (TradingContext)
// depends on, so the store owns both sides of the table.
func (s *Store) RecordEquitySnapshot(ctx context.Context, accountID, brokerAccount string, balance, equity, floatingPnL, closedToday, closedWeek, maxDrawdown decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_live_equity
			(account_id, broker_account, timestamp, balance, equity, floating_pnl, closed_pnl_today, closed_pnl_week, max_drawdown_abs)
		VALUES ($1, $2, now(), $3, $4, $5, $6, $7, $8)`,
		accountID, brokerAccount,
		balance.InexactFloat64(), equity.InexactFloat64(), floatingPnL.InexactFloat64(),
		closedToday.InexactFloat64(), closedWeek.InexactFloat64(), maxDrawdown.InexactFloat64())
	if err != nil {
		return fmt.Errorf("persistence: insert equity snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
