// Package types provides configuration types for the trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskConfig is one account's risk limits, read by the Per-Account Risk Service.
type RiskConfig struct {
	RiskPercent         decimal.Decimal `json:"riskPercent"`
	MaxDailyLoss        decimal.Decimal `json:"maxDailyLoss"`
	MaxWeeklyLoss       decimal.Decimal `json:"maxWeeklyLoss"`
	MaxConcurrentTrades int             `json:"maxConcurrentTrades"`
	MaxDailyTrades      int             `json:"maxDailyTrades"`
	MaxDailyRisk        decimal.Decimal `json:"maxDailyRisk"`
	MaxExposure         decimal.Decimal `json:"maxExposure"`
}

// KillSwitchConfig is one account's kill-switch thresholds.
type KillSwitchConfig struct {
	Enabled             bool            `json:"enabled"`
	DailyDDLimit        decimal.Decimal `json:"dailyDDLimit"`
	WeeklyDDLimit       decimal.Decimal `json:"weeklyDDLimit"`
	MaxConsecutiveLosses int            `json:"maxConsecutiveLosses,omitempty"`
	MaxSpreadPips       decimal.Decimal `json:"maxSpreadPips,omitempty"`
	MaxExposure         decimal.Decimal `json:"maxExposure,omitempty"`
}

// SessionWindow is a named trading session mapped to an hour range in NY time.
type SessionWindow struct {
	Name      string `json:"name"`
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
}

// ExecutionFilterConfig is one account's execution-filter overrides.
type ExecutionFilterConfig struct {
	MaxTradesPerDay   int             `json:"maxTradesPerDay,omitempty"`
	CooldownMinutes   int             `json:"cooldownMinutes,omitempty"`
	SessionWindows    []string        `json:"sessionWindows,omitempty"`
	MinSpreadPips     decimal.Decimal `json:"minSpreadPips,omitempty"`
}

// MT5Config is the broker connection details for one account.
type MT5Config struct {
	BaseURL string `json:"baseUrl"`
	Login   int64  `json:"login"`
}

// AccountInfo is a loaded, immutable account configuration.
type AccountInfo struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	MT5             MT5Config               `json:"mt5"`
	Symbols         []string                `json:"symbols"`
	Risk            RiskConfig              `json:"risk"`
	KillSwitch      KillSwitchConfig        `json:"killSwitch"`
	ExecutionFilter *ExecutionFilterConfig  `json:"executionFilter,omitempty"`
	Enabled         bool                    `json:"enabled"`
	Metadata        map[string]any          `json:"metadata,omitempty"`
}

// AccountRuntimeState is the mutable, in-memory companion to AccountInfo.
type AccountRuntimeState struct {
	Paused        bool      `json:"paused"`
	LastError     string    `json:"lastError,omitempty"`
	LastErrorTime time.Time `json:"lastErrorTime,omitempty"`
	LastTradeTime time.Time `json:"lastTradeTime,omitempty"`
	LastTradeSymbol string  `json:"lastTradeSymbol,omitempty"`
	IsConnected   bool      `json:"isConnected"`
}

// KillSwitchEventType is the append-only event kind persisted to
// account_kill_switch_events.
type KillSwitchEventType string

const (
	KillSwitchActivated   KillSwitchEventType = "activated"
	KillSwitchDeactivated KillSwitchEventType = "deactivated"
)

// AccountKillSwitchState is the current kill-switch state for one account,
// mirrored by the last account_kill_switch_events row for that account.
type AccountKillSwitchState struct {
	AccountID   string    `json:"accountId"`
	Active      bool      `json:"active"`
	Reasons     []string  `json:"reasons"`
	ActivatedAt time.Time `json:"activatedAt"`
}

// Decision is the outcome of one account's execution pipeline for one signal.
type Decision string

const (
	DecisionTrade Decision = "TRADE"
	DecisionSkip  Decision = "SKIP"
)

// AccountExecutionResult is produced once per account per signal.
type AccountExecutionResult struct {
	AccountID        string   `json:"accountId"`
	Success          bool     `json:"success"`
	Decision         Decision `json:"decision"`
	Reasons          []string `json:"reasons,omitempty"`
	Ticket           string   `json:"ticket,omitempty"`
	Error            string   `json:"error,omitempty"`
	RiskReason       string   `json:"riskReason,omitempty"`
	FilterReason     string   `json:"filterReason,omitempty"`
	KillSwitchReason string   `json:"killSwitchReason,omitempty"`
}

// SkippedAccount pairs an account with the reason it was skipped.
type SkippedAccount struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// FailedAccount pairs an account with the error that failed it.
type FailedAccount struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// AggregatedExecutionResult is the orchestrator's output for one signal
// across every eligible account.
type AggregatedExecutionResult struct {
	Symbol          string                   `json:"symbol"`
	Strategy        string                   `json:"strategy"`
	Timestamp       time.Time                `json:"timestamp"`
	TotalAccounts   int                      `json:"totalAccounts"`
	TradedAccounts  []string                 `json:"tradedAccounts"`
	SkippedAccounts []SkippedAccount         `json:"skippedAccounts"`
	FailedAccounts  []FailedAccount          `json:"failedAccounts"`
	Results         []AccountExecutionResult `json:"results"`
}

// GuardrailMode reduces or blocks risk appetite account-wide (e.g. from a
// news/economic-calendar guardrail external to this package).
type GuardrailMode string

const (
	GuardrailNormal  GuardrailMode = "normal"
	GuardrailReduced GuardrailMode = "reduced"
	GuardrailBlocked GuardrailMode = "blocked"
)

// TradingContext is the point-in-time account state the risk service and the
// kill switch both read. It is assembled fresh per evaluation from
// persistent storage (equity, realised PnL, trade counts) plus whatever the
// broker connector last reported (spread); neither C7 nor C8 owns it.
type TradingContext struct {
	Equity            decimal.Decimal
	TodayRealizedPnL  decimal.Decimal
	WeekRealizedPnL   decimal.Decimal
	TradesTakenToday  int
	ConcurrentTrades  int
	ConsecutiveLosses int
	CurrentExposure   decimal.Decimal
	CurrentSpreadPips decimal.Decimal
	GuardrailMode     GuardrailMode
}
