// Package orchestrator provides the Distributed Execution Orchestrator
// (C11): given one signal, it fans out the per-account execution pipeline
// concurrently across every eligible account, gathers every result
// regardless of individual outcome, and aggregates them into one result —
// never cancelling peers on a single account's failure, matching the
// reference's worker-pool-backed lifecycle wiring.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/metrics"
	"github.com/atlas-desktop/trading-backend/internal/workers"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"go.uber.org/zap"
)

// AccountSource selects the accounts eligible for a symbol.
type AccountSource interface {
	GetAccountsForSymbol(symbol string) []types.AccountInfo
}

// AccountRunner runs the full per-account pipeline for one signal. Satisfied
// by *internal/execengine.Engine.
type AccountRunner interface {
	Run(ctx context.Context, account types.AccountInfo, signal types.Signal, strategy string) types.AccountExecutionResult
}

// Config controls fan-out concurrency.
type Config struct {
	// MaxConcurrentAccounts bounds broker-call concurrency per signal, per
	// §9's "worker pool sized to min(len(accounts), 32)".
	MaxConcurrentAccounts int
}

// DefaultConfig returns the spec's documented cap.
func DefaultConfig() Config {
	return Config{MaxConcurrentAccounts: 32}
}

// Orchestrator runs C11.
type Orchestrator struct {
	logger   *zap.Logger
	accounts AccountSource
	runner   AccountRunner
	cfg      Config
	metrics  *metrics.Metrics
}

// New constructs an Orchestrator. m may be nil.
func New(logger *zap.Logger, accounts AccountSource, runner AccountRunner, cfg Config, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		logger:   logger.Named("orchestrator"),
		accounts: accounts,
		runner:   runner,
		cfg:      cfg,
		metrics:  m,
	}
}

// Execute selects the eligible accounts for signal.Symbol, runs the
// per-account pipeline for each concurrently bounded by MaxConcurrentAccounts,
// and aggregates every result. It always returns an AggregatedExecutionResult
// and never propagates a per-account failure to its caller.
func (o *Orchestrator) Execute(ctx context.Context, signal types.Signal, strategy string) types.AggregatedExecutionResult {
	start := time.Now()
	eligible := o.accounts.GetAccountsForSymbol(signal.Symbol)

	poolSize := len(eligible)
	if poolSize > o.cfg.MaxConcurrentAccounts {
		poolSize = o.cfg.MaxConcurrentAccounts
	}
	if poolSize < 1 {
		poolSize = 1
	}

	pool := workers.NewPool(o.logger, &workers.PoolConfig{
		Name:            "execution-fanout",
		NumWorkers:      poolSize,
		QueueSize:       len(eligible) + 1,
		TaskTimeout:     30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		PanicRecovery:   true,
	})
	pool.Start()
	defer pool.Stop()

	var (
		mu      sync.Mutex
		results = make([]types.AccountExecutionResult, 0, len(eligible))
		wg      sync.WaitGroup
	)

	for _, account := range eligible {
		account := account
		wg.Add(1)
		go func() {
			defer wg.Done()
			var result types.AccountExecutionResult
			err := pool.SubmitWait(workers.TaskFunc(func() error {
				result = o.runner.Run(ctx, account, signal, strategy)
				return nil
			}))
			if err != nil {
				// Pool-level failure (stopped/queue full) — still produce a
				// result value, never drop the account from aggregation.
				result = types.AccountExecutionResult{
					AccountID: account.ID,
					Decision:  types.DecisionSkip,
					Error:     err.Error(),
				}
			}
			result.AccountID = account.ID

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}()
	}
	wg.Wait()

	agg := aggregate(signal.Symbol, strategy, results)
	if o.metrics != nil {
		o.metrics.OrchestratorFanoutDuration.Observe(time.Since(start).Seconds())
		o.metrics.ObserveAggregate(len(agg.TradedAccounts), len(agg.SkippedAccounts), len(agg.FailedAccounts))
	}
	return agg
}

func aggregate(symbol, strategy string, results []types.AccountExecutionResult) types.AggregatedExecutionResult {
	agg := types.AggregatedExecutionResult{
		Symbol:        symbol,
		Strategy:      strategy,
		Timestamp:     time.Now(),
		TotalAccounts: len(results),
		Results:       results,
	}

	for _, r := range results {
		switch {
		case r.Decision == types.DecisionTrade && r.Success:
			agg.TradedAccounts = append(agg.TradedAccounts, r.AccountID)
		case !r.Success && r.Error != "":
			agg.FailedAccounts = append(agg.FailedAccounts, types.FailedAccount{ID: r.AccountID, Error: r.Error})
		default:
			agg.SkippedAccounts = append(agg.SkippedAccounts, types.SkippedAccount{ID: r.AccountID, Reason: skipReason(r)})
		}
	}

	return agg
}

func skipReason(r types.AccountExecutionResult) string {
	switch {
	case r.KillSwitchReason != "":
		return r.KillSwitchReason
	case r.RiskReason != "":
		return r.RiskReason
	case r.FilterReason != "":
		return r.FilterReason
	case len(r.Reasons) > 0:
		return r.Reasons[0]
	default:
		return "skipped"
	}
}
