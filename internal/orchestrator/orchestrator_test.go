package orchestrator_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/atlas-desktop/trading-backend/internal/orchestrator"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"go.uber.org/zap"
)

type fakeAccounts struct {
	accounts []types.AccountInfo
}

func (f *fakeAccounts) GetAccountsForSymbol(symbol string) []types.AccountInfo {
	return f.accounts
}

type fakeRunner struct {
	results map[string]types.AccountExecutionResult
}

func (f *fakeRunner) Run(ctx context.Context, account types.AccountInfo, signal types.Signal, strategy string) types.AccountExecutionResult {
	return f.results[account.ID]
}

func accountsN(n int) []types.AccountInfo {
	out := make([]types.AccountInfo, n)
	for i := range out {
		out[i] = types.AccountInfo{ID: fmt.Sprintf("acct-%d", i), Enabled: true}
	}
	return out
}

func TestExecute_AggregatesEveryAccountExactlyOnce(t *testing.T) {
	accts := accountsN(5)
	results := map[string]types.AccountExecutionResult{
		"acct-0": {Success: true, Decision: types.DecisionTrade},
		"acct-1": {Decision: types.DecisionSkip, RiskReason: "daily loss"},
		"acct-2": {Decision: types.DecisionSkip, Error: "broker unreachable"},
		"acct-3": {Success: true, Decision: types.DecisionTrade},
		"acct-4": {Decision: types.DecisionSkip, KillSwitchReason: "drawdown"},
	}
	o := orchestrator.New(zap.NewNop(), &fakeAccounts{accounts: accts}, &fakeRunner{results: results}, orchestrator.Config{MaxConcurrentAccounts: 2}, nil)

	agg := o.Execute(context.Background(), types.Signal{Symbol: "XAUUSD"}, "strat")
	if agg.TotalAccounts != 5 {
		t.Fatalf("expected 5 total accounts, got %d", agg.TotalAccounts)
	}
	if len(agg.TradedAccounts) != 2 {
		t.Fatalf("expected 2 traded accounts, got %d", len(agg.TradedAccounts))
	}
	if len(agg.FailedAccounts) != 1 {
		t.Fatalf("expected 1 failed account, got %d", len(agg.FailedAccounts))
	}
	if len(agg.SkippedAccounts) != 2 {
		t.Fatalf("expected 2 skipped accounts, got %d", len(agg.SkippedAccounts))
	}
	if len(agg.Results) != agg.TotalAccounts {
		t.Fatalf("expected one result per account, got %d results for %d accounts", len(agg.Results), agg.TotalAccounts)
	}
}

func TestExecute_NoEligibleAccounts(t *testing.T) {
	o := orchestrator.New(zap.NewNop(), &fakeAccounts{}, &fakeRunner{results: map[string]types.AccountExecutionResult{}}, orchestrator.DefaultConfig(), nil)
	agg := o.Execute(context.Background(), types.Signal{Symbol: "XAUUSD"}, "strat")
	if agg.TotalAccounts != 0 {
		t.Fatalf("expected zero accounts, got %d", agg.TotalAccounts)
	}
}

func TestDefaultConfig(t *testing.T) {
	if orchestrator.DefaultConfig().MaxConcurrentAccounts != 32 {
		t.Fatalf("expected the documented cap of 32, got %d", orchestrator.DefaultConfig().MaxConcurrentAccounts)
	}
}
