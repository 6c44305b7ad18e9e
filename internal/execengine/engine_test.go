package execengine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atlas-desktop/trading-backend/internal/broker"
	"github.com/atlas-desktop/trading-backend/internal/execengine"
	"github.com/atlas-desktop/trading-backend/internal/execfilter"
	"github.com/atlas-desktop/trading-backend/internal/killswitch"
	"github.com/atlas-desktop/trading-backend/internal/risk"
	"github.com/atlas-desktop/trading-backend/internal/sessions"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	state   types.AccountRuntimeState
	paused  []string
	traded  []string
	errored []string
}

func (r *fakeRegistry) State(id string) types.AccountRuntimeState { return r.state }
func (r *fakeRegistry) PauseAccount(id, reason string)            { r.paused = append(r.paused, id) }
func (r *fakeRegistry) RecordTrade(id, symbol string)             { r.traded = append(r.traded, id) }
func (r *fakeRegistry) RecordError(id string, err error)          { r.errored = append(r.errored, id) }

type fakeContextProvider struct {
	tctx types.TradingContext
	err  error
}

func (f *fakeContextProvider) TradingContext(ctx context.Context, accountID, symbol string) (types.TradingContext, error) {
	return f.tctx, f.err
}

type fakeRecorder struct {
	results []types.AccountExecutionResult
}

func (f *fakeRecorder) RecordDecision(ctx context.Context, accountID, symbol, strategy string, result types.AccountExecutionResult) error {
	f.results = append(f.results, result)
	return nil
}

func newEngine(t *testing.T, brokerURL string, registry *fakeRegistry, ctxProvider *fakeContextProvider, recorder *fakeRecorder) *execengine.Engine {
	t.Helper()
	logger := zap.NewNop()
	clock, err := sessions.New(nil)
	if err != nil {
		t.Fatalf("sessions.New: %v", err)
	}
	ks := killswitch.New(context.Background(), logger, nil, decimal.NewFromFloat(3), nil)
	riskSvc := risk.New(logger)
	filter := execfilter.New(logger, execfilter.BaseConfig{
		SessionWindows: []string{"london", "newyork", "asian"},
	}, clock)
	brokerCli := broker.New(logger, nil)

	return execengine.New(logger, registry, ks, riskSvc, filter, brokerCli, ctxProvider, recorder, clock, nil, false)
}

func baseAccount() types.AccountInfo {
	return types.AccountInfo{
		ID:      "acct-1",
		Enabled: true,
		Symbols: []string{"XAUUSD"},
		Risk: types.RiskConfig{
			RiskPercent: decimal.NewFromFloat(1),
		},
		KillSwitch: types.KillSwitchConfig{Enabled: false},
		MT5:        types.MT5Config{BaseURL: ""},
	}
}

func baseSignal() types.Signal {
	return types.Signal{
		Symbol:     "XAUUSD",
		Direction:  types.Buy,
		EntryType:  types.EntryMarket,
		Entry:      decimal.NewFromFloat(2000),
		StopLoss:   decimal.NewFromFloat(1950),
		TakeProfit: decimal.NewFromFloat(2150),
	}
}

func TestRun_SkipsDisabledSymbol(t *testing.T) {
	registry := &fakeRegistry{state: types.AccountRuntimeState{IsConnected: true}}
	recorder := &fakeRecorder{}
	e := newEngine(t, "", registry, &fakeContextProvider{}, recorder)

	acct := baseAccount()
	acct.Symbols = []string{"EURUSD"}
	result := e.Run(context.Background(), acct, baseSignal(), "strat")
	if result.Decision != types.DecisionSkip {
		t.Fatalf("expected skip for a symbol not in the account's list, got %+v", result)
	}
	if len(recorder.results) != 1 {
		t.Fatal("expected the decision to be recorded exactly once")
	}
}

func TestRun_SkipsPausedAccount(t *testing.T) {
	registry := &fakeRegistry{state: types.AccountRuntimeState{IsConnected: true, Paused: true}}
	e := newEngine(t, "", registry, &fakeContextProvider{}, &fakeRecorder{})
	result := e.Run(context.Background(), baseAccount(), baseSignal(), "strat")
	if result.Decision != types.DecisionSkip || len(result.Reasons) == 0 || result.Reasons[0] != "account is paused" {
		t.Fatalf("expected a paused-account skip, got %+v", result)
	}
}

func TestRun_SkipsDisconnectedAccount(t *testing.T) {
	registry := &fakeRegistry{state: types.AccountRuntimeState{IsConnected: false}}
	e := newEngine(t, "", registry, &fakeContextProvider{}, &fakeRecorder{})
	result := e.Run(context.Background(), baseAccount(), baseSignal(), "strat")
	if result.Decision != types.DecisionSkip || result.Reasons[0] != "account is not connected" {
		t.Fatalf("expected a disconnected-account skip, got %+v", result)
	}
}

func TestRun_SuccessfulTradeRecordsTicket(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(broker.OrderResponse{Ticket: "999", Status: "FILLED"})
	}))
	defer ts.Close()

	registry := &fakeRegistry{state: types.AccountRuntimeState{IsConnected: true}}
	ctxProvider := &fakeContextProvider{tctx: types.TradingContext{Equity: decimal.NewFromFloat(10000)}}
	recorder := &fakeRecorder{}
	e := newEngine(t, ts.URL, registry, ctxProvider, recorder)

	acct := baseAccount()
	acct.MT5.BaseURL = ts.URL
	result := e.Run(context.Background(), acct, baseSignal(), "strat")
	if !result.Success || result.Decision != types.DecisionTrade || result.Ticket != "999" {
		t.Fatalf("expected a successful trade with ticket 999, got %+v", result)
	}
	if len(registry.traded) != 1 {
		t.Fatal("expected RecordTrade to be called once")
	}
}

func TestRun_BrokerFailureRecordsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"broker down"}`))
	}))
	defer ts.Close()

	registry := &fakeRegistry{state: types.AccountRuntimeState{IsConnected: true}}
	ctxProvider := &fakeContextProvider{tctx: types.TradingContext{Equity: decimal.NewFromFloat(10000)}}
	e := newEngine(t, ts.URL, registry, ctxProvider, &fakeRecorder{})

	acct := baseAccount()
	acct.MT5.BaseURL = ts.URL
	result := e.Run(context.Background(), acct, baseSignal(), "strat")
	if result.Success || result.Decision != types.DecisionSkip || result.Error == "" {
		t.Fatalf("expected a failed result carrying the broker error, got %+v", result)
	}
	if len(registry.errored) != 1 {
		t.Fatal("expected RecordError to be called once")
	}
}

func TestRun_TradingContextLoadFailure(t *testing.T) {
	registry := &fakeRegistry{state: types.AccountRuntimeState{IsConnected: true}}
	ctxProvider := &fakeContextProvider{err: context.DeadlineExceeded}
	e := newEngine(t, "", registry, ctxProvider, &fakeRecorder{})
	result := e.Run(context.Background(), baseAccount(), baseSignal(), "strat")
	if result.Success || result.Error == "" {
		t.Fatalf("expected a failure result when the trading context cannot be loaded, got %+v", result)
	}
}
