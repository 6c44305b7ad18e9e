package broker_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atlas-desktop/trading-backend/internal/broker"
	"github.com/atlas-desktop/trading-backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func TestOpenTrade_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/trades/open" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req broker.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(broker.OrderResponse{
			Ticket: "123456",
			Status: "FILLED",
			Symbol: req.Symbol,
		})
	}))
	defer ts.Close()

	cli := broker.New(zap.NewNop(), metrics.New(prometheus.NewRegistry()))
	resp, err := cli.OpenTrade(context.Background(), "acct-1", ts.URL, broker.OrderRequest{Symbol: "XAUUSD"})
	if err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}
	if resp.Ticket.String() != "123456" {
		t.Fatalf("expected ticket 123456, got %s", resp.Ticket.String())
	}
}

func TestOpenTrade_NonTwoxxReturnsStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"mt5 terminal disconnected"}`))
	}))
	defer ts.Close()

	cli := broker.New(zap.NewNop(), nil)
	_, err := cli.OpenTrade(context.Background(), "acct-1", ts.URL, broker.OrderRequest{Symbol: "XAUUSD"})
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
	statusErr, ok := err.(*broker.StatusError)
	if !ok {
		t.Fatalf("expected *broker.StatusError, got %T", err)
	}
	want := "MT5 Connector returned status 502: mt5 terminal disconnected"
	if statusErr.Error() != want {
		t.Fatalf("expected %q, got %q", want, statusErr.Error())
	}
}

func TestOpenTrade_TransportFailure(t *testing.T) {
	cli := broker.New(zap.NewNop(), nil)
	_, err := cli.OpenTrade(context.Background(), "acct-1", "http://127.0.0.1:1", broker.OrderRequest{Symbol: "XAUUSD"})
	if err == nil {
		t.Fatal("expected a transport error for an unreachable host")
	}
}
