// Package broker speaks the JSON HTTP contract the core uses to dispatch
// trades to a broker connector: a single POST per order, a 10 second hard
// timeout, and status-code/body-in-error reporting, matching the raw
// net/http idiom of the reference's exchange adapter.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/metrics"
	"go.uber.org/zap"
)

// Timeout is the hard timeout the spec fixes for the broker HTTP call.
const Timeout = 10 * time.Second

// OrderRequest is the JSON body POSTed to {baseUrl}/api/v1/trades/open.
type OrderRequest struct {
	Symbol         string         `json:"symbol"`
	Direction      string         `json:"direction"`
	EntryType      string         `json:"entry_type"`
	OrderKind      string         `json:"order_kind"`
	EntryPrice     float64        `json:"entry_price"`
	LotSize        float64        `json:"lot_size"`
	StopLossPrice  float64        `json:"stop_loss_price"`
	TakeProfitPrice float64       `json:"take_profit_price"`
	StrategyID     string         `json:"strategy_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// OrderResponse is the expected 2xx response body.
type OrderResponse struct {
	Ticket          json.Number `json:"mt5_ticket"`
	Status          string      `json:"status"`
	Symbol          string      `json:"symbol"`
	Direction       string      `json:"direction"`
	LotSize         float64     `json:"lot_size"`
	EntryPrice      float64     `json:"entry_price"`
	StopLossPrice   float64     `json:"stop_loss_price"`
	TakeProfitPrice float64     `json:"take_profit_price"`
	OpenedAt        time.Time   `json:"opened_at"`
}

// StatusError is returned when the broker responds with a non-2xx status.
// Its message is "MT5 Connector returned status <code>: <body>", matching
// §8 scenario S4's exact error shape.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("MT5 Connector returned status %d: %s", e.StatusCode, e.Body)
}

// structuredBody is the broker's conventional error envelope; when present
// its "error" field becomes the StatusError body instead of the raw bytes.
type structuredBody struct {
	Error string `json:"error"`
}

// Client posts orders to one account's broker endpoint.
type Client struct {
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New constructs a broker Client with the spec's 10 second timeout. m may be
// nil, in which case call metrics are not recorded.
func New(logger *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		http:    &http.Client{Timeout: Timeout},
		logger:  logger.Named("broker"),
		metrics: m,
	}
}

// OpenTrade POSTs an order to baseURL + "/api/v1/trades/open". A 2xx
// response yields the parsed OrderResponse; any other status or a transport
// failure yields an error — the caller (C10) turns that into a SKIP result,
// never a panic.
func (c *Client) OpenTrade(ctx context.Context, accountID, baseURL string, order OrderRequest) (*OrderResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.doOpenTrade(ctx, baseURL, order)
	if c.metrics != nil {
		c.metrics.BrokerCallDuration.WithLabelValues(accountID).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.BrokerCallStatus.WithLabelValues(accountID, outcome).Inc()
	}
	return resp, err
}

func (c *Client) doOpenTrade(ctx context.Context, baseURL string, order OrderRequest) (*OrderResponse, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("broker: marshal order: %w", err)
	}

	url := baseURL + "/api/v1/trades/open"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("broker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker: request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("broker: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: extractErrorMessage(respBody)}
	}

	var out OrderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("broker: parse response: %w", err)
	}
	return &out, nil
}

func extractErrorMessage(body []byte) string {
	var structured structuredBody
	if err := json.Unmarshal(body, &structured); err == nil && structured.Error != "" {
		return structured.Error
	}
	return string(body)
}
