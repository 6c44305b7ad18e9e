// Package main is the entry point for the SMC/ICT core trading engine: it
// wires the candle store, the signal pipeline, the per-account risk/kill
// switch/execution-filter/broker gates and the distributed execution
// orchestrator together, then polls each configured symbol on an interval,
// fanning every generated signal out across its eligible accounts.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/accounts"
	"github.com/atlas-desktop/trading-backend/internal/broker"
	"github.com/atlas-desktop/trading-backend/internal/candles"
	"github.com/atlas-desktop/trading-backend/internal/config"
	"github.com/atlas-desktop/trading-backend/internal/execengine"
	"github.com/atlas-desktop/trading-backend/internal/execfilter"
	"github.com/atlas-desktop/trading-backend/internal/killswitch"
	"github.com/atlas-desktop/trading-backend/internal/metrics"
	"github.com/atlas-desktop/trading-backend/internal/orchestrator"
	"github.com/atlas-desktop/trading-backend/internal/persistence"
	"github.com/atlas-desktop/trading-backend/internal/risk"
	"github.com/atlas-desktop/trading-backend/internal/sessions"
	"github.com/atlas-desktop/trading-backend/internal/signalpipeline"
	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	dataDir := flag.String("data", "./data", "Candle data directory")
	strategy := flag.String("strategy", "smc-ict-core", "Strategy identifier recorded with every decision")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	pollInterval := flag.Duration("poll-interval", time.Minute, "How often each symbol is re-evaluated")
	symbols := flag.String("symbols", "XAUUSD,US30,EURUSD", "Comma-separated symbols to evaluate")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting SMC/ICT core trading engine",
		zap.String("dataDir", *dataDir),
		zap.String("strategy", *strategy),
		zap.Duration("pollInterval", *pollInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	candleStore, err := candles.New(logger, *dataDir)
	if err != nil {
		logger.Fatal("failed to initialize candle store", zap.Error(err))
	}

	accountRegistry, err := accounts.LoadFromFile(logger, cfg.AccountsConfigPath)
	if err != nil {
		logger.Fatal("failed to load accounts config", zap.Error(err))
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("database_url is required: the execution engine reads live equity/PnL/trade-count state from it on every gate check")
	}
	store, err := persistence.Open(logger, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open persistence store", zap.Error(err))
	}
	if err := store.Init(ctx); err != nil {
		logger.Fatal("failed to initialize persistence schema", zap.Error(err))
	}
	defer store.Close()

	clock, err := sessions.New(sessions.DefaultWindows())
	if err != nil {
		logger.Fatal("failed to initialize session clock", zap.Error(err))
	}

	perSymbolSpread := killswitch.ParsePerSymbolMaxSpread(cfg.PerAccountMaxSpreadPipsPerSymbol)
	ks := killswitch.New(ctx, logger, store, decimal.NewFromFloat(cfg.PerAccountMaxSpreadPips), perSymbolSpread)
	riskSvc := risk.New(logger)
	filter := execfilter.New(logger, cfg.ExecFilter, clock)
	brokerCli := broker.New(logger, m)

	engine := execengine.New(logger, accountRegistry, ks, riskSvc, filter, brokerCli, store, store, clock, m, cfg.Pipeline.CheckMarketHours)
	orch := orchestrator.New(logger, accountRegistry, engine, cfg.Orchestrator, m)

	pipeline := signalpipeline.New(logger, candleStore, clock, cfg.Pipeline, cfg.Bias, zones.DefaultConfig())

	mr := mux.NewRouter()
	mr.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mr.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}).Handler(mr)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}
	go func() {
		logger.Info("debug/health HTTP surface listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	watchedSymbols := splitSymbols(*symbols)
	go runPollLoop(ctx, logger, m, pipeline, orch, watchedSymbols, *strategy, *pollInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during http server shutdown", zap.Error(err))
	}
	logger.Info("engine stopped")
}

// runPollLoop evaluates every watched symbol on pollInterval, fanning out any
// generated signal through the orchestrator. A rejection or infrastructure
// error for one symbol never stops the others.
func runPollLoop(ctx context.Context, logger *zap.Logger, m *metrics.Metrics, pipeline *signalpipeline.Pipeline, orch *orchestrator.Orchestrator, symbols []string, strategy string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	evaluate := func() {
		for _, symbol := range symbols {
			signal, rejection, err := pipeline.Generate(ctx, symbol)
			if err != nil {
				logger.Error("pipeline failed to generate a signal", zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			if rejection != nil {
				m.PipelineRejections.WithLabelValues(symbol, rejection.Gate).Inc()
				logger.Debug("signal rejected", zap.String("symbol", symbol), zap.String("gate", rejection.Gate), zap.String("reason", rejection.Reason))
				continue
			}
			m.SignalsGenerated.WithLabelValues(symbol, string(signal.Direction)).Inc()
			logger.Info("signal generated", zap.String("symbol", symbol), zap.String("direction", string(signal.Direction)))

			result := orch.Execute(ctx, *signal, strategy)
			logger.Info("signal fanned out across accounts",
				zap.String("symbol", symbol),
				zap.Int("traded", len(result.TradedAccounts)),
				zap.Int("skipped", len(result.SkippedAccounts)),
				zap.Int("failed", len(result.FailedAccounts)))
		}
	}

	evaluate()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evaluate()
		}
	}
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zcfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
