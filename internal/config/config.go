// Package config loads process-wide configuration from an optional
// config.yaml plus environment variables via spf13/viper, and reads it once
// into plain structs threaded explicitly through constructors — no
// package outside this one calls viper directly.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/atlas-desktop/trading-backend/internal/bias"
	"github.com/atlas-desktop/trading-backend/internal/execfilter"
	"github.com/atlas-desktop/trading-backend/internal/orchestrator"
	"github.com/atlas-desktop/trading-backend/internal/signalpipeline"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for the trading engine process.
type Config struct {
	DatabaseURL        string `mapstructure:"database_url"`
	AccountsConfigPath string `mapstructure:"accounts_config_path"`
	LogLevel           string `mapstructure:"log_level"`
	HTTPAddr           string `mapstructure:"http_addr"`

	PerAccountMaxSpreadPips          float64 `mapstructure:"per_account_max_spread_pips"`
	PerAccountMaxSpreadPipsPerSymbol string  `mapstructure:"per_account_max_spread_pips_per_symbol"`
	SLPOIBuffer                      float64 `mapstructure:"sl_poi_buffer"`

	Pipeline     signalpipeline.Config
	Bias         bias.Config
	ExecFilter   execfilter.BaseConfig
	Orchestrator orchestrator.Config
}

// defaults seeds viper before any file/env override is applied, so every
// field has a sane value even with zero configuration present.
func defaults() signalpipeline.Config {
	return signalpipeline.DefaultConfig()
}

// Load builds a Config from (in ascending precedence) built-in defaults, an
// optional YAML file at path, and SMC_/TP_R_MULT/etc. environment variables.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	pipelineDefaults := defaults()
	biasDefaults := bias.DefaultConfig()
	filterDefaults := execfilter.DefaultBaseConfig()
	orchDefaults := orchestrator.DefaultConfig()

	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8090")
	v.SetDefault("accounts_config_path", "accounts.json")
	v.SetDefault("database_url", "")
	v.SetDefault("per_account_max_spread_pips", 3.0)
	v.SetDefault("per_account_max_spread_pips_per_symbol", "")
	v.SetDefault("sl_poi_buffer", 0.0001)

	v.SetDefault("smc_min_htf_candles", pipelineDefaults.MinHTFCandles)
	v.SetDefault("smc_min_itf_candles", pipelineDefaults.MinITFCandles)
	v.SetDefault("smc_min_ltf_candles", pipelineDefaults.MinLTFCandles)
	v.SetDefault("smc_skip_itf_alignment", pipelineDefaults.SkipITFAlignment)
	v.SetDefault("smc_debug_force_minimal_entry", pipelineDefaults.ForceMinimalEntry)
	v.SetDefault("smc_require_ltf_bos", pipelineDefaults.RequireLTFBos)
	v.SetDefault("smc_min_itf_bos_count", pipelineDefaults.MinITFBosCount)
	v.SetDefault("smc_low_allowed_sessions", strings.Join(pipelineDefaults.LowAllowedSessions, ","))
	v.SetDefault("smc_high_allowed_sessions", strings.Join(pipelineDefaults.HighAllowedSessions, ","))
	v.SetDefault("tp_r_mult", pipelineDefaults.TPRMultiple.InexactFloat64())
	v.SetDefault("use_ict_model", pipelineDefaults.UseICTModel)
	v.SetDefault("check_market_hours", pipelineDefaults.CheckMarketHours)
	v.SetDefault("smc_debug", pipelineDefaults.Debug)

	v.SetDefault("max_concurrent_accounts", orchDefaults.MaxConcurrentAccounts)
	v.SetDefault("max_trades_per_day", filterDefaults.MaxTradesPerDay)
	v.SetDefault("cooldown_minutes", filterDefaults.CooldownMinutes)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:                      v.GetString("database_url"),
		AccountsConfigPath:               v.GetString("accounts_config_path"),
		LogLevel:                         v.GetString("log_level"),
		HTTPAddr:                         v.GetString("http_addr"),
		PerAccountMaxSpreadPips:          v.GetFloat64("per_account_max_spread_pips"),
		PerAccountMaxSpreadPipsPerSymbol: v.GetString("per_account_max_spread_pips_per_symbol"),
		SLPOIBuffer:                      v.GetFloat64("sl_poi_buffer"),
		Bias:                             biasDefaults,
		ExecFilter:                       filterDefaults,
		Orchestrator:                     orchestrator.Config{MaxConcurrentAccounts: v.GetInt("max_concurrent_accounts")},
	}

	cfg.Pipeline = pipelineDefaults
	cfg.Pipeline.MinHTFCandles = v.GetInt("smc_min_htf_candles")
	cfg.Pipeline.MinITFCandles = v.GetInt("smc_min_itf_candles")
	cfg.Pipeline.MinLTFCandles = v.GetInt("smc_min_ltf_candles")
	cfg.Pipeline.SkipITFAlignment = v.GetBool("smc_skip_itf_alignment")
	cfg.Pipeline.ForceMinimalEntry = v.GetBool("smc_debug_force_minimal_entry")
	cfg.Pipeline.RequireLTFBos = v.GetBool("smc_require_ltf_bos")
	cfg.Pipeline.MinITFBosCount = v.GetInt("smc_min_itf_bos_count")
	cfg.Pipeline.LowAllowedSessions = splitCSV(v.GetString("smc_low_allowed_sessions"))
	cfg.Pipeline.HighAllowedSessions = splitCSV(v.GetString("smc_high_allowed_sessions"))
	cfg.Pipeline.TPRMultiple = decimal.NewFromFloat(v.GetFloat64("tp_r_mult"))
	cfg.Pipeline.UseICTModel = v.GetBool("use_ict_model")
	cfg.Bias.UseICTModel = cfg.Pipeline.UseICTModel
	cfg.Pipeline.CheckMarketHours = v.GetBool("check_market_hours")
	cfg.Pipeline.Debug = v.GetBool("smc_debug")

	cfg.ExecFilter.MaxTradesPerDay = v.GetInt("max_trades_per_day")
	cfg.ExecFilter.CooldownMinutes = v.GetInt("cooldown_minutes")

	return cfg, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
