// Package signalpipeline wires structure, zone and bias services together
// into the linear gated pipeline that turns a symbol's candle windows into a
// Signal or a structured Rejection.
package signalpipeline

import (
	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/shopspring/decimal"
)

// Config holds the pipeline-level tunables, normally bound from environment
// variables at process startup and threaded through explicitly rather than
// read from globals mid-pipeline.
type Config struct {
	MinHTFCandles       int
	MinITFCandles       int
	MinLTFCandles       int
	SkipITFAlignment    bool
	ForceMinimalEntry   bool
	RequireLTFBos       bool
	MinITFBosCount      int
	LowAllowedSessions  []string
	HighAllowedSessions []string
	TPRMultiple         decimal.Decimal
	UseICTModel         bool
	CheckMarketHours    bool
	Debug               bool

	MinTrendStrengthPct   decimal.Decimal
	MinVolatilityRatioPct decimal.Decimal
	MinBOSStrengthATR     decimal.Decimal
	MinSweepATRMultiple   decimal.Decimal
	MinFVGGapATRMultiple  decimal.Decimal
	DisplacementTRMultiple decimal.Decimal
	DisplacementBodyPct   decimal.Decimal
	DisplacementMode       zones.DisplacementMode
}

// DefaultConfig returns the documented defaults for the gates.
func DefaultConfig() Config {
	return Config{
		MinHTFCandles:          20,
		MinITFCandles:          20,
		MinLTFCandles:          20,
		SkipITFAlignment:       false,
		ForceMinimalEntry:      false,
		RequireLTFBos:          false,
		MinITFBosCount:         1,
		LowAllowedSessions:     []string{"london", "newyork"},
		HighAllowedSessions:    []string{"london", "newyork", "asian"},
		TPRMultiple:            decimal.NewFromFloat(3.0),
		UseICTModel:            true,
		CheckMarketHours:       true,
		MinTrendStrengthPct:    decimal.NewFromFloat(35),
		MinVolatilityRatioPct:  decimal.NewFromFloat(25),
		MinBOSStrengthATR:      decimal.NewFromFloat(0.3),
		MinSweepATRMultiple:    decimal.NewFromFloat(0.5),
		MinFVGGapATRMultiple:   decimal.NewFromFloat(0.3),
		DisplacementTRMultiple: decimal.NewFromFloat(1.2),
		DisplacementBodyPct:    decimal.NewFromFloat(55),
		DisplacementMode:       zones.DisplacementHard,
	}
}
