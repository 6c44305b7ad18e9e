// Package types provides shared type definitions for the trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe identifies a candle aggregation period.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
)

// Candle is an immutable OHLCV bar for one symbol/timeframe.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timeframe Timeframe       `json:"timeframe"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

func (c Candle) Bullish() bool { return c.Close.GreaterThan(c.Open) }
func (c Candle) Bearish() bool { return c.Close.LessThan(c.Open) }

// Body returns the absolute candle body size.
func (c Candle) Body() decimal.Decimal {
	return c.Close.Sub(c.Open).Abs()
}

// Range returns the high-low true range of the candle (no previous close).
func (c Candle) Range() decimal.Decimal {
	return c.High.Sub(c.Low)
}

// UpperWick returns the distance from the body top to the high.
func (c Candle) UpperWick() decimal.Decimal {
	top := c.Open
	if c.Close.GreaterThan(top) {
		top = c.Close
	}
	return c.High.Sub(top)
}

// LowerWick returns the distance from the low to the body bottom.
func (c Candle) LowerWick() decimal.Decimal {
	bottom := c.Open
	if c.Close.LessThan(bottom) {
		bottom = c.Close
	}
	return bottom.Sub(c.Low)
}

// SwingType distinguishes swing highs from swing lows.
type SwingType string

const (
	SwingHigh SwingType = "high"
	SwingLow  SwingType = "low"
)

// SwingPoint is a local price extremum derived from a candle sequence.
type SwingPoint struct {
	Index     int             `json:"index"`
	Type      SwingType       `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Trend direction used across bias, BOS and CHoCH.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
	TrendUnknown Trend = "unknown"
)

// BosEvent is a Break of Structure.
type BosEvent struct {
	Index            int             `json:"index"`
	Direction        Trend           `json:"direction"`
	BrokenSwingIndex int             `json:"brokenSwingIndex"`
	BrokenSwingType  SwingType       `json:"brokenSwingType"`
	Level            decimal.Decimal `json:"level"`
	StrictClose      bool            `json:"strictClose"`
}

// ChochEvent is a Change of Character: a BOS that broke the current bias anchor.
type ChochEvent struct {
	Index            int             `json:"index"`
	FromTrend        Trend           `json:"fromTrend"`
	ToTrend          Trend           `json:"toTrend"`
	BrokenSwingIndex int             `json:"brokenSwingIndex"`
	BrokenSwingType  SwingType       `json:"brokenSwingType"`
	Level            decimal.Decimal `json:"level"`
	BosIndex         int             `json:"bosIndex"`
}

// MsbEvent is a Market Structure Break: a CHoCH that also broke a major structural swing.
type MsbEvent struct {
	ChochEvent
}

// OrderBlockType distinguishes demand from supply order blocks.
type OrderBlockType string

const (
	OrderBlockBullish OrderBlockType = "bullish"
	OrderBlockBearish OrderBlockType = "bearish"
)

// OrderBlock is the last opposing candle preceding a directional impulse.
type OrderBlock struct {
	Type            OrderBlockType  `json:"type"`
	High            decimal.Decimal `json:"high"`
	Low             decimal.Decimal `json:"low"`
	Timestamp       time.Time       `json:"timestamp"`
	Timeframe       Timeframe       `json:"timeframe"`
	Mitigated       bool            `json:"mitigated"`
	WickToBodyRatio decimal.Decimal `json:"wickToBodyRatio"`
	VolumeImbalance bool            `json:"volumeImbalance"`
	CandleIndex     int             `json:"candleIndex"`
}

// FVGType distinguishes continuation gaps from reversal gaps.
type FVGType string

const (
	FVGContinuation FVGType = "continuation"
	FVGReversal     FVGType = "reversal"
)

// FVGGrade classifies a fair value gap by size.
type FVGGrade string

const (
	FVGWide   FVGGrade = "wide"
	FVGNarrow FVGGrade = "narrow"
	FVGNested FVGGrade = "nested"
)

// PremiumDiscount is the position relative to the midpoint of a swing range.
type PremiumDiscount string

const (
	Premium  PremiumDiscount = "premium"
	Discount PremiumDiscount = "discount"
	Neutral  PremiumDiscount = "neutral"
)

// FairValueGap is a three-candle price imbalance.
type FairValueGap struct {
	Type            FVGType         `json:"type"`
	Grade           FVGGrade        `json:"grade"`
	High            decimal.Decimal `json:"high"`
	Low             decimal.Decimal `json:"low"`
	Timestamp       time.Time       `json:"timestamp"`
	Timeframe       Timeframe       `json:"timeframe"`
	PremiumDiscount PremiumDiscount `json:"premiumDiscount"`
	Filled          bool            `json:"filled"`
	CandleIndices   [3]int          `json:"candleIndices"`
}

// LiquiditySweepType distinguishes equal-high/low tags from plain sweeps.
type LiquiditySweepType string

const (
	EqualHighs LiquiditySweepType = "EQH"
	EqualLows  LiquiditySweepType = "EQL"
	Sweep      LiquiditySweepType = "sweep"
)

// LiquiditySweep is a wick-violation of a swing level followed by a close back inside.
type LiquiditySweep struct {
	Type      LiquiditySweepType `json:"type"`
	Level     decimal.Decimal    `json:"level"`
	Timestamp time.Time          `json:"timestamp"`
	Confirmed bool               `json:"confirmed"`
	Timeframe Timeframe          `json:"timeframe"`
}

// Direction is the trade side of a signal.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// EntryType is how the broker should interpret the entry price.
type EntryType string

const (
	EntryMarket EntryType = "market"
	EntryLimit  EntryType = "limit"
	EntryStop   EntryType = "stop"
)

// Signal is the signal pipeline's output: a proposed trade with confluence metadata.
type Signal struct {
	ID                string          `json:"id"`
	Symbol            string          `json:"symbol"`
	Direction         Direction       `json:"direction"`
	EntryType         EntryType       `json:"entryType"`
	Entry             decimal.Decimal `json:"entry"`
	StopLoss          decimal.Decimal `json:"stopLoss"`
	TakeProfit        decimal.Decimal `json:"takeProfit"`
	HTFTrend          Trend           `json:"htfTrend"`
	ITFFlow           Trend           `json:"itfFlow"`
	LTFBos            bool            `json:"ltfBOS"`
	PremiumDiscount   PremiumDiscount `json:"premiumDiscount"`
	OBLevels          []OrderBlock    `json:"obLevels"`
	FVGLevels         []FairValueGap  `json:"fvgLevels"`
	SMT               bool            `json:"smt"`
	VolumeImbalance   bool            `json:"volumeImbalance"`
	Session           string          `json:"session"`
	ConfluenceReasons []string        `json:"confluenceReasons"`
	ConfluenceScore   int             `json:"confluenceScore"`
	Timestamp         time.Time       `json:"timestamp"`
	Meta              map[string]any  `json:"meta,omitempty"`
}

// Rejection is a structured, non-exceptional "no signal" outcome from the pipeline.
type Rejection struct {
	Symbol       string   `json:"symbol"`
	Reason       string   `json:"reason"`
	DebugReasons []string `json:"debugReasons,omitempty"`
	Gate         string   `json:"gate"`
}

func (r *Rejection) Error() string { return r.Reason }
