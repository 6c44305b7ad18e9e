// Package structure detects swings, BOS, CHoCH and MSB events from a candle
// sequence. Every function here is a pure function of its candle window plus
// configuration: nothing is cached across calls, so re-running over the same
// window always reproduces the same events in the same order.
package structure

import (
	"sort"

	"github.com/atlas-desktop/trading-backend/pkg/types"
)

// SwingMode selects the pivot rule used by DetectSwings.
type SwingMode int

const (
	// SwingStructural is the default 3-consecutive-candle pivot.
	SwingStructural SwingMode = iota
	// SwingFractal is a pivotLeft/pivotRight bars-on-each-side pivot.
	SwingFractal
)

// DetectSwings returns swing points sorted by candle index.
func DetectSwings(candles []types.Candle, mode SwingMode, pivotLeft, pivotRight int) []types.SwingPoint {
	left, right := 1, 1
	if mode == SwingFractal {
		left, right = pivotLeft, pivotRight
	}
	if left < 1 {
		left = 1
	}
	if right < 1 {
		right = 1
	}

	var swings []types.SwingPoint
	for i := left; i < len(candles)-right; i++ {
		if isPivotHigh(candles, i, left, right) {
			swings = append(swings, types.SwingPoint{
				Index:     i,
				Type:      types.SwingHigh,
				Price:     candles[i].High,
				Timestamp: candles[i].EndTime,
			})
		}
		if isPivotLow(candles, i, left, right) {
			swings = append(swings, types.SwingPoint{
				Index:     i,
				Type:      types.SwingLow,
				Price:     candles[i].Low,
				Timestamp: candles[i].EndTime,
			})
		}
	}

	sort.SliceStable(swings, func(i, j int) bool {
		if swings[i].Index != swings[j].Index {
			return swings[i].Index < swings[j].Index
		}
		return swings[i].Price.LessThanOrEqual(swings[j].Price)
	})

	return swings
}

func isPivotHigh(candles []types.Candle, i, left, right int) bool {
	pivot := candles[i].High
	for j := i - left; j < i; j++ {
		if !pivot.GreaterThan(candles[j].High) {
			return false
		}
	}
	for j := i + 1; j <= i+right; j++ {
		if !pivot.GreaterThan(candles[j].High) {
			return false
		}
	}
	return true
}

func isPivotLow(candles []types.Candle, i, left, right int) bool {
	pivot := candles[i].Low
	for j := i - left; j < i; j++ {
		if !pivot.LessThan(candles[j].Low) {
			return false
		}
	}
	for j := i + 1; j <= i+right; j++ {
		if !pivot.LessThan(candles[j].Low) {
			return false
		}
	}
	return true
}

// IsStructuralPivot reports whether candle i is a 3-candle structural pivot
// (high or low), independent of the swing mode used to detect it. MSB
// detection needs this regardless of which mode produced the swing list.
func IsStructuralPivot(candles []types.Candle, i int) bool {
	if i < 1 || i >= len(candles)-1 {
		return false
	}
	return isPivotHigh(candles, i, 1, 1) || isPivotLow(candles, i, 1, 1)
}
