package structure

import "github.com/atlas-desktop/trading-backend/pkg/types"

// ChochResult is the output of running the CHoCH state machine over one
// candle window's BOS events.
type ChochResult struct {
	Events   []types.ChochEvent
	Bias     types.Trend
	Anchor   *types.SwingPoint
}

// RunChochMachine processes BOS events in index order and emits CHoCH events
// whenever an opposite-direction BOS breaks the current bias's anchor swing.
// The machine never looks into the future: it only ever consumes BOS events
// and swings with an index less than or equal to the candle it is currently
// processing.
func RunChochMachine(candles []types.Candle, bosEvents []types.BosEvent, swings []types.SwingPoint, strictClose bool) ChochResult {
	bias := types.TrendUnknown
	var anchor *types.SwingPoint
	var lastConfirmedHigh, lastConfirmedLow *types.SwingPoint
	var chochs []types.ChochEvent

	confirmedOfType := func(t types.SwingType) *types.SwingPoint {
		if t == types.SwingHigh {
			return lastConfirmedHigh
		}
		return lastConfirmedLow
	}
	setConfirmed := func(t types.SwingType, s types.SwingPoint) {
		if t == types.SwingHigh {
			lastConfirmedHigh = &s
		} else {
			lastConfirmedLow = &s
		}
	}

	anchorFor := func(bias types.Trend, beforeIndex int) *types.SwingPoint {
		at := anchorTypeFor(bias)
		if c := confirmedOfType(at); c != nil && c.Index < beforeIndex {
			return c
		}
		return mostRecentSwingBefore(swings, at, beforeIndex)
	}

	for _, bos := range bosEvents {
		switch {
		case bias == types.TrendUnknown:
			bias = bos.Direction
			anchor = anchorFor(bias, bos.Index)
			setConfirmed(bos.BrokenSwingType, types.SwingPoint{
				Index: bos.BrokenSwingIndex,
				Type:  bos.BrokenSwingType,
				Price: bos.Level,
			})

		case bos.Direction == bias:
			setConfirmed(bos.BrokenSwingType, types.SwingPoint{
				Index: bos.BrokenSwingIndex,
				Type:  bos.BrokenSwingType,
				Price: bos.Level,
			})

		default:
			if anchor == nil || !breaksAnchor(candles[bos.Index], *anchor, strictClose) {
				continue
			}
			choch := types.ChochEvent{
				Index:            bos.Index,
				FromTrend:        bias,
				ToTrend:          bos.Direction,
				BrokenSwingIndex: anchor.Index,
				BrokenSwingType:  anchor.Type,
				Level:            anchor.Price,
				BosIndex:         bos.Index,
			}
			chochs = append(chochs, choch)
			bias = bos.Direction
			setConfirmed(bos.BrokenSwingType, types.SwingPoint{
				Index: bos.BrokenSwingIndex,
				Type:  bos.BrokenSwingType,
				Price: bos.Level,
			})
			anchor = anchorFor(bias, bos.Index)
		}
	}

	return ChochResult{Events: chochs, Bias: bias, Anchor: anchor}
}

func breaksAnchor(c types.Candle, anchor types.SwingPoint, strictClose bool) bool {
	if anchor.Type == types.SwingHigh {
		v := c.High
		if strictClose {
			v = c.Close
		}
		return v.GreaterThan(anchor.Price)
	}
	v := c.Low
	if strictClose {
		v = c.Close
	}
	return v.LessThan(anchor.Price)
}

// DetectMSB relabels CHoCH events as MSB when the broken swing is a
// structural (3-candle) pivot that also bounds a range containing at least
// two opposing swings — i.e. it breaks a higher-order level, not just a
// local anchor.
func DetectMSB(candles []types.Candle, chochEvents []types.ChochEvent, swings []types.SwingPoint) []types.MsbEvent {
	var msbs []types.MsbEvent
	for _, ch := range chochEvents {
		if !IsStructuralPivot(candles, ch.BrokenSwingIndex) {
			continue
		}
		opposing := 0
		wantType := oppositeSwingType(ch.BrokenSwingType)
		for _, s := range swings {
			if s.Type == wantType && s.Index < ch.BrokenSwingIndex {
				opposing++
			}
		}
		if opposing >= 2 {
			msbs = append(msbs, types.MsbEvent{ChochEvent: ch})
		}
	}
	return msbs
}
