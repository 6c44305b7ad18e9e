package structure

import "github.com/atlas-desktop/trading-backend/pkg/types"

// DetectBOS scans candles for Break of Structure events against the given
// swing list. At most one BOS is recorded per candle: when several swings
// qualify at the same candle, the most-recently broken swing (largest swing
// index) wins. Output is sorted by candle index.
func DetectBOS(candles []types.Candle, swings []types.SwingPoint, swingIndexLookback int, strictClose bool) []types.BosEvent {
	var events []types.BosEvent

	for i := range candles {
		var best *types.SwingPoint
		for si := range swings {
			s := swings[si]
			if s.Index >= i || i-s.Index > swingIndexLookback {
				continue
			}
			if !bosQualifies(s, candles[i], strictClose) {
				continue
			}
			if best == nil || s.Index > best.Index {
				sc := s
				best = &sc
			}
		}
		if best == nil {
			continue
		}

		direction := types.TrendBearish
		if best.Type == types.SwingHigh {
			direction = types.TrendBullish
		}

		events = append(events, types.BosEvent{
			Index:            i,
			Direction:        direction,
			BrokenSwingIndex: best.Index,
			BrokenSwingType:  best.Type,
			Level:            best.Price,
			StrictClose:      strictClose,
		})
	}

	return events
}

func bosQualifies(s types.SwingPoint, c types.Candle, strictClose bool) bool {
	if s.Type == types.SwingHigh {
		v := c.High
		if strictClose {
			v = c.Close
		}
		return v.GreaterThan(s.Price)
	}
	v := c.Low
	if strictClose {
		v = c.Close
	}
	return v.LessThan(s.Price)
}

func oppositeSwingType(t types.SwingType) types.SwingType {
	if t == types.SwingHigh {
		return types.SwingLow
	}
	return types.SwingHigh
}

func oppositeTrend(t types.Trend) types.Trend {
	if t == types.TrendBullish {
		return types.TrendBearish
	}
	if t == types.TrendBearish {
		return types.TrendBullish
	}
	return types.TrendUnknown
}

// anchorTypeFor returns the swing type a CHoCH-anchor must have while the
// machine holds the given bias: the opposite type, since breaking it is what
// flips the bias.
func anchorTypeFor(bias types.Trend) types.SwingType {
	if bias == types.TrendBullish {
		return types.SwingLow
	}
	return types.SwingHigh
}

// mostRecentSwingBefore returns the swing of the given type with the largest
// index strictly less than "before", or nil if none exists.
func mostRecentSwingBefore(swings []types.SwingPoint, swingType types.SwingType, before int) *types.SwingPoint {
	var best *types.SwingPoint
	for i := range swings {
		s := swings[i]
		if s.Type != swingType || s.Index >= before {
			continue
		}
		if best == nil || s.Index > best.Index {
			sc := s
			best = &sc
		}
	}
	return best
}
