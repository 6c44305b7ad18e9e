package zones

import (
	"fmt"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// DisplacementMode controls whether a failed displacement check rejects the
// setup outright (hard) or merely contributes a signed score (soft).
type DisplacementMode int

const (
	DisplacementHard DisplacementMode = iota
	DisplacementSoft
)

// DisplacementResult is the outcome of a displacement check for one candle.
type DisplacementResult struct {
	IsValid bool
	Score   int
	Reasons []string
}

// CheckDisplacement evaluates whether candle i is a displacement candle in
// the given direction.
func CheckDisplacement(candles []types.Candle, i int, direction types.Trend, cfg Config) DisplacementResult {
	if i < 0 || i >= len(candles) {
		return DisplacementResult{Reasons: []string{"index out of range"}}
	}
	c := candles[i]
	atr := ATR(candles, i, cfg.ATRLookbackPeriod)
	tr := TrueRange(c, prevCloseOf(candles, i), i > 0)

	rng := c.Range()
	bodyPct := decimal.Zero
	if !rng.IsZero() {
		bodyPct = c.Body().Div(rng).Mul(decimal.NewFromInt(100))
	}

	var reasons []string
	score := 0

	bodyOK := bodyPct.GreaterThanOrEqual(cfg.StrongBodyMinPct)
	if bodyOK {
		score += 8
		reasons = append(reasons, fmt.Sprintf("body %.1f%% of range", bodyPct.InexactFloat64()))
	}

	atrOK := !atr.IsZero() && tr.GreaterThanOrEqual(atr.Mul(cfg.StrongATRMinMultiple))
	if atrOK {
		score += 7
		reasons = append(reasons, "true range exceeds ATR threshold")
	}

	directionOK := (direction == types.TrendBullish && c.Bullish()) || (direction == types.TrendBearish && c.Bearish())
	if !directionOK {
		score = -score
		reasons = append(reasons, "candle direction does not match trade direction")
	}

	if score > 15 {
		score = 15
	}
	if score < -15 {
		score = -15
	}

	return DisplacementResult{
		IsValid: bodyOK && atrOK && directionOK,
		Score:   score,
		Reasons: reasons,
	}
}

// Outcome applies mode to a displacement result. Hard mode rejects the
// setup outright when the check fails and contributes no score (the
// rejection itself is the signal). Soft mode never rejects; the check's
// signed Score is credited to confluence instead.
func (r DisplacementResult) Outcome(mode DisplacementMode) (pass bool, score int) {
	if mode == DisplacementHard {
		return r.IsValid, 0
	}
	return true, r.Score
}

func prevCloseOf(candles []types.Candle, i int) decimal.Decimal {
	if i == 0 {
		return decimal.Zero
	}
	return candles[i-1].Close
}
