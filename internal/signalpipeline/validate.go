package signalpipeline

import (
	"fmt"

	"github.com/atlas-desktop/trading-backend/pkg/types"
)

// ValidateSignal checks a fully-assembled signal against the invariants the
// pipeline promises: correct stop/entry/target ordering and a minimum
// risk/reward floor.
func ValidateSignal(signal *types.Signal, minRRFloor float64) error {
	if signal == nil {
		return fmt.Errorf("signal is nil")
	}
	if signal.Symbol == "" {
		return fmt.Errorf("signal missing symbol")
	}

	switch signal.Direction {
	case types.Buy:
		if !signal.StopLoss.LessThan(signal.Entry) {
			return fmt.Errorf("stop loss must be below entry for buy")
		}
		if !signal.Entry.LessThan(signal.TakeProfit) {
			return fmt.Errorf("take profit must be above entry for buy")
		}
	case types.Sell:
		if !signal.TakeProfit.LessThan(signal.Entry) {
			return fmt.Errorf("take profit must be below entry for sell")
		}
		if !signal.Entry.LessThan(signal.StopLoss) {
			return fmt.Errorf("stop loss must be above entry for sell")
		}
	default:
		return fmt.Errorf("signal has no actionable direction")
	}

	risk := signal.Entry.Sub(signal.StopLoss).Abs()
	reward := signal.TakeProfit.Sub(signal.Entry).Abs()
	if risk.IsZero() {
		return fmt.Errorf("signal has zero risk distance")
	}
	rr := reward.Div(risk).InexactFloat64()
	if rr < minRRFloor {
		return fmt.Errorf("risk/reward %.2f below floor %.2f", rr, minRRFloor)
	}

	if signal.ConfluenceScore < 0 || signal.ConfluenceScore > 100 {
		return fmt.Errorf("confluence score %d out of range", signal.ConfluenceScore)
	}

	return nil
}
