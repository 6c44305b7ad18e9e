// Package risk provides the Per-Account Risk Service (C7): a first-failure
// gate over an account's daily loss, trade count and exposure limits, plus
// the lot-sizing formula that turns a stop-loss distance into a broker lot.
package risk

import (
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Decision is the outcome of a pre-trade risk check.
type Decision struct {
	Allowed             bool
	Reason              string
	AdjustedRiskPercent decimal.Decimal
}

// Service evaluates CanTakeNewTrade and CalculateLotSize against a single
// account's static risk config and its freshly-read TradingContext. It holds
// no per-account state of its own — equity, PnL and trade counts are read on
// demand by the caller (normally from internal/persistence) and passed in.
type Service struct {
	logger *zap.Logger
}

// New constructs a risk Service.
func New(logger *zap.Logger) *Service {
	return &Service{logger: logger.Named("risk")}
}

// CanTakeNewTrade runs the first-failure gate sequence from the spec. The
// reason string is returned verbatim on failure; profileRiskOverride, if
// non-nil, replaces the account's configured risk percent before the
// guardrail adjustment is applied.
func (s *Service) CanTakeNewTrade(account types.AccountInfo, ctx types.TradingContext, profileRiskOverride *decimal.Decimal) Decision {
	cfg := account.Risk

	if !cfg.MaxDailyLoss.IsZero() && ctx.TodayRealizedPnL.LessThanOrEqual(cfg.MaxDailyLoss.Neg()) {
		return Decision{Reason: "Daily loss limit reached: today's realized PnL has hit or exceeded the configured maximum"}
	}
	if cfg.MaxConcurrentTrades > 0 && ctx.ConcurrentTrades >= cfg.MaxConcurrentTrades {
		return Decision{Reason: "Maximum concurrent trades reached"}
	}
	if cfg.MaxDailyTrades > 0 && ctx.TradesTakenToday >= cfg.MaxDailyTrades {
		return Decision{Reason: "Maximum daily trades reached"}
	}
	if !cfg.MaxDailyRisk.IsZero() && ctx.CurrentExposure.GreaterThanOrEqual(cfg.MaxDailyRisk) {
		return Decision{Reason: "Current exposure has reached the maximum daily risk budget"}
	}
	if !cfg.MaxExposure.IsZero() && ctx.CurrentExposure.GreaterThanOrEqual(cfg.MaxExposure) {
		return Decision{Reason: "Current exposure has reached the account's maximum exposure"}
	}
	if ctx.GuardrailMode == types.GuardrailBlocked {
		return Decision{Reason: "Guardrail mode is blocked"}
	}

	riskPercent := cfg.RiskPercent
	if profileRiskOverride != nil {
		riskPercent = *profileRiskOverride
	}
	if ctx.GuardrailMode == types.GuardrailReduced {
		riskPercent = riskPercent.Mul(decimal.NewFromFloat(0.5))
	}

	return Decision{Allowed: true, AdjustedRiskPercent: riskPercent}
}

// CalculateLotSize converts monetary risk into a broker lot size, rounded to
// two decimals and clamped up to the symbol's minimum lot.
func (s *Service) CalculateLotSize(account types.AccountInfo, ctx types.TradingContext, stopLossPips decimal.Decimal, currentPrice decimal.Decimal, symbol string, profileRiskOverride *decimal.Decimal) decimal.Decimal {
	riskPercent := account.Risk.RiskPercent
	if profileRiskOverride != nil {
		riskPercent = *profileRiskOverride
	}
	if ctx.GuardrailMode == types.GuardrailReduced {
		riskPercent = riskPercent.Mul(decimal.NewFromFloat(0.5))
	}

	riskAmount := riskPercent.Div(decimal.NewFromInt(100)).Mul(ctx.Equity)
	if stopLossPips.IsZero() {
		return decimal.Zero
	}

	spec := symbolSpecFor(symbol)

	var lot decimal.Decimal
	if spec.IsIndex {
		lot = riskAmount.Div(stopLossPips.Mul(spec.PointValuePerLot))
	} else {
		lot = riskAmount.Div(stopLossPips.Mul(spec.PipValue).Mul(spec.ContractSize))
	}

	lot = lot.Round(2)
	if lot.LessThan(spec.MinLot) {
		lot = spec.MinLot
	}

	s.logger.Debug("calculated lot size",
		zap.String("accountId", account.ID),
		zap.String("symbol", symbol),
		zap.String("riskAmount", riskAmount.String()),
		zap.String("lot", lot.String()))

	return lot
}

// symbolSpec carries the per-symbol constants the lot-sizing formula needs.
type symbolSpec struct {
	IsIndex          bool
	PipValue         decimal.Decimal
	ContractSize     decimal.Decimal
	PointValuePerLot decimal.Decimal
	MinLot           decimal.Decimal
}

// symbolSpecFor returns the broker's contract constants for a symbol. US30
// is modeled as an index (point value, not pip value); XAUUSD and FX pairs
// use pip value times contract size, matching §4.6/§8 scenario S6.
func symbolSpecFor(symbol string) symbolSpec {
	switch symbol {
	case "US30":
		return symbolSpec{
			IsIndex:          true,
			PointValuePerLot: decimal.NewFromFloat(1.0),
			MinLot:           decimal.NewFromFloat(0.1),
		}
	case "XAUUSD":
		return symbolSpec{
			PipValue:     decimal.NewFromFloat(0.1),
			ContractSize: decimal.NewFromFloat(100),
			MinLot:       decimal.NewFromFloat(0.01),
		}
	default:
		return symbolSpec{
			PipValue:     decimal.NewFromFloat(10),
			ContractSize: decimal.NewFromFloat(1),
			MinLot:       decimal.NewFromFloat(0.01),
		}
	}
}
