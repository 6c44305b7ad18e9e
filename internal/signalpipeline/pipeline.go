package signalpipeline

import (
	"context"
	"fmt"

	"github.com/atlas-desktop/trading-backend/internal/bias"
	"github.com/atlas-desktop/trading-backend/internal/structure"
	"github.com/atlas-desktop/trading-backend/internal/zones"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CandleSource supplies the H4/M15/M1 candle windows a symbol needs. It is
// satisfied by *candles.Store; kept as an interface so the pipeline never
// depends on how candles are loaded or cached.
type CandleSource interface {
	LoadLatest(ctx context.Context, symbol string, tf types.Timeframe, n int) ([]types.Candle, error)
}

// SessionResolver reports the current trading session and whether the
// market is open, resolved in the America/New_York time zone.
type SessionResolver interface {
	CurrentSession() string
	IsMarketOpen() bool
}

// Pipeline runs the 10-step SMC/ICT gate sequence for a single symbol.
type Pipeline struct {
	logger   *zap.Logger
	candles  CandleSource
	sessions SessionResolver
	cfg      Config
	biasCfg  bias.Config
	zoneCfg  zones.Config
}

// New constructs a Pipeline from its dependencies and tunables.
func New(logger *zap.Logger, candles CandleSource, sessions SessionResolver, cfg Config, biasCfg bias.Config, zoneCfg zones.Config) *Pipeline {
	return &Pipeline{
		logger:   logger.Named("signal-pipeline"),
		candles:  candles,
		sessions: sessions,
		cfg:      cfg,
		biasCfg:  biasCfg,
		zoneCfg:  zoneCfg,
	}
}

// Generate runs the gated pipeline for symbol and returns either a Signal or
// a structured Rejection. It never returns a bare error for an ordinary "no
// setup" outcome — only for genuine infrastructure failure (candle load).
func (p *Pipeline) Generate(ctx context.Context, symbol string) (*types.Signal, *types.Rejection, error) {
	conf := &confluence{}

	// 1. Fetch H4, M15, M1 candles; fail if below per-timeframe minimums.
	h4, err := p.candles.LoadLatest(ctx, symbol, types.H4, p.cfg.MinHTFCandles*3)
	if err != nil {
		return nil, nil, fmt.Errorf("loading H4 candles for %s: %w", symbol, err)
	}
	m15, err := p.candles.LoadLatest(ctx, symbol, types.M15, p.cfg.MinITFCandles*3)
	if err != nil {
		return nil, nil, fmt.Errorf("loading M15 candles for %s: %w", symbol, err)
	}
	m1, err := p.candles.LoadLatest(ctx, symbol, types.M1, p.cfg.MinLTFCandles*3)
	if err != nil {
		return nil, nil, fmt.Errorf("loading M1 candles for %s: %w", symbol, err)
	}
	if len(h4) < p.cfg.MinHTFCandles {
		return nil, reject(symbol, "gate-1-candles", "insufficient H4 candles"), nil
	}
	if len(m15) < p.cfg.MinITFCandles {
		return nil, reject(symbol, "gate-1-candles", "insufficient M15 candles"), nil
	}
	if len(m1) < p.cfg.MinLTFCandles {
		return nil, reject(symbol, "gate-1-candles", "insufficient M1 candles"), nil
	}

	// 2. Compute HTF bias; reject if neutral with no PD fallback.
	htf := bias.ComputeH4Bias(h4, symbol, p.biasCfg, p.zoneCfg)
	if htf.Trend == types.TrendNeutral {
		return nil, reject(symbol, "gate-2-htf-bias", "HTF bias is neutral with no premium/discount fallback"), nil
	}
	conf.credit(10, "HTF bias: "+string(htf.Trend))

	// 3. Reject if HTF formal trend is sideways.
	if bias.IsSideways(h4, p.biasCfg) {
		return nil, reject(symbol, "gate-3-sideways", "HTF formal trend is sideways"), nil
	}

	// 4. Trend strength / volatility ratio gate.
	trendStrength, volatilityRatio := trendAndVolatility(m15, p.zoneCfg)
	if trendStrength.LessThan(p.cfg.MinTrendStrengthPct) {
		return nil, reject(symbol, "gate-4-strength", "15m trend strength below minimum"), nil
	}
	if volatilityRatio.LessThan(p.cfg.MinVolatilityRatioPct) {
		return nil, reject(symbol, "gate-4-strength", "recent volatility ratio below minimum"), nil
	}

	// 5. Derive ITF bias; require alignment with HTF unless configured to skip.
	itf := bias.ComputeH4Bias(m15, symbol, p.biasCfg, p.zoneCfg)
	itfAligned := itf.Trend == htf.Trend
	if !itfAligned && !p.cfg.SkipITFAlignment {
		return nil, reject(symbol, "gate-5-itf-alignment", "ITF bias does not align with HTF bias"), nil
	}
	if itfAligned {
		conf.credit(10, "ITF aligned with HTF")
	}

	// 6. Compute M15 setup zone (or a synthetic zone in minimal-entry debug mode).
	zone := bias.ComputeM15SetupZone(m15, htf.Trend, symbol, p.biasCfg, p.zoneCfg)
	if !zone.Valid && p.cfg.ForceMinimalEntry {
		zone = syntheticZone(m15[len(m15)-1].Close, p.biasCfg)
	}
	if !zone.Valid {
		return nil, reject(symbol, "gate-6-setup-zone", firstOr(zone.Reasons, "no valid M15 setup zone")), nil
	}
	conf.credit(10, "M15 setup zone")

	// 7. Compute M1 execution; reject if entry refinement fails.
	entry := bias.ComputeM1Entry(m1, zone, htf.Trend, symbol, p.biasCfg, p.zoneCfg)
	if !entry.Valid {
		return nil, reject(symbol, "gate-7-m1-entry", firstOr(entry.Reasons, "M1 entry did not qualify")), nil
	}
	conf.credit(10, "M1 CHoCH")

	stopTP := bias.ComputeStopTP(m15, entry.Entry, htf.Trend, symbol, p.biasCfg)
	if !stopTP.Valid {
		return nil, reject(symbol, "gate-7-m1-entry", firstOr(stopTP.Reasons, "could not compute stop loss / take profit")), nil
	}

	// 8. Setup gate — hard filters evaluated before scoring.
	disp, rej := p.setupGate(symbol, h4, m15, htf.Trend, entry.Entry)
	if rej != nil {
		return nil, rej, nil
	}

	// 9. Session filter.
	session := p.sessions.CurrentSession()
	if p.cfg.CheckMarketHours && !p.sessions.IsMarketOpen() {
		return nil, reject(symbol, "gate-9-session", "market is closed"), nil
	}
	if !sessionAllowed(session, p.allowedSessions(symbol)) {
		return nil, reject(symbol, "gate-9-session", fmt.Sprintf("session %q not in symbol allow-list", session)), nil
	}
	conf.credit(5, "Session valid")

	// 10. Build reasons, score, and assemble the signal.
	direction := types.Buy
	if htf.Trend == types.TrendBearish {
		direction = types.Sell
	}

	pd := zones.ComputePremiumDiscount(m15, symbol, entry.Entry, p.zoneCfg)
	conf.credit(10, "PD base")
	pdScore := pdAlignmentScore(direction, pd.Zone)
	conf.signed(pdScore, "PD alignment")

	adrScore := computeADRScore(h4)
	conf.signed(adrScore, "ADR score")
	conf.credit(10, "ADR base")

	if pass, dispScore := disp.Outcome(zones.DisplacementSoft); pass {
		conf.signed(dispScore, "Displacement")
	}

	itfObs := zones.DetectOrderBlocks(m15, types.M15, p.zoneCfg)
	if len(itfObs) > 0 {
		conf.credit(10, "ITF order block present")
	}
	htfObs := zones.DetectOrderBlocks(h4, types.H4, p.zoneCfg)
	if len(htfObs) > 0 {
		conf.credit(10, "HTF order block present")
	}

	fvgs := zones.DetectFairValueGaps(m15, types.M15, zones.MinGapSizeFor(symbol))
	conf.credit(5, "FVG resolved")
	_ = fvgs

	conf.credit(5, "Entry refined")

	signal := &types.Signal{
		ID:                uuid.NewString(),
		Symbol:             symbol,
		Direction:          direction,
		EntryType:          entry.EntryType,
		Entry:              entry.Entry,
		StopLoss:           stopTP.StopLoss,
		TakeProfit:         stopTP.TakeProfit,
		HTFTrend:           htf.Trend,
		ITFFlow:            itf.Trend,
		LTFBos:             true,
		PremiumDiscount:    pd.Zone,
		OBLevels:           itfObs,
		FVGLevels:          fvgs,
		Session:            session,
		ConfluenceReasons:  conf.reasons,
		ConfluenceScore:    conf.total(),
		Timestamp:          m1[len(m1)-1].EndTime,
	}

	return signal, nil, nil
}

func reject(symbol, gate, reason string) *types.Rejection {
	return &types.Rejection{Symbol: symbol, Gate: gate, Reason: reason}
}

func firstOr(reasons []string, fallback string) string {
	if len(reasons) > 0 {
		return reasons[0]
	}
	return fallback
}

func syntheticZone(price decimal.Decimal, cfg bias.Config) bias.SetupZone {
	band := price.Mul(decimal.NewFromFloat(0.001))
	return bias.SetupZone{
		Valid:  true,
		High:   price.Add(band),
		Low:    price.Sub(band),
		Source: "synthetic",
	}
}

func trendAndVolatility(candles []types.Candle, zcfg zones.Config) (decimal.Decimal, decimal.Decimal) {
	if len(candles) < 2 {
		return decimal.Zero, decimal.Zero
	}
	swings := structure.DetectSwings(candles, structure.SwingStructural, 0, 0)
	bosEvents := structure.DetectBOS(candles, swings, 20, true)

	directional := 0
	for range bosEvents {
		directional++
	}
	strength := decimal.NewFromInt(int64(directional * 20))
	if strength.GreaterThan(decimal.NewFromInt(100)) {
		strength = decimal.NewFromInt(100)
	}

	last := len(candles) - 1
	recentATR := zones.ATR(candles, last, zcfg.ATRLookbackPeriod)
	longATR := zones.ATR(candles, last, zcfg.ATRLookbackPeriod*4)
	ratio := decimal.NewFromInt(100)
	if !longATR.IsZero() {
		ratio = recentATR.Div(longATR).Mul(decimal.NewFromInt(100))
	}
	return strength, ratio
}

// computeADRScore compares today's H4 range-so-far against the average
// daily range of the preceding days in the window, returning a signed
// confluence contribution in [-15, +10]: favorable when little of the day's
// typical range has been used, unfavorable when today has already moved far
// beyond its average.
func computeADRScore(h4 []types.Candle) int {
	days := groupByDay(h4)
	if len(days) < 2 {
		return 0
	}
	today := days[len(days)-1]
	priorDays := days[:len(days)-1]

	sum := decimal.Zero
	for _, d := range priorDays {
		sum = sum.Add(dayRange(d))
	}
	adr := sum.Div(decimal.NewFromInt(int64(len(priorDays))))
	if adr.IsZero() {
		return 0
	}

	usedPct := dayRange(today).Div(adr).Mul(decimal.NewFromInt(100))
	switch {
	case usedPct.LessThan(decimal.NewFromInt(50)):
		return 10
	case usedPct.LessThan(decimal.NewFromInt(90)):
		return 0
	case usedPct.LessThan(decimal.NewFromInt(150)):
		return -8
	default:
		return -15
	}
}

// groupByDay splits a chronologically ordered candle window into
// per-calendar-day (UTC) slices.
func groupByDay(candles []types.Candle) [][]types.Candle {
	var days [][]types.Candle
	var cur []types.Candle
	curYear, curDay := 0, 0
	for i, c := range candles {
		t := c.StartTime.UTC()
		y, d := t.Year(), t.YearDay()
		if i == 0 {
			curYear, curDay = y, d
		} else if y != curYear || d != curDay {
			days = append(days, cur)
			cur = nil
			curYear, curDay = y, d
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		days = append(days, cur)
	}
	return days
}

func dayRange(candles []types.Candle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	high, low := candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		if c.High.GreaterThan(high) {
			high = c.High
		}
		if c.Low.LessThan(low) {
			low = c.Low
		}
	}
	return high.Sub(low)
}

func pdAlignmentScore(direction types.Direction, zone types.PremiumDiscount) int {
	switch {
	case direction == types.Buy && zone == types.Discount:
		return 15
	case direction == types.Sell && zone == types.Premium:
		return 15
	case zone == types.Neutral:
		return 0
	default:
		return -10
	}
}

func sessionAllowed(session string, allowed []string) bool {
	for _, a := range allowed {
		if a == session {
			return true
		}
	}
	return false
}

func (p *Pipeline) allowedSessions(symbol string) []string {
	if p.zoneCfg.VolatileSymbols[symbol] {
		return p.cfg.HighAllowedSessions
	}
	return p.cfg.LowAllowedSessions
}

// setupGate runs the five hard pre-scoring checks of the setup gate. It
// returns the displacement result alongside any rejection so the caller can
// credit its signed score to confluence once the gate passes.
func (p *Pipeline) setupGate(symbol string, h4, m15 []types.Candle, direction types.Trend, entry decimal.Decimal) (zones.DisplacementResult, *types.Rejection) {
	swings := structure.DetectSwings(m15, structure.SwingStructural, 0, 0)
	sweeps := zones.DetectLiquiditySweeps(m15, swings, types.M15, p.zoneCfg)
	if len(sweeps) == 0 {
		return zones.DisplacementResult{}, reject(symbol, "gate-8-setup", "no valid liquidity sweep")
	}

	last := len(m15) - 1
	disp := zones.CheckDisplacement(m15, last, direction, p.zoneCfg)
	if pass, _ := disp.Outcome(p.cfg.DisplacementMode); !pass {
		return disp, reject(symbol, "gate-8-setup", firstOr(disp.Reasons, "displacement check failed"))
	}

	pd := zones.ComputePremiumDiscount(m15, symbol, entry, p.zoneCfg)
	if direction == types.TrendBullish && pd.Zone != types.Discount {
		return disp, reject(symbol, "gate-8-setup", "premium/discount enforcement: buy requires discount")
	}
	if direction == types.TrendBearish && pd.Zone != types.Premium {
		return disp, reject(symbol, "gate-8-setup", "premium/discount enforcement: sell requires premium")
	}

	bosEvents := structure.DetectBOS(m15, swings, p.biasCfg.SwingIndexLookback, p.biasCfg.StrictClose)
	atr := zones.ATR(m15, last, p.zoneCfg.ATRLookbackPeriod)
	strong := false
	for _, b := range bosEvents {
		dist := m15[b.Index].Close.Sub(b.Level).Abs()
		if !atr.IsZero() && dist.GreaterThanOrEqual(atr.Mul(p.cfg.MinBOSStrengthATR)) {
			strong = true
		}
	}
	if !strong {
		return disp, reject(symbol, "gate-8-setup", "BOS strength below minimum")
	}

	// Relaxed (non-ICT) mode skips the FVG-inside-order-block check.
	if !p.cfg.UseICTModel {
		return disp, nil
	}

	wantOBType := types.OrderBlockBullish
	if direction == types.TrendBearish {
		wantOBType = types.OrderBlockBearish
	}
	obs := zones.DetectOrderBlocks(m15, types.M15, p.zoneCfg)
	var chosenOB *types.OrderBlock
	for i := len(obs) - 1; i >= 0; i-- {
		if obs[i].Type == wantOBType && !obs[i].Mitigated {
			chosenOB = &obs[i]
			break
		}
	}
	if chosenOB == nil {
		return disp, reject(symbol, "gate-8-setup", "no unmitigated order block to select an FVG against")
	}

	fvgs := zones.DetectFairValueGaps(m15, types.M15, zones.MinGapSizeFor(symbol))
	found := false
	for _, f := range fvgs {
		gap := f.High.Sub(f.Low)
		insideOB := f.Low.GreaterThanOrEqual(chosenOB.Low) && f.High.LessThanOrEqual(chosenOB.High)
		if insideOB && !atr.IsZero() && gap.GreaterThanOrEqual(atr.Mul(p.cfg.MinFVGGapATRMultiple)) {
			found = true
		}
	}
	if !found {
		return disp, reject(symbol, "gate-8-setup", "no qualifying FVG inside the chosen order block")
	}

	return disp, nil
}
