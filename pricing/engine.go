// Package pricing discounts bond cash flows against the zero-coupon yield
// curve and runs the full valuation pipeline: schedule, pool model,
// back-fill, allocation, waterfall, coupons, pricing modes and the hedge
// swap.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/curve"
	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/marketdata"
	"github.com/meenmo/mbslib/pool"
	"github.com/meenmo/mbslib/schedule"
	"github.com/meenmo/mbslib/utils"
)

// Engine wires the data sources and the loan-level model into a pricing
// pipeline. A zero Progress, Log or Config falls back to no-op progress,
// the default logger and DefaultConfig.
type Engine struct {
	Bonds  marketdata.BondTermsSource
	Curves marketdata.CurveSource
	Macro  marketdata.MacroDataSource
	Model  pool.Model

	Progress marketdata.ProgressSink
	Log      *slog.Logger
	Config   Config
}

// Request scopes one pricing run.
type Request struct {
	// RunID tags progress notifications; free-form.
	RunID string

	BondID      string
	PricingDate time.Time

	// Params must set exactly one pricing parameter.
	Params bond.ModeParams

	// CPR/CDR override the pool model's assumptions when non-nil (percent
	// per annum).
	CPR *float64
	CDR *float64

	// KeyRatePath, when non-empty, replaces every key-rate forecast source.
	KeyRatePath []keyrate.Point

	// IFRS switches to reporting-date semantics: the pricing date snaps to
	// month end, only data known by it is used, defaults are off and the
	// hedge swap is valued.
	IFRS bool

	// CouponRounding rounds per-bond coupons to kopecks.
	CouponRounding bool

	// PoolReportDate requests a specific pool data cut; the engine warns and
	// substitutes the nearest one if the cut does not exist.
	PoolReportDate *time.Time
}

// Run executes the valuation pipeline for one bond.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	e.notify(req.RunID, 0)
	cfg := e.cfg()
	log := e.logger().With("bond", req.BondID)

	mode, err := bond.ParsePricingMode(req.Params)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", req.BondID, err)
	}

	data, err := e.Bonds.Get(ctx, req.BondID)
	if err != nil {
		return nil, fmt.Errorf("Run: loading %s: %w", req.BondID, err)
	}
	terms := data.Terms
	if req.CouponRounding {
		terms.CouponRounding = true
	}

	pricingDate := utils.Date(req.PricingDate.Year(), req.PricingDate.Month(), req.PricingDate.Day())
	if req.IFRS {
		pricingDate = utils.MonthEnd(pricingDate)
	}
	if pricingDate.Before(terms.IssueDate) || !pricingDate.Before(terms.ActualRedemptionDate) {
		return nil, fmt.Errorf("Run: %s: pricing date %s outside the issue's lifetime: %w",
			terms.ISIN, pricingDate.Format("2006-01-02"), bond.ErrValidation)
	}
	if err := checkModeCompatible(mode, terms, pricingDate); err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}
	if mode.Kind() == bond.ModeCouponRate {
		// Issuance pricing supplies the coupon rate as a parameter.
		r := mode.Value()
		terms.FixedCouponRate = &r
	}
	e.notify(req.RunID, 5)

	cp, err := e.Curves.Get(ctx, pricingDate)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: curve at %s: %w", terms.ISIN, pricingDate.Format("2006-01-02"), err)
	}

	macro, err := e.Macro.Get(ctx, pricingDate)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: macro data: %w", terms.ISIN, err)
	}
	smoothed := macro.SmoothedForecast
	if len(smoothed) == 0 {
		smoothed = macro.Forecast
	}
	blend, err := keyrate.Blend(keyrate.BlendInput{
		AsOf:             pricingDate,
		Meetings:         macro.Meetings,
		SmoothedForecast: smoothed,
		SwapPath:         macro.SwapPath,
		SwapDate:         macro.SwapDate,
		UserPath:         req.KeyRatePath,
	})
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}
	monthly, err := keyrate.MonthlyAverage(blend.Path,
		utils.BeginningOfMonth(terms.DeliveryDate), terms.LegalRedemptionDate)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}
	refi := macro.RefiModel.Project(monthly, macro.CurrentRefiDate, macro.CurrentRefiRate)
	e.notify(req.RunID, 15)

	sched, err := schedule.Build(terms.IssueDate, terms.DeliveryDate, terms.FirstCouponDate,
		terms.LegalRedemptionDate, terms.CouponPeriodMonths)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}

	reports := knownReports(data.InvestorReports, pricingDate, req.IFRS)
	firstModelCoupon := terms.FirstCouponDate
	if len(reports) > 0 {
		next, ok := sched.NextCoupon(reports[len(reports)-1].CouponDate)
		if !ok {
			return nil, fmt.Errorf("Run: %s: investor reports extend past the schedule: %w",
				terms.ISIN, bond.ErrValidation)
		}
		firstModelCoupon = next
	}

	snap, err := pickSnapshot(data.PoolSnapshots, req.PoolReportDate, pricingDate, req.IFRS, log)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}
	e.notify(req.RunID, 25)

	cdrOverride := req.CDR
	if req.IFRS {
		zero := 0.0
		cdrOverride = &zero
	}
	base := pool.ModelRequest{
		KeyRates:         blend.Path,
		RefinancingRates: refi,
		SCurves:          data.SCurves,
		CPR:              req.CPR,
		CDR:              cdrOverride,
		Reinvestment:     terms.ReinvestmentFlag,
	}
	mreq := base
	mreq.ReportDate = snap.ReportDate
	res, err := e.Model.Run(ctx, mreq)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: pool model: %w", terms.ISIN, err)
	}
	e.notify(req.RunID, 45)

	prevCoupon, ok := sched.PrevCoupon(pricingDate)
	if !ok {
		prevCoupon = firstModelCoupon
	}
	table, dailyFlows, err := pool.Backfill(ctx, pool.BackfillInput{
		Schedule:         sched,
		Model:            e.Model,
		Base:             base,
		ReportMonth:      snap.ReportDate,
		Known:            pool.Table{Fixed: res.Fixed, Float: res.Float},
		FirstModelCoupon: firstModelCoupon,
		PrevCoupon:       prevCoupon,
		Subsidized:       terms.PoolKind() != bond.PoolFixed,
		Reinvestment:     terms.ReinvestmentFlag,
		RealizedCDR:      realizedCDR(data.ServicingReports),
	})
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}
	dailyFlows = append(dailyFlows, res.DailyFlows...)
	e.notify(req.RunID, 60)

	inflows, err := pool.Allocate(pool.AllocateInput{
		Schedule:              sched,
		Table:                 table,
		AccruedYield:          res.AccruedYield,
		ReinvestmentEnabled:   terms.ReinvestmentFlag,
		ReinvestmentDeduction: data.ReinvestmentDeduction,
		DailyFlows:            dailyFlows,
		KeyRates:              blend.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}

	modelInflows := inflows[:0:0]
	for _, inf := range inflows {
		if !inf.CouponDate.Before(firstModelCoupon) {
			modelInflows = append(modelInflows, inf)
		}
	}

	startIssue := terms.StartIssuePrincipal
	if len(reports) > 0 {
		last := reports[len(reports)-1]
		startIssue = (last.BondPrincipalStart - last.BondAmortization) * float64(terms.NumBonds)
	}

	var wrows []bond.IssueCashflowRow
	if terms.FixedAmortization() && len(data.FixedAmortizationSchedule) > 0 {
		wrows = fixedAmortizationRows(terms, data.FixedAmortizationSchedule, firstModelCoupon, startIssue)
	} else {
		startFixed, startFloat := splitStartPrincipal(startIssue, table)
		wrows, err = bond.RunWaterfall(bond.WaterfallInput{
			Terms:               terms,
			Inflows:             modelInflows,
			StartPrincipalFixed: startFixed,
			StartPrincipalFloat: startFloat,
			AdjustFirstPeriod:   firstModelCoupon.Equal(terms.FirstCouponDate),
			PoolDebtAtDelivery:  data.PoolDebtAtDelivery,
		})
		if err != nil {
			return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
		}
	}

	expenses := data.Expenses
	expenses.FirstCouponFeePercent = terms.FirstCouponFeePercent
	expenses.OtherCouponsFeePercent = terms.OtherCouponsFeePercent
	modelInflows = pool.ApplyExpenses(expenses, sched, terms.FirstCouponDate, wrows, modelInflows)

	wrows, err = bond.ComputeCoupons(bond.CouponInput{
		Terms:    terms,
		Schedule: sched,
		Inflows:  modelInflows,
		KeyRates: blend.Path,
	}, wrows)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}
	e.notify(req.RunID, 75)

	series, err := buildSeries(terms, sched, reports, wrows, firstModelCoupon, pricingDate)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}
	e.notify(req.RunID, 85)

	metrics, err := e.price(series, wrows, sched, blend.Path, cp, mode, terms, cfg)
	if err != nil {
		return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
	}

	perBond := series.CurrentPrincipal / float64(terms.NumBonds)
	result := &Result{
		BondID:      terms.ISIN,
		Name:        terms.Name,
		PricingDate: pricingDate,

		PoolReportDate: snap.ReportDate,
		ZCYCDateTime:   cp.Timestamp,

		Metrics:       metrics,
		DirtyPriceRub: metrics.DirtyPricePct / 100.0 * perBond,
		CleanPriceRub: metrics.CleanPricePct / 100.0 * perBond,
		AccruedRub:    metrics.AccruedPct / 100.0 * perBond,

		ModelCPR: res.CPR,

		KeyRates:         blend.Path,
		RefinancingRates: refi,

		PoolTotal: totalPoolRows(table),
		PoolFixed: poolTableRows(table.Fixed, nil),
		PoolFloat: poolTableRows(table.Float, nil),
		Subsidies: subsidyRows(table.Float, blend.Path, sched),
		BondTable: bondTableRows(series, terms.NumBonds),
	}

	if req.IFRS && (terms.CouponType == bond.CouponFixed || terms.CouponType == bond.CouponFloating) {
		swapRows := BuildSwapRows(modeledRows(series), modelInflows)
		spread := cfg.DefaultZSpreadBP
		if terms.CouponType == bond.CouponFloating && metrics.RequiredPremiumBP != nil {
			spread = *metrics.RequiredPremiumBP
		} else if metrics.ZSpreadBP != nil {
			spread = *metrics.ZSpreadBP
		}
		sv, err := SwapValue(swapRows, pricingDate, series.CurrentPrincipal, cp, spread)
		if err != nil {
			return nil, fmt.Errorf("Run: %s: %w", terms.ISIN, err)
		}
		rub := sv / 100.0 * perBond
		result.SwapTable = swapRows
		result.SwapPricePct = &sv
		result.SwapPriceRub = &rub
	}

	e.notify(req.RunID, 100)
	return result, nil
}

func (e *Engine) notify(runID string, percent float64) {
	if e.Progress != nil {
		e.Progress.Notify(runID, percent)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Engine) cfg() Config {
	if e.Config == (Config{}) {
		return DefaultConfig
	}
	return e.Config
}

func checkModeCompatible(mode bond.PricingMode, t bond.Terms, pricingDate time.Time) error {
	switch mode.Kind() {
	case bond.ModeCouponRate:
		if t.CouponType != bond.CouponFixed {
			return fmt.Errorf("coupon-rate pricing requires a fixed-coupon issue: %w", bond.ErrValidation)
		}
		if !pricingDate.Equal(t.IssueDate) {
			return fmt.Errorf("coupon-rate pricing is only defined on the issue date: %w", bond.ErrValidation)
		}
	case bond.ModeRequiredPremium:
		floating := t.CouponType == bond.CouponFloating
		subsidizedPassThrough := t.CouponType == bond.CouponPassThrough && t.PoolKind() != bond.PoolFixed
		if !floating && !subsidizedPassThrough {
			return fmt.Errorf("premium pricing requires a floating or subsidized pass-through issue: %w",
				bond.ErrValidation)
		}
	}
	return nil
}

// knownReports returns the usable investor reports in coupon-date order.
// Reporting-date runs discard reports whose coupon has not yet been paid.
func knownReports(reports []marketdata.InvestorReportRow, pricingDate time.Time, pricingDateDataOnly bool) []marketdata.InvestorReportRow {
	out := make([]marketdata.InvestorReportRow, 0, len(reports))
	for _, r := range reports {
		if pricingDateDataOnly && r.CouponDate.After(pricingDate) {
			continue
		}
		out = append(out, r)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CouponDate.Before(out[j-1].CouponDate); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func pickSnapshot(snaps []marketdata.PoolSnapshot, requested *time.Time, pricingDate time.Time, ifrs bool, log *slog.Logger) (marketdata.PoolSnapshot, error) {
	if len(snaps) == 0 {
		return marketdata.PoolSnapshot{}, fmt.Errorf("no pool data cuts available: %w", bond.ErrValidation)
	}

	if ifrs {
		// Reporting-date runs demand the cut of the pricing month itself.
		for _, s := range snaps {
			if utils.SameMonth(s.ReportDate, pricingDate) {
				return s, nil
			}
		}
		return marketdata.PoolSnapshot{}, fmt.Errorf("no pool data cut for %s: %w",
			pricingDate.Format("2006-01"), bond.ErrValidation)
	}

	if requested != nil {
		want := *requested
		best := snaps[0]
		for _, s := range snaps {
			if s.ReportDate.Equal(want) {
				return s, nil
			}
			if absDays(s.ReportDate, want) < absDays(best.ReportDate, want) {
				best = s
			}
		}
		log.Warn("requested pool data cut not found, substituting nearest",
			"requested", want.Format("2006-01-02"),
			"substitute", best.ReportDate.Format("2006-01-02"))
		return best, nil
	}

	// Latest cut at or before the pricing date; before the first cut exists,
	// the delivery cut.
	best := snaps[0]
	found := false
	for _, s := range snaps {
		if s.ReportDate.After(pricingDate) {
			continue
		}
		if !found || s.ReportDate.After(best.ReportDate) {
			best = s
			found = true
		}
	}
	if !found {
		for _, s := range snaps {
			if s.ReportDate.Before(best.ReportDate) {
				best = s
			}
		}
	}
	return best, nil
}

func absDays(a, b time.Time) float64 {
	return math.Abs(utils.Days(a, b))
}

func realizedCDR(reports []marketdata.ServicingReport) func(time.Time) float64 {
	byMonth := make(map[time.Time]float64, len(reports))
	for _, r := range reports {
		byMonth[utils.BeginningOfMonth(r.Month)] = r.CDR
	}
	return func(m time.Time) float64 {
		return byMonth[utils.BeginningOfMonth(m)]
	}
}

// splitStartPrincipal divides the outstanding issue principal between the
// sub-tranches proportionally to the pool debt split at the model start.
func splitStartPrincipal(startIssue float64, t pool.Table) (fixed, float float64) {
	var debtFixed, debtFloat float64
	if len(t.Fixed) > 0 {
		debtFixed = t.Fixed[0].Debt
	}
	if len(t.Float) > 0 {
		debtFloat = t.Float[0].Debt
	}
	total := debtFixed + debtFloat
	if total <= 0 {
		return startIssue, 0
	}
	fixed = startIssue * debtFixed / total
	return fixed, startIssue - fixed
}

// fixedAmortizationRows converts a published amortization schedule into
// issue cash-flow rows for issues that do not amortize from collections.
func fixedAmortizationRows(t bond.Terms, sched []marketdata.InvestorReportRow, firstModelCoupon time.Time, startIssue float64) []bond.IssueCashflowRow {
	n := float64(t.NumBonds)
	outstanding := startIssue
	var rows []bond.IssueCashflowRow
	for _, s := range sched {
		if s.CouponDate.Before(firstModelCoupon) {
			continue
		}
		amort := s.BondAmortization * n
		rows = append(rows, bond.IssueCashflowRow{
			CouponDate: s.CouponDate,
			Type:       bond.CashflowModeled,
			Fixed: bond.Leg{
				PrincipalStart: outstanding,
				Amortization:   amort,
				Scheduled:      amort,
			},
		})
		outstanding -= amort
		if outstanding <= 0 {
			break
		}
	}
	return rows
}

// buildSeries merges realized investor-report coupons with the modeled
// waterfall rows into the single discounting series.
func buildSeries(t bond.Terms, sched *schedule.Schedule, reports []marketdata.InvestorReportRow, wrows []bond.IssueCashflowRow, firstModelCoupon, pricingDate time.Time) (Series, error) {
	n := float64(t.NumBonds)
	rows := make([]Row, 0, len(reports)+len(wrows))

	for _, r := range reports {
		if !r.CouponDate.Before(firstModelCoupon) {
			continue
		}
		typ := bond.CashflowFutureKnown
		if !r.CouponDate.After(pricingDate) {
			typ = bond.CashflowHistorical
		}
		p, ok := sched.PeriodAt(r.CouponDate)
		if !ok {
			return Series{}, fmt.Errorf("buildSeries: report coupon %s not in schedule: %w",
				r.CouponDate.Format("2006-01-02"), bond.ErrValidation)
		}
		rows = append(rows, Row{
			CouponDate:       r.CouponDate,
			Type:             typ,
			PrincipalStart:   r.BondPrincipalStart * n,
			Principal:        r.BondAmortization * n,
			Coupon:           r.BondCoupon * n,
			CouponPeriodDays: p.CouponPeriodDays,
		})
	}

	for _, w := range wrows {
		p, ok := sched.PeriodAt(w.CouponDate)
		if !ok {
			return Series{}, fmt.Errorf("buildSeries: modeled coupon %s not in schedule: %w",
				w.CouponDate.Format("2006-01-02"), bond.ErrValidation)
		}
		tot := w.Total()
		rows = append(rows, Row{
			CouponDate:       w.CouponDate,
			Type:             bond.CashflowModeled,
			PrincipalStart:   tot.PrincipalStart,
			Principal:        tot.Amortization,
			Coupon:           tot.Coupon,
			CouponPeriodDays: p.CouponPeriodDays,
		})
	}

	var current float64
	for _, r := range rows {
		if r.CouponDate.After(pricingDate) {
			current = r.PrincipalStart
			break
		}
	}
	if current <= 0 {
		return Series{}, fmt.Errorf("buildSeries: no outstanding principal at %s: %w",
			pricingDate.Format("2006-01-02"), bond.ErrValidation)
	}
	return Series{PricingDate: pricingDate, Rows: rows, CurrentPrincipal: current}, nil
}

func modeledRows(s Series) []Row {
	out := make([]Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.Type == bond.CashflowModeled {
			out = append(out, r)
		}
	}
	return out
}

// price dispatches the series to the pricing rule for the issue's coupon
// regime.
func (e *Engine) price(series Series, wrows []bond.IssueCashflowRow, sched *schedule.Schedule, rates keyrate.Path, cp curve.Params, mode bond.PricingMode, t bond.Terms, cfg Config) (Metrics, error) {
	switch {
	case t.CouponType == bond.CouponFixed,
		t.CouponType == bond.CouponPassThrough && t.PoolKind() == bond.PoolFixed:
		return PriceStandard(series, cp, mode, cfg)

	case t.CouponType == bond.CouponFloating:
		return PriceFloating(series, cp, *t.FixedKeyRatePremium*100.0, mode, cfg)

	case t.PoolKind() == bond.PoolFloat:
		fitted, err := fitSeriesPremium(modeledRows(series), series.PricingDate, sched, rates, cfg)
		if err != nil {
			return Metrics{}, err
		}
		return PriceFloating(series, cp, fitted, mode, cfg)

	default:
		return e.priceMixed(series, wrows, sched, rates, cp, mode, cfg)
	}
}

// fitSeriesPremium fits the constant key-rate premium that best reproduces
// the modeled future coupons.
func fitSeriesPremium(rows []Row, pricingDate time.Time, sched *schedule.Schedule, rates keyrate.Path, cfg Config) (float64, error) {
	var (
		future []Row
		bases  []float64
	)
	for _, r := range rows {
		if !r.CouponDate.After(pricingDate) || r.PrincipalStart <= 0 {
			continue
		}
		p, ok := sched.PeriodAt(r.CouponDate)
		if !ok {
			return 0, fmt.Errorf("fitSeriesPremium: coupon %s not in schedule: %w",
				r.CouponDate.Format("2006-01-02"), bond.ErrValidation)
		}
		key, err := rates.RateAt(utils.BeginningOfMonth(p.PaymentPeriodStart))
		if err != nil {
			return 0, fmt.Errorf("fitSeriesPremium: %w", err)
		}
		future = append(future, r)
		bases = append(bases, key)
	}
	return FitConstantPremium(future, bases, cfg)
}

// priceMixed prices a pass-through issue over a mixed cover by splitting
// the modeled flows into a fixed-rate-equivalent and a floating-rate-
// equivalent sub-bond.
func (e *Engine) priceMixed(series Series, wrows []bond.IssueCashflowRow, sched *schedule.Schedule, rates keyrate.Path, cp curve.Params, mode bond.PricingMode, cfg Config) (Metrics, error) {
	fixedSub, floatSub, err := splitSubSeries(series, wrows, sched)
	if err != nil {
		return Metrics{}, err
	}
	if floatSub.CurrentPrincipal <= 0 {
		return PriceStandard(series, cp, mode, cfg)
	}
	if fixedSub.CurrentPrincipal <= 0 {
		fitted, ferr := fitSeriesPremium(floatSub.Rows, series.PricingDate, sched, rates, cfg)
		if ferr != nil {
			return Metrics{}, ferr
		}
		return PriceFloating(series, cp, fitted, mode, cfg)
	}

	fitted, err := fitSeriesPremium(floatSub.Rows, series.PricingDate, sched, rates, cfg)
	if err != nil {
		return Metrics{}, err
	}

	var dirty float64
	switch mode.Kind() {
	case bond.ModeRequiredPremium:
		// The premium applies to the floating sub-bond; the fixed sub-bond is
		// discounted at the default spread.
		dFl, err := DirtyPricePremium(floatSub, cp, fitted, mode.Value())
		if err != nil {
			return Metrics{}, fmt.Errorf("priceMixed: %w", err)
		}
		dF, err := DirtyPriceZSpread(fixedSub, cp, cfg.DefaultZSpreadBP)
		if err != nil {
			return Metrics{}, fmt.Errorf("priceMixed: %w", err)
		}
		dirty = combinePrices(dF, fixedSub.CurrentPrincipal, dFl, floatSub.CurrentPrincipal)

	case bond.ModeZSpread:
		d, err := DirtyPriceZSpread(series, cp, mode.Value())
		if err != nil {
			return Metrics{}, fmt.Errorf("priceMixed: %w", err)
		}
		dirty = d

	case bond.ModeDirtyPrice:
		dirty = mode.Value()

	case bond.ModeCleanPrice:
		dirty = mode.Value() + series.AccruedPercent()

	case bond.ModeGSpread:
		g := mode.Value()
		y, err := minimize1D(func(y float64) float64 {
			gs, gerr := GSpreadAt(series, cp, y, cfg)
			if gerr != nil {
				return math.Inf(1)
			}
			d := gs - g
			return d * d
		}, cfg.SpreadStartBP, cfg)
		if err != nil {
			return Metrics{}, fmt.Errorf("priceMixed: solving yield for G-spread %v: %w", g, err)
		}
		dirty = DirtyPriceYTM(series, y)

	default:
		return Metrics{}, fmt.Errorf("priceMixed: mode %s not applicable: %w", mode.Kind(), bond.ErrValidation)
	}

	accrued := series.AccruedPercent()
	m := Metrics{
		DirtyPricePct: dirty,
		CleanPricePct: dirty - accrued,
		AccruedPct:    accrued,
	}
	if err := fillInverseMetrics(&m, series, cp, dirty, cfg); err != nil {
		return Metrics{}, fmt.Errorf("priceMixed: %w", err)
	}

	// The required premium is quoted off the floating sub-bond at the
	// issue-wide spread.
	if mode.Kind() == bond.ModeRequiredPremium {
		req := mode.Value()
		m.RequiredPremiumBP = &req
	} else if m.ZSpreadBP != nil {
		dFl, err := DirtyPriceZSpread(floatSub, cp, *m.ZSpreadBP)
		if err != nil {
			return Metrics{}, fmt.Errorf("priceMixed: %w", err)
		}
		req, err := minimize1D(func(p float64) float64 {
			d, derr := DirtyPricePremium(floatSub, cp, fitted, p)
			if derr != nil {
				return math.Inf(1)
			}
			diff := d - dFl
			return diff * diff
		}, cfg.PremiumStartBP, cfg)
		if err != nil {
			return Metrics{}, fmt.Errorf("priceMixed: solving required premium: %w", err)
		}
		m.RequiredPremiumBP = &req
	}
	return m, nil
}

// splitSubSeries projects the waterfall's per-tranche legs into two
// sub-bond discounting series sharing the pricing date.
func splitSubSeries(series Series, wrows []bond.IssueCashflowRow, sched *schedule.Schedule) (fixed, float Series, err error) {
	var fixedRows, floatRows []Row
	for _, w := range wrows {
		p, ok := sched.PeriodAt(w.CouponDate)
		if !ok {
			return Series{}, Series{}, fmt.Errorf("splitSubSeries: coupon %s not in schedule: %w",
				w.CouponDate.Format("2006-01-02"), bond.ErrValidation)
		}
		fixedRows = append(fixedRows, Row{
			CouponDate:       w.CouponDate,
			Type:             bond.CashflowModeled,
			PrincipalStart:   w.Fixed.PrincipalStart,
			Principal:        w.Fixed.Amortization,
			Coupon:           w.Fixed.Coupon,
			CouponPeriodDays: p.CouponPeriodDays,
		})
		floatRows = append(floatRows, Row{
			CouponDate:       w.CouponDate,
			Type:             bond.CashflowModeled,
			PrincipalStart:   w.Float.PrincipalStart,
			Principal:        w.Float.Amortization,
			Coupon:           w.Float.Coupon,
			CouponPeriodDays: p.CouponPeriodDays,
		})
	}

	current := func(rows []Row) float64 {
		for _, r := range rows {
			if r.CouponDate.After(series.PricingDate) {
				return r.PrincipalStart
			}
		}
		return 0
	}
	fixed = Series{PricingDate: series.PricingDate, Rows: fixedRows, CurrentPrincipal: current(fixedRows)}
	float = Series{PricingDate: series.PricingDate, Rows: floatRows, CurrentPrincipal: current(floatRows)}
	return fixed, float, nil
}

func combinePrices(dFixed, principalFixed, dFloat, principalFloat float64) float64 {
	total := principalFixed + principalFloat
	if total <= 0 {
		return 0
	}
	return (dFixed*principalFixed + dFloat*principalFloat) / total
}

func totalPoolRows(t pool.Table) []PoolTableRow {
	byMonth := make(map[time.Time]*PoolTableRow)
	var order []time.Time
	for _, rows := range [][]pool.Row{t.Fixed, t.Float} {
		for _, r := range rows {
			row, ok := byMonth[r.PaymentMonth]
			if !ok {
				row = &PoolTableRow{PaymentMonth: r.PaymentMonth, CPR: r.CPR}
				byMonth[r.PaymentMonth] = row
				order = append(order, r.PaymentMonth)
			}
			row.Debt += r.Debt
			row.Amortization += r.Amortization
			row.Yield += r.Yield
			row.SubsidyPaid += r.Subsidy
		}
	}
	utils.SortDates(order)
	out := make([]PoolTableRow, 0, len(order))
	for _, m := range order {
		out = append(out, *byMonth[m])
	}
	return out
}

func subsidyRows(floatRows []pool.Row, rates keyrate.Path, sched *schedule.Schedule) []SubsidyTableRow {
	var out []SubsidyTableRow
	for _, r := range floatRows {
		if r.Subsidy == 0 {
			continue
		}
		start := utils.BeginningOfMonth(r.PaymentMonth)
		key, err := rates.RateAt(start)
		if err != nil {
			key = 0
		}
		row := SubsidyTableRow{
			PaymentMonth:       r.PaymentMonth,
			Debt:               r.Debt,
			KeyRateStartDate:   start,
			KeyRate:            key,
			SubsidyAccrued:     r.Subsidy,
			SubsidyPaymentDate: schedule.SubsidyPaymentDate(r.PaymentMonth),
		}
		if sc, ok := sched.SubsidyCouponDate(r.PaymentMonth); ok {
			row.SubsidyCouponDate = sc
		}
		out = append(out, row)
	}
	return out
}

func bondTableRows(s Series, numBonds int64) []BondTableRow {
	n := float64(numBonds)
	out := make([]BondTableRow, 0, len(s.Rows))
	for _, r := range s.Rows {
		out = append(out, BondTableRow{
			CouponDate:          r.CouponDate,
			Type:                r.Type,
			IssuePrincipalStart: r.PrincipalStart,
			IssueAmortization:   r.Principal,
			IssueCoupon:         r.Coupon,
			BondPrincipalStart:  r.PrincipalStart / n,
			BondAmortization:    r.Principal / n,
			BondCoupon:          r.Coupon / n,
		})
	}
	return out
}
