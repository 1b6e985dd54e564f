// Command mbsprice prices mortgage-backed bonds from JSON task
// descriptions, one or many per invocation.
//
// Market data comes either from PostgreSQL (MBS_DATABASE_URL, loadable
// from .env) or inline from each task's "data" object. The loan-level
// model's monthly cash-flow table is always supplied inline, per task.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/curve"
	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/logging"
	"github.com/meenmo/mbslib/marketdata"
	"github.com/meenmo/mbslib/marketdata/pg"
	"github.com/meenmo/mbslib/pool"
	"github.com/meenmo/mbslib/pricing"
	"github.com/meenmo/mbslib/utils"
)

type ratePointJSON struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

type modelRowJSON struct {
	Month        string  `json:"month"`
	Debt         float64 `json:"debt"`
	Scheduled    float64 `json:"scheduled"`
	Prepayment   float64 `json:"prepayment"`
	Defaults     float64 `json:"defaults"`
	Amortization float64 `json:"amortization"`
	Yield        float64 `json:"yield"`
	Subsidy      float64 `json:"subsidy,omitempty"`
	WAC          float64 `json:"wac,omitempty"`
	CPR          float64 `json:"cpr,omitempty"`
}

type reportJSON struct {
	CouponDate     string  `json:"coupon_date"`
	PrincipalStart float64 `json:"bond_principal_start"`
	Amortization   float64 `json:"bond_amortization"`
	Coupon         float64 `json:"bond_coupon"`
}

type servicingJSON struct {
	Month string  `json:"month"`
	CPR   float64 `json:"cpr"`
	CDR   float64 `json:"cdr"`
}

type snapshotJSON struct {
	ReportDate string  `json:"report_date"`
	Debt       float64 `json:"debt"`
	DebtFixed  float64 `json:"debt_fixed"`
	DebtFloat  float64 `json:"debt_float"`
}

type termsJSON struct {
	ISIN                 string   `json:"isin"`
	Name                 string   `json:"name,omitempty"`
	IssueDate            string   `json:"issue_date"`
	DeliveryDate         string   `json:"delivery_date"`
	FirstCouponDate      string   `json:"first_coupon_date"`
	LegalRedemptionDate  string   `json:"legal_redemption_date"`
	ActualRedemptionDate string   `json:"actual_redemption_date"`
	CouponPeriodMonths   int      `json:"coupon_period_months"`
	CouponType           int      `json:"coupon_type"`
	NumBonds             int64    `json:"num_bonds"`
	StartBondPrincipal   float64  `json:"start_bond_principal"`
	CleanUpPercent       float64  `json:"clean_up_percent"`
	FirstCouponFee       float64  `json:"first_coupon_fee_percent"`
	OtherCouponsFee      float64  `json:"other_coupons_fee_percent"`
	ReinvestmentFlag     bool     `json:"reinvestment,omitempty"`
	CouponRate           *float64 `json:"coupon_rate,omitempty"`
	KeyRatePremium       *float64 `json:"key_rate_premium,omitempty"`
	SubsidizedFraction   float64  `json:"subsidized_fraction,omitempty"`
}

type curveJSON struct {
	Timestamp string    `json:"timestamp"`
	B0        float64   `json:"b0"`
	B1        float64   `json:"b1"`
	B2        float64   `json:"b2"`
	Tau       float64   `json:"tau"`
	G         []float64 `json:"g"`
}

type inlineData struct {
	Terms termsJSON `json:"terms"`
	Curve curveJSON `json:"curve"`

	KeyRateMeetings []ratePointJSON `json:"key_rate_meetings"`
	KeyRateForecast []ratePointJSON `json:"key_rate_forecast,omitempty"`
	KeyRateSwapPath []ratePointJSON `json:"key_rate_swap_path,omitempty"`
	KeyRateSwapDate string          `json:"key_rate_swap_date,omitempty"`

	RefinancingRate   float64 `json:"current_refinancing_rate"`
	RefinancingDate   string  `json:"current_refinancing_date"`
	RefinancingAlpha0 float64 `json:"refinancing_alpha0,omitempty"`
	RefinancingAlpha1 float64 `json:"refinancing_alpha1,omitempty"`

	InvestorReports  []reportJSON    `json:"investor_reports,omitempty"`
	ServicingReports []servicingJSON `json:"servicing_reports,omitempty"`
	PoolSnapshots    []snapshotJSON  `json:"pool_snapshots"`

	PoolDebtAtDelivery    float64 `json:"pool_debt_at_delivery"`
	ReinvestmentDeduction float64 `json:"reinvestment_deduction,omitempty"`

	SpecDepTariffPercent     float64 `json:"spec_dep_tariff_percent,omitempty"`
	SpecDepMinMonthly        float64 `json:"spec_dep_min_monthly,omitempty"`
	ManagerAccountantMonthly float64 `json:"manager_accountant_monthly,omitempty"`
	PaymentAgentYearly       float64 `json:"payment_agent_yearly,omitempty"`

	FixedAmortization []reportJSON `json:"fixed_amortization,omitempty"`
}

type taskInput struct {
	TaskID      string `json:"task_id,omitempty"`
	BondID      string `json:"bond_id"`
	PricingDate string `json:"pricing_date"`

	ZSpread         *float64 `json:"z_spread,omitempty"`
	GSpread         *float64 `json:"g_spread,omitempty"`
	DirtyPrice      *float64 `json:"dirty_price,omitempty"`
	CleanPrice      *float64 `json:"clean_price,omitempty"`
	RequiredPremium *float64 `json:"required_key_rate_premium,omitempty"`
	CouponRate      *float64 `json:"coupon_rate,omitempty"`

	CPR            *float64        `json:"cpr,omitempty"`
	CDR            *float64        `json:"cdr,omitempty"`
	KeyRatePath    []ratePointJSON `json:"key_rate_path,omitempty"`
	IFRS           bool            `json:"ifrs,omitempty"`
	CouponRounding bool            `json:"coupon_rounding,omitempty"`
	PoolReportDate string          `json:"pool_report_date,omitempty"`

	// Loan-level model output for this task.
	ModelFixed   []modelRowJSON `json:"model_fixed"`
	ModelFloat   []modelRowJSON `json:"model_float,omitempty"`
	AccruedYield float64        `json:"accrued_yield,omitempty"`
	ModelCPR     float64        `json:"model_cpr,omitempty"`

	// Inline market data; required without MBS_DATABASE_URL.
	Data *inlineData `json:"data,omitempty"`
}

type taskOutput struct {
	TaskID      string `json:"task_id,omitempty"`
	BondID      string `json:"bond_id"`
	PricingDate string `json:"pricing_date,omitempty"`

	DirtyPricePct float64 `json:"dirty_price_pct,omitempty"`
	CleanPricePct float64 `json:"clean_price_pct,omitempty"`
	AccruedPct    float64 `json:"accrued_pct,omitempty"`
	DirtyPriceRub float64 `json:"dirty_price_rub,omitempty"`
	CleanPriceRub float64 `json:"clean_price_rub,omitempty"`
	AccruedRub    float64 `json:"accrued_rub,omitempty"`

	YTMPercent        *float64 `json:"ytm_percent,omitempty"`
	ZSpreadBP         *float64 `json:"z_spread_bp,omitempty"`
	GSpreadBP         *float64 `json:"g_spread_bp,omitempty"`
	RequiredPremiumBP *float64 `json:"required_key_rate_premium_bp,omitempty"`
	MacaulayDuration  *float64 `json:"macaulay_duration_years,omitempty"`
	ModifiedDuration  *float64 `json:"modified_duration,omitempty"`

	SwapPricePct *float64 `json:"swap_price_pct,omitempty"`
	SwapPriceRub *float64 `json:"swap_price_rub,omitempty"`

	ModelCPR       float64 `json:"model_cpr,omitempty"`
	PoolReportDate string  `json:"pool_report_date,omitempty"`
	ZCYCDate       string  `json:"zcyc_date,omitempty"`

	Error string `json:"error,omitempty"`
}

func main() {
	inputPath := flag.String("input", "", "JSON input path (reads stdin if omitted)")
	showProgress := flag.Bool("progress", false, "Show a terminal progress bar")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "Usage: mbsprice -input <path> [-progress]")
		fmt.Fprintln(os.Stderr, "Price mortgage-backed bonds from JSON task descriptions.")
		return
	}

	_ = godotenv.Load()
	log := logging.Init(*logLevel)

	path := strings.TrimSpace(*inputPath)
	if path == "" {
		if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			fmt.Fprintln(os.Stderr, "Usage: mbsprice -input <path> [-progress]")
			os.Exit(2)
		}
	}

	raw, err := readInput(path)
	if err != nil {
		exitError(fmt.Sprintf("read input: %v", err))
	}
	tasks, isArray, err := parseTasks(raw)
	if err != nil {
		exitError(fmt.Sprintf("parse JSON: %v", err))
	}

	var shared sharedSources
	if dsn := os.Getenv("MBS_DATABASE_URL"); dsn != "" {
		db, err := pg.Open(dsn)
		if err != nil {
			exitError(fmt.Sprintf("database: %v", err))
		}
		defer db.Close()
		shared = sharedSources{
			bonds:  pg.NewBondStore(db),
			curves: pg.NewCurveStore(db),
			macro:  pg.NewMacroStore(db),
		}
	}

	var bar *progressbar.ProgressBar
	if *showProgress {
		bar = progressbar.NewOptions(100*len(tasks),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetWidth(20),
			progressbar.OptionSetDescription("pricing"),
		)
	}

	ctx := context.Background()
	hadError := false
	outputs := make([]taskOutput, 0, len(tasks))
	for i, task := range tasks {
		out, err := process(ctx, task, shared, &barSink{bar: bar, base: int64(100 * i)}, log)
		if err != nil {
			hadError = true
			log.Error("task failed", "task", task.TaskID, "bond", task.BondID, "err", err)
			outputs = append(outputs, taskOutput{TaskID: task.TaskID, BondID: task.BondID, Error: err.Error()})
			continue
		}
		outputs = append(outputs, *out)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if isArray {
		b, _ := json.Marshal(outputs)
		fmt.Println(string(b))
	} else {
		b, _ := json.Marshal(outputs[0])
		fmt.Println(string(b))
	}
	if hadError {
		os.Exit(1)
	}
}

type sharedSources struct {
	bonds  marketdata.BondTermsSource
	curves marketdata.CurveSource
	macro  marketdata.MacroDataSource
}

// barSink maps one run's 0-100 progress onto the task's slice of the
// overall bar.
type barSink struct {
	bar  *progressbar.ProgressBar
	base int64
}

func (s *barSink) Notify(_ string, pct float64) {
	if s.bar != nil {
		_ = s.bar.Set64(s.base + int64(pct))
	}
}

func process(ctx context.Context, task taskInput, shared sharedSources, sink marketdata.ProgressSink, log *slog.Logger) (*taskOutput, error) {
	if task.BondID == "" {
		return nil, fmt.Errorf("bond_id is required")
	}
	pricingDate, err := parseDate(task.PricingDate)
	if err != nil {
		return nil, fmt.Errorf("invalid pricing_date: %v", err)
	}

	sources := shared
	if sources.bonds == nil {
		sources, err = buildInlineSources(task.Data)
		if err != nil {
			return nil, err
		}
	}
	if len(task.ModelFixed) == 0 && len(task.ModelFloat) == 0 {
		return nil, fmt.Errorf("model cash flows are required (model_fixed/model_float)")
	}

	model := tableModel{accrued: task.AccruedYield, cpr: task.ModelCPR}
	if model.fixed, err = parseModelRows(task.ModelFixed); err != nil {
		return nil, err
	}
	if model.float, err = parseModelRows(task.ModelFloat); err != nil {
		return nil, err
	}

	req := pricing.Request{
		RunID:       task.TaskID,
		BondID:      task.BondID,
		PricingDate: pricingDate,
		Params: bond.ModeParams{
			ZSpread:                task.ZSpread,
			GSpread:                task.GSpread,
			DirtyPrice:             task.DirtyPrice,
			CleanPrice:             task.CleanPrice,
			RequiredKeyRatePremium: task.RequiredPremium,
			CouponRate:             task.CouponRate,
		},
		CPR:            task.CPR,
		CDR:            task.CDR,
		IFRS:           task.IFRS,
		CouponRounding: task.CouponRounding,
	}
	if req.KeyRatePath, err = parsePoints(task.KeyRatePath); err != nil {
		return nil, err
	}
	if task.PoolReportDate != "" {
		d, err := parseDate(task.PoolReportDate)
		if err != nil {
			return nil, fmt.Errorf("invalid pool_report_date: %v", err)
		}
		req.PoolReportDate = &d
	}

	engine := &pricing.Engine{
		Bonds:    sources.bonds,
		Curves:   sources.curves,
		Macro:    sources.macro,
		Model:    model,
		Progress: sink,
		Log:      log,
	}
	res, err := engine.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	return &taskOutput{
		TaskID:      task.TaskID,
		BondID:      res.BondID,
		PricingDate: res.PricingDate.Format("2006-01-02"),

		DirtyPricePct: res.Metrics.DirtyPricePct,
		CleanPricePct: res.Metrics.CleanPricePct,
		AccruedPct:    res.Metrics.AccruedPct,
		DirtyPriceRub: res.DirtyPriceRub,
		CleanPriceRub: res.CleanPriceRub,
		AccruedRub:    res.AccruedRub,

		YTMPercent:        res.Metrics.YTMPercent,
		ZSpreadBP:         res.Metrics.ZSpreadBP,
		GSpreadBP:         res.Metrics.GSpreadBP,
		RequiredPremiumBP: res.Metrics.RequiredPremiumBP,
		MacaulayDuration:  res.Metrics.MacaulayDurationYears,
		ModifiedDuration:  res.Metrics.ModifiedDuration,

		SwapPricePct: res.SwapPricePct,
		SwapPriceRub: res.SwapPriceRub,

		ModelCPR:       res.ModelCPR,
		PoolReportDate: res.PoolReportDate.Format("2006-01-02"),
		ZCYCDate:       res.ZCYCDateTime.Format("2006-01-02 15:04:05"),
	}, nil
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func parseTasks(raw []byte) ([]taskInput, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	if trimmed[0] == '[' {
		var tasks []taskInput
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, true, err
		}
		if len(tasks) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return tasks, true, nil
	}
	var task taskInput
	if err := json.Unmarshal(trimmed, &task); err != nil {
		return nil, false, err
	}
	return []taskInput{task}, false, nil
}

func exitError(msg string) {
	b, _ := json.Marshal(taskOutput{Error: msg})
	fmt.Println(string(b))
	os.Exit(1)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func parsePoints(points []ratePointJSON) ([]keyrate.Point, error) {
	out := make([]keyrate.Point, 0, len(points))
	for _, p := range points {
		d, err := parseDate(p.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid rate date %s: %v", p.Date, err)
		}
		out = append(out, keyrate.Point{Date: d, Rate: p.Rate})
	}
	return out, nil
}

func parseModelRows(rows []modelRowJSON) ([]pool.Row, error) {
	out := make([]pool.Row, 0, len(rows))
	for _, r := range rows {
		m, err := parseDate(r.Month)
		if err != nil {
			return nil, fmt.Errorf("invalid model month %s: %v", r.Month, err)
		}
		out = append(out, pool.Row{
			PaymentMonth: utils.BeginningOfMonth(m),
			Debt:         r.Debt,
			Scheduled:    r.Scheduled,
			Prepayment:   r.Prepayment,
			Defaults:     r.Defaults,
			Amortization: r.Amortization,
			Yield:        r.Yield,
			Subsidy:      r.Subsidy,
			WAC:          r.WAC,
			CPR:          r.CPR,
		})
	}
	return out, nil
}

func parseReports(reports []reportJSON) ([]marketdata.InvestorReportRow, error) {
	out := make([]marketdata.InvestorReportRow, 0, len(reports))
	for _, r := range reports {
		d, err := parseDate(r.CouponDate)
		if err != nil {
			return nil, fmt.Errorf("invalid coupon date %s: %v", r.CouponDate, err)
		}
		out = append(out, marketdata.InvestorReportRow{
			CouponDate:         d,
			BondPrincipalStart: r.PrincipalStart,
			BondAmortization:   r.Amortization,
			BondCoupon:         r.Coupon,
		})
	}
	return out, nil
}

// tableModel serves a task's inline loan-level cash-flow table through the
// model interface, windowed by the engine's report/stop requests.
type tableModel struct {
	fixed   []pool.Row
	float   []pool.Row
	accrued float64
	cpr     float64
}

func (m tableModel) Run(_ context.Context, req pool.ModelRequest) (pool.ModelResult, error) {
	window := func(rows []pool.Row) []pool.Row {
		start := utils.BeginningOfMonth(req.ReportDate)
		var out []pool.Row
		for _, r := range rows {
			if r.PaymentMonth.Before(start) {
				continue
			}
			if !req.StopDate.IsZero() && !r.PaymentMonth.Before(req.StopDate) {
				continue
			}
			out = append(out, r)
		}
		return out
	}
	res := pool.ModelResult{
		Fixed: window(m.fixed),
		Float: window(m.float),
		CPR:   m.cpr,
	}
	if req.StopDate.IsZero() {
		res.AccruedYield = m.accrued
	}
	return res, nil
}

func buildInlineSources(d *inlineData) (sharedSources, error) {
	if d == nil {
		return sharedSources{}, fmt.Errorf("no database configured and no inline data supplied")
	}

	terms, data, err := parseInlineBond(d)
	if err != nil {
		return sharedSources{}, err
	}

	cp, err := parseCurve(d.Curve)
	if err != nil {
		return sharedSources{}, err
	}

	macro, err := parseMacro(d)
	if err != nil {
		return sharedSources{}, err
	}

	return sharedSources{
		bonds:  marketdata.StaticBonds{terms.ISIN: data},
		curves: marketdata.StaticCurves{cp},
		macro:  marketdata.StaticMacro(macro),
	}, nil
}

func parseInlineBond(d *inlineData) (bond.Terms, marketdata.BondData, error) {
	tj := d.Terms
	var (
		terms bond.Terms
		err   error
	)
	terms.ISIN = tj.ISIN
	terms.Name = tj.Name
	if terms.IssueDate, err = parseDate(tj.IssueDate); err != nil {
		return bond.Terms{}, marketdata.BondData{}, fmt.Errorf("invalid issue_date: %v", err)
	}
	if terms.DeliveryDate, err = parseDate(tj.DeliveryDate); err != nil {
		return bond.Terms{}, marketdata.BondData{}, fmt.Errorf("invalid delivery_date: %v", err)
	}
	if terms.FirstCouponDate, err = parseDate(tj.FirstCouponDate); err != nil {
		return bond.Terms{}, marketdata.BondData{}, fmt.Errorf("invalid first_coupon_date: %v", err)
	}
	if terms.LegalRedemptionDate, err = parseDate(tj.LegalRedemptionDate); err != nil {
		return bond.Terms{}, marketdata.BondData{}, fmt.Errorf("invalid legal_redemption_date: %v", err)
	}
	if terms.ActualRedemptionDate, err = parseDate(tj.ActualRedemptionDate); err != nil {
		return bond.Terms{}, marketdata.BondData{}, fmt.Errorf("invalid actual_redemption_date: %v", err)
	}
	terms.CouponPeriodMonths = tj.CouponPeriodMonths
	terms.CouponType = bond.CouponType(tj.CouponType)
	terms.NumBonds = tj.NumBonds
	terms.StartBondPrincipal = tj.StartBondPrincipal
	terms.StartIssuePrincipal = tj.StartBondPrincipal * float64(tj.NumBonds)
	terms.CleanUpPercent = tj.CleanUpPercent
	terms.FirstCouponFeePercent = tj.FirstCouponFee
	terms.OtherCouponsFeePercent = tj.OtherCouponsFee
	terms.ReinvestmentFlag = tj.ReinvestmentFlag
	terms.FixedCouponRate = tj.CouponRate
	terms.FixedKeyRatePremium = tj.KeyRatePremium
	terms.SubsidizedFraction = tj.SubsidizedFraction

	data := marketdata.BondData{
		Terms:              terms,
		PoolDebtAtDelivery: d.PoolDebtAtDelivery,

		ReinvestmentDeduction: d.ReinvestmentDeduction,
		Expenses: pool.ExpenseParams{
			SpecDepTariffPercent:     d.SpecDepTariffPercent,
			SpecDepMinMonthly:        d.SpecDepMinMonthly,
			ManagerAccountantMonthly: d.ManagerAccountantMonthly,
			PaymentAgentYearly:       d.PaymentAgentYearly,
		},
	}
	if data.InvestorReports, err = parseReports(d.InvestorReports); err != nil {
		return bond.Terms{}, marketdata.BondData{}, err
	}
	if data.FixedAmortizationSchedule, err = parseReports(d.FixedAmortization); err != nil {
		return bond.Terms{}, marketdata.BondData{}, err
	}
	for _, s := range d.ServicingReports {
		m, err := parseDate(s.Month)
		if err != nil {
			return bond.Terms{}, marketdata.BondData{}, fmt.Errorf("invalid servicing month %s: %v", s.Month, err)
		}
		data.ServicingReports = append(data.ServicingReports, marketdata.ServicingReport{Month: m, CPR: s.CPR, CDR: s.CDR})
	}
	for _, s := range d.PoolSnapshots {
		rd, err := parseDate(s.ReportDate)
		if err != nil {
			return bond.Terms{}, marketdata.BondData{}, fmt.Errorf("invalid snapshot date %s: %v", s.ReportDate, err)
		}
		data.PoolSnapshots = append(data.PoolSnapshots, marketdata.PoolSnapshot{
			ReportDate: rd, Debt: s.Debt, DebtFixed: s.DebtFixed, DebtFloat: s.DebtFloat,
		})
	}
	return terms, data, nil
}

func parseCurve(c curveJSON) (curve.Params, error) {
	ts, err := parseDate(c.Timestamp)
	if err != nil {
		// Curve snapshots carry an intraday timestamp.
		ts, err = time.Parse("2006-01-02 15:04:05", c.Timestamp)
		if err != nil {
			return curve.Params{}, fmt.Errorf("invalid curve timestamp %s: %v", c.Timestamp, err)
		}
	}
	p := curve.Params{Timestamp: ts, B0: c.B0, B1: c.B1, B2: c.B2, Tau: c.Tau}
	if len(c.G) != len(p.G) {
		return curve.Params{}, fmt.Errorf("curve needs %d hump coefficients, got %d", len(p.G), len(c.G))
	}
	copy(p.G[:], c.G)
	return p, nil
}

func parseMacro(d *inlineData) (marketdata.MacroData, error) {
	var (
		macro marketdata.MacroData
		err   error
	)
	if macro.Meetings, err = parsePoints(d.KeyRateMeetings); err != nil {
		return marketdata.MacroData{}, err
	}
	if macro.SmoothedForecast, err = parsePoints(d.KeyRateForecast); err != nil {
		return marketdata.MacroData{}, err
	}
	if macro.SwapPath, err = parsePoints(d.KeyRateSwapPath); err != nil {
		return marketdata.MacroData{}, err
	}
	if d.KeyRateSwapDate != "" {
		if macro.SwapDate, err = parseDate(d.KeyRateSwapDate); err != nil {
			return marketdata.MacroData{}, fmt.Errorf("invalid key_rate_swap_date: %v", err)
		}
	}
	if macro.CurrentRefiDate, err = parseDate(d.RefinancingDate); err != nil {
		return marketdata.MacroData{}, fmt.Errorf("invalid current_refinancing_date: %v", err)
	}
	macro.CurrentRefiRate = d.RefinancingRate
	macro.RefiModel = keyrate.RefinancingModel{Alpha0: d.RefinancingAlpha0, Alpha1: d.RefinancingAlpha1}
	return macro, nil
}
