// Package marketdata defines the collaborator contracts the pricing engine
// consumes: bond terms, curve snapshots, macro data and progress reporting.
// Implementations live in subpackages; in-memory feeds here serve tests and
// offline runs.
package marketdata

import (
	"context"
	"time"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/curve"
	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/pool"
)

// InvestorReportRow is one realized coupon from an investor report, per
// bond.
type InvestorReportRow struct {
	CouponDate time.Time

	BondPrincipalStart float64
	BondAmortization   float64
	BondCoupon         float64
}

// ServicingReport carries the realized pool statistics for one month.
type ServicingReport struct {
	Month time.Time
	CPR   float64
	CDR   float64
}

// PoolSnapshot is an available pool data cut.
type PoolSnapshot struct {
	ReportDate time.Time
	Debt       float64
	DebtFixed  float64
	DebtFloat  float64
}

// BondData is everything the terms source returns for one issue.
type BondData struct {
	Terms bond.Terms

	ServicingReports []ServicingReport
	InvestorReports  []InvestorReportRow
	SCurves          []pool.SCurveParams
	PoolSnapshots    []PoolSnapshot

	Expenses pool.ExpenseParams

	// PoolDebtAtDelivery is the cover's debt on the delivery date, used for
	// the first-period collateral reconciliation.
	PoolDebtAtDelivery float64

	// ReinvestmentDeduction is the issue's deposit-rate deduction in
	// percent.
	ReinvestmentDeduction float64

	// FixedAmortizationSchedule is the published amortization for issues
	// that do not amortize from pool collections, per bond per coupon date.
	FixedAmortizationSchedule []InvestorReportRow
}

// BondTermsSource retrieves issue terms and servicing history.
type BondTermsSource interface {
	Get(ctx context.Context, bondID string) (BondData, error)
}

// CurveSource retrieves the yield-curve coefficients effective at a moment.
type CurveSource interface {
	Get(ctx context.Context, asOf time.Time) (curve.Params, error)
}

// RefiObservation is one weekly refinancing-rate observation paired with
// the key rate then in force.
type RefiObservation struct {
	Date     time.Time
	KeyRate  float64
	RefiRate float64
}

// MacroData is the macro source's response for an as-of date.
type MacroData struct {
	Meetings         []keyrate.Point
	Forecast         []keyrate.Point
	SmoothedForecast []keyrate.Point

	SwapPath []keyrate.Point
	SwapDate time.Time

	RefiHistory []RefiObservation
	RefiModel   keyrate.RefinancingModel

	CurrentRefiRate float64
	CurrentRefiDate time.Time
}

// MacroDataSource retrieves policy-rate history and forecasts.
type MacroDataSource interface {
	Get(ctx context.Context, asOf time.Time) (MacroData, error)
}

// ProgressSink receives completion percentages. Implementations must be
// non-blocking and must never fail the pricing run.
type ProgressSink interface {
	Notify(runID string, percent float64)
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) Notify(string, float64) {}
