// Package pool ingests the loan-level model's monthly cash-flow table,
// recovers missing history and allocates collections to coupon dates.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/mbslib/keyrate"
)

// ErrDebtIncreased marks an upstream data defect: a recovered historical
// month whose pool debt increases instead of decreasing.
var ErrDebtIncreased = errors.New("pool debt increased month over month")

// Tranche identifies a pool sub-tranche.
type Tranche int

const (
	// TrancheFixed is the non-subsidized (fixed-rate) part of the cover.
	TrancheFixed Tranche = iota
	// TrancheFloat is the subsidized (floating-rate) part.
	TrancheFloat
)

// Row is one report month of one sub-tranche.
type Row struct {
	// PaymentMonth identifies the collection month (first day of month).
	PaymentMonth time.Time

	// Debt outstanding at the start of the month.
	Debt float64

	Scheduled    float64
	Prepayment   float64
	Defaults     float64
	Amortization float64

	// Yield is interest collected in the month; Subsidy the government
	// subsidy accrued for it.
	Yield   float64
	Subsidy float64

	// WAC is the weighted-average coupon of the sub-tranche, CPR the
	// annualized prepayment rate the model attributes to the month.
	WAC float64
	CPR float64
}

// Table holds the monthly rows per sub-tranche, each sorted by month.
type Table struct {
	Fixed []Row
	Float []Row
}

// SortRows orders rows by payment month ascending.
func SortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PaymentMonth.Before(rows[j].PaymentMonth)
	})
}

// CheckDebtMonotonic verifies that debt never increases month over month.
func CheckDebtMonotonic(rows []Row) error {
	for i := 1; i < len(rows); i++ {
		if rows[i].Debt > rows[i-1].Debt {
			return fmt.Errorf("CheckDebtMonotonic: debt rises from %.2f to %.2f at %s: %w",
				rows[i-1].Debt, rows[i].Debt, rows[i].PaymentMonth.Format("2006-01"), ErrDebtIncreased)
		}
	}
	return nil
}

// Rows returns the tranche's rows.
func (t Table) Rows(tr Tranche) []Row {
	if tr == TrancheFloat {
		return t.Float
	}
	return t.Fixed
}

// StartDebt returns the combined debt of the earliest month.
func (t Table) StartDebt() float64 {
	var total float64
	for _, rows := range [][]Row{t.Fixed, t.Float} {
		if len(rows) > 0 {
			total += rows[0].Debt
		}
	}
	return total
}

// MonthlyDefaultFraction converts an annualized CDR in percent into the
// fraction of debt defaulting in one month.
func MonthlyDefaultFraction(cdrPercent float64) float64 {
	return 1 - math.Pow(1-cdrPercent/100.0, 1.0/12.0)
}

// ---------------------------------------------------------------------------
// External loan-level model
// ---------------------------------------------------------------------------

// SCurveParams are the prepayment S-curve coefficients published with a
// servicing report; the engine passes them through to the model untouched.
type SCurveParams struct {
	ReportDate   time.Time
	Coefficients []float64
}

// DailyFlow is one day of cash arriving on the escrow account.
type DailyFlow struct {
	Date   time.Time
	Amount float64
}

// ModelRequest scopes one run of the loan-level model.
type ModelRequest struct {
	// ReportDate selects the servicing report the run starts from.
	ReportDate time.Time

	// StopDate, when set, truncates the projection: the model returns only
	// months strictly before it. Back-fill uses single-month windows.
	StopDate time.Time

	KeyRates         keyrate.Path
	RefinancingRates []keyrate.Point
	SCurves          []SCurveParams

	// CPR/CDR override the model's own assumptions when non-nil. CDR is the
	// realized default rate during back-fill.
	CPR *float64
	CDR *float64

	// Reinvestment asks for the daily escrow flows alongside the monthly
	// table.
	Reinvestment bool
}

// ModelResult is the model's monthly projection per sub-tranche.
type ModelResult struct {
	Fixed []Row
	Float []Row

	// AccruedYield is interest collected before the projection horizon that
	// belongs to an earlier, already-settled period.
	AccruedYield float64

	// DailyFlows feed the escrow reinvestment accrual; empty unless
	// requested.
	DailyFlows []DailyFlow

	// CPR is the model's blended lifetime prepayment rate for the run.
	CPR float64
}

// Model is the external loan-level amortization engine. Implementations
// must tolerate repeated calls with different report/stop windows.
type Model interface {
	Run(ctx context.Context, req ModelRequest) (ModelResult, error)
}
