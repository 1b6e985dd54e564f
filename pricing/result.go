package pricing

import (
	"time"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/pool"
)

// PoolTableRow is one report month of the pool cash-flow table exposed for
// reporting.
type PoolTableRow struct {
	PaymentMonth time.Time
	Debt         float64
	Amortization float64
	Yield        float64
	SubsidyPaid  float64
	CPR          float64
}

// SubsidyTableRow demonstrates the subsidy settlement for one accrual
// month.
type SubsidyTableRow struct {
	PaymentMonth       time.Time
	Debt               float64
	KeyRateStartDate   time.Time
	KeyRate            float64
	SubsidyAccrued     float64
	SubsidyPaymentDate time.Time
	SubsidyCouponDate  time.Time
}

// BondTableRow is one coupon date of the bond cash-flow table, at both
// issue and per-bond level.
type BondTableRow struct {
	CouponDate time.Time
	Type       bond.CashflowType

	IssuePrincipalStart float64
	IssueAmortization   float64
	IssueCoupon         float64

	BondPrincipalStart float64
	BondAmortization   float64
	BondCoupon         float64
}

// Result is the complete output of one pricing run.
type Result struct {
	BondID      string
	Name        string
	PricingDate time.Time

	PoolReportDate time.Time
	ZCYCDateTime   time.Time

	Metrics Metrics

	// Per-bond currency figures.
	DirtyPriceRub float64
	CleanPriceRub float64
	AccruedRub    float64

	// Swap valuation, present only for IFRS runs on fixed/floating issues.
	SwapPricePct *float64
	SwapPriceRub *float64

	// ModelCPR is the pool model's blended lifetime prepayment rate.
	ModelCPR float64

	KeyRates         keyrate.Path
	RefinancingRates []keyrate.Point

	PoolTotal []PoolTableRow
	PoolFixed []PoolTableRow
	PoolFloat []PoolTableRow
	Subsidies []SubsidyTableRow
	BondTable []BondTableRow
	SwapTable []SwapRow
}

func poolTableRows(rows []pool.Row, subsidyPaid func(month time.Time) float64) []PoolTableRow {
	out := make([]PoolTableRow, 0, len(rows))
	for _, r := range rows {
		paid := 0.0
		if subsidyPaid != nil {
			paid = subsidyPaid(r.PaymentMonth)
		}
		out = append(out, PoolTableRow{
			PaymentMonth: r.PaymentMonth,
			Debt:         r.Debt,
			Amortization: r.Amortization,
			Yield:        r.Yield,
			SubsidyPaid:  paid,
			CPR:          r.CPR,
		})
	}
	return out
}
