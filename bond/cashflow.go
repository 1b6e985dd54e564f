package bond

import "time"

// CashflowType tags a bond cash-flow row by how it is known.
type CashflowType int

const (
	// CashflowModeled: projected by the pool model and the waterfall.
	CashflowModeled CashflowType = 0
	// CashflowFutureKnown: not yet paid but already fixed by an investor
	// report.
	CashflowFutureKnown CashflowType = 1
	// CashflowHistorical: already paid.
	CashflowHistorical CashflowType = 2
)

// Flows are the per-period pool collections attributed to one sub-tranche,
// bucketed to a coupon date.
type Flows struct {
	// Amortization components, currency units.
	Scheduled  float64
	Prepayment float64
	Defaults   float64
	// Difference is the first-period collateral surplus passed through to
	// the arranger.
	Difference   float64
	Amortization float64

	// Yield is interest collected; Subsidy the government subsidy settled on
	// this coupon date; Reinvestment the escrow interest income.
	Yield        float64
	Subsidy      float64
	Reinvestment float64

	// Expense1/Expense2 are the two mortgage-agent fee components.
	Expense1 float64
	Expense2 float64

	// AccruedYield is interest collected before the modeled horizon that
	// belongs to an earlier period (carried out of FloatSum).
	AccruedYield float64

	// FloatSum = Yield + Subsidy + Reinvestment - Expense1 - Expense2 -
	// AccruedYield.
	FloatSum float64
}

// Plus returns the component-wise sum.
func (f Flows) Plus(o Flows) Flows {
	return Flows{
		Scheduled:    f.Scheduled + o.Scheduled,
		Prepayment:   f.Prepayment + o.Prepayment,
		Defaults:     f.Defaults + o.Defaults,
		Difference:   f.Difference + o.Difference,
		Amortization: f.Amortization + o.Amortization,
		Yield:        f.Yield + o.Yield,
		Subsidy:      f.Subsidy + o.Subsidy,
		Reinvestment: f.Reinvestment + o.Reinvestment,
		Expense1:     f.Expense1 + o.Expense1,
		Expense2:     f.Expense2 + o.Expense2,
		AccruedYield: f.AccruedYield + o.AccruedYield,
		FloatSum:     f.FloatSum + o.FloatSum,
	}
}

// Inflow is the allocator's output for one coupon date: collections split
// into the non-subsidized (Fixed) and subsidized (Float) sub-tranches.
type Inflow struct {
	CouponDate time.Time
	Fixed      Flows
	Float      Flows
}

// Total returns the combined flows of both sub-tranches.
func (in Inflow) Total() Flows {
	return in.Fixed.Plus(in.Float)
}

// Leg is the waterfall/coupon output for one sub-tranche on one coupon date,
// at issue level (one bond's values are the issue values divided by the bond
// count).
type Leg struct {
	PrincipalStart float64

	Amortization float64
	Scheduled    float64
	Prepayment   float64
	Defaults     float64
	Difference   float64
	CleanUp      float64

	Coupon float64
}

// Plus returns the component-wise sum.
func (l Leg) Plus(o Leg) Leg {
	return Leg{
		PrincipalStart: l.PrincipalStart + o.PrincipalStart,
		Amortization:   l.Amortization + o.Amortization,
		Scheduled:      l.Scheduled + o.Scheduled,
		Prepayment:     l.Prepayment + o.Prepayment,
		Defaults:       l.Defaults + o.Defaults,
		Difference:     l.Difference + o.Difference,
		CleanUp:        l.CleanUp + o.CleanUp,
		Coupon:         l.Coupon + o.Coupon,
	}
}

// IssueCashflowRow is one coupon date of the issue-level cash flow.
type IssueCashflowRow struct {
	CouponDate time.Time
	Type       CashflowType

	Fixed Leg
	Float Leg
}

// Total returns the combined leg; the waterfall maintains
// Fixed.PrincipalStart + Float.PrincipalStart == Total().PrincipalStart by
// construction.
func (r IssueCashflowRow) Total() Leg {
	return r.Fixed.Plus(r.Float)
}
