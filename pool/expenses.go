package pool

import (
	"time"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/schedule"
	"github.com/meenmo/mbslib/utils"
)

// ExpenseParams are the issue's servicing-fee terms. Tariffs are percent
// per annum of the issue principal at period start; fixed fees are currency
// amounts.
type ExpenseParams struct {
	// FirstCouponFeePercent / OtherCouponsFeePercent are the mortgage-agent
	// tariffs for the first and subsequent coupon periods.
	FirstCouponFeePercent  float64
	OtherCouponsFeePercent float64

	// SpecDepTariffPercent is the specialized depositary tariff, floored at
	// SpecDepMinMonthly per month.
	SpecDepTariffPercent float64
	SpecDepMinMonthly    float64

	// ManagerAccountantMonthly is the combined manager/accountant fee per
	// month.
	ManagerAccountantMonthly float64

	// PaymentAgentYearly accrues pro rata over the computation periods.
	PaymentAgentYearly float64
}

// AgentRates derives the two mortgage-agent expense rates from the coupon
// tariffs. The first component is the first-versus-subsequent tariff
// differential; the second the recurring servicing rate.
func AgentRates(p ExpenseParams) (rate1, rate2 float64) {
	rate1 = utils.RoundTo(p.FirstCouponFeePercent-p.OtherCouponsFeePercent, 5)
	rate2 = utils.RoundTo(2.4*p.OtherCouponsFeePercent-1.2*p.FirstCouponFeePercent, 5)
	return rate1, rate2
}

// PeriodExpenses returns the two fee components of one sub-tranche for one
// coupon period. principal is the sub-tranche's issue principal at period
// start; fraction its share of the issue total, which apportions the fixed
// fee amounts. d1 is the computation-period year fraction, d2 the current
// and d3 the following coupon-period year fraction. The differential
// component accrues over the following coupon period; on the issue's first
// coupon it additionally covers the first period itself.
func PeriodExpenses(p ExpenseParams, principal, fraction, d1, d2, d3 float64, first bool) (expense1, expense2 float64) {
	rate1, rate2 := AgentRates(p)

	expense1 = utils.RoundTo(principal*rate1/100.0*d3, 2)
	if first {
		expense1 += utils.RoundTo(principal*rate1/100.0*d2, 2)
	}

	expense2 = utils.RoundTo(principal*rate2/100.0*d1, 2)

	specDep := principal * p.SpecDepTariffPercent / 100.0 * d1
	if minimum := p.SpecDepMinMonthly * 12.0 * d1 * fraction; specDep < minimum {
		specDep = minimum
	}
	expense2 += utils.RoundTo(specDep, 2)

	expense2 += utils.RoundTo(p.ManagerAccountantMonthly*12.0*d1*fraction, 2)
	expense2 += utils.RoundTo(p.PaymentAgentYearly*d1*fraction, 2)
	return expense1, expense2
}

// ApplyExpenses fills the fee components and float sums of the allocated
// inflows from the waterfall's per-period principals and returns the
// inflows. Inflows past the waterfall's payoff keep zero fees; every float
// sum is recomputed.
func ApplyExpenses(p ExpenseParams, sched *schedule.Schedule, firstCoupon time.Time, rows []bond.IssueCashflowRow, inflows []bond.Inflow) []bond.Inflow {
	byDate := make(map[time.Time]int, len(inflows))
	for i, inf := range inflows {
		byDate[inf.CouponDate] = i
	}

	for i, r := range rows {
		period, ok := sched.PeriodAt(r.CouponDate)
		if !ok {
			continue
		}
		j, ok := byDate[r.CouponDate]
		if !ok {
			continue
		}

		d1 := period.PaymentPeriodDays / 365.0
		d2 := period.CouponPeriodDays / 365.0
		d3 := 0.0
		if i+1 < len(rows) {
			if next, ok := sched.PeriodAt(rows[i+1].CouponDate); ok {
				d3 = next.CouponPeriodDays / 365.0
			}
		}
		first := i == 0 && r.CouponDate.Equal(firstCoupon)

		total := r.Fixed.PrincipalStart + r.Float.PrincipalStart
		fracFixed := 1.0
		if total > 0 {
			fracFixed = r.Fixed.PrincipalStart / total
		}

		inflows[j].Fixed.Expense1, inflows[j].Fixed.Expense2 =
			PeriodExpenses(p, r.Fixed.PrincipalStart, fracFixed, d1, d2, d3, first)
		inflows[j].Float.Expense1, inflows[j].Float.Expense2 =
			PeriodExpenses(p, r.Float.PrincipalStart, 1.0-fracFixed, d1, d2, d3, first)
	}

	for i := range inflows {
		inflows[i].Fixed.FloatSum = floatSum(inflows[i].Fixed)
		inflows[i].Float.FloatSum = floatSum(inflows[i].Float)
	}
	return inflows
}
