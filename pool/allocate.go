package pool

import (
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/schedule"
)

// AllocateInput configures the pool-to-bond allocation.
type AllocateInput struct {
	Schedule *schedule.Schedule
	Table    Table

	// AccruedYield is interest belonging to the period already settled
	// before the modeled horizon; it is carried out of the first modeled
	// coupon's float sum.
	AccruedYield float64

	// Escrow reinvestment.
	ReinvestmentEnabled   bool
	ReinvestmentDeduction float64
	DailyFlows            []DailyFlow
	KeyRates              keyrate.Path
}

// Allocate buckets the pool table into per-coupon-date inflows: principal
// and interest by the collection-month map, subsidies by their own
// settlement calendar, escrow income added, and the net float sum computed
// per sub-tranche. Fees accrue on the waterfall's issue principals and are
// applied afterwards by ApplyExpenses.
func Allocate(in AllocateInput) ([]bond.Inflow, error) {
	if in.Schedule == nil {
		return nil, fmt.Errorf("Allocate: schedule is required")
	}

	type bucket struct {
		fixed bond.Flows
		float bond.Flows
	}
	buckets := make(map[time.Time]*bucket)
	get := func(coupon time.Time) *bucket {
		b, ok := buckets[coupon]
		if !ok {
			b = &bucket{}
			buckets[coupon] = b
		}
		return b
	}

	for _, tr := range []Tranche{TrancheFixed, TrancheFloat} {
		for _, row := range in.Table.Rows(tr) {
			coupon, ok := in.Schedule.CouponForMonth(row.PaymentMonth)
			if !ok {
				return nil, fmt.Errorf("Allocate: month %s precedes the first computation period",
					row.PaymentMonth.Format("2006-01"))
			}

			b := get(coupon)
			f := &b.fixed
			if tr == TrancheFloat {
				f = &b.float
			}
			f.Scheduled += row.Scheduled
			f.Prepayment += row.Prepayment
			f.Defaults += row.Defaults
			f.Amortization += row.Amortization
			f.Yield += row.Yield

			if row.Subsidy != 0 {
				subsidyCoupon, ok := in.Schedule.SubsidyCouponDate(row.PaymentMonth)
				if !ok {
					return nil, fmt.Errorf("Allocate: no settlement coupon for subsidy accrued %s",
						row.PaymentMonth.Format("2006-01"))
				}
				sb := get(subsidyCoupon)
				if tr == TrancheFloat {
					sb.float.Subsidy += row.Subsidy
				} else {
					sb.fixed.Subsidy += row.Subsidy
				}
			}
		}
	}

	if in.ReinvestmentEnabled && len(in.DailyFlows) > 0 {
		writeOffs := make(map[time.Time]float64, len(buckets))
		for coupon, b := range buckets {
			writeOffs[coupon] = b.fixed.Amortization + b.float.Amortization +
				b.fixed.Yield + b.float.Yield
		}
		income, err := ReinvestmentIncome(ReinvestmentInput{
			Flows:            in.DailyFlows,
			WriteOffs:        writeOffs,
			KeyRates:         in.KeyRates,
			DeductionPercent: in.ReinvestmentDeduction,
		})
		if err != nil {
			return nil, fmt.Errorf("Allocate: %w", err)
		}
		for coupon, amount := range income {
			b := get(coupon)
			// Escrow income follows the interest split between tranches.
			totalYield := b.fixed.Yield + b.float.Yield
			if totalYield > 0 {
				b.fixed.Reinvestment += amount * b.fixed.Yield / totalYield
				b.float.Reinvestment += amount * b.float.Yield / totalYield
			} else {
				b.fixed.Reinvestment += amount
			}
		}
	}

	dates := make([]time.Time, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	inflows := make([]bond.Inflow, 0, len(dates))
	for i, d := range dates {
		b := buckets[d]
		if i == 0 && in.AccruedYield != 0 {
			// Carry the pre-horizon interest out of the first coupon's float
			// sum, split by interest share.
			totalYield := b.fixed.Yield + b.float.Yield
			if totalYield > 0 {
				b.fixed.AccruedYield = in.AccruedYield * b.fixed.Yield / totalYield
				b.float.AccruedYield = in.AccruedYield * b.float.Yield / totalYield
			} else {
				b.fixed.AccruedYield = in.AccruedYield
			}
		}
		b.fixed.FloatSum = floatSum(b.fixed)
		b.float.FloatSum = floatSum(b.float)
		inflows = append(inflows, bond.Inflow{CouponDate: d, Fixed: b.fixed, Float: b.float})
	}
	return inflows, nil
}

func floatSum(f bond.Flows) float64 {
	return f.Yield + f.Subsidy + f.Reinvestment - f.Expense1 - f.Expense2 - f.AccruedYield
}
