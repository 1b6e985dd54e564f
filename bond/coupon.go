package bond

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/schedule"
	"github.com/meenmo/mbslib/utils"
)

// CouponInput carries everything the coupon calculators need beside the
// waterfall rows themselves.
type CouponInput struct {
	Terms    Terms
	Schedule *schedule.Schedule

	// Inflows aligned with Rows by coupon date; required for pass-through
	// issues.
	Inflows []Inflow

	// KeyRates is the blended key-rate path; required for floating issues.
	KeyRates keyrate.Path
}

// ComputeCoupons fills the Coupon field of each waterfall row according to
// the issue's coupon regime and returns the rows.
func ComputeCoupons(in CouponInput, rows []IssueCashflowRow) ([]IssueCashflowRow, error) {
	if err := in.Terms.Validate(); err != nil {
		return nil, fmt.Errorf("ComputeCoupons: %w", err)
	}
	if in.Schedule == nil {
		return nil, fmt.Errorf("ComputeCoupons: %s: schedule is required: %w", in.Terms.ISIN, ErrValidation)
	}

	switch in.Terms.CouponType {
	case CouponFixed:
		return fixedCoupons(in, rows)
	case CouponPassThrough:
		return passThroughCoupons(in, rows)
	case CouponFloating:
		return floatingCoupons(in, rows)
	default:
		return nil, fmt.Errorf("ComputeCoupons: %s: unknown coupon type %d: %w",
			in.Terms.ISIN, int(in.Terms.CouponType), ErrValidation)
	}
}

func fixedCoupons(in CouponInput, rows []IssueCashflowRow) ([]IssueCashflowRow, error) {
	rate := *in.Terms.FixedCouponRate
	for i := range rows {
		p, ok := in.Schedule.PeriodAt(rows[i].CouponDate)
		if !ok {
			return nil, fmt.Errorf("fixedCoupons: %s: coupon date %s not in schedule: %w",
				in.Terms.ISIN, rows[i].CouponDate.Format("2006-01-02"), ErrValidation)
		}
		rows[i].Fixed.Coupon = accrualCoupon(in.Terms, rows[i].Fixed.PrincipalStart, rate, p.CouponPeriodDays)
		rows[i].Float.Coupon = accrualCoupon(in.Terms, rows[i].Float.PrincipalStart, rate, p.CouponPeriodDays)
	}
	return rows, nil
}

func floatingCoupons(in CouponInput, rows []IssueCashflowRow) ([]IssueCashflowRow, error) {
	if in.KeyRates.Len() == 0 {
		return nil, fmt.Errorf("floatingCoupons: %s: key rate path is required: %w", in.Terms.ISIN, ErrValidation)
	}
	premium := *in.Terms.FixedKeyRatePremium
	for i := range rows {
		p, ok := in.Schedule.PeriodAt(rows[i].CouponDate)
		if !ok {
			return nil, fmt.Errorf("floatingCoupons: %s: coupon date %s not in schedule: %w",
				in.Terms.ISIN, rows[i].CouponDate.Format("2006-01-02"), ErrValidation)
		}
		// The reset is the key rate effective on the first day of the month
		// the computation period starts in.
		reset := utils.BeginningOfMonth(p.PaymentPeriodStart)
		key, err := in.KeyRates.RateAt(reset)
		if err != nil {
			return nil, fmt.Errorf("floatingCoupons: %s: %w", in.Terms.ISIN, err)
		}
		rate := key + premium
		rows[i].Fixed.Coupon = accrualCoupon(in.Terms, rows[i].Fixed.PrincipalStart, rate, p.CouponPeriodDays)
		rows[i].Float.Coupon = accrualCoupon(in.Terms, rows[i].Float.PrincipalStart, rate, p.CouponPeriodDays)
	}
	return rows, nil
}

// accrualCoupon is the ACT/365 accrual shared by the fixed and floating
// regimes, optionally rounded to whole kopecks per bond.
func accrualCoupon(t Terms, principalStart, ratePercent, days float64) float64 {
	coupon := principalStart * ratePercent / 100.0 * days / 365.0
	if !t.CouponRounding {
		return coupon
	}
	perBond := utils.RoundTo(coupon/float64(t.NumBonds), 2)
	return perBond * float64(t.NumBonds)
}

// passThroughCoupons pays out each sub-tranche's net collections, floored
// per bond to whole kopecks, the floor remainder carried into the next
// period. The residual mechanics mirror the waterfall's but run
// independently of it.
func passThroughCoupons(in CouponInput, rows []IssueCashflowRow) ([]IssueCashflowRow, error) {
	byDate := make(map[int64]Inflow, len(in.Inflows))
	for _, inf := range in.Inflows {
		byDate[inf.CouponDate.Unix()] = inf
	}

	var resFixed, resFloat float64
	for i := range rows {
		inf, ok := byDate[rows[i].CouponDate.Unix()]
		if !ok {
			return nil, fmt.Errorf("passThroughCoupons: %s: no inflow for coupon date %s: %w",
				in.Terms.ISIN, rows[i].CouponDate.Format("2006-01-02"), ErrValidation)
		}
		rows[i].Fixed.Coupon, resFixed = floorCoupon(inf.Fixed.FloatSum+resFixed, in.Terms.NumBonds)
		rows[i].Float.Coupon, resFloat = floorCoupon(inf.Float.FloatSum+resFloat, in.Terms.NumBonds)
	}
	return rows, nil
}

// floorCoupon floors an issue-level collection to whole kopecks per bond and
// returns the paid amount plus the unallocated remainder.
func floorCoupon(available float64, numBonds int64) (paid, residual float64) {
	if available <= 0 {
		return 0, available
	}
	n := decimal.NewFromInt(numBonds)
	perBond := decimal.NewFromFloat(available).Div(n).RoundFloor(2)
	paid = perBond.Mul(n).InexactFloat64()
	return paid, available - paid
}
