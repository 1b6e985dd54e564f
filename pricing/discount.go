package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/curve"
	"github.com/meenmo/mbslib/utils"
)

// Row is one coupon date of the unified bond cash-flow series, at issue
// level.
type Row struct {
	CouponDate time.Time
	Type       bond.CashflowType

	PrincipalStart   float64
	Principal        float64
	Coupon           float64
	CouponPeriodDays float64
}

// Amount is the total payment on the coupon date.
func (r Row) Amount() float64 { return r.Principal + r.Coupon }

// Series is the unified cash-flow view a pricing run discounts: realized
// history, fixed future payments and modeled payments in one sequence.
type Series struct {
	PricingDate time.Time

	// Rows in strict coupon-date order.
	Rows []Row

	// CurrentPrincipal is the issue principal outstanding at the pricing
	// date; prices are quoted in percent of it.
	CurrentPrincipal float64
}

// Future returns the rows paying strictly after the pricing date.
func (s Series) Future() []Row {
	out := make([]Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.CouponDate.After(s.PricingDate) {
			out = append(out, r)
		}
	}
	return out
}

// years is the ACT/365 year fraction from the pricing date.
func (s Series) years(d time.Time) float64 {
	return utils.Days(s.PricingDate, d) / 365.0
}

// AccruedPercent returns the accrued coupon interest at the pricing date in
// percent of outstanding principal: the next coupon's annualized rate
// applied to the days elapsed in the current period.
func (s Series) AccruedPercent() float64 {
	for _, r := range s.Rows {
		if !r.CouponDate.After(s.PricingDate) {
			continue
		}
		if r.PrincipalStart <= 0 || r.CouponPeriodDays <= 0 {
			return 0
		}
		periodStart := r.CouponDate.AddDate(0, 0, -int(r.CouponPeriodDays))
		daysElapsed := utils.Days(periodStart, s.PricingDate)
		if daysElapsed < 0 {
			daysElapsed = 0
		}
		ratePercent := r.Coupon / r.PrincipalStart * 100.0 * 365.0 / r.CouponPeriodDays
		return ratePercent * daysElapsed / 365.0
	}
	return 0
}

// DirtyPriceZSpread discounts the future cash flows at the curve plus a
// constant spread and quotes the result in percent of outstanding
// principal.
func DirtyPriceZSpread(s Series, cp curve.Params, zBP float64) (float64, error) {
	if s.CurrentPrincipal <= 0 {
		return 0, fmt.Errorf("DirtyPriceZSpread: no outstanding principal at pricing date")
	}
	var pv float64
	for _, r := range s.Future() {
		t := s.years(r.CouponDate)
		y, err := curve.Y(cp, t)
		if err != nil {
			return 0, fmt.Errorf("DirtyPriceZSpread: %w", err)
		}
		pv += r.Amount() * math.Pow(1.0+(y+zBP)/10000.0, -t)
	}
	return pv / s.CurrentPrincipal * 100.0, nil
}

// DirtyPriceYTM discounts the future cash flows at a flat annual yield in
// percent.
func DirtyPriceYTM(s Series, ytmPercent float64) float64 {
	if s.CurrentPrincipal <= 0 {
		return 0
	}
	var pv float64
	for _, r := range s.Future() {
		t := s.years(r.CouponDate)
		pv += r.Amount() * math.Pow(1.0+ytmPercent/100.0, -t)
	}
	return pv / s.CurrentPrincipal * 100.0
}

// MacaulayDuration is the discounted-cash-flow weighted average time to
// receipt in years, discounted at the yield to maturity and floored to keep
// downstream divisions well defined.
func MacaulayDuration(s Series, ytmPercent float64, cfg Config) float64 {
	var pv, weighted float64
	for _, r := range s.Future() {
		t := s.years(r.CouponDate)
		df := math.Pow(1.0+ytmPercent/100.0, -t)
		pv += r.Amount() * df
		weighted += t * r.Amount() * df
	}
	if pv <= 0 {
		return cfg.MinDurationYears
	}
	d := weighted / pv
	if d < cfg.MinDurationYears {
		return cfg.MinDurationYears
	}
	return d
}

// ModifiedDuration converts Macaulay duration at the given yield.
func ModifiedDuration(macaulay, ytmPercent float64) float64 {
	return macaulay / (1.0 + ytmPercent/100.0)
}

// GSpreadAt returns the G-spread in basis points implied by a yield: the
// yield over the curve's value at the bond's duration.
func GSpreadAt(s Series, cp curve.Params, ytmPercent float64, cfg Config) (float64, error) {
	dur := MacaulayDuration(s, ytmPercent, cfg)
	y, err := curve.Y(cp, dur)
	if err != nil {
		return 0, fmt.Errorf("GSpreadAt: %w", err)
	}
	return ytmPercent*100.0 - y, nil
}
