// Package schedule derives the coupon-date sequence and the computation
// (collection) periods of a mortgage-backed issue, plus the settlement
// calendar for government subsidies.
//
// All dates are calendar-naive: no holiday or business-day adjustment.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/mbslib/utils"
)

// Period is one coupon interval: the coupon date, the day count of the
// coupon accrual period preceding it, and the computation period whose pool
// collections fund it.
type Period struct {
	CouponDate       time.Time
	CouponPeriodDays float64

	PaymentPeriodStart time.Time
	PaymentPeriodEnd   time.Time
	PaymentPeriodDays  float64
}

// Schedule is the full period sequence of an issue.
type Schedule struct {
	periods      []Period
	periodMonths int
	lag          int
	delivery     time.Time

	// monthToCoupon maps a collection month (first of month) to the coupon
	// date that settles cash collected in it.
	monthToCoupon map[time.Time]time.Time
}

// Build generates coupon dates from firstCoupon to legalRedemption stepping
// periodMonths, day-of-month pinned to the first coupon's day, and derives
// each coupon's computation period.
//
// The computation period for a coupon ends on the last day of the month
// preceding the coupon month, shifted one further month back when the coupon
// falls on or before the 15th (the payment lag). It starts periodMonths-1
// months earlier, on the first of that month; the first period starts at the
// delivery date.
func Build(issue, delivery, firstCoupon, legalRedemption time.Time, periodMonths int) (*Schedule, error) {
	switch {
	case periodMonths <= 0:
		return nil, fmt.Errorf("Build: coupon period must be positive, got %d months", periodMonths)
	case !issue.Before(firstCoupon):
		return nil, fmt.Errorf("Build: first coupon %s not after issue date %s",
			firstCoupon.Format("2006-01-02"), issue.Format("2006-01-02"))
	case legalRedemption.Before(firstCoupon):
		return nil, fmt.Errorf("Build: legal redemption %s before first coupon %s",
			legalRedemption.Format("2006-01-02"), firstCoupon.Format("2006-01-02"))
	case delivery.After(firstCoupon):
		return nil, fmt.Errorf("Build: delivery date %s after first coupon %s",
			delivery.Format("2006-01-02"), firstCoupon.Format("2006-01-02"))
	}

	lag := 0
	if firstCoupon.Day() < 16 {
		lag = 1
	}

	s := &Schedule{
		periodMonths:  periodMonths,
		lag:           lag,
		delivery:      delivery,
		monthToCoupon: make(map[time.Time]time.Time),
	}

	prev := issue
	for i := 0; ; i++ {
		coupon := utils.AddMonth(firstCoupon, i*periodMonths)

		end := utils.MonthEnd(utils.AddMonth(utils.BeginningOfMonth(coupon), -1-lag))
		start := utils.BeginningOfMonth(utils.AddMonth(end, -(periodMonths - 1)))
		if i == 0 {
			start = delivery
		}

		s.periods = append(s.periods, Period{
			CouponDate:         coupon,
			CouponPeriodDays:   utils.Days(prev, coupon),
			PaymentPeriodStart: start,
			PaymentPeriodEnd:   end,
			PaymentPeriodDays:  utils.Days(start, end) + 1,
		})

		for m := utils.BeginningOfMonth(start); !m.After(end); m = m.AddDate(0, 1, 0) {
			s.monthToCoupon[m] = coupon
		}

		prev = coupon
		if !coupon.Before(legalRedemption) {
			break
		}
	}

	return s, nil
}

// Periods returns the period sequence in coupon-date order.
func (s *Schedule) Periods() []Period {
	out := make([]Period, len(s.periods))
	copy(out, s.periods)
	return out
}

// CouponDates returns the coupon dates in ascending order.
func (s *Schedule) CouponDates() []time.Time {
	out := make([]time.Time, len(s.periods))
	for i, p := range s.periods {
		out[i] = p.CouponDate
	}
	return out
}

// Lag returns the payment-period lag in months (0 or 1).
func (s *Schedule) Lag() int { return s.lag }

// PeriodAt returns the period whose coupon date equals d.
func (s *Schedule) PeriodAt(d time.Time) (Period, bool) {
	for _, p := range s.periods {
		if p.CouponDate.Equal(d) {
			return p, true
		}
	}
	return Period{}, false
}

// NextCoupon returns the first coupon date strictly after d.
func (s *Schedule) NextCoupon(d time.Time) (time.Time, bool) {
	i := sort.Search(len(s.periods), func(i int) bool {
		return s.periods[i].CouponDate.After(d)
	})
	if i == len(s.periods) {
		return time.Time{}, false
	}
	return s.periods[i].CouponDate, true
}

// PrevCoupon returns the last coupon date at or before d.
func (s *Schedule) PrevCoupon(d time.Time) (time.Time, bool) {
	i := sort.Search(len(s.periods), func(i int) bool {
		return s.periods[i].CouponDate.After(d)
	})
	if i == 0 {
		return time.Time{}, false
	}
	return s.periods[i-1].CouponDate, true
}

// CouponForMonth maps a collection month to the coupon date that settles its
// cash. Months past the final computation period map to the final coupon.
func (s *Schedule) CouponForMonth(month time.Time) (time.Time, bool) {
	m := utils.BeginningOfMonth(month)
	if c, ok := s.monthToCoupon[m]; ok {
		return c, true
	}
	last := s.periods[len(s.periods)-1]
	if m.After(last.PaymentPeriodEnd) {
		return last.CouponDate, true
	}
	return time.Time{}, false
}

// ---------------------------------------------------------------------------
// Subsidy settlement calendar
// ---------------------------------------------------------------------------

// SubsidyPaymentDay is the fixed day of month on which subsidies arrive.
const SubsidyPaymentDay = 15

// subsidyAddMonths maps the accrual month to the number of months after
// which the subsidy is actually paid. January through July settle two months
// later; the budget-cycle months settle with longer lags (August and
// November in four, September and December in three).
var subsidyAddMonths = map[time.Month]int{
	time.January:   2,
	time.February:  2,
	time.March:     2,
	time.April:     2,
	time.May:       2,
	time.June:      2,
	time.July:      2,
	time.August:    4,
	time.September: 3,
	time.October:   2,
	time.November:  4,
	time.December:  3,
}

// SubsidyPaymentDate returns the date the subsidy accrued in the given month
// is paid: day 15 of the accrual month plus its settlement lag.
func SubsidyPaymentDate(accrualMonth time.Time) time.Time {
	paid := utils.AddMonth(utils.BeginningOfMonth(accrualMonth), subsidyAddMonths[accrualMonth.Month()])
	return utils.Date(paid.Year(), paid.Month(), SubsidyPaymentDay)
}

// SubsidyCouponDate returns the coupon date that distributes the subsidy
// accrued in the given month, by routing the subsidy's payment month through
// the collection-month map.
func (s *Schedule) SubsidyCouponDate(accrualMonth time.Time) (time.Time, bool) {
	return s.CouponForMonth(SubsidyPaymentDate(accrualMonth))
}
