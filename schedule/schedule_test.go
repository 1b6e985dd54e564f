package schedule

import (
	"testing"
	"time"

	"github.com/meenmo/mbslib/utils"
)

func mustBuild(t *testing.T, issue, delivery, first, legal time.Time, months int) *Schedule {
	t.Helper()
	s, err := Build(issue, delivery, first, legal, months)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func TestBuild_QuarterlyWithLag(t *testing.T) {
	t.Parallel()

	issue := utils.Date(2019, time.October, 15)
	delivery := utils.Date(2019, time.October, 22)
	first := utils.Date(2020, time.January, 15) // day 15 < 16 => lag one month
	legal := utils.Date(2021, time.January, 15)

	s := mustBuild(t, issue, delivery, first, legal, 3)

	if s.Lag() != 1 {
		t.Fatalf("lag = %d, want 1", s.Lag())
	}

	dates := s.CouponDates()
	want := []time.Time{
		utils.Date(2020, time.January, 15),
		utils.Date(2020, time.April, 15),
		utils.Date(2020, time.July, 15),
		utils.Date(2020, time.October, 15),
		utils.Date(2021, time.January, 15),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %d coupons, want %d: %v", len(dates), len(want), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("coupon[%d] = %v, want %v", i, dates[i], want[i])
		}
	}

	// With a one-month lag, the Jan-15 coupon collects through end of
	// November; the first period starts at delivery.
	p := s.Periods()[0]
	if !p.PaymentPeriodStart.Equal(delivery) {
		t.Errorf("first period start = %v, want delivery %v", p.PaymentPeriodStart, delivery)
	}
	if !p.PaymentPeriodEnd.Equal(utils.Date(2019, time.November, 30)) {
		t.Errorf("first period end = %v, want 2019-11-30", p.PaymentPeriodEnd)
	}

	p2 := s.Periods()[1]
	if !p2.PaymentPeriodStart.Equal(utils.Date(2019, time.December, 1)) {
		t.Errorf("second period start = %v, want 2019-12-01", p2.PaymentPeriodStart)
	}
	if !p2.PaymentPeriodEnd.Equal(utils.Date(2020, time.February, 29)) {
		t.Errorf("second period end = %v, want 2020-02-29", p2.PaymentPeriodEnd)
	}
}

func TestBuild_NoLagAfterMidMonth(t *testing.T) {
	t.Parallel()

	issue := utils.Date(2023, time.March, 28)
	delivery := utils.Date(2023, time.April, 6)
	first := utils.Date(2023, time.June, 28) // day 28 => no lag
	legal := utils.Date(2023, time.December, 28)

	s := mustBuild(t, issue, delivery, first, legal, 3)
	if s.Lag() != 0 {
		t.Fatalf("lag = %d, want 0", s.Lag())
	}

	p := s.Periods()[1]
	if !p.PaymentPeriodEnd.Equal(utils.Date(2023, time.August, 31)) {
		t.Errorf("period end = %v, want 2023-08-31", p.PaymentPeriodEnd)
	}
	if !p.PaymentPeriodStart.Equal(utils.Date(2023, time.June, 1)) {
		t.Errorf("period start = %v, want 2023-06-01", p.PaymentPeriodStart)
	}
}

func TestBuild_PeriodsContiguous(t *testing.T) {
	t.Parallel()

	s := mustBuild(t,
		utils.Date(2019, time.October, 15),
		utils.Date(2019, time.October, 22),
		utils.Date(2020, time.January, 15),
		utils.Date(2024, time.January, 15),
		3)

	periods := s.Periods()
	for i := 1; i < len(periods); i++ {
		if !periods[i-1].CouponDate.Before(periods[i].CouponDate) {
			t.Fatalf("coupon dates not strictly increasing at %d", i)
		}
		gap := periods[i].PaymentPeriodStart.Sub(periods[i-1].PaymentPeriodEnd).Hours() / 24
		if gap != 1 {
			t.Errorf("periods %d and %d not contiguous: end %v, next start %v",
				i-1, i, periods[i-1].PaymentPeriodEnd, periods[i].PaymentPeriodStart)
		}
	}
}

func TestBuild_DayOfMonthPinned(t *testing.T) {
	t.Parallel()

	// First coupon on the 31st: months without a 31st take their month end.
	s := mustBuild(t,
		utils.Date(2023, time.October, 31),
		utils.Date(2023, time.November, 7),
		utils.Date(2024, time.January, 31),
		utils.Date(2024, time.July, 31),
		1)

	dates := s.CouponDates()
	if !dates[1].Equal(utils.Date(2024, time.February, 29)) {
		t.Errorf("coupon[1] = %v, want 2024-02-29", dates[1])
	}
	if !dates[2].Equal(utils.Date(2024, time.March, 31)) {
		t.Errorf("coupon[2] = %v, want 2024-03-31", dates[2])
	}
}

func TestCouponForMonth(t *testing.T) {
	t.Parallel()

	s := mustBuild(t,
		utils.Date(2019, time.October, 15),
		utils.Date(2019, time.October, 22),
		utils.Date(2020, time.January, 15),
		utils.Date(2021, time.January, 15),
		3)

	c, ok := s.CouponForMonth(utils.Date(2019, time.November, 10))
	if !ok || !c.Equal(utils.Date(2020, time.January, 15)) {
		t.Errorf("CouponForMonth(Nov 2019) = %v, %v", c, ok)
	}
	c, ok = s.CouponForMonth(utils.Date(2019, time.December, 1))
	if !ok || !c.Equal(utils.Date(2020, time.April, 15)) {
		t.Errorf("CouponForMonth(Dec 2019) = %v, %v", c, ok)
	}

	// Months past the final computation period settle on the final coupon.
	c, ok = s.CouponForMonth(utils.Date(2021, time.June, 1))
	if !ok || !c.Equal(utils.Date(2021, time.January, 15)) {
		t.Errorf("CouponForMonth(past end) = %v, %v", c, ok)
	}
}

func TestPrevNextCoupon(t *testing.T) {
	t.Parallel()

	s := mustBuild(t,
		utils.Date(2019, time.October, 15),
		utils.Date(2019, time.October, 22),
		utils.Date(2020, time.January, 15),
		utils.Date(2021, time.January, 15),
		3)

	next, ok := s.NextCoupon(utils.Date(2020, time.January, 15))
	if !ok || !next.Equal(utils.Date(2020, time.April, 15)) {
		t.Errorf("NextCoupon on coupon date = %v", next)
	}
	prev, ok := s.PrevCoupon(utils.Date(2020, time.January, 15))
	if !ok || !prev.Equal(utils.Date(2020, time.January, 15)) {
		t.Errorf("PrevCoupon on coupon date = %v", prev)
	}
	if _, ok := s.PrevCoupon(utils.Date(2019, time.December, 1)); ok {
		t.Error("PrevCoupon before first coupon should report none")
	}
}

func TestSubsidyDates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		accrual time.Time
		want    time.Time
	}{
		{utils.Date(2024, time.January, 1), utils.Date(2024, time.March, 15)},
		{utils.Date(2024, time.July, 1), utils.Date(2024, time.September, 15)},
		{utils.Date(2024, time.August, 1), utils.Date(2024, time.December, 15)},
		{utils.Date(2024, time.September, 1), utils.Date(2024, time.December, 15)},
		{utils.Date(2024, time.October, 1), utils.Date(2024, time.December, 15)},
		{utils.Date(2024, time.November, 1), utils.Date(2025, time.March, 15)},
		{utils.Date(2024, time.December, 1), utils.Date(2025, time.March, 15)},
	}
	for _, tc := range cases {
		if got := SubsidyPaymentDate(tc.accrual); !got.Equal(tc.want) {
			t.Errorf("SubsidyPaymentDate(%v) = %v, want %v", tc.accrual.Month(), got, tc.want)
		}
	}
}

func TestBuild_Validation(t *testing.T) {
	t.Parallel()

	issue := utils.Date(2020, time.January, 15)
	if _, err := Build(issue, issue, issue, issue.AddDate(1, 0, 0), 3); err == nil {
		t.Error("first coupon equal to issue date should fail")
	}
	if _, err := Build(issue, issue, issue.AddDate(0, 3, 0), issue, 3); err == nil {
		t.Error("legal redemption before first coupon should fail")
	}
	if _, err := Build(issue, issue, issue.AddDate(0, 3, 0), issue.AddDate(1, 0, 0), 0); err == nil {
		t.Error("zero coupon period should fail")
	}
}
