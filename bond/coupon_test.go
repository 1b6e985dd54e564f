package bond

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/schedule"
	"github.com/meenmo/mbslib/utils"
)

func testSchedule(t *testing.T, terms Terms) *schedule.Schedule {
	t.Helper()
	s, err := schedule.Build(terms.IssueDate, terms.DeliveryDate, terms.FirstCouponDate,
		terms.LegalRedemptionDate, terms.CouponPeriodMonths)
	require.NoError(t, err)
	return s
}

func TestComputeCoupons_Fixed(t *testing.T) {
	t.Parallel()

	terms := testTerms()
	s := testSchedule(t, terms)

	rows := []IssueCashflowRow{{
		CouponDate: utils.Date(2020, time.April, 15),
		Fixed:      Leg{PrincipalStart: 1_000_000_000},
	}}

	out, err := ComputeCoupons(CouponInput{Terms: terms, Schedule: s}, rows)
	require.NoError(t, err)

	// 91 days between 2020-01-15 and 2020-04-15 at 10% on 1bn.
	want := 1_000_000_000 * 0.10 * 91.0 / 365.0
	require.InDelta(t, want, out[0].Fixed.Coupon, 1e-6)
}

func TestComputeCoupons_FixedWithRounding(t *testing.T) {
	t.Parallel()

	terms := testTerms()
	terms.CouponRounding = true
	s := testSchedule(t, terms)

	rows := []IssueCashflowRow{{
		CouponDate: utils.Date(2020, time.April, 15),
		Fixed:      Leg{PrincipalStart: 1_000_000_000},
	}}

	out, err := ComputeCoupons(CouponInput{Terms: terms, Schedule: s}, rows)
	require.NoError(t, err)

	// Per-bond coupon 24.93150684.. rounds to 24.93.
	require.Equal(t, 24.93*float64(terms.NumBonds), out[0].Fixed.Coupon)
}

func TestComputeCoupons_PassThroughFloorAndCarry(t *testing.T) {
	t.Parallel()

	terms := testTerms()
	terms.CouponType = CouponPassThrough
	terms.FixedCouponRate = nil
	s := testSchedule(t, terms)

	d1 := utils.Date(2020, time.April, 15)
	d2 := utils.Date(2020, time.July, 15)

	inflows := []Inflow{
		{CouponDate: d1, Fixed: Flows{FloatSum: 25_000_007_000}},
		{CouponDate: d2, Fixed: Flows{FloatSum: 24_999_993_000}},
	}
	rows := []IssueCashflowRow{
		{CouponDate: d1, Fixed: Leg{PrincipalStart: 1_000_000_000}},
		{CouponDate: d2, Fixed: Leg{PrincipalStart: 980_000_000}},
	}

	out, err := ComputeCoupons(CouponInput{Terms: terms, Schedule: s, Inflows: inflows}, rows)
	require.NoError(t, err)

	// 25_000_007_000 / 1m bonds = 25000.007 -> 25000.00 per bond.
	require.Equal(t, 25_000_000_000.0, out[0].Fixed.Coupon)

	// The 7000 remainder carries: 24_999_993_000 + 7000 = 25_000_000_000,
	// which divides evenly again.
	require.Equal(t, 25_000_000_000.0, out[1].Fixed.Coupon)
}

func TestComputeCoupons_Floating(t *testing.T) {
	t.Parallel()

	terms := testTerms()
	terms.CouponType = CouponFloating
	terms.FixedCouponRate = nil
	premium := 1.5
	terms.FixedKeyRatePremium = &premium
	s := testSchedule(t, terms)

	path, err := keyrate.NewPath([]keyrate.Point{
		{Date: utils.Date(2019, time.January, 1), Rate: 7.0},
		{Date: utils.Date(2019, time.December, 15), Rate: 6.5},
	})
	require.NoError(t, err)

	rows := []IssueCashflowRow{{
		CouponDate: utils.Date(2020, time.April, 15),
		Float:      Leg{PrincipalStart: 1_000_000_000},
	}}

	out, err := ComputeCoupons(CouponInput{Terms: terms, Schedule: s, KeyRates: path}, rows)
	require.NoError(t, err)

	// The 2020-04-15 coupon's computation period starts 2019-12-01: the key
	// rate effective on that day is still 7.0 (the December cut is mid-month).
	want := 1_000_000_000 * (7.0 + 1.5) / 100.0 * 91.0 / 365.0
	require.InDelta(t, want, out[0].Float.Coupon, 1e-6)
}

func TestComputeCoupons_FloatingNeedsPath(t *testing.T) {
	t.Parallel()

	terms := testTerms()
	terms.CouponType = CouponFloating
	terms.FixedCouponRate = nil
	premium := 1.5
	terms.FixedKeyRatePremium = &premium
	s := testSchedule(t, terms)

	_, err := ComputeCoupons(CouponInput{Terms: terms, Schedule: s}, []IssueCashflowRow{{
		CouponDate: utils.Date(2020, time.April, 15),
	}})
	require.ErrorIs(t, err, ErrValidation)
}
