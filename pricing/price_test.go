package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/curve"
	"github.com/meenmo/mbslib/utils"
)

func flatCurve() curve.Params {
	// No humps: g(t) == B0 == 900 bp continuously compounded.
	return curve.Params{Timestamp: utils.Date(2024, 5, 1), B0: 900, Tau: 1.5}
}

// quarterlySeries builds four quarterly coupons amortizing 250k each on a
// 1m issue paying 10% per annum.
func quarterlySeries(pricingDate time.Time) Series {
	dates := []time.Time{
		utils.Date(2024, 7, 28),
		utils.Date(2024, 10, 28),
		utils.Date(2025, 1, 28),
		utils.Date(2025, 4, 28),
	}
	prev := utils.Date(2024, 4, 28)
	principal := 1_000_000.0

	rows := make([]Row, 0, len(dates))
	for _, d := range dates {
		days := utils.Days(prev, d)
		rows = append(rows, Row{
			CouponDate:       d,
			Type:             bond.CashflowModeled,
			PrincipalStart:   principal,
			Principal:        250_000,
			Coupon:           principal * 10.0 / 100.0 * days / 365.0,
			CouponPeriodDays: days,
		})
		principal -= 250_000
		prev = d
	}
	return Series{PricingDate: pricingDate, Rows: rows, CurrentPrincipal: 1_000_000}
}

func TestDirtyCleanAccruedIdentity(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))

	m, err := PriceStandard(s, flatCurve(), bond.ZSpread(120), DefaultConfig)
	require.NoError(t, err)

	// 30 days into the period at 10% per annum.
	require.InDelta(t, 10.0*30.0/365.0, m.AccruedPct, 1e-9)
	require.InDelta(t, m.DirtyPricePct-m.AccruedPct, m.CleanPricePct, 1e-12)
	require.NotNil(t, m.YTMPercent)
	require.NotNil(t, m.GSpreadBP)
	require.NotNil(t, m.MacaulayDurationYears)
}

func TestZSpreadRoundTrip(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))
	cp := flatCurve()

	dirty, err := DirtyPriceZSpread(s, cp, 150)
	require.NoError(t, err)

	m, err := PriceStandard(s, cp, bond.DirtyPrice(dirty), DefaultConfig)
	require.NoError(t, err)
	require.NotNil(t, m.ZSpreadBP)
	require.InDelta(t, 150.0, *m.ZSpreadBP, 1e-4)
}

func TestSolvedMetricsAreConsistent(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))
	cp := flatCurve()

	m, err := PriceStandard(s, cp, bond.ZSpread(100), DefaultConfig)
	require.NoError(t, err)

	// The solved yield must reproduce the dirty price.
	require.InDelta(t, m.DirtyPricePct, DirtyPriceYTM(s, *m.YTMPercent), 1e-5)

	// G-spread is the yield in bp over the curve at the bond's duration.
	y, err := curve.Y(cp, *m.MacaulayDurationYears)
	require.NoError(t, err)
	require.InDelta(t, *m.YTMPercent*100.0-y, *m.GSpreadBP, 1e-9)

	require.InDelta(t, *m.MacaulayDurationYears/(1.0+*m.YTMPercent/100.0), *m.ModifiedDuration, 1e-12)
}

func TestCouponRateParAtIssue(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 4, 28))

	m, err := PriceStandard(s, flatCurve(), bond.CouponRate(10), DefaultConfig)
	require.NoError(t, err)
	require.Equal(t, 0.0, m.AccruedPct)
	require.Equal(t, 100.0, m.DirtyPricePct)
	require.Equal(t, 100.0, m.CleanPricePct)
}

func TestDirtyPriceYTMDecreasesInYield(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))
	require.Greater(t, DirtyPriceYTM(s, 5), DirtyPriceYTM(s, 10))
	require.Greater(t, DirtyPriceYTM(s, 10), DirtyPriceYTM(s, 20))
}

func TestMacaulayDurationFloor(t *testing.T) {
	// Nothing left to pay: the floor keeps downstream divisions defined.
	s := Series{PricingDate: utils.Date(2024, 5, 28), CurrentPrincipal: 1}
	require.Equal(t, DefaultConfig.MinDurationYears, MacaulayDuration(s, 10, DefaultConfig))
}

func TestPriceStandardNoConvergence(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))

	// A negative dirty price cannot be reproduced by positive cash flows.
	_, err := PriceStandard(s, flatCurve(), bond.DirtyPrice(-50), DefaultConfig)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoConvergence))
}

func TestDirtyPricePremiumAtRequiredIsPar(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))
	cp := flatCurve()

	// Actual premium equal to the required one leaves nothing to discount:
	// the bond is worth par plus accrued.
	for _, premium := range []float64{50, 100, 250} {
		dirty, err := DirtyPricePremium(s, cp, premium, premium)
		require.NoError(t, err)
		require.InDelta(t, 100.0+s.AccruedPercent(), dirty, 1e-12)
	}

	// A premium above the required one prices above par, below it below.
	above, err := DirtyPricePremium(s, cp, 250, 100)
	require.NoError(t, err)
	require.Greater(t, above, 100.0+s.AccruedPercent())

	below, err := DirtyPricePremium(s, cp, 50, 100)
	require.NoError(t, err)
	require.Less(t, below, 100.0+s.AccruedPercent())
}

func TestPriceFloatingRequiredPremiumMode(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))
	cp := flatCurve()

	want, err := DirtyPricePremium(s, cp, 250, 100)
	require.NoError(t, err)

	m, err := PriceFloating(s, cp, 250, bond.RequiredPremium(100), DefaultConfig)
	require.NoError(t, err)
	require.InDelta(t, want, m.DirtyPricePct, 1e-12)
	require.NotNil(t, m.RequiredPremiumBP)
	require.Equal(t, 100.0, *m.RequiredPremiumBP)
}

func TestPriceFloatingPremiumRoundTrip(t *testing.T) {
	s := quarterlySeries(utils.Date(2024, 5, 28))
	cp := flatCurve()

	dirty, err := DirtyPricePremium(s, cp, 250, 100)
	require.NoError(t, err)

	m, err := PriceFloating(s, cp, 250, bond.DirtyPrice(dirty), DefaultConfig)
	require.NoError(t, err)
	require.NotNil(t, m.RequiredPremiumBP)
	require.InDelta(t, 100.0, *m.RequiredPremiumBP, 1e-3)
}

func TestFitConstantPremium(t *testing.T) {
	dates := []time.Time{
		utils.Date(2024, 7, 28),
		utils.Date(2024, 10, 28),
		utils.Date(2025, 1, 28),
		utils.Date(2025, 4, 28),
	}
	keys := []float64{16, 15.5, 15, 14}

	prev := utils.Date(2024, 4, 28)
	principal := 1_000_000.0
	var rows []Row
	for i, d := range dates {
		days := utils.Days(prev, d)
		rows = append(rows, Row{
			CouponDate:       d,
			PrincipalStart:   principal,
			Principal:        250_000,
			Coupon:           principal * (keys[i] + 1.8) / 100.0 * days / 365.0,
			CouponPeriodDays: days,
		})
		principal -= 250_000
		prev = d
	}

	premium, err := FitConstantPremium(rows, keys, DefaultConfig)
	require.NoError(t, err)
	require.InDelta(t, 180.0, premium, 0.5)
}
