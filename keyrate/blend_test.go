package keyrate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/mbslib/utils"
)

var meetings = []Point{
	{utils.Date(2022, time.February, 28), 20.0},
	{utils.Date(2022, time.April, 11), 17.0},
	{utils.Date(2023, time.July, 24), 8.5},
	{utils.Date(2024, time.July, 29), 18.0},
}

func TestBlend_FrozenBeforeModelMinimumDate(t *testing.T) {
	t.Parallel()

	res, err := Blend(BlendInput{
		AsOf:     utils.Date(2022, time.May, 10),
		Meetings: meetings,
		SmoothedForecast: []Point{
			{utils.Date(2022, time.June, 30), 10.0},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Frozen)

	// Only realized history survives: the forecast is ignored and the last
	// observed rate is held flat.
	last, err := res.Path.Last()
	require.NoError(t, err)
	require.Equal(t, 17.0, last.Rate)

	r, err := res.Path.RateAt(utils.Date(2030, time.January, 1))
	require.NoError(t, err)
	require.Equal(t, 17.0, r)
}

func TestBlend_StaleSwapFallsBackToSmoothedForecast(t *testing.T) {
	t.Parallel()

	asOf := utils.Date(2024, time.August, 1)
	smoothed := []Point{
		{utils.Date(2024, time.September, 30), 17.5},
		{utils.Date(2024, time.December, 31), 16.0},
		{utils.Date(2025, time.June, 30), 12.0},
	}

	res, err := Blend(BlendInput{
		AsOf:             asOf,
		Meetings:         meetings,
		SmoothedForecast: smoothed,
		SwapPath: []Point{
			{utils.Date(2024, time.September, 30), 19.0},
		},
		SwapDate: asOf.AddDate(0, 0, -20), // 20 days old, past the cutoff
	})
	require.NoError(t, err)
	require.False(t, res.SwapUsed)

	// Forecast tail must equal the smoothed series bit-for-bit.
	pts := res.Path.Points()
	tail := pts[len(pts)-len(smoothed):]
	for i, p := range tail {
		require.Equal(t, smoothed[i].Date, p.Date)
		require.Equal(t, smoothed[i].Rate, p.Rate)
	}
}

func TestBlend_FreshSwapBlendsTowardForecastFarOut(t *testing.T) {
	t.Parallel()

	asOf := utils.Date(2024, time.August, 1)
	swapDate := asOf.AddDate(0, 0, -3)
	smoothed := []Point{
		{utils.Date(2024, time.September, 30), 16.0},
		{utils.Date(2027, time.June, 30), 8.0},
	}
	swapPath := []Point{
		{utils.Date(2024, time.September, 30), 18.0},
		{utils.Date(2027, time.June, 30), 18.0},
	}

	res, err := Blend(BlendInput{
		AsOf:             asOf,
		Meetings:         meetings,
		SmoothedForecast: smoothed,
		SwapPath:         swapPath,
		SwapDate:         swapDate,
	})
	require.NoError(t, err)
	require.True(t, res.SwapUsed)

	nearRate, err := res.Path.RateAt(utils.Date(2024, time.October, 1))
	require.NoError(t, err)
	farRate, err := res.Path.RateAt(utils.Date(2027, time.July, 1))
	require.NoError(t, err)

	// Near-term the swap path dominates; far out the weight 1/(1+yearsAhead)
	// shifts toward the smoothed forecast.
	require.Greater(t, nearRate, 17.0)
	require.Less(t, farRate, 12.0)

	// Quarter-point grid.
	for _, p := range res.Path.Points() {
		snapped := utils.RoundTo(p.Rate*4, 2) / 4
		require.InDelta(t, snapped, p.Rate, 1e-12)
	}
}

func TestBlend_UserPathOverridesEverything(t *testing.T) {
	t.Parallel()

	asOf := utils.Date(2024, time.August, 1)
	user := []Point{
		{utils.Date(2024, time.September, 1), 10.0},
		{utils.Date(2025, time.September, 1), 6.0},
	}

	res, err := Blend(BlendInput{
		AsOf:     asOf,
		Meetings: meetings,
		SmoothedForecast: []Point{
			{utils.Date(2024, time.September, 30), 17.5},
		},
		SwapPath: []Point{{utils.Date(2024, time.September, 30), 19.0}},
		SwapDate: asOf,
		UserPath: user,
	})
	require.NoError(t, err)
	require.False(t, res.SwapUsed)

	r, err := res.Path.RateAt(utils.Date(2025, time.December, 1))
	require.NoError(t, err)
	require.Equal(t, 6.0, r)
}

func TestBlend_NoDataFails(t *testing.T) {
	t.Parallel()

	_, err := Blend(BlendInput{AsOf: utils.Date(2024, time.August, 1)})
	require.ErrorIs(t, err, ErrNoRateData)
}

func TestMonthlyAverage(t *testing.T) {
	t.Parallel()

	p, err := NewPath([]Point{
		{utils.Date(2024, time.January, 1), 16.0},
		{utils.Date(2024, time.February, 16), 18.0},
	})
	require.NoError(t, err)

	avg, err := MonthlyAverage(p, utils.Date(2024, time.January, 1), utils.Date(2024, time.March, 31))
	require.NoError(t, err)
	require.Len(t, avg, 3)

	require.Equal(t, utils.Date(2024, time.January, 31), avg[0].Date)
	require.Equal(t, 16.0, avg[0].Rate)

	// February 2024: 15 days at 16.0, 14 days at 18.0.
	wantFeb := (15*16.0 + 14*18.0) / 29.0
	require.InDelta(t, wantFeb, avg[1].Rate, 1e-12)

	require.Equal(t, 18.0, avg[2].Rate)
}

func TestRefinancingModel_MonotonicGuard(t *testing.T) {
	t.Parallel()

	// Alpha1 < 0 with a large magnitude makes the naive projection dip as the
	// key rate rises; the guard must hold the prior month flat instead.
	m := RefinancingModel{Alpha0: 3.0, Alpha1: -0.35}

	months := []Point{
		{utils.Date(2024, time.January, 31), 7.0},
		{utils.Date(2024, time.February, 29), 9.0},
		{utils.Date(2024, time.March, 31), 12.0},
		{utils.Date(2024, time.April, 30), 16.0},
	}
	refi := m.Project(months, utils.Date(2023, time.December, 31), 10.0)
	require.Len(t, refi, 4)

	for i := 1; i < len(refi); i++ {
		require.GreaterOrEqual(t, refi[i].Rate, refi[i-1].Rate,
			"refinancing rate dipped at %s while key rate was rising", refi[i].Date.Format("2006-01-02"))
	}
}

func TestRefinancingModel_ObservedMonthsHeld(t *testing.T) {
	t.Parallel()

	m := RefinancingModel{Alpha0: 0.5, Alpha1: 0.05}
	months := []Point{
		{utils.Date(2024, time.January, 31), 16.0},
		{utils.Date(2024, time.February, 29), 16.0},
	}
	refi := m.Project(months, utils.Date(2024, time.January, 31), 17.2)

	require.Equal(t, 17.2, refi[0].Rate)
	require.InDelta(t, 16.0+m.Spread(16.0), refi[1].Rate, 1e-12)
}

func TestCalibrateRefinancingModel_RecoversCoefficients(t *testing.T) {
	t.Parallel()

	want := RefinancingModel{Alpha0: 1.1, Alpha1: -0.12}
	var keys, refis []float64
	for k := 4.0; k <= 20.0; k += 0.5 {
		keys = append(keys, k)
		refis = append(refis, k+want.Spread(k))
	}

	got, err := CalibrateRefinancingModel(keys, refis)
	require.NoError(t, err)
	require.InDelta(t, want.Alpha0, got.Alpha0, 1e-9)
	require.InDelta(t, want.Alpha1, got.Alpha1, 1e-9)
	require.False(t, math.IsNaN(got.Spread(10)))
}
