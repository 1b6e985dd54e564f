package keyrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/mbslib/utils"
)

// ModelMinimumDate is the activation date of the forecasting model. For
// as-of dates before it no forecasting is attempted: both the key-rate path
// and the refinancing-rate path are frozen at their last observed values.
var ModelMinimumDate = utils.Date(2022, time.June, 1)

// SwapFreshnessDays is the maximum age of the swap-implied path for it to
// participate in the blend.
const SwapFreshnessDays = 14

// ErrNoRateData is returned when neither history nor any forecast source is
// available, so no path can be produced.
var ErrNoRateData = errors.New("no key rate history or forecast available")

// BlendInput collects the sources merged into a single key-rate path.
type BlendInput struct {
	// AsOf is the model date: realized points at or before it are history,
	// everything after it is forecast.
	AsOf time.Time

	// Meetings are the realized policy decisions (effective date, rate).
	Meetings []Point

	// SmoothedForecast is the interpolated medium-term policy forecast.
	// Optional.
	SmoothedForecast []Point

	// SwapPath is the market-implied path derived from swap quotes, dated
	// SwapDate. Optional.
	SwapPath []Point
	SwapDate time.Time

	// UserPath, when non-empty, overrides every forecast source.
	UserPath []Point
}

// BlendResult is the merged path plus bookkeeping about which sources fed it.
type BlendResult struct {
	Path Path

	// Frozen reports that AsOf predates ModelMinimumDate and the path is
	// history held flat.
	Frozen bool

	// SwapUsed reports that the swap-implied path participated in the blend.
	SwapUsed bool
}

// Blend produces the single merged key-rate path from history and the
// available forecast sources.
//
// Forecast precedence: a caller-supplied path overrides everything; a fresh
// swap-implied path (SwapDate within SwapFreshnessDays of AsOf) is blended
// with the smoothed policy forecast, weighting the swap path by
// 1/(1+yearsAhead); a stale swap path is ignored entirely and the smoothed
// forecast is used alone. Blended values are snapped to the quarter-point
// grid.
func Blend(in BlendInput) (BlendResult, error) {
	history := pointsAtOrBefore(in.Meetings, in.AsOf)

	if in.AsOf.Before(ModelMinimumDate) {
		if len(history) == 0 {
			return BlendResult{}, fmt.Errorf("Blend: %w", ErrNoRateData)
		}
		p, err := NewPath(history)
		if err != nil {
			return BlendResult{}, fmt.Errorf("Blend: %w", err)
		}
		return BlendResult{Path: p, Frozen: true}, nil
	}

	forecast, swapUsed := selectForecast(in)
	if len(history) == 0 && len(forecast) == 0 {
		return BlendResult{}, fmt.Errorf("Blend: %w", ErrNoRateData)
	}

	merged := make([]Point, 0, len(history)+len(forecast))
	merged = append(merged, history...)
	for _, p := range forecast {
		if p.Date.After(in.AsOf) {
			merged = append(merged, p)
		}
	}

	path, err := NewPath(merged)
	if err != nil {
		return BlendResult{}, fmt.Errorf("Blend: %w", err)
	}
	return BlendResult{Path: path, SwapUsed: swapUsed}, nil
}

func selectForecast(in BlendInput) (forecast []Point, swapUsed bool) {
	if len(in.UserPath) > 0 {
		return in.UserPath, false
	}

	swapFresh := len(in.SwapPath) > 0 &&
		!in.SwapDate.IsZero() &&
		utils.Days(in.SwapDate, in.AsOf) <= SwapFreshnessDays

	if !swapFresh {
		return in.SmoothedForecast, false
	}
	if len(in.SmoothedForecast) == 0 {
		return snapQuarter(in.SwapPath), true
	}

	smooth, err := NewPath(in.SmoothedForecast)
	if err != nil {
		return in.SmoothedForecast, false
	}

	out := make([]Point, 0, len(in.SwapPath)+len(in.SmoothedForecast))
	for _, p := range in.SwapPath {
		yearsAhead := utils.Days(in.SwapDate, p.Date) / 365.0
		if yearsAhead < 0 {
			yearsAhead = 0
		}
		w := 1.0 / (1.0 + yearsAhead)
		smoothRate, rerr := smooth.RateAt(p.Date)
		if rerr != nil {
			smoothRate = p.Rate
		}
		blended := p.Rate*w + smoothRate*(1.0-w)
		out = append(out, Point{Date: p.Date, Rate: utils.RoundTo(blended*4, 2) / 4})
	}

	// The smoothed forecast usually extends past the swap path; keep its tail.
	last := out[len(out)-1].Date
	for _, p := range in.SmoothedForecast {
		if p.Date.After(last) {
			out = append(out, p)
		}
	}
	return out, true
}

func snapQuarter(points []Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Date: p.Date, Rate: utils.RoundTo(p.Rate*4, 2) / 4}
	}
	return out
}

func pointsAtOrBefore(points []Point, d time.Time) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if !p.Date.After(d) {
			out = append(out, p)
		}
	}
	return out
}

// MonthlyAverage forward-fills the path across every calendar day from the
// first day of from's month through the last day of to's month and returns
// month-end dated means.
func MonthlyAverage(p Path, from, to time.Time) ([]Point, error) {
	if p.Len() == 0 {
		return nil, fmt.Errorf("MonthlyAverage: %w", ErrEmptyPath)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("MonthlyAverage: to %s before from %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	var out []Point
	month := utils.BeginningOfMonth(from)
	stop := utils.BeginningOfMonth(to)
	for !month.After(stop) {
		end := utils.MonthEnd(month)
		var sum float64
		var days int
		for d := month; !d.After(end); d = d.AddDate(0, 0, 1) {
			r, err := p.RateAt(d)
			if err != nil {
				return nil, fmt.Errorf("MonthlyAverage: %w", err)
			}
			sum += r
			days++
		}
		out = append(out, Point{Date: end, Rate: sum / float64(days)})
		month = month.AddDate(0, 1, 0)
	}
	return out, nil
}
