package keyrate

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RefinancingModel projects the market mortgage refinancing rate as the key
// rate plus a log-linear spread: spread = exp(Alpha0 + Alpha1*keyRate).
type RefinancingModel struct {
	Alpha0 float64
	Alpha1 float64
}

// Spread returns the modeled refinancing spread over the given key rate.
func (m RefinancingModel) Spread(keyRate float64) float64 {
	return math.Exp(m.Alpha0 + m.Alpha1*keyRate)
}

// Project walks the monthly-average key-rate series and produces the monthly
// refinancing-rate path.
//
// lastObserved seeds the path: months at or before lastObservedDate keep the
// observed rate; model months take keyRate + Spread(keyRate), with a
// monotonicity guard — when the key rate rises month over month but the
// naive projection would dip below the prior month, the prior month's rate
// is held flat instead.
func (m RefinancingModel) Project(monthlyKeyRate []Point, lastObservedDate time.Time, lastObserved float64) []Point {
	out := make([]Point, 0, len(monthlyKeyRate))
	prevRefi := lastObserved
	prevKey := math.NaN()

	for _, kp := range monthlyKeyRate {
		var refi float64
		if !kp.Date.After(lastObservedDate) {
			refi = lastObserved
		} else {
			refi = kp.Rate + m.Spread(kp.Rate)
			if !math.IsNaN(prevKey) && kp.Rate > prevKey && refi < prevRefi {
				refi = prevRefi
			}
		}
		out = append(out, Point{Date: kp.Date, Rate: refi})
		prevRefi = refi
		prevKey = kp.Rate
	}
	return out
}

// CalibrateRefinancingModel fits Alpha0/Alpha1 by ordinary least squares of
// ln(refinancingRate - keyRate) on the key rate over paired observations.
// Observations where the spread is not strictly positive are skipped.
func CalibrateRefinancingModel(keyRates, refiRates []float64) (RefinancingModel, error) {
	if len(keyRates) != len(refiRates) {
		return RefinancingModel{}, fmt.Errorf("CalibrateRefinancingModel: length mismatch %d vs %d",
			len(keyRates), len(refiRates))
	}

	xs := make([]float64, 0, len(keyRates))
	ys := make([]float64, 0, len(keyRates))
	for i := range keyRates {
		spread := refiRates[i] - keyRates[i]
		if spread <= 0 {
			continue
		}
		xs = append(xs, keyRates[i])
		ys = append(ys, math.Log(spread))
	}
	if len(xs) < 2 {
		return RefinancingModel{}, fmt.Errorf("CalibrateRefinancingModel: need at least 2 usable observations, have %d", len(xs))
	}

	alpha0, alpha1 := stat.LinearRegression(xs, ys, nil, false)
	return RefinancingModel{Alpha0: alpha0, Alpha1: alpha1}, nil
}
