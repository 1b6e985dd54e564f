package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/curve"
	"github.com/meenmo/mbslib/pool"
)

// SwapRow is one netting date of the issuer's hedge swap: the fixed coupon
// outflow against the floating pool-derived inflow, both at issue level.
type SwapRow struct {
	NettingDate time.Time

	FixedSum float64

	Yield        float64
	Subsidy      float64
	Reinvestment float64
	Expense      float64
	AccruedYield float64
	FloatSum     float64
}

// BuildSwapRows pairs each modeled coupon payment with its period's pool
// collections, netted 7 days before the coupon date (the write-off date).
func BuildSwapRows(rows []Row, inflows []bond.Inflow) []SwapRow {
	byDate := make(map[time.Time]bond.Inflow, len(inflows))
	for _, inf := range inflows {
		byDate[inf.CouponDate] = inf
	}

	out := make([]SwapRow, 0, len(rows))
	for _, r := range rows {
		inf := byDate[r.CouponDate]
		total := inf.Total()
		out = append(out, SwapRow{
			NettingDate:  r.CouponDate.AddDate(0, 0, -pool.WriteOffDaysBeforeCoupon),
			FixedSum:     -r.Coupon,
			Yield:        total.Yield,
			Subsidy:      total.Subsidy,
			Reinvestment: total.Reinvestment,
			Expense:      total.Expense1 + total.Expense2,
			AccruedYield: total.AccruedYield,
			FloatSum:     total.FloatSum,
		})
	}
	return out
}

// SwapValue discounts the net swap payments at the curve plus the same
// spread used for the bond and quotes the value in percent of outstanding
// principal.
func SwapValue(rows []SwapRow, pricingDate time.Time, currentPrincipal float64, cp curve.Params, spreadBP float64) (float64, error) {
	if currentPrincipal <= 0 {
		return 0, fmt.Errorf("SwapValue: no outstanding principal at pricing date")
	}
	var pv float64
	for _, r := range rows {
		if !r.NettingDate.After(pricingDate) {
			continue
		}
		t := r.NettingDate.Sub(pricingDate).Hours() / 24 / 365.0
		y, err := curve.Y(cp, t)
		if err != nil {
			return 0, fmt.Errorf("SwapValue: %w", err)
		}
		pv += (r.FixedSum + r.FloatSum) * math.Pow(1.0+(y+spreadBP)/10000.0, -t)
	}
	return pv / currentPrincipal * 100.0, nil
}
