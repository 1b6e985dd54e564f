package pool

import (
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/mbslib/keyrate"
)

// WriteOffDaysBeforeCoupon is the number of days before a coupon date on
// which the collection account is swept for disbursement.
const WriteOffDaysBeforeCoupon = 7

// ReinvestmentInput configures the escrow-account accrual.
type ReinvestmentInput struct {
	// Flows are the daily cash arrivals on the account.
	Flows []DailyFlow

	// WriteOffs is the amount swept for each coupon date (amortization plus
	// coupon funds leaving the account 7 days before the coupon).
	WriteOffs map[time.Time]float64

	KeyRates keyrate.Path

	// DeductionPercent is subtracted from the key rate along with the fixed
	// 0.2% margin; the deposit rate never goes below zero.
	DeductionPercent float64
}

// ReinvestmentIncome accrues daily interest on the escrow balance and
// buckets the income by the coupon date whose write-off clears it.
//
// The balance on a day is the cumulative inflow minus all write-offs dated
// at or before it; accrual for the day is balance * rate/100/365 with
// rate = max(keyRate - 0.2 - deduction, 0).
func ReinvestmentIncome(in ReinvestmentInput) (map[time.Time]float64, error) {
	if len(in.Flows) == 0 || len(in.WriteOffs) == 0 {
		return map[time.Time]float64{}, nil
	}
	if in.KeyRates.Len() == 0 {
		return nil, fmt.Errorf("ReinvestmentIncome: %w", keyrate.ErrEmptyPath)
	}

	type sweep struct {
		date   time.Time
		coupon time.Time
		amount float64
	}
	sweeps := make([]sweep, 0, len(in.WriteOffs))
	for coupon, amount := range in.WriteOffs {
		sweeps = append(sweeps, sweep{
			date:   coupon.AddDate(0, 0, -WriteOffDaysBeforeCoupon),
			coupon: coupon,
			amount: amount,
		})
	}
	sort.Slice(sweeps, func(i, j int) bool { return sweeps[i].date.Before(sweeps[j].date) })

	first := in.Flows[0].Date
	last := sweeps[len(sweeps)-1].date

	inflowByDay := make(map[time.Time]float64, len(in.Flows))
	for _, f := range in.Flows {
		inflowByDay[f.Date] = inflowByDay[f.Date] + f.Amount
		if f.Date.Before(first) {
			first = f.Date
		}
	}

	income := make(map[time.Time]float64, len(sweeps))
	var balance float64
	si := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		balance += inflowByDay[d]
		for si < len(sweeps) && sweeps[si].date.Equal(d) {
			balance -= sweeps[si].amount
			si++
		}
		if balance <= 0 {
			continue
		}

		key, err := in.KeyRates.RateAt(d)
		if err != nil {
			return nil, fmt.Errorf("ReinvestmentIncome: %w", err)
		}
		rate := key - 0.2 - in.DeductionPercent
		if rate < 0 {
			rate = 0
		}

		// The day's accrual is collected on the next sweep's coupon date.
		if si < len(sweeps) {
			income[sweeps[si].coupon] += balance * rate / 100.0 / 365.0
		}
	}
	return income, nil
}
