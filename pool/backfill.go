package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/meenmo/mbslib/schedule"
	"github.com/meenmo/mbslib/utils"
)

// BackfillInput configures the recovery of historical months not yet
// reflected in investor reports.
type BackfillInput struct {
	Schedule *schedule.Schedule
	Model    Model

	// Base is the request template (curves, rates); Backfill narrows its
	// report/stop window per month.
	Base ModelRequest

	// ReportMonth is the pool report's month: the earliest month already
	// present in Known.
	ReportMonth time.Time
	Known       Table

	// FirstModelCoupon is the first coupon date the engine must model;
	// PrevCoupon the coupon preceding the pricing date.
	FirstModelCoupon time.Time
	PrevCoupon       time.Time

	Subsidized   bool
	Reinvestment bool

	// RealizedCDR returns the realized annualized default rate for a
	// historical month, from servicing statistics.
	RealizedCDR func(month time.Time) float64
}

// Backfill walks backward from the pool report month and re-runs the model
// one month at a time to recover the actual historical cash flows the
// investor reports do not yet cover.
//
// A month is recovered while its coupon date has not dropped below the
// first modeled coupon, or (for subsidized pools) its subsidy still settles
// at or after that coupon, or (with reinvestment) it belongs to the still
// open computation period. Each recovered month must keep the pool debt
// non-increasing.
func Backfill(ctx context.Context, in BackfillInput) (Table, []DailyFlow, error) {
	if in.Schedule == nil || in.Model == nil {
		return Table{}, nil, fmt.Errorf("Backfill: schedule and model are required")
	}

	merged := Table{
		Fixed: append([]Row(nil), in.Known.Fixed...),
		Float: append([]Row(nil), in.Known.Float...),
	}
	var flows []DailyFlow

	for m := utils.AddMonth(utils.BeginningOfMonth(in.ReportMonth), -1); in.needsMonth(m); m = utils.AddMonth(m, -1) {
		cdr := 0.0
		if in.RealizedCDR != nil {
			cdr = in.RealizedCDR(m)
		}

		req := in.Base
		req.ReportDate = m
		req.StopDate = utils.AddMonth(m, 1)
		req.CDR = &cdr
		req.Reinvestment = in.Reinvestment

		res, err := in.Model.Run(ctx, req)
		if err != nil {
			return Table{}, nil, fmt.Errorf("Backfill: model run for %s: %w", m.Format("2006-01"), err)
		}

		if err := prependRecovered(&merged.Fixed, res.Fixed, m, cdr); err != nil {
			return Table{}, nil, fmt.Errorf("Backfill: %w", err)
		}
		if err := prependRecovered(&merged.Float, res.Float, m, cdr); err != nil {
			return Table{}, nil, fmt.Errorf("Backfill: %w", err)
		}
		flows = append(flows, res.DailyFlows...)
	}

	return merged, flows, nil
}

func (in BackfillInput) needsMonth(m time.Time) bool {
	coupon, ok := in.Schedule.CouponForMonth(m)
	if !ok {
		return false
	}
	if !coupon.Before(in.FirstModelCoupon) {
		return true
	}
	if in.Subsidized {
		if sc, ok := in.Schedule.SubsidyCouponDate(m); ok && !sc.Before(in.FirstModelCoupon) {
			return true
		}
	}
	if in.Reinvestment && !coupon.Before(in.PrevCoupon) {
		return true
	}
	return false
}

// prependRecovered inserts the single recovered month ahead of the rows
// already collected, re-splitting its amortization with the realized
// default rate and enforcing debt monotonicity against the following month.
func prependRecovered(dst *[]Row, recovered []Row, month time.Time, cdr float64) error {
	if len(recovered) == 0 {
		return nil
	}
	row := recovered[0]
	row.PaymentMonth = utils.BeginningOfMonth(month)
	row = splitRecovered(row, cdr)

	if len(*dst) > 0 {
		next := (*dst)[0]
		if row.Debt < next.Debt {
			return fmt.Errorf("prependRecovered: debt %.2f in %s below %.2f in %s: %w",
				row.Debt, row.PaymentMonth.Format("2006-01"),
				next.Debt, next.PaymentMonth.Format("2006-01"), ErrDebtIncreased)
		}
	}
	*dst = append([]Row{row}, *dst...)
	return nil
}

// splitRecovered decomposes a recovered month's total amortization:
// scheduled capped by the model's scheduled figure, defaults capped by the
// realized monthly default fraction on debt, the remainder prepayment.
func splitRecovered(r Row, cdr float64) Row {
	scheduled := r.Scheduled
	if scheduled > r.Amortization {
		scheduled = r.Amortization
	}
	left := r.Amortization - scheduled

	defaults := r.Debt * MonthlyDefaultFraction(cdr)
	if defaults > left {
		defaults = left
	}

	r.Scheduled = scheduled
	r.Defaults = defaults
	r.Prepayment = left - defaults
	return r
}
