package bond

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInsufficientCollateral is returned when the first-period collateral
// shortfall exceeds the period's collected amortization, which would drive
// the net amortization negative.
var ErrInsufficientCollateral = errors.New("pool collateral insufficient for issue principal")

// WaterfallInput configures one waterfall run over the modeled periods.
type WaterfallInput struct {
	Terms Terms

	// Inflows are the allocator's per-coupon-date collections, in strict
	// coupon-date order starting at the first modeled period.
	Inflows []Inflow

	// Principal outstanding per sub-tranche at the start of the first
	// modeled period.
	StartPrincipalFixed float64
	StartPrincipalFloat float64

	// AdjustFirstPeriod enables the collateral-difference adjustment: it
	// applies when the first modeled period is the issue's first coupon.
	// PoolDebtAtDelivery is the cover's debt on the delivery date.
	AdjustFirstPeriod  bool
	PoolDebtAtDelivery float64
}

// RunWaterfall converts period collections into issue-level principal
// paydown.
//
// Per coupon date the available cash of a sub-tranche is its amortization
// inflow plus the residual carried from the previous period's floor
// rounding. While collections fall short of outstanding principal and the
// clean-up threshold has not been breached, the floored amount is disbursed
// and the remainder carried. Once the threshold is breached, or on the legal
// redemption date, the issue is paid off in full, any shortfall drawn as
// clean-up. When collections cover the outstanding principal, the issue
// pays off from collections pro-rated by component share.
func RunWaterfall(in WaterfallInput) ([]IssueCashflowRow, error) {
	if err := in.Terms.Validate(); err != nil {
		return nil, fmt.Errorf("RunWaterfall: %w", err)
	}
	if len(in.Inflows) == 0 {
		return nil, fmt.Errorf("RunWaterfall: %s: no inflow periods: %w", in.Terms.ISIN, ErrValidation)
	}

	inflows := make([]Inflow, len(in.Inflows))
	copy(inflows, in.Inflows)

	if in.AdjustFirstPeriod {
		adjusted, err := applyCollateralDifference(in.Terms, inflows[0], in.PoolDebtAtDelivery)
		if err != nil {
			return nil, fmt.Errorf("RunWaterfall: %w", err)
		}
		inflows[0] = adjusted
	}

	var (
		rows       []IssueCashflowRow
		outFixed   = in.StartPrincipalFixed
		outFloat   = in.StartPrincipalFloat
		resFixed   float64
		resFloat   float64
		num        = in.Terms.NumBonds
		cleanUpRub = in.Terms.CleanUpRubles()
		redemption = in.Terms.LegalRedemptionDate
	)

	for _, inf := range inflows {
		outstanding := outFixed + outFloat
		if outstanding <= 0 {
			break
		}

		availFixed := inf.Fixed.Amortization + resFixed
		availFloat := inf.Float.Amortization + resFloat
		avail := availFixed + availFloat

		row := IssueCashflowRow{CouponDate: inf.CouponDate, Type: CashflowModeled}

		switch {
		case avail < outstanding && outstanding >= cleanUpRub && inf.CouponDate.Before(redemption):
			// Partial paydown: disburse floored amounts, carry remainders.
			payFixed := floorToBondUnits(availFixed, num)
			payFloat := floorToBondUnits(availFloat, num)

			row.Fixed = partialLeg(inf.Fixed, outFixed, payFixed)
			row.Float = partialLeg(inf.Float, outFloat, payFloat)

			resFixed = availFixed - payFixed
			resFloat = availFloat - payFloat
			outFixed -= payFixed
			outFloat -= payFloat
			rows = append(rows, row)

		case avail < outstanding:
			// Clean-up threshold breached or legal redemption reached: full
			// payoff, shortfall drawn as clean-up.
			row.Fixed = cleanUpLeg(inf.Fixed, outFixed, availFixed)
			row.Float = cleanUpLeg(inf.Float, outFloat, availFloat)
			rows = append(rows, row)
			return rows, nil

		default:
			// Collections cover the outstanding principal.
			row.Fixed = proRatedLeg(inf.Fixed, outFixed, availFixed)
			row.Float = proRatedLeg(inf.Float, outFloat, availFloat)
			rows = append(rows, row)
			return rows, nil
		}
	}

	return rows, nil
}

// floorToBondUnits floors an issue-level amount down to the nearest value
// whose per-bond share is a whole number of currency minor units.
func floorToBondUnits(amount float64, numBonds int64) float64 {
	if amount <= 0 {
		return 0
	}
	n := decimal.NewFromInt(numBonds)
	perBond := decimal.NewFromFloat(amount).Div(n).RoundFloor(2)
	return perBond.Mul(n).InexactFloat64()
}

func partialLeg(f Flows, principalStart, pay float64) Leg {
	return Leg{
		PrincipalStart: principalStart,
		Amortization:   pay,
		Prepayment:     f.Prepayment,
		Defaults:       f.Defaults,
		Difference:     f.Difference,
		Scheduled:      pay - f.Prepayment - f.Defaults - f.Difference,
	}
}

func cleanUpLeg(f Flows, principalStart, avail float64) Leg {
	cleanUp := principalStart - avail
	return Leg{
		PrincipalStart: principalStart,
		Amortization:   principalStart,
		Prepayment:     f.Prepayment,
		Defaults:       f.Defaults,
		Difference:     f.Difference,
		CleanUp:        cleanUp,
		Scheduled:      avail - f.Prepayment - f.Defaults - f.Difference,
	}
}

func proRatedLeg(f Flows, principalStart, avail float64) Leg {
	pay := principalStart
	factor := 0.0
	if avail > 0 {
		factor = pay / avail
	}
	prep := f.Prepayment * factor
	def := f.Defaults * factor
	diff := f.Difference * factor
	return Leg{
		PrincipalStart: principalStart,
		Amortization:   pay,
		Prepayment:     prep,
		Defaults:       def,
		Difference:     diff,
		Scheduled:      pay - prep - def - diff,
	}
}

// applyCollateralDifference reconciles the pool debt at delivery with the
// issue principal in the first coupon period. Surplus collateral passes
// through as an extra difference inflow; a shortfall is absorbed pro-rata
// from the period's amortization components and is fatal if it exceeds
// them.
func applyCollateralDifference(t Terms, first Inflow, poolDebt float64) (Inflow, error) {
	diff := poolDebt - t.StartIssuePrincipal
	if diff == 0 {
		return first, nil
	}

	totalAmort := first.Fixed.Amortization + first.Float.Amortization

	if diff > 0 {
		// Split the surplus across sub-tranches by amortization share.
		fixedShare := 0.5
		if totalAmort > 0 {
			fixedShare = first.Fixed.Amortization / totalAmort
		} else if first.Float.Amortization == 0 && first.Fixed.Amortization == 0 {
			fixedShare = 1.0
		}
		first.Fixed.Difference += diff * fixedShare
		first.Fixed.Amortization += diff * fixedShare
		first.Float.Difference += diff * (1 - fixedShare)
		first.Float.Amortization += diff * (1 - fixedShare)
		return first, nil
	}

	shortfall := -diff
	if shortfall > totalAmort {
		return Inflow{}, fmt.Errorf("applyCollateralDifference: %s: collateral shortfall %.2f exceeds first-period amortization %.2f: %w",
			t.ISIN, shortfall, totalAmort, ErrInsufficientCollateral)
	}

	scale := (totalAmort - shortfall) / totalAmort
	first.Fixed = scaleAmortization(first.Fixed, scale)
	first.Float = scaleAmortization(first.Float, scale)
	return first, nil
}

func scaleAmortization(f Flows, scale float64) Flows {
	f.Scheduled *= scale
	f.Prepayment *= scale
	f.Defaults *= scale
	f.Amortization = f.Scheduled + f.Prepayment + f.Defaults + f.Difference
	return f
}
