// Package bond holds the issue terms of a mortgage-backed bond, the pricing
// mode selection, the amortization waterfall and the coupon calculators.
package bond

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks a fatal input-validation failure: the caller supplied
// terms or parameters that violate a documented financial precondition.
var ErrValidation = errors.New("validation error")

// CouponType selects how the coupon payment is computed.
type CouponType int

const (
	// CouponFixed pays a fixed annual rate on outstanding principal.
	CouponFixed CouponType = 1
	// CouponPassThrough pays out net pool collections for the period.
	CouponPassThrough CouponType = 2
	// CouponFloating pays the key rate plus a fixed premium.
	CouponFloating CouponType = 3
)

func (c CouponType) String() string {
	switch c {
	case CouponFixed:
		return "fixed"
	case CouponPassThrough:
		return "pass-through"
	case CouponFloating:
		return "floating"
	default:
		return fmt.Sprintf("CouponType(%d)", int(c))
	}
}

// PoolType classifies the mortgage cover by the share of subsidized
// (floating-rate) loans.
type PoolType int

const (
	// PoolFixed: the cover consists entirely of fixed-rate loans.
	PoolFixed PoolType = 1
	// PoolFloat: the cover consists entirely of subsidized floating-rate loans.
	PoolFloat PoolType = 2
	// PoolMixed: both kinds are present.
	PoolMixed PoolType = 3
)

// PoolTypeFromFraction derives the pool type from the subsidized-loan
// fraction in percent. Up to half a percent either way counts as pure.
func PoolTypeFromFraction(subsidizedPercent float64) PoolType {
	switch {
	case subsidizedPercent <= 0.5:
		return PoolFixed
	case subsidizedPercent >= 99.5:
		return PoolFloat
	default:
		return PoolMixed
	}
}

// fixedAmortizationISINs are issues amortizing on a published fixed schedule
// rather than pool collections.
var fixedAmortizationISINs = map[string]bool{
	"RU000A100DQ4":      true,
	"4-09-00307-R-002P": true,
}

// Terms are the immutable issue terms, loaded once from the data source at
// engine construction.
type Terms struct {
	ISIN string
	Name string

	IssueDate            time.Time
	DeliveryDate         time.Time
	FirstCouponDate      time.Time
	LegalRedemptionDate  time.Time
	ActualRedemptionDate time.Time

	CouponPeriodMonths int
	CouponType         CouponType

	// NumBonds is the number of bonds in the issue.
	NumBonds int64
	// StartBondPrincipal is the face value of one bond at issue.
	StartBondPrincipal float64
	// StartIssuePrincipal is NumBonds * StartBondPrincipal.
	StartIssuePrincipal float64

	// CleanUpPercent is the clean-up call threshold as percent of the
	// starting issue principal.
	CleanUpPercent float64

	// FirstCouponFeePercent / OtherCouponsFeePercent are the mortgage-agent
	// servicing tariffs (per annum, percent of outstanding debt).
	FirstCouponFeePercent  float64
	OtherCouponsFeePercent float64

	// ReinvestmentFlag enables escrow-account reinvestment income.
	ReinvestmentFlag bool

	// FixedCouponRate is set for CouponFixed issues (percent per annum).
	FixedCouponRate *float64
	// FixedKeyRatePremium is set for CouponFloating issues (percent).
	FixedKeyRatePremium *float64

	// SubsidizedFraction is the share of subsidized loans in the cover, in
	// percent.
	SubsidizedFraction float64

	// CouponRounding rounds the per-bond coupon to kopecks.
	CouponRounding bool
}

// PoolKind returns the cover classification for these terms.
func (t Terms) PoolKind() PoolType {
	return PoolTypeFromFraction(t.SubsidizedFraction)
}

// FixedAmortization reports whether the issue amortizes on a published
// schedule instead of pool collections.
func (t Terms) FixedAmortization() bool {
	return fixedAmortizationISINs[t.ISIN]
}

// CleanUpRubles is the clean-up threshold in currency units.
func (t Terms) CleanUpRubles() float64 {
	return t.StartIssuePrincipal * t.CleanUpPercent / 100.0
}

// Validate checks internal consistency of the issue terms.
func (t Terms) Validate() error {
	if t.ISIN == "" {
		return fmt.Errorf("Terms: missing bond identifier: %w", ErrValidation)
	}
	if t.NumBonds <= 0 {
		return fmt.Errorf("Terms: %s: bond count must be positive: %w", t.ISIN, ErrValidation)
	}
	if t.CouponPeriodMonths <= 0 {
		return fmt.Errorf("Terms: %s: coupon period must be positive: %w", t.ISIN, ErrValidation)
	}
	if !t.IssueDate.Before(t.FirstCouponDate) {
		return fmt.Errorf("Terms: %s: first coupon date must follow issue date: %w", t.ISIN, ErrValidation)
	}
	if t.LegalRedemptionDate.Before(t.FirstCouponDate) {
		return fmt.Errorf("Terms: %s: legal redemption before first coupon: %w", t.ISIN, ErrValidation)
	}
	switch t.CouponType {
	case CouponFixed:
		if t.FixedCouponRate == nil {
			return fmt.Errorf("Terms: %s: fixed coupon issue without a coupon rate: %w", t.ISIN, ErrValidation)
		}
		if t.FixedKeyRatePremium != nil {
			return fmt.Errorf("Terms: %s: fixed coupon issue with a key rate premium: %w", t.ISIN, ErrValidation)
		}
	case CouponFloating:
		if t.FixedKeyRatePremium == nil {
			return fmt.Errorf("Terms: %s: floating coupon issue without a key rate premium: %w", t.ISIN, ErrValidation)
		}
		if t.FixedCouponRate != nil {
			return fmt.Errorf("Terms: %s: floating coupon issue with a fixed coupon rate: %w", t.ISIN, ErrValidation)
		}
	case CouponPassThrough:
		if t.FixedCouponRate != nil || t.FixedKeyRatePremium != nil {
			return fmt.Errorf("Terms: %s: pass-through issue with a fixed rate or premium: %w", t.ISIN, ErrValidation)
		}
	default:
		return fmt.Errorf("Terms: %s: unknown coupon type %d: %w", t.ISIN, int(t.CouponType), ErrValidation)
	}
	return nil
}
