package bond

import (
	"fmt"
)

// ModeKind enumerates the pricing-mode variants.
type ModeKind int

const (
	ModeZSpread ModeKind = iota + 1
	ModeGSpread
	ModeDirtyPrice
	ModeCleanPrice
	ModeRequiredPremium
	ModeCouponRate
)

func (k ModeKind) String() string {
	switch k {
	case ModeZSpread:
		return "zSpread"
	case ModeGSpread:
		return "gSpread"
	case ModeDirtyPrice:
		return "dirtyPrice"
	case ModeCleanPrice:
		return "cleanPrice"
	case ModeRequiredPremium:
		return "requiredKeyRatePremium"
	case ModeCouponRate:
		return "couponRate"
	default:
		return fmt.Sprintf("ModeKind(%d)", int(k))
	}
}

// PricingMode is the single pricing parameter of a run: exactly one variant
// carrying its value. The zero value is invalid; construct through
// ParsePricingMode or the typed constructors.
type PricingMode struct {
	kind  ModeKind
	value float64
}

func (m PricingMode) Kind() ModeKind { return m.kind }
func (m PricingMode) Value() float64 { return m.value }

func (m PricingMode) String() string {
	return fmt.Sprintf("%s=%v", m.kind, m.value)
}

// Parameter bounds. Spreads and premiums are in basis points, prices in
// percent of outstanding principal, coupon rates in percent per annum.
const (
	minSpreadBP  = -300.0
	maxSpreadBP  = 500.0
	minPricePct  = 10.0
	maxPricePct  = 150.0
	minCouponPct = 0.0
	maxCouponPct = 20.0
)

// ZSpread constructs the Z-spread pricing mode.
func ZSpread(bp float64) PricingMode { return PricingMode{ModeZSpread, bp} }

// GSpread constructs the G-spread pricing mode.
func GSpread(bp float64) PricingMode { return PricingMode{ModeGSpread, bp} }

// DirtyPrice constructs the dirty-price pricing mode.
func DirtyPrice(pct float64) PricingMode { return PricingMode{ModeDirtyPrice, pct} }

// CleanPrice constructs the clean-price pricing mode.
func CleanPrice(pct float64) PricingMode { return PricingMode{ModeCleanPrice, pct} }

// RequiredPremium constructs the required-key-rate-premium pricing mode.
func RequiredPremium(bp float64) PricingMode { return PricingMode{ModeRequiredPremium, bp} }

// CouponRate constructs the issuance coupon-rate pricing mode.
func CouponRate(pct float64) PricingMode { return PricingMode{ModeCouponRate, pct} }

// ModeParams is the loose request shape: at most one field may be set.
type ModeParams struct {
	ZSpread                *float64
	GSpread                *float64
	DirtyPrice             *float64
	CleanPrice             *float64
	RequiredKeyRatePremium *float64
	CouponRate             *float64
}

// ParsePricingMode validates that exactly one pricing parameter is supplied
// and that it sits inside its documented range.
func ParsePricingMode(p ModeParams) (PricingMode, error) {
	var mode PricingMode
	set := 0

	pick := func(v *float64, kind ModeKind) {
		if v != nil {
			set++
			mode = PricingMode{kind, *v}
		}
	}
	pick(p.ZSpread, ModeZSpread)
	pick(p.GSpread, ModeGSpread)
	pick(p.DirtyPrice, ModeDirtyPrice)
	pick(p.CleanPrice, ModeCleanPrice)
	pick(p.RequiredKeyRatePremium, ModeRequiredPremium)
	pick(p.CouponRate, ModeCouponRate)

	if set == 0 {
		return PricingMode{}, fmt.Errorf("ParsePricingMode: no pricing parameter supplied, need exactly one of zSpread/gSpread/dirtyPrice/cleanPrice/requiredKeyRatePremium/couponRate: %w", ErrValidation)
	}
	if set > 1 {
		return PricingMode{}, fmt.Errorf("ParsePricingMode: %d pricing parameters supplied, need exactly one: %w", set, ErrValidation)
	}
	if err := mode.checkRange(); err != nil {
		return PricingMode{}, err
	}
	return mode, nil
}

func (m PricingMode) checkRange() error {
	var lo, hi float64
	var unit string
	switch m.kind {
	case ModeZSpread, ModeGSpread, ModeRequiredPremium:
		lo, hi, unit = minSpreadBP, maxSpreadBP, "bp"
	case ModeDirtyPrice, ModeCleanPrice:
		lo, hi, unit = minPricePct, maxPricePct, "%"
	case ModeCouponRate:
		lo, hi, unit = minCouponPct, maxCouponPct, "%"
	default:
		return fmt.Errorf("PricingMode: unknown kind %d: %w", int(m.kind), ErrValidation)
	}
	if m.value < lo || m.value > hi {
		return fmt.Errorf("PricingMode: %s %v outside allowed range [%v, %v] %s: %w",
			m.kind, m.value, lo, hi, unit, ErrValidation)
	}
	return nil
}
