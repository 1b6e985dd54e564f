package pricing

import (
	"fmt"
	"math"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/curve"
)

// Metrics are the scalar pricing outputs of a run, in percent of
// outstanding principal unless stated otherwise. Pointers are nil when a
// metric is not defined for the issue's coupon regime or pricing mode.
type Metrics struct {
	DirtyPricePct float64
	CleanPricePct float64
	AccruedPct    float64

	YTMPercent        *float64
	ZSpreadBP         *float64
	GSpreadBP         *float64
	RequiredPremiumBP *float64

	MacaulayDurationYears *float64
	ModifiedDuration      *float64
}

// PriceStandard prices a fixed or pass-through cash-flow series in one of
// the standard modes and back-solves the unknowns the mode left open.
func PriceStandard(s Series, cp curve.Params, mode bond.PricingMode, cfg Config) (Metrics, error) {
	accrued := s.AccruedPercent()

	var (
		dirty    float64
		ytm      *float64
		zSpread  *float64
		parPrice bool
	)

	switch mode.Kind() {
	case bond.ModeZSpread:
		z := mode.Value()
		d, err := DirtyPriceZSpread(s, cp, z)
		if err != nil {
			return Metrics{}, fmt.Errorf("PriceStandard: %w", err)
		}
		dirty, zSpread = d, &z

	case bond.ModeGSpread:
		g := mode.Value()
		y, err := minimize1D(func(y float64) float64 {
			gs, gerr := GSpreadAt(s, cp, y, cfg)
			if gerr != nil {
				return math.Inf(1)
			}
			d := gs - g
			return d * d
		}, cfg.SpreadStartBP, cfg)
		if err != nil {
			return Metrics{}, fmt.Errorf("PriceStandard: solving yield for G-spread %v: %w", g, err)
		}
		dirty, ytm = DirtyPriceYTM(s, y), &y

	case bond.ModeDirtyPrice:
		dirty = mode.Value()

	case bond.ModeCleanPrice:
		dirty = mode.Value() + accrued

	case bond.ModeCouponRate:
		// Issuance-date pricing: par by construction.
		dirty = 100.0 + accrued
		parPrice = true

	default:
		return Metrics{}, fmt.Errorf("PriceStandard: mode %s not applicable: %w", mode.Kind(), bond.ErrValidation)
	}

	m := Metrics{
		DirtyPricePct: dirty,
		CleanPricePct: dirty - accrued,
		AccruedPct:    accrued,
		ZSpreadBP:     zSpread,
		YTMPercent:    ytm,
	}
	if parPrice {
		return m, nil
	}
	if err := fillInverseMetrics(&m, s, cp, dirty, cfg); err != nil {
		return Metrics{}, fmt.Errorf("PriceStandard: %w", err)
	}
	return m, nil
}

// fillInverseMetrics back-solves YTM, Z-spread and G-spread from a dirty
// price and fills the durations.
func fillInverseMetrics(m *Metrics, s Series, cp curve.Params, dirty float64, cfg Config) error {
	if m.YTMPercent == nil {
		y, err := solveYTM(s, dirty, cfg)
		if err != nil {
			return err
		}
		m.YTMPercent = &y
	}
	if m.ZSpreadBP == nil {
		z, err := minimize1D(func(z float64) float64 {
			d, derr := DirtyPriceZSpread(s, cp, z)
			if derr != nil {
				return math.Inf(1)
			}
			diff := d - dirty
			return diff * diff
		}, cfg.SpreadStartBP, cfg)
		if err != nil {
			return fmt.Errorf("solving Z-spread: %w", err)
		}
		m.ZSpreadBP = &z
	}

	g, err := GSpreadAt(s, cp, *m.YTMPercent, cfg)
	if err != nil {
		return err
	}
	m.GSpreadBP = &g

	mac := MacaulayDuration(s, *m.YTMPercent, cfg)
	mod := ModifiedDuration(mac, *m.YTMPercent)
	m.MacaulayDurationYears = &mac
	m.ModifiedDuration = &mod
	return nil
}

// DirtyPricePremium prices a floating-rate series against a required
// key-rate premium: the difference between the actual and the required
// premium payments is discounted at the curve plus the required premium and
// added to par. A bond paying exactly the required premium prices at par
// plus accrued.
func DirtyPricePremium(s Series, cp curve.Params, actualPremiumBP, requiredPremiumBP float64) (float64, error) {
	if s.CurrentPrincipal <= 0 {
		return 0, fmt.Errorf("DirtyPricePremium: no outstanding principal at pricing date")
	}
	var pv float64
	for _, r := range s.Future() {
		t := s.years(r.CouponDate)
		y, err := curve.Y(cp, t)
		if err != nil {
			return 0, fmt.Errorf("DirtyPricePremium: %w", err)
		}
		df := math.Pow(1.0+(y+requiredPremiumBP)/10000.0, -t)
		diff := r.PrincipalStart * (actualPremiumBP - requiredPremiumBP) / 10000.0 * r.CouponPeriodDays / 365.0
		pv += diff * df
	}
	return 100.0 + pv/s.CurrentPrincipal*100.0 + s.AccruedPercent(), nil
}

// PriceFloating prices a floating-rate (or floating-equivalent) series.
// actualPremiumBP is the issue's contractual premium over the key rate.
func PriceFloating(s Series, cp curve.Params, actualPremiumBP float64, mode bond.PricingMode, cfg Config) (Metrics, error) {
	accrued := s.AccruedPercent()

	var (
		dirty   float64
		premium *float64
		zGiven  *float64
	)

	switch mode.Kind() {
	case bond.ModeRequiredPremium:
		req := mode.Value()
		d, err := DirtyPricePremium(s, cp, actualPremiumBP, req)
		if err != nil {
			return Metrics{}, fmt.Errorf("PriceFloating: %w", err)
		}
		dirty, premium = d, &req

	case bond.ModeDirtyPrice, bond.ModeCleanPrice:
		dirty = mode.Value()
		if mode.Kind() == bond.ModeCleanPrice {
			dirty += accrued
		}

	case bond.ModeZSpread:
		z := mode.Value()
		d, err := DirtyPriceZSpread(s, cp, z)
		if err != nil {
			return Metrics{}, fmt.Errorf("PriceFloating: %w", err)
		}
		dirty, zGiven = d, &z

	case bond.ModeCouponRate:
		// A fixed premium supplied at issuance prices at par.
		m := Metrics{DirtyPricePct: 100.0 + accrued, CleanPricePct: 100.0, AccruedPct: accrued}
		p := actualPremiumBP
		m.RequiredPremiumBP = &p
		return m, nil

	default:
		return Metrics{}, fmt.Errorf("PriceFloating: mode %s not applicable: %w", mode.Kind(), bond.ErrValidation)
	}

	if premium == nil {
		req, err := minimize1D(func(p float64) float64 {
			d, derr := DirtyPricePremium(s, cp, actualPremiumBP, p)
			if derr != nil {
				return math.Inf(1)
			}
			diff := d - dirty
			return diff * diff
		}, cfg.PremiumStartBP, cfg)
		if err != nil {
			return Metrics{}, fmt.Errorf("PriceFloating: solving required premium: %w", err)
		}
		premium = &req
	}

	m := Metrics{
		DirtyPricePct:     dirty,
		CleanPricePct:     dirty - accrued,
		AccruedPct:        accrued,
		RequiredPremiumBP: premium,
		ZSpreadBP:         zGiven,
	}
	if err := fillInverseMetrics(&m, s, cp, dirty, cfg); err != nil {
		return Metrics{}, fmt.Errorf("PriceFloating: %w", err)
	}
	return m, nil
}

// FitConstantPremium finds the constant premium over the key rate, in basis
// points, whose hypothetical coupon stream best matches the modeled coupons
// of a pass-through series (least squares, one free parameter).
//
// baseRatesPercent carries, for each future row, the key rate fixed for
// that row's computation period.
func FitConstantPremium(rows []Row, baseRatesPercent []float64, cfg Config) (float64, error) {
	if len(rows) != len(baseRatesPercent) {
		return 0, fmt.Errorf("FitConstantPremium: %d rows vs %d base rates", len(rows), len(baseRatesPercent))
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("FitConstantPremium: no rows to fit")
	}

	mse := func(premiumBP float64) float64 {
		var sum float64
		for i, r := range rows {
			hyp := r.PrincipalStart * (baseRatesPercent[i] + premiumBP/100.0) / 100.0 * r.CouponPeriodDays / 365.0
			d := r.Coupon - hyp
			sum += d * d
		}
		return sum / float64(len(rows))
	}

	problemTol := cfg
	// The coupon match is least-squares, not exact; accept the minimizer's
	// best point without the exact-root residual check.
	problemTol.ConvergenceTolerance = math.Inf(1)
	return minimize1D(mse, cfg.PremiumStartBP, problemTol)
}
