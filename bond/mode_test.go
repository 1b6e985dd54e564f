package bond

import (
	"errors"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestParsePricingMode_ExactlyOne(t *testing.T) {
	t.Parallel()

	m, err := ParsePricingMode(ModeParams{ZSpread: fptr(120)})
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind() != ModeZSpread || m.Value() != 120 {
		t.Errorf("got %v", m)
	}

	if _, err := ParsePricingMode(ModeParams{}); !errors.Is(err, ErrValidation) {
		t.Errorf("zero params: err = %v, want ErrValidation", err)
	}
	if _, err := ParsePricingMode(ModeParams{ZSpread: fptr(100), DirtyPrice: fptr(99)}); !errors.Is(err, ErrValidation) {
		t.Errorf("two params: err = %v, want ErrValidation", err)
	}
}

func TestParsePricingMode_Ranges(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		params ModeParams
		ok     bool
	}{
		{"zspread lower bound", ModeParams{ZSpread: fptr(-300)}, true},
		{"zspread below range", ModeParams{ZSpread: fptr(-300.5)}, false},
		{"gspread upper bound", ModeParams{GSpread: fptr(500)}, true},
		{"gspread above range", ModeParams{GSpread: fptr(501)}, false},
		{"premium in range", ModeParams{RequiredKeyRatePremium: fptr(250)}, true},
		{"dirty price low", ModeParams{DirtyPrice: fptr(9.99)}, false},
		{"dirty price in range", ModeParams{DirtyPrice: fptr(100)}, true},
		{"clean price high", ModeParams{CleanPrice: fptr(150.01)}, false},
		{"coupon rate in range", ModeParams{CouponRate: fptr(8.5)}, true},
		{"coupon rate negative", ModeParams{CouponRate: fptr(-0.1)}, false},
		{"coupon rate above range", ModeParams{CouponRate: fptr(20.5)}, false},
	}
	for _, tc := range cases {
		_, err := ParsePricingMode(tc.params)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestPoolTypeFromFraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fraction float64
		want     PoolType
	}{
		{0, PoolFixed},
		{0.5, PoolFixed},
		{0.51, PoolMixed},
		{50, PoolMixed},
		{99.49, PoolMixed},
		{99.5, PoolFloat},
		{100, PoolFloat},
	}
	for _, tc := range cases {
		if got := PoolTypeFromFraction(tc.fraction); got != tc.want {
			t.Errorf("PoolTypeFromFraction(%v) = %v, want %v", tc.fraction, got, tc.want)
		}
	}
}
