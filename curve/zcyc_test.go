package curve

import (
	"math"
	"testing"
)

func TestY_FlatCurve(t *testing.T) {
	t.Parallel()

	// With zero slope/curvature and zero kernel weights the curve is flat at
	// B0 (continuous compounding), so Y = 10000*(exp(B0/10000)-1) everywhere.
	p := Params{B0: 850, Tau: 1.0}
	want := 10000.0 * (math.Exp(850.0/10000.0) - 1)

	for _, mat := range []float64{0.1, 1, 5, 30} {
		got, err := Y(p, mat)
		if err != nil {
			t.Fatalf("Y(%v): %v", mat, err)
		}
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("Y(%v) = %v, want %v", mat, got, want)
		}
	}
}

func TestY_KernelContribution(t *testing.T) {
	t.Parallel()

	// A single unit weight on the first kernel (centered at 0, width 0.6)
	// contributes exp(-(t/0.6)^2) to g(t).
	p := Params{B0: 0, Tau: 1.0, G: [9]float64{100}}

	got, err := Y(p, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	g := 100 * math.Exp(-1.0)
	want := 10000.0 * (math.Exp(g/10000.0) - 1)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Y(0.6) = %v, want %v", got, want)
	}
}

func TestY_RejectsNonPositiveMaturity(t *testing.T) {
	t.Parallel()

	p := Params{B0: 800, Tau: 1.0}
	if _, err := Y(p, 0); err == nil {
		t.Error("Y(0) should fail")
	}
	if _, err := Y(p, -1); err == nil {
		t.Error("Y(-1) should fail")
	}
	if _, err := YVec(p, []float64{1, 2, 0}); err == nil {
		t.Error("YVec with zero maturity should fail")
	}
}

func TestKernelGrid(t *testing.T) {
	t.Parallel()

	// Grid endpoints per the published methodology.
	if kernelCenters[0] != 0 || kernelCenters[1] != 0.6 {
		t.Errorf("unexpected first centers: %v", kernelCenters[:2])
	}
	if kernelWidths[0] != 0.6 {
		t.Errorf("unexpected first width: %v", kernelWidths[0])
	}
	for i := 1; i < 9; i++ {
		if kernelCenters[i] <= kernelCenters[i-1] {
			t.Errorf("centers not increasing at %d", i)
		}
		if math.Abs(kernelWidths[i]-kernelWidths[i-1]*kernelGrowth) > 1e-12 {
			t.Errorf("width ratio broken at %d", i)
		}
	}
}
