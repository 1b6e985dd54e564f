// Package curve evaluates the MOEX zero-coupon government yield curve (KBD)
// from its published parametric form.
package curve

import (
	"fmt"
	"math"
	"time"
)

// Params are the published curve coefficients at a snapshot time: a
// Nelson-Siegel level/slope/curvature block plus nine Gaussian kernel
// weights on a fixed maturity grid.
type Params struct {
	Timestamp time.Time

	B0  float64
	B1  float64
	B2  float64
	Tau float64

	G [9]float64
}

// Kernel grid constants. Centers a_i and widths b_i are fixed by the curve
// methodology: a1 = 0, a2 = 0.6, a_{i+1} = a_i + a2*k^(i-1); b1 = 0.6,
// b_{i+1} = b_i*k.
const kernelGrowth = 1.6

var kernelCenters, kernelWidths = kernelGrid()

func kernelGrid() ([9]float64, [9]float64) {
	var a, b [9]float64
	a[0] = 0
	a[1] = 0.6
	for i := 2; i < 9; i++ {
		a[i] = a[i-1] + 0.6*math.Pow(kernelGrowth, float64(i-1))
	}
	b[0] = 0.6
	for i := 1; i < 9; i++ {
		b[i] = b[i-1] * kernelGrowth
	}
	return a, b
}

// Y returns the spot yield with annual compounding, in basis points, at
// maturity t (in years, strictly positive).
//
// The parametric form produces a continuously compounded rate g(t); the
// published convention converts it via 10000*(exp(g(t)/10000) - 1).
func Y(p Params, t float64) (float64, error) {
	if t <= 0 {
		return 0, fmt.Errorf("Y: maturity must be strictly positive, got %v", t)
	}
	return yAt(p, t), nil
}

// YVec evaluates the curve at each maturity. All maturities must be
// strictly positive.
func YVec(p Params, ts []float64) ([]float64, error) {
	out := make([]float64, len(ts))
	for i, t := range ts {
		if t <= 0 {
			return nil, fmt.Errorf("YVec: maturity must be strictly positive, got %v at index %d", t, i)
		}
		out[i] = yAt(p, t)
	}
	return out, nil
}

func yAt(p Params, t float64) float64 {
	var sum float64
	for i := 0; i < 9; i++ {
		d := t - kernelCenters[i]
		sum += p.G[i] * math.Exp(-(d*d)/(kernelWidths[i]*kernelWidths[i]))
	}

	x := t / p.Tau
	g := p.B0 + (p.B1+p.B2)*(1-math.Exp(-x))/x - p.B2*math.Exp(-x) + sum

	return 10000.0 * (math.Exp(g/10000.0) - 1)
}
