// Package pricing discounts bond cash flows against the zero-coupon curve,
// solves the inverse pricing unknowns and orchestrates the full pricing run.
package pricing

// Config holds solver tolerances and pricing defaults.
type Config struct {
	// ConvergenceTolerance is the squared-pricing-error tolerance accepted
	// from the minimizer.
	ConvergenceTolerance float64

	// MaxIterations bounds the minimizer.
	MaxIterations int

	// DefaultZSpreadBP seeds discounting when a mode needs a starting
	// spread assumption.
	DefaultZSpreadBP float64

	// SpreadStartBP / PremiumStartBP are the minimizer starting guesses.
	SpreadStartBP  float64
	PremiumStartBP float64

	// MinDurationYears floors the Macaulay duration to keep the G-spread
	// curve lookup and the modified-duration division well defined.
	MinDurationYears float64
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	ConvergenceTolerance: 1e-8,
	MaxIterations:        1000,
	DefaultZSpreadBP:     120,
	SpreadStartBP:        0,
	PremiumStartBP:       100,
	MinDurationYears:     0.001,
}
