package pricing

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// ErrNoConvergence marks a fatal pricing failure: the minimizer could not
// drive the squared pricing error to tolerance.
var ErrNoConvergence = errors.New("root finder did not converge")

// minimize1D finds the scalar x minimizing objective, via derivative-free
// Nelder-Mead on the squared-error objective, and verifies convergence.
func minimize1D(objective func(float64) float64, start float64, cfg Config) (float64, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 { return objective(x[0]) },
	}

	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIterations,
	}

	res, err := optimize.Minimize(problem, []float64{start}, settings, &optimize.NelderMead{})
	if err != nil {
		return 0, fmt.Errorf("minimize1D: %v: %w", err, ErrNoConvergence)
	}
	if res.F > cfg.ConvergenceTolerance {
		return 0, fmt.Errorf("minimize1D: residual %.3e above tolerance %.3e: %w",
			res.F, cfg.ConvergenceTolerance, ErrNoConvergence)
	}
	return res.X[0], nil
}

// solveYTM finds the flat yield reproducing a dirty price.
func solveYTM(s Series, dirty float64, cfg Config) (float64, error) {
	obj := func(y float64) float64 {
		d := DirtyPriceYTM(s, y) - dirty
		return d * d
	}
	ytm, err := minimize1D(obj, cfg.SpreadStartBP, cfg)
	if err != nil {
		return 0, fmt.Errorf("solveYTM: %w", err)
	}
	return ytm, nil
}
