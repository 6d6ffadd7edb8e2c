package fvm

import "errors"

// Solve-time failures callers are expected to branch on. Both carry the
// residual history in the wrapping message.
var (
	ErrDiverged       = errors.New("solver diverged")
	ErrNotConverged   = errors.New("solver did not converge within the iteration budget")
	ErrNotDiscretized = errors.New("assemble called before Discretize")
	ErrSingularSystem = errors.New("linear system is singular")
	ErrUnknownSolver  = errors.New("unknown linear solver")
)

// NewtonOptions bounds the nonlinear iteration of AssembleAndSolve.
type NewtonOptions struct {
	MaxIterations  int     `yaml:"MaxIterations"`
	ConvergenceTol float64 `yaml:"ConvergenceTol"`
	DivergenceTol  float64 `yaml:"DivergenceTol"`
}

// DefaultNewtonOptions matches the tolerances used by the stimulation runs.
func DefaultNewtonOptions() NewtonOptions {
	return NewtonOptions{MaxIterations: 10, ConvergenceTol: 1.e-10, DivergenceTol: 1.e5}
}
