package fvm

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// solveLinear solves A x = b in place of x. "direct" runs a dense LU
// through gonum and suits the mesh sizes of the stimulation runs; "cg" is
// a Jacobi-preconditioned conjugate gradient for the larger flow-dominated
// systems and uses the incoming x as initial guess.
func solveLinear(A *sparse.CSR, b, x []float64, method string) error {
	switch method {
	case "direct":
		var xv mat.VecDense
		if err := xv.SolveVec(A, mat.NewVecDense(len(b), b)); err != nil {
			return fmt.Errorf("%w: %v", ErrSingularSystem, err)
		}
		copy(x, xv.RawVector().Data)
		return nil
	case "cg":
		return solveCG(A, b, x)
	}
	return fmt.Errorf("%w: %q", ErrUnknownSolver, method)
}

// cg iteration controls: relative residual target and iteration cap as a
// multiple of the system size
const (
	cgTol     = 1.e-12
	cgItersxN = 20
)

func solveCG(A *sparse.CSR, b, x []float64) error {
	n := len(b)
	diag := make([]float64, n)
	A.DoNonZero(func(i, j int, v float64) {
		if i == j {
			diag[i] = v
		}
	})
	for i, d := range diag {
		if d == 0 {
			diag[i] = 1
		}
	}

	var (
		r  = make([]float64, n)
		z  = make([]float64, n)
		p  = make([]float64, n)
		ap = make([]float64, n)
	)
	spmv(A, x, r)
	for i := range r {
		r[i] = b[i] - r[i]
		z[i] = r[i] / diag[i]
	}
	copy(p, z)

	var (
		rz    = dotVec(r, z)
		bNorm = math.Max(normInf(b), 1)
	)
	for it := 0; it < cgItersxN*n; it++ {
		if normInf(r) <= cgTol*bNorm {
			return nil
		}
		spmv(A, p, ap)
		pap := dotVec(p, ap)
		if pap == 0 {
			return fmt.Errorf("%w: cg breakdown at iteration %d", ErrSingularSystem, it)
		}
		alpha := rz / pap
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
			z[i] = r[i] / diag[i]
		}
		rzNew := dotVec(r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	if normInf(r) <= cgTol*bNorm {
		return nil
	}
	return fmt.Errorf("%w: cg stalled at relative residual %.3e", ErrNotConverged, normInf(r)/bNorm)
}

func spmv(A *sparse.CSR, x, y []float64) {
	for i := range y {
		y[i] = 0
	}
	A.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
}

func dotVec(a, b []float64) (s float64) {
	for i := range a {
		s += a[i] * b[i]
	}
	return
}

func normInf(a []float64) (m float64) {
	for _, v := range a {
		if av := math.Abs(v); av > m {
			m = av
		}
	}
	return
}

// relResidual is the infinity-norm residual of A x = b relative to b.
func relResidual(A *sparse.CSR, x, b []float64) float64 {
	r := make([]float64, len(b))
	spmv(A, x, r)
	for i := range r {
		r[i] -= b[i]
	}
	return normInf(r) / math.Max(normInf(b), 1)
}
