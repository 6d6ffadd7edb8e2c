package fvm

import (
	"fmt"
	"log"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/keileg/mastersproject/mesh"
)

// Mode selects the physics AssembleAndSolve builds.
type Mode int

const (
	Biot          Mode = iota // coupled flow and momentum balance
	MechanicsOnly             // stationary momentum balance only
)

// Config wires a Coupled discretizer. Solver is "direct" (dense LU, the
// default) or "cg"; Logger may be nil.
type Config struct {
	Mode   Mode
	Solver string
	Newton NewtonOptions
	Logger *log.Logger
}

// Coupled assembles and solves the coupled system on a hierarchy. The
// unknown vector is the matrix displacement block (cell-major) followed by
// one pressure block per grid in descending-dimension order.
type Coupled struct {
	h      *mesh.Hierarchy
	store  *Store
	mode   Mode
	solver string
	opts   NewtonOptions
	logger *log.Logger

	dofs    *dofLayout
	flow    map[*mesh.Grid]*flowDisc
	mortars []mortarCoupling
	// pressure source per matrix face replaced by a mortar coupling, used
	// by the momentum pressure-gradient term
	facePressure map[int]faceP
	mech         *mechDisc
}

type faceP struct {
	g    *mesh.Grid
	cell int
}

func NewCoupled(h *mesh.Hierarchy, store *Store, cfg Config) *Coupled {
	if cfg.Newton.MaxIterations == 0 {
		cfg.Newton = DefaultNewtonOptions()
	}
	if cfg.Solver == "" {
		cfg.Solver = "direct"
	}
	return &Coupled{
		h:      h,
		store:  store,
		mode:   cfg.Mode,
		solver: cfg.Solver,
		opts:   cfg.Newton,
		logger: cfg.Logger,
	}
}

func (c *Coupled) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// NumDof returns the size of the unknown vector; zero before Discretize.
func (c *Coupled) NumDof() int {
	if c.dofs == nil {
		return 0
	}
	return c.dofs.total
}

// Discretize validates the parameter store and precomputes the face
// transmissibilities, the mortar couplings and the two-point stiffness.
// It must run once before AssembleAndSolve and again after any change to
// permeability or stiffness fields.
func (c *Coupled) Discretize() (err error) {
	if err = c.store.Validate(c.h, c.mode == MechanicsOnly); err != nil {
		return fmt.Errorf("parameter validation: %w", err)
	}
	if c.dofs, err = newDofLayout(c.h, c.mode != MechanicsOnly); err != nil {
		return err
	}
	if c.mode != MechanicsOnly {
		c.discretizeFlow()
	}
	c.discretizeMech()
	c.logf("discretized %d grids, %d interfaces, %d dof",
		len(c.h.Grids()), len(c.h.Interfaces), c.dofs.total)
	return nil
}

// AssembleAndSolve builds the linear(ized) system from the current grid
// states and solves it to the given relative residual tolerance; tol <= 0
// falls back to the configured convergence tolerance. The iteration is
// bounded by the Newton options, and a residual beyond the divergence
// threshold aborts with ErrDiverged. The returned vector follows the dof
// layout and is not yet written back to the grids.
func (c *Coupled) AssembleAndSolve(tol float64) (x []float64, err error) {
	if c.dofs == nil {
		return nil, ErrNotDiscretized
	}
	if tol <= 0 {
		tol = c.opts.ConvergenceTol
	}

	A, b := c.assemble()
	x = c.stateVector()

	var res float64
	for it := 1; it <= c.opts.MaxIterations; it++ {
		if err = solveLinear(A, b, x, c.solver); err != nil {
			return nil, err
		}
		res = relResidual(A, x, b)
		c.logf("solve iteration %d: residual %.3e", it, res)
		switch {
		case math.IsNaN(res) || res > c.opts.DivergenceTol:
			return nil, fmt.Errorf("%w: residual %.3e at iteration %d", ErrDiverged, res, it)
		case res <= tol:
			return x, nil
		}
		// the closures are state-independent within a step, so a repeat
		// solve only polishes the residual
		A, b = c.assemble()
	}
	return nil, fmt.Errorf("%w: residual %.3e after %d iterations (tol %.3e)",
		ErrNotConverged, res, c.opts.MaxIterations, tol)
}

// DistributeSolution writes the solution vector back into the grid states:
// "u" on the matrix grid, "p" on every grid, and the derived
// "slip_tendency" diagnostic on the fracture grids.
func (c *Coupled) DistributeSolution(x []float64) {
	if c.dofs == nil {
		return
	}
	g := c.dofs.matrix
	nu := c.dofs.nd * g.NumCells()
	u := make([]float64, nu)
	copy(u, x[:nu])
	g.State["u"] = u

	if !c.dofs.flow {
		return
	}
	for _, gr := range c.h.Grids() {
		off := c.dofs.pOffset[gr]
		p := make([]float64, gr.NumCells())
		copy(p, x[off:off+gr.NumCells()])
		gr.State["p"] = p
	}
	c.updateSlipTendency()
}

// assemble builds the full system from the parameter store and the
// previous-step grid states.
func (c *Coupled) assemble() (*sparse.CSR, []float64) {
	n := c.dofs.total
	A := sparse.NewDOK(n, n)
	b := make([]float64, n)

	c.assembleMech(A, b)
	if c.mode != MechanicsOnly {
		c.assembleFlow(A, b)
	}
	return A.ToCSR(), b
}

// stateVector packs the current grid states into a dof vector, the initial
// guess for iterative solvers.
func (c *Coupled) stateVector() []float64 {
	x := make([]float64, c.dofs.total)
	g := c.dofs.matrix
	if u, ok := g.State["u"]; ok {
		copy(x, u)
	}
	if c.dofs.flow {
		for _, gr := range c.h.Grids() {
			if p, ok := gr.State["p"]; ok {
				copy(x[c.dofs.pOffset[gr]:], p)
			}
		}
	}
	return x
}

func add(A *sparse.DOK, i, j int, v float64) {
	if v != 0 {
		A.Set(i, j, A.At(i, j)+v)
	}
}

// stateOrZero returns the named state field, or zeros of the given length
// if the field has not been set yet.
func stateOrZero(g *mesh.Grid, field string, n int) []float64 {
	if v, ok := g.State[field]; ok && len(v) == n {
		return v
	}
	return make([]float64, n)
}
