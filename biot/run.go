package biot

import (
	"fmt"

	"github.com/keileg/mastersproject/fvm"
)

// Discretizer is the numerical collaborator of a run. It owns the
// discretization and the convergence of each step; the driver issues
// exactly one AssembleAndSolve per time step.
type Discretizer interface {
	Discretize() error
	AssembleAndSolve(tol float64) ([]float64, error)
	DistributeSolution(x []float64)
}

// the fields of every exported snapshot
var exportFields = []string{"u_", "p", "well", "slip_tendency"}

// prepare installs the parameter store and, on first use, the solver and
// the initial state. Later phases only refresh the parameters; the
// transmissibilities depend on geometry and material fields, which do not
// change between phases.
func (m *Model) prepare(mode fvm.Mode) error {
	if m.Hierarchy == nil {
		return ErrGridNotBuilt
	}
	m.SetParameters()
	if m.prepared {
		return nil
	}
	if m.solver == nil {
		m.solver = fvm.NewCoupled(m.Hierarchy, m.Store, fvm.Config{
			Mode:   mode,
			Solver: m.Params.SolverType,
			Newton: m.Params.Newton,
			Logger: m.logger,
		})
	}
	if err := m.solver.Discretize(); err != nil {
		return err
	}
	m.initialState()
	m.prepared = true
	return nil
}

// initialState seeds the exported fields so the first snapshot carries the
// full schema: zero pressure everywhere, zero displacement on the matrix,
// and a zero displacement placeholder on the lower-dimensional grids.
func (m *Model) initialState() {
	nd := m.Hierarchy.DimMax()
	for _, g := range m.Hierarchy.Grids() {
		nc := g.NumCells()
		if _, ok := g.State["p"]; !ok {
			g.State["p"] = make([]float64, nc)
		}
		if g.Dim == nd {
			if _, ok := g.State["u"]; !ok {
				g.State["u"] = make([]float64, nd*nc)
			}
		}
		if _, ok := g.State["u_"]; !ok {
			g.State["u_"] = make([]float64, 3*nc)
		}
	}
}

// RunTimeDependent advances the coupled system to the end of the current
// time window, one solve per step, exporting every step. A solve failure
// exports a post-mortem snapshot of the last good state before the wrapped
// error is returned.
func (m *Model) RunTimeDependent() error {
	if err := m.prepare(fvm.Biot); err != nil {
		return err
	}
	if m.StepCount == 0 && len(m.steps) == 0 {
		if err := m.snapshot(); err != nil {
			return err
		}
	}
	// repeated dt addition can land a hair short of EndTime, so the guard
	// allows half a step of drift
	for m.Time+0.5*m.TimeStep < m.EndTime {
		m.Time += m.TimeStep
		m.StepCount++
		m.logf("step %d: advancing to t = %.6g s", m.StepCount, m.Time)

		x, err := m.solver.AssembleAndSolve(m.Params.Newton.ConvergenceTol)
		if err != nil {
			m.logf("step %d failed: %v", m.StepCount, err)
			m.snapshot()
			m.writeIndex()
			return fmt.Errorf("time step %d (t = %.6g s): %w", m.StepCount, m.Time, err)
		}
		m.solver.DistributeSolution(x)
		m.transformDisplacement()

		if m.monitor != nil {
			m.monitor.Record(m.Time, m.injectionPressure())
		}
		if err := m.snapshot(); err != nil {
			return err
		}
	}
	return m.writeIndex()
}

// RunStationary solves the stationary momentum balance once and exports the
// displacement snapshot.
func (m *Model) RunStationary() error {
	if err := m.prepare(fvm.MechanicsOnly); err != nil {
		return err
	}
	x, err := m.solver.AssembleAndSolve(m.Params.Newton.ConvergenceTol)
	if err != nil {
		m.logf("stationary solve failed: %v", err)
		return fmt.Errorf("stationary solve: %w", err)
	}
	m.solver.DistributeSolution(x)
	m.transformDisplacement()
	if err := m.snapshot(); err != nil {
		return err
	}
	return m.writeIndex()
}

// RunBiot is the two-phase stimulation experiment: an equilibration window
// with the injection off, then the same window re-run with the source
// armed. Phase one's end state carries over as the initial condition of
// the stimulation phase.
func (m *Model) RunBiot() error {
	m.injectionActive = false
	m.logf("phase 1: equilibration, injection off")
	if err := m.RunTimeDependent(); err != nil {
		return fmt.Errorf("equilibration phase: %w", err)
	}
	m.PrepareMainRun()
	m.logf("phase 2: stimulation")
	if err := m.RunTimeDependent(); err != nil {
		return fmt.Errorf("stimulation phase: %w", err)
	}
	return nil
}

// PrepareMainRun arms the injection source and opens a fresh time window of
// the configured number of steps starting at the current time.
func (m *Model) PrepareMainRun() {
	m.injectionActive = true
	m.EndTime = m.Time + m.TimeStep*float64(m.Params.NumSteps-1)
	m.logf("main run: injection armed, window t = %.6g s to %.6g s", m.Time, m.EndTime)
}

func (m *Model) snapshot() error {
	if err := m.viz.WriteStep(exportFields, m.StepCount); err != nil {
		return fmt.Errorf("snapshot %d: %w", m.StepCount, err)
	}
	m.steps = append(m.steps, m.StepCount)
	m.times = append(m.times, m.Time)
	return nil
}

func (m *Model) writeIndex() error {
	return m.viz.WritePVD(m.steps, m.times)
}

// transformDisplacement publishes the raw cell-major displacement of the
// matrix grid in the component-major layout the exporter consumes.
func (m *Model) transformDisplacement() {
	if u, ok := m.matrix.State["u"]; ok {
		m.matrix.State["u_"] = ReshapeF(u, m.Hierarchy.DimMax())
	}
}

// injectionPressure reads the pressure of the tagged well cell, the value
// the live monitor tracks.
func (m *Model) injectionPressure() float64 {
	g := m.Hierarchy.ByName(m.Params.Shearzone)
	if g == nil {
		return 0
	}
	p := g.State["p"]
	for cell, tag := range g.Tags["well_cells"] {
		if tag != 0 && cell < len(p) {
			return p[cell]
		}
	}
	return 0
}

// ReshapeF reads a vector of per-cell nd-tuples into the column-major
// (nd, numCells) layout, all first components first: out[k*nc+c] = u[nd*c+k].
func ReshapeF(u []float64, nd int) []float64 {
	var (
		nc  = len(u) / nd
		out = make([]float64, len(u))
	)
	for c := 0; c < nc; c++ {
		for k := 0; k < nd; k++ {
			out[k*nc+c] = u[nd*c+k]
		}
	}
	return out
}

// FlattenF is the column-major inverse of ReshapeF.
func FlattenF(u []float64, nd int) []float64 {
	var (
		nc  = len(u) / nd
		out = make([]float64, len(u))
	)
	for c := 0; c < nc; c++ {
		for k := 0; k < nd; k++ {
			out[nd*c+k] = u[k*nc+c]
		}
	}
	return out
}
