// Package fvm discretizes the coupled Biot system on a mixed-dimensional
// grid hierarchy with cell-centered finite volumes: two-point flux for the
// pressure equation on every grid, a two-point stress approximation for the
// matrix displacement, and mortar couplings across dimensions. It owns the
// nonlinear solve; callers drive it through Discretize, AssembleAndSolve
// and DistributeSolution.
package fvm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/keileg/mastersproject/mesh"
)

// CondType is a per-face boundary condition type. The zero value is
// Neumann, matching the no-flow / traction-free default of unlisted faces.
type CondType int

const (
	Neumann CondType = iota
	Dirichlet
)

// FlowParams carries the scalar (pressure) equation parameters of one grid.
// Sources are volumes added per time step, not rates: the assembly consumes
// them as-is while flux terms are scaled by the step length, so a source
// built from rate*dt injects the right cumulative volume no matter how the
// steps are chosen.
type FlowParams struct {
	BCType   []CondType // per face
	BCValues []float64  // per face: pressure on Dirichlet faces, influx per area and time on Neumann faces
	Source   []float64  // per cell, volume per step

	Permeability []float64 // per cell
	Storativity  []float64 // per cell
	TimeStep     float64
	BiotAlpha    float64
}

// MechParams carries the momentum balance parameters of the matrix grid.
// On fracture grids only Friction and TimeStep are meaningful.
type MechParams struct {
	BCType   []CondType // per face
	BCValues []float64  // per face and component, layout [3f+k]: displacement or total traction
	Source   []float64  // per cell and component, body force

	Mu, Lambda []float64 // per cell Lame parameters
	Stress     *mat.SymDense
	TimeStep   float64
	BiotAlpha  float64

	Friction []float64 // per cell, fracture grids
}

// InterfaceParams is the mortar-coupling record of one interface. A fresh
// record carries unit normal diffusivity.
type InterfaceParams struct {
	NormalDiffusivity float64
}

// Data bundles the parameter records attached to a single grid.
type Data struct {
	Flow *FlowParams
	Mech *MechParams
}

// Store holds all parameters of a hierarchy, keyed by grid and interface.
// It plays the role of the per-grid data dictionaries of the surrounding
// toolchain: grids stay purely geometric, the simulation owns its data.
type Store struct {
	grids  map[*mesh.Grid]*Data
	ifaces map[*mesh.Interface]*InterfaceParams
}

func NewStore() *Store {
	return &Store{
		grids:  make(map[*mesh.Grid]*Data),
		ifaces: make(map[*mesh.Interface]*InterfaceParams),
	}
}

// Grid returns the data record of g, creating an empty one on first use.
func (s *Store) Grid(g *mesh.Grid) *Data {
	d, ok := s.grids[g]
	if !ok {
		d = &Data{}
		s.grids[g] = d
	}
	return d
}

// Interface returns the record of in, creating a default one on first use.
func (s *Store) Interface(in *mesh.Interface) *InterfaceParams {
	p, ok := s.ifaces[in]
	if !ok {
		p = &InterfaceParams{NormalDiffusivity: 1}
		s.ifaces[in] = p
	}
	return p
}

// Validate checks that every grid and interface of the hierarchy carries
// the parameters the discretization needs: full mechanics and flow data on
// the matrix grid, flow plus friction data on the fracture grids, flow data
// on intersection grids, and a record on every interface. Sizes are checked
// against the grid so a partially filled record cannot reach assembly.
func (s *Store) Validate(h *mesh.Hierarchy, mechanicsOnly bool) error {
	dimMax := h.DimMax()
	for _, g := range h.Grids() {
		d, ok := s.grids[g]
		if !ok {
			return fmt.Errorf("grid %q has no parameter record", g.Name)
		}
		if g.Dim == dimMax {
			if err := validateMech(g, d.Mech); err != nil {
				return err
			}
		}
		if mechanicsOnly {
			continue
		}
		if err := validateFlow(g, d.Flow); err != nil {
			return err
		}
		if g.Dim == dimMax-1 {
			if d.Mech == nil || len(d.Mech.Friction) != g.NumCells() {
				return fmt.Errorf("fracture grid %q: friction coefficient missing or wrong size", g.Name)
			}
		}
	}
	if mechanicsOnly {
		return nil
	}
	for _, in := range h.Interfaces {
		if _, ok := s.ifaces[in]; !ok {
			return fmt.Errorf("%v has no parameter record", in)
		}
	}
	return nil
}

func validateMech(g *mesh.Grid, m *MechParams) error {
	if m == nil {
		return fmt.Errorf("grid %q: mechanics parameters missing", g.Name)
	}
	var (
		nc = g.NumCells()
		nf = g.NumFaces()
	)
	switch {
	case len(m.Mu) != nc || len(m.Lambda) != nc:
		return fmt.Errorf("grid %q: stiffness fields sized %d/%d, want %d", g.Name, len(m.Mu), len(m.Lambda), nc)
	case len(m.BCType) != nf:
		return fmt.Errorf("grid %q: mechanics bc types sized %d, want %d", g.Name, len(m.BCType), nf)
	case len(m.BCValues) != 3*nf:
		return fmt.Errorf("grid %q: mechanics bc values sized %d, want %d", g.Name, len(m.BCValues), 3*nf)
	case len(m.Source) != 3*nc:
		return fmt.Errorf("grid %q: mechanics source sized %d, want %d", g.Name, len(m.Source), 3*nc)
	case m.TimeStep < 0:
		return fmt.Errorf("grid %q: negative time step", g.Name)
	}
	return nil
}

func validateFlow(g *mesh.Grid, f *FlowParams) error {
	if f == nil {
		return fmt.Errorf("grid %q: flow parameters missing", g.Name)
	}
	var (
		nc = g.NumCells()
		nf = g.NumFaces()
	)
	switch {
	case len(f.BCType) != nf || len(f.BCValues) != nf:
		return fmt.Errorf("grid %q: flow bc sized %d/%d, want %d", g.Name, len(f.BCType), len(f.BCValues), nf)
	case len(f.Source) != nc:
		return fmt.Errorf("grid %q: flow source sized %d, want %d", g.Name, len(f.Source), nc)
	case len(f.Permeability) != nc || len(f.Storativity) != nc:
		return fmt.Errorf("grid %q: permeability/storativity sized %d/%d, want %d", g.Name, len(f.Permeability), len(f.Storativity), nc)
	case f.TimeStep <= 0:
		return fmt.Errorf("grid %q: non-positive time step %g", g.Name, f.TimeStep)
	}
	return nil
}
