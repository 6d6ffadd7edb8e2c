package biot

import (
	"math"

	"github.com/keileg/mastersproject/fvm"
	"github.com/keileg/mastersproject/gts"
	"github.com/keileg/mastersproject/mesh"
)

// sideTolerance is the face-center tolerance for classifying domain sides,
// proportional to the box extent so it survives rescaling.
func sideTolerance(box mesh.Box) float64 {
	dx, dy, dz := box.Extent()
	return 1e-6 * (dx + dy + dz)
}

// BCTypeScalar fixes the pressure on the bottom of the domain and leaves
// every other boundary face at its no-flow default. Fracture grids never
// reach the box faces, so they come out sealed.
func BCTypeScalar(g *mesh.Grid, box mesh.Box) []fvm.CondType {
	bc := make([]fvm.CondType, g.NumFaces())
	s := mesh.DomainSides(g, box, sideTolerance(box))
	for _, fid := range s.Bottom {
		bc[fid] = fvm.Dirichlet
	}
	return bc
}

// BCValuesScalar drives a unit influx (in scaled units) through the top of
// the domain; all other faces, the fixed-pressure bottom included, sit at
// zero.
func BCValuesScalar(g *mesh.Grid, box mesh.Box) []float64 {
	v := make([]float64, g.NumFaces())
	s := mesh.DomainSides(g, box, sideTolerance(box))
	for _, fid := range s.Top {
		v[fid] = 1
	}
	return v
}

// BCTypeMechanics clamps the displacement on the whole outer boundary.
// TODO: replace the clamped sides with tractions resolved from the in-situ
// stress tensor on the lateral boundaries.
func BCTypeMechanics(g *mesh.Grid) []fvm.CondType {
	bc := make([]fvm.CondType, g.NumFaces())
	for fid := range g.Faces {
		if g.Faces[fid].Boundary() {
			bc[fid] = fvm.Dirichlet
		}
	}
	return bc
}

// BCValuesMechanics holds the boundary at zero displacement.
func BCValuesMechanics(g *mesh.Grid) []float64 {
	return make([]float64, 3*g.NumFaces())
}

// SourceFlowRate converts the deck's injection rate in liters per second
// into scaled volume units per second.
func (m *Model) SourceFlowRate() float64 {
	nd := m.Hierarchy.DimMax()
	return m.Params.FlowRateLiter * gts.Milli *
		math.Pow(gts.Meter/m.Params.LengthScale, float64(nd))
}

// SourceScalar is the per-cell injected volume over one step: the scaled
// rate times the step length on the tagged well cells, zero everywhere else
// and everywhere while the injection phase has not started.
func (m *Model) SourceScalar(g *mesh.Grid) []float64 {
	src := make([]float64, g.NumCells())
	if !m.injectionActive {
		return src
	}
	rate := m.SourceFlowRate()
	for cell, tag := range g.Tags["well_cells"] {
		src[cell] = rate * tag * m.TimeStep
	}
	return src
}
