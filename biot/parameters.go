package biot

import "github.com/keileg/mastersproject/fvm"

const (
	// poroelastic coupling coefficient of the matrix
	biotAlpha = 1.0
	// Coulomb friction coefficient of the shear zones
	frictionCoefficient = 0.5
)

// SetParameters fills the parameter store for every grid and interface: the
// full Biot set on the matrix grid, flow plus friction on the shear zones,
// flow alone on the intersections, and a default record on every interface.
// The records are rebuilt from scratch, so a phase change that re-arms the
// source simply calls it again.
func (m *Model) SetParameters() {
	var (
		h      = m.Hierarchy
		p      = m.Params
		dimMax = h.DimMax()
		box    = scaleBox(p.BoundingBox, p.LengthScale)
	)
	for _, g := range h.Grids() {
		var (
			d  = m.Store.Grid(g)
			nc = g.NumCells()
		)
		d.Flow = &fvm.FlowParams{
			BCType:       BCTypeScalar(g, box),
			BCValues:     BCValuesScalar(g, box),
			Source:       m.SourceScalar(g),
			Permeability: constant(nc, 1),
			Storativity:  constant(nc, 1),
			TimeStep:     m.TimeStep,
			BiotAlpha:    biotAlpha,
		}
		switch g.Dim {
		case dimMax:
			d.Mech = &fvm.MechParams{
				BCType:    BCTypeMechanics(g),
				BCValues:  BCValuesMechanics(g),
				Source:    make([]float64, 3*nc),
				Mu:        constant(nc, 1/p.ScalarScale),
				Lambda:    constant(nc, 1/p.ScalarScale),
				Stress:    m.Stress,
				TimeStep:  m.TimeStep,
				BiotAlpha: biotAlpha,
			}
		case dimMax - 1:
			d.Mech = &fvm.MechParams{
				Friction: constant(nc, frictionCoefficient),
				TimeStep: m.TimeStep,
			}
		}
	}
	for _, in := range h.Interfaces {
		m.Store.Interface(in)
	}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
