package fvm

import (
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/keileg/mastersproject/mesh"
)

// mechDisc is the two-point stress approximation of the matrix grid: one
// componentwise stiffness coefficient per face, built from the harmonic
// mean of the P-wave moduli of the adjacent cells.
type mechDisc struct {
	trans []float64
}

func (c *Coupled) discretizeMech() {
	var (
		g  = c.dofs.matrix
		mp = c.store.Grid(g).Mech
	)
	modulus := func(cell int) float64 { return 2*mp.Mu[cell] + mp.Lambda[cell] }
	d := &mechDisc{trans: make([]float64, g.NumFaces())}
	for fid := range g.Faces {
		face := &g.Faces[fid]
		s0 := stiffHalf(g.CellCenters[face.Cells[0]], face, modulus(face.Cells[0]))
		if face.Boundary() {
			d.trans[fid] = s0
			continue
		}
		s1 := stiffHalf(g.CellCenters[face.Cells[1]], face, modulus(face.Cells[1]))
		d.trans[fid] = 1 / (1/s0 + 1/s1)
	}
	c.mech = d
}

func stiffHalf(center [3]float64, face *mesh.Face, m float64) float64 {
	d := mesh.Dist(center, face.Center)
	if d < minTwoPointDist {
		d = minTwoPointDist
	}
	return m * face.Area / d
}

// assembleMech adds the momentum balance of the matrix grid: the two-point
// elastic fluxes, displacement and traction boundary conditions, the body
// force, and in coupled mode the pore-pressure force on each cell.
func (c *Coupled) assembleMech(A *sparse.DOK, b []float64) {
	var (
		g  = c.dofs.matrix
		mp = c.store.Grid(g).Mech
		d  = c.mech
		nd = c.dofs.nd
	)
	for cell := range g.Cells {
		for k := 0; k < nd; k++ {
			b[c.dofs.u(cell, k)] += mp.Source[nd*cell+k]
		}
	}
	for fid := range g.Faces {
		var (
			face = &g.Faces[fid]
			s    = d.trans[fid]
			ca   = face.Cells[0]
		)
		if face.Boundary() {
			switch mp.BCType[fid] {
			case Dirichlet:
				for k := 0; k < nd; k++ {
					r := c.dofs.u(ca, k)
					add(A, r, r, s)
					b[r] += s * mp.BCValues[nd*fid+k]
				}
			case Neumann:
				// prescribed total traction, pressure included
				for k := 0; k < nd; k++ {
					b[c.dofs.u(ca, k)] += mp.BCValues[nd*fid+k] * face.Area
				}
			}
			continue
		}
		cb := face.Cells[1]
		for k := 0; k < nd; k++ {
			var (
				ra = c.dofs.u(ca, k)
				rb = c.dofs.u(cb, k)
			)
			add(A, ra, ra, s)
			add(A, ra, rb, -s)
			add(A, rb, rb, s)
			add(A, rb, ra, -s)
		}
	}

	if c.mode == Biot {
		c.assemblePressureForce(A, b)
	}
}

// assemblePressureForce adds the alpha*grad(p) force to the momentum
// balance as the surface integral of the face pressure. On faces replaced
// by a mortar coupling the fracture cell supplies the pressure; on Neumann
// faces the prescribed traction already carries the pressure, so the term
// is skipped there.
func (c *Coupled) assemblePressureForce(A *sparse.DOK, b []float64) {
	var (
		g     = c.dofs.matrix
		mp    = c.store.Grid(g).Mech
		fp    = c.store.Grid(g).Flow
		alpha = fp.BiotAlpha
		nd    = c.dofs.nd
	)
	if alpha == 0 {
		return
	}
	for fid := range g.Faces {
		face := &g.Faces[fid]
		for side, own := range face.Cells {
			if own < 0 {
				continue
			}
			sign := 1.0
			if side == 1 {
				sign = -1
			}
			contribute := func(col int, w float64) {
				for k := 0; k < nd; k++ {
					if coeff := alpha * sign * face.Area * face.Normal[k] * w; coeff != 0 {
						add(A, c.dofs.u(own, k), col, coeff)
					}
				}
			}
			if lp, mortar := c.facePressure[fid]; mortar {
				contribute(c.dofs.p(lp.g, lp.cell), 1)
				continue
			}
			if face.Boundary() {
				if mp.BCType[fid] == Neumann {
					continue
				}
				switch fp.BCType[fid] {
				case Dirichlet:
					// known face pressure moves to the right-hand side
					for k := 0; k < nd; k++ {
						b[c.dofs.u(own, k)] -= alpha * sign * face.Area * face.Normal[k] * fp.BCValues[fid]
					}
				case Neumann:
					contribute(c.dofs.p(g, own), 1)
				}
				continue
			}
			contribute(c.dofs.p(g, face.Cells[0]), 0.5)
			contribute(c.dofs.p(g, face.Cells[1]), 0.5)
		}
	}
}

// updateSlipTendency evaluates the Coulomb slip tendency of every fracture
// cell from the in-situ stress resolved on the cell plane and the current
// pressure: the ratio of resolved shear to friction times effective normal
// compression. Values above one mark cells the stimulation would
// reactivate.
func (c *Coupled) updateSlipTendency() {
	mp := c.store.Grid(c.dofs.matrix).Mech
	if mp.Stress == nil {
		return
	}
	for _, g := range c.h.GridsOfDim(c.dofs.nd - 1) {
		var (
			fr = c.store.Grid(g).Mech
			p  = stateOrZero(g, "p", g.NumCells())
			st = make([]float64, g.NumCells())
		)
		if fr == nil || len(fr.Friction) != g.NumCells() {
			continue
		}
		for cell := range g.Cells {
			n := g.CellNormal(cell)
			t := stressVector(mp.Stress, n)
			tn := n[0]*t[0] + n[1]*t[1] + n[2]*t[2]
			var tau float64
			for k := 0; k < 3; k++ {
				s := t[k] - tn*n[k]
				tau += s * s
			}
			tau = math.Sqrt(tau)
			// tension-positive tensor: compression is -tn, reduced by the
			// pore pressure
			sn := -tn - p[cell]
			st[cell] = tau / (fr.Friction[cell] * math.Max(sn, slipFloor))
		}
		g.State["slip_tendency"] = st
	}
}

const slipFloor = 1.e-12

func stressVector(sigma *mat.SymDense, n [3]float64) (t [3]float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i] += sigma.At(i, j) * n[j]
		}
	}
	return
}
