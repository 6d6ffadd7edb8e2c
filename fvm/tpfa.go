package fvm

import (
	"github.com/james-bowman/sparse"

	"github.com/keileg/mastersproject/mesh"
)

// minimum cell-to-face distance guarding the two-point transmissibilities
// against degenerate geometry
const minTwoPointDist = 1.e-12

// flowDisc holds the precomputed two-point flux data of one grid: the full
// transmissibility of interior faces, the half transmissibility of boundary
// faces, and zero on faces replaced by a mortar coupling.
type flowDisc struct {
	trans    []float64
	replaced []bool
}

// mortarCoupling is one precomputed cross-dimensional flux: the cells of
// the higher grid adjacent to face exchange mass with lowCell through the
// harmonic combination of their half transmissibility and the interface's
// normal diffusivity.
type mortarCoupling struct {
	higher, lower *mesh.Grid
	face, lowCell int
	t             [2]float64
}

func halfTrans(g *mesh.Grid, perm []float64, face *mesh.Face, cell int) float64 {
	d := mesh.Dist(g.CellCenters[cell], face.Center)
	if d < minTwoPointDist {
		d = minTwoPointDist
	}
	return perm[cell] * face.Area / d
}

func (c *Coupled) discretizeFlow() {
	c.flow = make(map[*mesh.Grid]*flowDisc)
	c.mortars = nil
	c.facePressure = make(map[int]faceP)

	replaced := make(map[*mesh.Grid]map[int]bool)
	for _, in := range c.h.Interfaces {
		m := replaced[in.Higher]
		if m == nil {
			m = make(map[int]bool)
			replaced[in.Higher] = m
		}
		for _, pr := range in.Pairs {
			m[pr.Face] = true
		}
	}

	for _, g := range c.h.Grids() {
		fp := c.store.Grid(g).Flow
		d := &flowDisc{
			trans:    make([]float64, g.NumFaces()),
			replaced: make([]bool, g.NumFaces()),
		}
		for fid := range g.Faces {
			if replaced[g][fid] {
				d.replaced[fid] = true
				continue
			}
			face := &g.Faces[fid]
			t0 := halfTrans(g, fp.Permeability, face, face.Cells[0])
			if face.Boundary() {
				d.trans[fid] = t0
				continue
			}
			t1 := halfTrans(g, fp.Permeability, face, face.Cells[1])
			d.trans[fid] = 1 / (1/t0 + 1/t1)
		}
		c.flow[g] = d
	}

	for _, in := range c.h.Interfaces {
		var (
			kappa = c.store.Interface(in).NormalDiffusivity
			fp    = c.store.Grid(in.Higher).Flow
		)
		for _, pr := range in.Pairs {
			face := &in.Higher.Faces[pr.Face]
			mc := mortarCoupling{higher: in.Higher, lower: in.Lower, face: pr.Face, lowCell: pr.Cell}
			for s, cell := range face.Cells {
				if cell < 0 {
					continue
				}
				th := halfTrans(in.Higher, fp.Permeability, face, cell)
				tn := kappa * face.Area
				mc.t[s] = 1 / (1/th + 1/tn)
			}
			c.mortars = append(c.mortars, mc)
			if in.Higher == c.dofs.matrix {
				c.facePressure[pr.Face] = faceP{g: in.Lower, cell: pr.Cell}
			}
		}
	}
}

// assembleFlow adds the mass balance of every grid: backward-Euler
// accumulation against the stored previous pressure, flux terms scaled by
// the step length, boundary conditions, the per-step source volumes, the
// mortar exchange, and on the matrix grid the Biot volumetric coupling.
func (c *Coupled) assembleFlow(A *sparse.DOK, b []float64) {
	for _, g := range c.h.Grids() {
		var (
			fp    = c.store.Grid(g).Flow
			d     = c.flow[g]
			dt    = fp.TimeStep
			pPrev = stateOrZero(g, "p", g.NumCells())
		)
		for cell := range g.Cells {
			r := c.dofs.p(g, cell)
			w := fp.Storativity[cell] * g.CellVolumes[cell]
			add(A, r, r, w)
			b[r] += w*pPrev[cell] + fp.Source[cell]
		}
		for fid := range g.Faces {
			if d.replaced[fid] {
				continue
			}
			var (
				face = &g.Faces[fid]
				ca   = face.Cells[0]
				ra   = c.dofs.p(g, ca)
			)
			if face.Boundary() {
				switch fp.BCType[fid] {
				case Dirichlet:
					T := dt * d.trans[fid]
					add(A, ra, ra, T)
					b[ra] += T * fp.BCValues[fid]
				case Neumann:
					// positive value is influx per area and time
					b[ra] += dt * fp.BCValues[fid] * face.Area
				}
				continue
			}
			var (
				cb = face.Cells[1]
				rb = c.dofs.p(g, cb)
				T  = dt * d.trans[fid]
			)
			add(A, ra, ra, T)
			add(A, ra, rb, -T)
			add(A, rb, rb, T)
			add(A, rb, ra, -T)
		}
	}

	for _, m := range c.mortars {
		var (
			dt = c.store.Grid(m.higher).Flow.TimeStep
			rl = c.dofs.p(m.lower, m.lowCell)
		)
		for s, cell := range m.higher.Faces[m.face].Cells {
			if cell < 0 || m.t[s] == 0 {
				continue
			}
			T := dt * m.t[s]
			rh := c.dofs.p(m.higher, cell)
			add(A, rh, rh, T)
			add(A, rh, rl, -T)
			add(A, rl, rl, T)
			add(A, rl, rh, -T)
		}
	}

	if c.mode == Biot {
		c.assembleDivCoupling(A, b)
	}
}

// assembleDivCoupling adds the alpha*d(div u)/dt term of the matrix mass
// balance in incremental form: the discrete surface integral of the current
// displacement enters the matrix, the same integral of the previous step's
// displacement the right-hand side. Dirichlet faces hold their displacement
// between steps, so their contributions cancel and are skipped.
func (c *Coupled) assembleDivCoupling(A *sparse.DOK, b []float64) {
	var (
		g     = c.dofs.matrix
		mp    = c.store.Grid(g).Mech
		alpha = c.store.Grid(g).Flow.BiotAlpha
		uPrev = stateOrZero(g, "u", c.dofs.nd*g.NumCells())
	)
	if alpha == 0 {
		return
	}
	for fid := range g.Faces {
		face := &g.Faces[fid]
		// contributing cells and their interpolation weights for the face
		// displacement
		var (
			cells   [2]int
			weights [2]float64
		)
		if face.Boundary() {
			if mp.BCType[fid] == Dirichlet {
				continue
			}
			cells, weights = [2]int{face.Cells[0], -1}, [2]float64{1, 0}
		} else {
			cells, weights = face.Cells, [2]float64{0.5, 0.5}
		}
		for side, own := range face.Cells {
			if own < 0 {
				continue
			}
			sign := 1.0
			if side == 1 {
				sign = -1
			}
			r := c.dofs.p(g, own)
			for ci, cc := range cells {
				if cc < 0 {
					continue
				}
				for k := 0; k < c.dofs.nd; k++ {
					coeff := alpha * sign * face.Area * face.Normal[k] * weights[ci]
					if coeff == 0 {
						continue
					}
					add(A, r, c.dofs.u(cc, k), coeff)
					b[r] += coeff * uPrev[c.dofs.nd*cc+k]
				}
			}
		}
	}
}
