package fvm

import (
	"fmt"

	"github.com/keileg/mastersproject/mesh"
)

// dofLayout assigns global unknown indices: the matrix displacement block
// first, cell-major (all three components of cell c at 3c..3c+2), followed
// by one pressure block per grid in descending-dimension order. The
// cell-major displacement layout is what the driver's column-major reshape
// into a (3, numCells) array relies on.
type dofLayout struct {
	matrix  *mesh.Grid
	nd      int
	pOffset map[*mesh.Grid]int
	total   int
	flow    bool
}

func newDofLayout(h *mesh.Hierarchy, withFlow bool) (*dofLayout, error) {
	matrix, err := h.MatrixGrid()
	if err != nil {
		return nil, err
	}
	l := &dofLayout{
		matrix:  matrix,
		nd:      matrix.Dim,
		pOffset: make(map[*mesh.Grid]int),
		flow:    withFlow,
	}
	l.total = l.nd * matrix.NumCells()
	if withFlow {
		for _, g := range h.Grids() {
			l.pOffset[g] = l.total
			l.total += g.NumCells()
		}
	}
	return l, nil
}

// u returns the global index of displacement component k of matrix cell c.
func (l *dofLayout) u(c, k int) int { return l.nd*c + k }

// p returns the global index of the pressure in cell c of grid g.
func (l *dofLayout) p(g *mesh.Grid, c int) int {
	off, ok := l.pOffset[g]
	if !ok {
		panic(fmt.Sprintf("grid %q has no pressure block", g.Name))
	}
	return off + c
}
