package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitTet is a single-tet grid with vertices at the origin and unit axes.
func unitTet(t *testing.T) *Grid {
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	g, err := NewGrid(3, "DOMAIN", coords, []int{1, 2, 3, 4}, [][]int{{0, 1, 2, 3}})
	require.NoError(t, err)
	return g
}

// unitCube is the five-tet decomposition of the unit cube.
func unitCube(t *testing.T) *Grid {
	coords := [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	cells := [][]int{
		{0, 1, 3, 4},
		{1, 2, 3, 6},
		{1, 4, 5, 6},
		{3, 4, 6, 7},
		{1, 3, 4, 6},
	}
	global := make([]int, len(coords))
	for i := range global {
		global[i] = i + 1
	}
	g, err := NewGrid(3, "DOMAIN", coords, global, cells)
	require.NoError(t, err)
	return g
}

func TestTetGeometry(t *testing.T) {
	g := unitTet(t)
	assert.Equal(t, 1, g.NumCells())
	assert.Equal(t, 4, g.NumFaces())
	assert.InDelta(t, 1.0/6, g.CellVolumes[0], 1.e-14)
	assert.InDelta(t, 0.25, g.CellCenters[0][0], 1.e-14)

	// all faces are boundary, with outward unit normals
	for i := range g.Faces {
		f := &g.Faces[i]
		assert.True(t, f.Boundary())
		assert.InDelta(t, 1.0, math.Sqrt(dot(f.Normal, f.Normal)), 1.e-12)
		assert.True(t, dot(f.Normal, sub(f.Center, g.CellCenters[0])) > 0)
	}

	// face areas: three axis triangles of area 1/2 plus the diagonal face
	var total float64
	for _, f := range g.Faces {
		total += f.Area
	}
	assert.InDelta(t, 1.5+math.Sqrt(3)/2, total, 1.e-12)
}

func TestCubeGeometry(t *testing.T) {
	g := unitCube(t)
	var vol float64
	for _, v := range g.CellVolumes {
		vol += v
	}
	assert.InDelta(t, 1.0, vol, 1.e-14)

	// 12 boundary triangles, plus the 4 internal faces of the central tet
	assert.Equal(t, 16, g.NumFaces())
	assert.Equal(t, 12, len(g.BoundaryFaces()))

	// internal faces know both neighbors
	for _, f := range g.Faces {
		if !f.Boundary() {
			assert.True(t, f.Cells[0] != f.Cells[1])
			assert.True(t, f.Cells[1] >= 0)
		}
	}

	// side classification picks up two triangles per cube face
	sides := DomainSides(g, Box{0, 1, 0, 1, 0, 1}, 1.e-8)
	assert.Equal(t, 12, len(sides.All))
	assert.Equal(t, 2, len(sides.East))
	assert.Equal(t, 2, len(sides.West))
	assert.Equal(t, 2, len(sides.North))
	assert.Equal(t, 2, len(sides.South))
	assert.Equal(t, 2, len(sides.Top))
	assert.Equal(t, 2, len(sides.Bottom))
}

func TestTriangleGridGeometry(t *testing.T) {
	// two triangles in the z=0 plane sharing the diagonal
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	g, err := NewGrid(2, "S1_2", coords, []int{1, 2, 3, 4}, [][]int{{0, 1, 2}, {0, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t, 5, g.NumFaces())
	assert.Equal(t, 4, len(g.BoundaryFaces()))
	assert.InDelta(t, 0.5, g.CellVolumes[0], 1.e-14)

	// edge normals stay in the grid plane and point out of Cells[0]
	for i := range g.Faces {
		f := &g.Faces[i]
		assert.InDelta(t, 0.0, f.Normal[2], 1.e-12)
		assert.True(t, dot(f.Normal, sub(f.Center, g.CellCenters[f.Cells[0]])) > 0)
	}

	n := g.MeanNormal()
	assert.InDelta(t, 1.0, math.Abs(n[2]), 1.e-12)
	ctr := g.Centroid()
	assert.InDelta(t, 0.5, ctr[0], 1.e-12)
	assert.InDelta(t, 0.5, ctr[1], 1.e-12)
}

func TestLineGridGeometry(t *testing.T) {
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {3, 0, 0}}
	g, err := NewGrid(1, "S1_1_S1_2", coords, []int{1, 2, 3}, [][]int{{0, 1}, {1, 2}})
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumFaces())
	assert.Equal(t, 2, len(g.BoundaryFaces()))
	assert.InDelta(t, 1.0, g.CellVolumes[0], 1.e-14)
	assert.InDelta(t, 2.0, g.CellVolumes[1], 1.e-14)

	cell, dist := g.ClosestCell([3]float64{2.1, 0, 0})
	assert.Equal(t, 1, cell)
	assert.InDelta(t, 0.1, dist, 1.e-12)
}

func TestDegenerateCellRejected(t *testing.T) {
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	_, err := NewGrid(3, "DOMAIN", coords, []int{1, 2, 3, 4}, [][]int{{0, 1, 2, 3}})
	assert.Error(t, err)

	_, err = NewGrid(3, "DOMAIN", coords, []int{1, 2, 3, 4}, [][]int{{0, 1, 2}})
	assert.Error(t, err)
}
