package mesh

import "fmt"

// Box is the axis-aligned domain of the simulation, in scaled coordinates.
type Box struct {
	XMin float64 `yaml:"XMin"`
	XMax float64 `yaml:"XMax"`
	YMin float64 `yaml:"YMin"`
	YMax float64 `yaml:"YMax"`
	ZMin float64 `yaml:"ZMin"`
	ZMax float64 `yaml:"ZMax"`
}

func (b Box) String() string {
	return fmt.Sprintf("[%g,%g]x[%g,%g]x[%g,%g]", b.XMin, b.XMax, b.YMin, b.YMax, b.ZMin, b.ZMax)
}

// Extent returns the box side lengths.
func (b Box) Extent() (dx, dy, dz float64) {
	return b.XMax - b.XMin, b.YMax - b.YMin, b.ZMax - b.ZMin
}

// Contains reports whether p is inside the box, within tol of the faces.
func (b Box) Contains(p [3]float64, tol float64) bool {
	return p[0] >= b.XMin-tol && p[0] <= b.XMax+tol &&
		p[1] >= b.YMin-tol && p[1] <= b.YMax+tol &&
		p[2] >= b.ZMin-tol && p[2] <= b.ZMax+tol
}

// MeshArgs carries the characteristic mesh sizes handed to gmsh: the target
// size on fracture surfaces, the minimum size near fracture intersections,
// and the size on the outer boundary.
type MeshArgs struct {
	SizeFrac  float64 `yaml:"SizeFrac"`
	SizeMin   float64 `yaml:"SizeMin"`
	SizeBound float64 `yaml:"SizeBound"`
}

// DefaultMeshArgs derives the standard size triple from a single scale:
// fractures mesh at sz, intersections may refine to sz/10, the boundary
// coarsens to 6*sz.
func DefaultMeshArgs(sz float64) MeshArgs {
	return MeshArgs{SizeFrac: sz, SizeMin: 0.1 * sz, SizeBound: 6 * sz}
}

// Face is a (d-1)-dimensional facet of a grid of dimension d: a triangle of
// a tetrahedral grid, an edge of a triangle grid, an endpoint of a line
// grid. Cells holds the one or two adjacent cells; Cells[1] is -1 on the
// boundary. The unit normal points out of Cells[0].
type Face struct {
	Vertices []int // local vertex indices, sorted
	Cells    [2]int
	Center   [3]float64
	Normal   [3]float64
	Area     float64
}

// Boundary reports whether the face has only one adjacent cell.
func (f *Face) Boundary() bool { return f.Cells[1] < 0 }

// Grid is one fixed-dimensional member of the mixed-dimensional hierarchy:
// the 3D rock matrix, a 2D shear-zone grid, or a 1D intersection grid. Cell
// vertex indices are local to the grid; GlobalVertex maps them back to the
// mesh-file node numbering so grids of different dimension can be matched
// geometrically.
type Grid struct {
	Dim  int
	Name string

	Coords       [][3]float64
	GlobalVertex []int
	Cells        [][]int

	CellCenters [][3]float64
	CellVolumes []float64
	Faces       []Face
	CellFaces   [][]int

	// Tags holds static cell markers (e.g. well cells), State the evolving
	// solution fields. Both are keyed by field name.
	Tags  map[string][]float64
	State map[string][]float64
}

// NewGrid builds a grid from local coordinates and cell-vertex lists and
// computes its geometry: cell centers and measures, the face lattice and
// face geometry. Cell vertex counts must match the dimension (4 for tets,
// 3 for triangles, 2 for lines).
func NewGrid(dim int, name string, coords [][3]float64, globalVertex []int, cells [][]int) (g *Grid, err error) {
	g = &Grid{
		Dim:          dim,
		Name:         name,
		Coords:       coords,
		GlobalVertex: globalVertex,
		Cells:        cells,
		Tags:         make(map[string][]float64),
		State:        make(map[string][]float64),
	}
	want := dim + 1
	for c, verts := range cells {
		if len(verts) != want {
			return nil, fmt.Errorf("grid %q: cell %d has %d vertices, want %d for dim %d",
				name, c, len(verts), want, dim)
		}
	}
	if err = g.computeGeometry(); err != nil {
		return nil, err
	}
	return
}

func (g *Grid) NumCells() int  { return len(g.Cells) }
func (g *Grid) NumFaces() int  { return len(g.Faces) }
func (g *Grid) NumPoints() int { return len(g.Coords) }

// BoundaryFaces lists the indices of all faces with a single adjacent cell.
func (g *Grid) BoundaryFaces() (faces []int) {
	for i := range g.Faces {
		if g.Faces[i].Boundary() {
			faces = append(faces, i)
		}
	}
	return
}

func (g *Grid) String() string {
	return fmt.Sprintf("grid %q dim=%d cells=%d faces=%d", g.Name, g.Dim, g.NumCells(), g.NumFaces())
}
