package mesh

import (
	"fmt"
	"math"
	"sort"
)

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm(a [3]float64) float64 { return math.Sqrt(dot(a, a)) }

func scale(s float64, a [3]float64) [3]float64 {
	return [3]float64{s * a[0], s * a[1], s * a[2]}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b [3]float64) float64 { return norm(sub(a, b)) }

// computeGeometry fills in cell centers, cell measures, the face lattice
// and face geometry. Faces are deduplicated with a sorted-vertex key map;
// each face records its one or two adjacent cells, and its unit normal is
// oriented out of the first.
func (g *Grid) computeGeometry() error {
	var (
		nc = len(g.Cells)
	)
	g.CellCenters = make([][3]float64, nc)
	g.CellVolumes = make([]float64, nc)
	g.CellFaces = make([][]int, nc)

	for c, verts := range g.Cells {
		var ctr [3]float64
		for _, v := range verts {
			for k := 0; k < 3; k++ {
				ctr[k] += g.Coords[v][k]
			}
		}
		for k := 0; k < 3; k++ {
			ctr[k] /= float64(len(verts))
		}
		g.CellCenters[c] = ctr

		vol := g.cellMeasure(verts)
		if vol <= 0 {
			return fmt.Errorf("grid %q: cell %d has non-positive measure %g", g.Name, c, vol)
		}
		g.CellVolumes[c] = vol
	}

	// Face lattice via sorted-vertex keys
	faceMap := make(map[string]int)
	g.Faces = g.Faces[:0]
	for c, verts := range g.Cells {
		for _, fv := range cellFacets(g.Dim, verts) {
			sorted := make([]int, len(fv))
			copy(sorted, fv)
			sort.Ints(sorted)
			key := fmt.Sprintf("%v", sorted)

			if fid, exists := faceMap[key]; exists {
				if g.Faces[fid].Cells[1] >= 0 {
					return fmt.Errorf("grid %q: face %v shared by more than two cells", g.Name, sorted)
				}
				g.Faces[fid].Cells[1] = c
				g.CellFaces[c] = append(g.CellFaces[c], fid)
			} else {
				fid = len(g.Faces)
				g.Faces = append(g.Faces, Face{Vertices: sorted, Cells: [2]int{c, -1}})
				faceMap[key] = fid
				g.CellFaces[c] = append(g.CellFaces[c], fid)
			}
		}
	}

	for i := range g.Faces {
		g.faceGeometry(&g.Faces[i])
	}
	return nil
}

// cellMeasure returns the tetrahedron volume, triangle area or segment
// length of a cell.
func (g *Grid) cellMeasure(verts []int) float64 {
	switch len(verts) {
	case 4:
		a := sub(g.Coords[verts[1]], g.Coords[verts[0]])
		b := sub(g.Coords[verts[2]], g.Coords[verts[0]])
		c := sub(g.Coords[verts[3]], g.Coords[verts[0]])
		return math.Abs(dot(a, cross(b, c))) / 6
	case 3:
		a := sub(g.Coords[verts[1]], g.Coords[verts[0]])
		b := sub(g.Coords[verts[2]], g.Coords[verts[0]])
		return norm(cross(a, b)) / 2
	case 2:
		return Dist(g.Coords[verts[0]], g.Coords[verts[1]])
	}
	return 0
}

// cellFacets lists the (d-1)-facets of a cell: the four triangles of a tet,
// the three edges of a triangle, the two endpoints of a segment.
func cellFacets(dim int, v []int) [][]int {
	switch dim {
	case 3:
		return [][]int{
			{v[0], v[2], v[1]},
			{v[0], v[1], v[3]},
			{v[1], v[2], v[3]},
			{v[0], v[3], v[2]},
		}
	case 2:
		return [][]int{
			{v[0], v[1]},
			{v[1], v[2]},
			{v[2], v[0]},
		}
	case 1:
		return [][]int{
			{v[0]},
			{v[1]},
		}
	}
	return nil
}

// faceGeometry computes center, measure and outward unit normal of a face.
// The (d-1)-measure is the triangle area, edge length, or 1 for the point
// faces of a line grid.
func (g *Grid) faceGeometry(f *Face) {
	var ctr [3]float64
	for _, v := range f.Vertices {
		for k := 0; k < 3; k++ {
			ctr[k] += g.Coords[v][k]
		}
	}
	for k := 0; k < 3; k++ {
		ctr[k] /= float64(len(f.Vertices))
	}
	f.Center = ctr

	var n [3]float64
	switch len(f.Vertices) {
	case 3:
		a := sub(g.Coords[f.Vertices[1]], g.Coords[f.Vertices[0]])
		b := sub(g.Coords[f.Vertices[2]], g.Coords[f.Vertices[0]])
		n = cross(a, b)
		f.Area = norm(n) / 2
	case 2:
		e := sub(g.Coords[f.Vertices[1]], g.Coords[f.Vertices[0]])
		f.Area = norm(e)
		// in-plane edge normal: rotate the edge about the cell plane normal
		cell := g.Cells[f.Cells[0]]
		p := cross(sub(g.Coords[cell[1]], g.Coords[cell[0]]), sub(g.Coords[cell[2]], g.Coords[cell[0]]))
		n = cross(e, p)
	case 1:
		f.Area = 1
		n = sub(f.Center, g.CellCenters[f.Cells[0]])
	}
	if l := norm(n); l > 0 {
		n = scale(1/l, n)
	}
	// orient out of Cells[0]
	if dot(n, sub(f.Center, g.CellCenters[f.Cells[0]])) < 0 {
		n = scale(-1, n)
	}
	f.Normal = n
}

// CellNormal returns the unit normal of a planar 2D cell. The sign is
// arbitrary; callers needing a consistent orientation must align normals
// themselves.
func (g *Grid) CellNormal(c int) [3]float64 {
	v := g.Cells[c]
	n := cross(sub(g.Coords[v[1]], g.Coords[v[0]]), sub(g.Coords[v[2]], g.Coords[v[0]]))
	if l := norm(n); l > 0 {
		n = scale(1/l, n)
	}
	return n
}

// MeanNormal returns the area-weighted mean unit normal of a 2D grid, with
// per-cell normals flipped into a common hemisphere before averaging.
func (g *Grid) MeanNormal() [3]float64 {
	if g.Dim != 2 || g.NumCells() == 0 {
		return [3]float64{}
	}
	ref := g.CellNormal(0)
	var acc [3]float64
	for c := range g.Cells {
		n := g.CellNormal(c)
		if dot(n, ref) < 0 {
			n = scale(-1, n)
		}
		for k := 0; k < 3; k++ {
			acc[k] += g.CellVolumes[c] * n[k]
		}
	}
	if l := norm(acc); l > 0 {
		acc = scale(1/l, acc)
	}
	return acc
}

// Centroid returns the measure-weighted centroid of the grid.
func (g *Grid) Centroid() (ctr [3]float64) {
	var tot float64
	for c := range g.Cells {
		w := g.CellVolumes[c]
		tot += w
		for k := 0; k < 3; k++ {
			ctr[k] += w * g.CellCenters[c][k]
		}
	}
	if tot > 0 {
		for k := 0; k < 3; k++ {
			ctr[k] /= tot
		}
	}
	return
}

// ClosestCell returns the cell whose center is nearest to p, and the
// distance to it.
func (g *Grid) ClosestCell(p [3]float64) (cell int, dist float64) {
	cell, dist = -1, math.Inf(1)
	for c, ctr := range g.CellCenters {
		if d := Dist(ctr, p); d < dist {
			cell, dist = c, d
		}
	}
	return
}
