package mesh

import (
	"fmt"
	"sort"
)

// MortarPair couples one lower-dimensional cell to the higher-dimensional
// face it geometrically coincides with.
type MortarPair struct {
	Cell int // cell index in the lower grid
	Face int // face index in the higher grid
}

// Interface is the mortar coupling between a grid of dimension d and an
// embedded grid of dimension d-1: matrix/shear-zone or shear-zone/
// intersection. Parameters attached to interfaces live in the simulation's
// own data store, keyed by *Interface.
type Interface struct {
	Higher *Grid
	Lower  *Grid
	Pairs  []MortarPair
}

func (i *Interface) String() string {
	return fmt.Sprintf("interface %q(%dd) <-> %q(%dd), %d pairs",
		i.Higher.Name, i.Higher.Dim, i.Lower.Name, i.Lower.Dim, len(i.Pairs))
}

// Hierarchy is the mixed-dimensional grid bucket: all grids ordered by
// descending dimension, plus the mortar interfaces between consecutive
// dimensions.
type Hierarchy struct {
	grids      []*Grid
	Interfaces []*Interface
}

// AddGrid inserts a grid, keeping descending-dimension order with stable
// insertion order within a dimension.
func (h *Hierarchy) AddGrid(g *Grid) {
	h.grids = append(h.grids, g)
	sort.SliceStable(h.grids, func(i, j int) bool {
		return h.grids[i].Dim > h.grids[j].Dim
	})
}

// Grids returns all grids in descending dimension order.
func (h *Hierarchy) Grids() []*Grid { return h.grids }

// GridsOfDim returns the grids of one dimension, in insertion order.
func (h *Hierarchy) GridsOfDim(dim int) (out []*Grid) {
	for _, g := range h.grids {
		if g.Dim == dim {
			out = append(out, g)
		}
	}
	return
}

// DimMax returns the highest grid dimension present.
func (h *Hierarchy) DimMax() (d int) {
	for _, g := range h.grids {
		if g.Dim > d {
			d = g.Dim
		}
	}
	return
}

// MatrixGrid returns the unique grid of highest dimension.
func (h *Hierarchy) MatrixGrid() (*Grid, error) {
	top := h.GridsOfDim(h.DimMax())
	if len(top) != 1 {
		return nil, fmt.Errorf("hierarchy has %d grids of dimension %d, want exactly 1", len(top), h.DimMax())
	}
	return top[0], nil
}

// ByName returns the grid with the given name, or nil.
func (h *Hierarchy) ByName(name string) *Grid {
	for _, g := range h.grids {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// NumCells sums cell counts over all grids of the given dimensions; with no
// dimensions given it counts every grid.
func (h *Hierarchy) NumCells(dims ...int) (n int) {
	for _, g := range h.grids {
		if len(dims) == 0 {
			n += g.NumCells()
			continue
		}
		for _, d := range dims {
			if g.Dim == d {
				n += g.NumCells()
				break
			}
		}
	}
	return
}

// InterfacesOf lists the interfaces in which g participates, as either the
// higher or the lower side.
func (h *Hierarchy) InterfacesOf(g *Grid) (out []*Interface) {
	for _, in := range h.Interfaces {
		if in.Higher == g || in.Lower == g {
			out = append(out, in)
		}
	}
	return
}

// globalFaceKey builds the sorted-global-vertex key of a face, the same
// device used for the face lattice but in mesh-file numbering so faces can
// be matched across grids.
func globalFaceKey(g *Grid, f *Face) string {
	ids := make([]int, len(f.Vertices))
	for i, v := range f.Vertices {
		ids[i] = g.GlobalVertex[v]
	}
	sort.Ints(ids)
	return fmt.Sprintf("%v", ids)
}

func globalCellKey(g *Grid, c int) string {
	verts := g.Cells[c]
	ids := make([]int, len(verts))
	for i, v := range verts {
		ids[i] = g.GlobalVertex[v]
	}
	sort.Ints(ids)
	return fmt.Sprintf("%v", ids)
}

// BuildInterfaces matches every cell of each lower-dimensional grid against
// the faces of the grids one dimension up, via shared mesh-file vertex ids.
// A conforming gmsh mesh pairs each fracture cell with exactly one matrix
// face; a fracture cell no matrix face matches is a hard error since the
// coupling would silently vanish.
func (h *Hierarchy) BuildInterfaces() error {
	h.Interfaces = nil
	for _, higher := range h.grids {
		lowers := h.GridsOfDim(higher.Dim - 1)
		if len(lowers) == 0 {
			continue
		}
		faceOf := make(map[string]int, higher.NumFaces())
		for fid := range higher.Faces {
			faceOf[globalFaceKey(higher, &higher.Faces[fid])] = fid
		}
		for _, lower := range lowers {
			var pairs []MortarPair
			for c := range lower.Cells {
				if fid, ok := faceOf[globalCellKey(lower, c)]; ok {
					pairs = append(pairs, MortarPair{Cell: c, Face: fid})
				}
			}
			// an intersection grid only touches the two zones it lies in;
			// no matches at all just means these two grids do not meet
			if len(pairs) == 0 {
				continue
			}
			if len(pairs) < lower.NumCells() {
				return fmt.Errorf("grid %q matches only %d of %d cells against faces of %q: mesh is not conforming",
					lower.Name, len(pairs), lower.NumCells(), higher.Name)
			}
			h.Interfaces = append(h.Interfaces, &Interface{Higher: higher, Lower: lower, Pairs: pairs})
		}
	}
	return nil
}
