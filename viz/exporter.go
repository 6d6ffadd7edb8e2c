// Package viz writes the grid hierarchy and its cell fields as VTK
// unstructured-grid files, one file per grid dimension per step, tied
// together by a PVD collection for time-series viewing.
package viz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keileg/mastersproject/mesh"
)

// VTK cell type ids for the supported cell shapes.
const (
	vtkLine  = 3
	vtkTri   = 5
	vtkTetra = 10
)

// Exporter writes snapshots of a hierarchy. Grids of equal dimension are
// merged into one piece per file, so a fractured domain exports as one
// matrix file, one shear-zone file and one intersection file per step.
type Exporter struct {
	h      *mesh.Hierarchy
	folder string
	name   string
}

func NewExporter(h *mesh.Hierarchy, folder, name string) *Exporter {
	return &Exporter{h: h, folder: folder, name: name}
}

func (e *Exporter) stepFile(dim, step int) string {
	return fmt.Sprintf("%s_%d_%06d.vtu", e.name, dim, step)
}

// WriteStep writes one VTU file per grid dimension holding the requested
// cell fields. A field of length 3*numCells is written as a vector in
// component-major layout; anything else is zero-filled per grid so every
// file carries the same schema regardless of which grids own the field.
func (e *Exporter) WriteStep(fields []string, step int) error {
	if err := os.MkdirAll(e.folder, 0755); err != nil {
		return err
	}
	for dim := e.h.DimMax(); dim >= 1; dim-- {
		grids := e.h.GridsOfDim(dim)
		if len(grids) == 0 {
			continue
		}
		path := filepath.Join(e.folder, e.stepFile(dim, step))
		if err := writeVTU(path, grids, fields); err != nil {
			return fmt.Errorf("vtu export dim %d step %d: %w", dim, step, err)
		}
	}
	return nil
}

// WritePVD writes the collection file indexing every exported step by
// simulation time, one part per grid dimension.
func (e *Exporter) WritePVD(steps []int, times []float64) error {
	if len(steps) != len(times) {
		return fmt.Errorf("pvd: %d steps but %d times", len(steps), len(times))
	}
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?>\n")
	b.WriteString("<VTKFile type=\"Collection\" version=\"0.1\" byte_order=\"LittleEndian\">\n")
	b.WriteString("<Collection>\n")
	for i, step := range steps {
		for dim := e.h.DimMax(); dim >= 1; dim-- {
			if len(e.h.GridsOfDim(dim)) == 0 {
				continue
			}
			fmt.Fprintf(&b, "<DataSet timestep=\"%g\" part=\"%d\" file=\"%s\"/>\n",
				times[i], dim, e.stepFile(dim, step))
		}
	}
	b.WriteString("</Collection>\n</VTKFile>\n")
	return os.WriteFile(filepath.Join(e.folder, e.name+".pvd"), []byte(b.String()), 0644)
}

func vtkCellType(dim int) int {
	switch dim {
	case 3:
		return vtkTetra
	case 2:
		return vtkTri
	default:
		return vtkLine
	}
}

func writeVTU(path string, grids []*mesh.Grid, fields []string) error {
	var (
		numPoints, numCells int
	)
	for _, g := range grids {
		numPoints += g.NumPoints()
		numCells += g.NumCells()
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?>\n")
	b.WriteString("<VTKFile type=\"UnstructuredGrid\" version=\"0.1\" byte_order=\"LittleEndian\">\n")
	b.WriteString("<UnstructuredGrid>\n")
	fmt.Fprintf(&b, "<Piece NumberOfPoints=\"%d\" NumberOfCells=\"%d\">\n", numPoints, numCells)

	b.WriteString("<Points>\n<DataArray type=\"Float64\" NumberOfComponents=\"3\" format=\"ascii\">\n")
	for _, g := range grids {
		for _, p := range g.Coords {
			fmt.Fprintf(&b, "%.12g %.12g %.12g\n", p[0], p[1], p[2])
		}
	}
	b.WriteString("</DataArray>\n</Points>\n")

	b.WriteString("<Cells>\n<DataArray type=\"Int64\" Name=\"connectivity\" format=\"ascii\">\n")
	offset := 0
	for _, g := range grids {
		for _, cell := range g.Cells {
			for i, v := range cell {
				if i > 0 {
					b.WriteByte(' ')
				}
				fmt.Fprintf(&b, "%d", v+offset)
			}
			b.WriteByte('\n')
		}
		offset += g.NumPoints()
	}
	b.WriteString("</DataArray>\n<DataArray type=\"Int64\" Name=\"offsets\" format=\"ascii\">\n")
	pos := 0
	for _, g := range grids {
		for _, cell := range g.Cells {
			pos += len(cell)
			fmt.Fprintf(&b, "%d\n", pos)
		}
	}
	b.WriteString("</DataArray>\n<DataArray type=\"UInt8\" Name=\"types\" format=\"ascii\">\n")
	for _, g := range grids {
		ct := vtkCellType(g.Dim)
		for range g.Cells {
			fmt.Fprintf(&b, "%d\n", ct)
		}
	}
	b.WriteString("</DataArray>\n</Cells>\n")

	b.WriteString("<CellData>\n")
	for _, field := range fields {
		writeField(&b, grids, field)
	}
	b.WriteString("</CellData>\n")

	b.WriteString("</Piece>\n</UnstructuredGrid>\n</VTKFile>\n")
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// fieldOn returns the named field of g from state or tags, and whether it
// is a 3-component vector.
func fieldOn(g *mesh.Grid, field string) (data []float64, vector bool) {
	data, ok := g.State[field]
	if !ok {
		data = g.Tags[field]
	}
	switch len(data) {
	case 3 * g.NumCells():
		return data, true
	case g.NumCells():
		return data, false
	}
	return nil, false
}

func writeField(b *strings.Builder, grids []*mesh.Grid, field string) {
	// vector if any grid holds it as a vector
	vector := false
	for _, g := range grids {
		if _, v := fieldOn(g, field); v {
			vector = true
			break
		}
	}
	comps := 1
	if vector {
		comps = 3
	}
	fmt.Fprintf(b, "<DataArray type=\"Float64\" Name=\"%s\" NumberOfComponents=\"%d\" format=\"ascii\">\n", field, comps)
	for _, g := range grids {
		var (
			nc      = g.NumCells()
			data, _ = fieldOn(g, field)
		)
		for cell := 0; cell < nc; cell++ {
			if vector {
				// component-major layout: component k of cell j at k*nc+j
				for k := 0; k < 3; k++ {
					v := 0.0
					if len(data) == 3*nc {
						v = data[k*nc+cell]
					}
					if k > 0 {
						b.WriteByte(' ')
					}
					fmt.Fprintf(b, "%.12g", v)
				}
				b.WriteByte('\n')
			} else {
				v := 0.0
				if len(data) == nc {
					v = data[cell]
				}
				fmt.Fprintf(b, "%.12g\n", v)
			}
		}
	}
	fmt.Fprintf(b, "</DataArray>\n")
}
