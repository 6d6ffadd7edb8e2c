// Package biot drives the coupled poroelastic stimulation experiment: it
// assembles the site geometry and survey data into a grid hierarchy, fills
// the parameter store, and advances the coupled system through the
// configured time window, exporting a snapshot per step. The numerics live
// in the fvm package; this layer owns configuration, time state and run
// control.
package biot

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/keileg/mastersproject/InputParameters"
	"github.com/keileg/mastersproject/fvm"
	"github.com/keileg/mastersproject/gts"
	"github.com/keileg/mastersproject/mesh"
	"github.com/keileg/mastersproject/viz"
)

// ErrGridNotBuilt flags a run started before CreateGrid or SetGrid.
var ErrGridNotBuilt = errors.New("grid hierarchy not built")

// Model is the simulation context: deck parameters, site data in scaled
// units, the grid hierarchy with its parameter store, and the time state of
// the run. One Model owns one results folder and its log.
type Model struct {
	Params *InputParameters.SimulationParameters

	Hierarchy *mesh.Hierarchy
	Store     *fvm.Store

	// in-situ stress in scaled pressure units, tension positive
	Stress *mat.SymDense

	// borehole-shearzone intersection in scaled coordinates
	WellPoint [3]float64

	Time      float64
	TimeStep  float64
	EndTime   float64
	StepCount int

	zones  []gts.Zone
	matrix *mesh.Grid

	injectionActive bool
	prepared        bool
	steps           []int
	times           []float64

	solver  Discretizer
	monitor *Monitor
	viz     *viz.Exporter
	logger  *log.Logger
	logFile io.Closer
}

// New builds the model context from a validated deck: results folder and
// run log, survey tables, shear-zone geometry and the in-situ stress, all
// rescaled by the deck's length and scalar scales. The grid hierarchy is
// not built yet; call CreateGrid or SetGrid before running.
func New(params *InputParameters.SimulationParameters) (m *Model, err error) {
	if err = params.Validate(); err != nil {
		return nil, err
	}
	if err = os.MkdirAll(params.FolderName, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(params.FolderName, "results.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	m = &Model{
		Params:          params,
		logger:          log.New(io.MultiWriter(os.Stderr, f), "", log.LstdFlags),
		logFile:         f,
		injectionActive: true,
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	ls := params.LengthScale
	rows, err := gts.Intersections(params.DataPath)
	if err != nil {
		return nil, err
	}
	pt, err := gts.IntersectionPoint(rows, params.Borehole, params.Shearzone)
	if err != nil {
		return nil, err
	}
	for k := 0; k < 3; k++ {
		m.WellPoint[k] = pt[k] / ls
	}

	if m.zones, err = gts.Zones(params.ShearzoneNames); err != nil {
		return nil, err
	}
	for i := range m.zones {
		for k := 0; k < 3; k++ {
			m.zones[i].Centroid[k] /= ls
		}
		m.zones[i].Extent /= ls
	}

	m.Stress = scaleSym(gts.StressTensor(), 1/params.ScalarScale)

	// dt = length_scale^2 seconds, the step heuristic of the site scripts
	m.TimeStep = ls * ls
	m.EndTime = m.TimeStep * float64(params.NumSteps-1)

	m.banner()
	return m, nil
}

// Close releases the run log. The model is not reusable afterwards.
func (m *Model) Close() error {
	if m.logFile == nil {
		return nil
	}
	err := m.logFile.Close()
	m.logFile = nil
	return err
}

func (m *Model) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

func (m *Model) banner() {
	p := m.Params
	m.logf("=== %s ===", p.Title)
	m.logf("bounding box [m]: %+v", p.BoundingBox)
	m.logf("shear zones: %v", p.ShearzoneNames)
	m.logf("mesh sizes [m]: %+v", p.Sizes())
	m.logf("scales: length %g m, pressure %g Pa", p.LengthScale, p.ScalarScale)
	m.logf("injection: %s -> %s at %g l/s", p.Borehole, p.Shearzone, p.FlowRateLiter)
	m.logf("time window: dt = %g s, end = %g s (%d steps)", m.TimeStep, m.EndTime, p.NumSteps)
	m.logf("in-situ stress [scaled]:\n%v",
		mat.Formatted(m.Stress, mat.Prefix("  "), mat.Squeeze()))
}

// SetMonitor attaches a live injection-pressure chart to the run.
func (m *Model) SetMonitor(mon *Monitor) { m.monitor = mon }

func (m *Model) buildOpts(overwrite bool) mesh.BuildOpts {
	var (
		p    = m.Params
		ls   = p.LengthScale
		args = p.Sizes()
	)
	return mesh.BuildOpts{
		Folder:   p.FolderName,
		FileName: p.FileName,
		GmshPath: p.GmshPath,
		Box:      scaleBox(p.BoundingBox, ls),
		Zones:    m.zones,
		MeshArgs: mesh.MeshArgs{
			SizeFrac:  args.SizeFrac / ls,
			SizeMin:   args.SizeMin / ls,
			SizeBound: args.SizeBound / ls,
		},
		Overwrite: overwrite,
	}
}

// CreateGrid meshes the fracture network, or reuses an existing mesh file
// unless overwrite is set, and installs the resulting hierarchy.
func (m *Model) CreateGrid(overwrite bool) error {
	h, err := mesh.BuildHierarchy(m.buildOpts(overwrite))
	if err != nil {
		return fmt.Errorf("grid construction: %w", err)
	}
	return m.SetGrid(h)
}

// CreateRefined meshes the domain on the deck's sizes and on levels
// uniform refinements of them, halving the characteristic lengths per
// level. The hierarchies are returned coarsest first; none is installed.
func (m *Model) CreateRefined(levels int, overwrite bool) ([]*mesh.Hierarchy, error) {
	hs, err := mesh.RefineUniform(m.buildOpts(overwrite), levels)
	if err != nil {
		return nil, fmt.Errorf("grid refinement: %w", err)
	}
	return hs, nil
}

// SetGrid installs a prebuilt hierarchy, resets the run state bound to the
// previous grid and tags the injection cells.
func (m *Model) SetGrid(h *mesh.Hierarchy) error {
	g, err := h.MatrixGrid()
	if err != nil {
		return err
	}
	m.Hierarchy = h
	m.matrix = g
	m.Store = fvm.NewStore()
	m.viz = viz.NewExporter(h, m.Params.FolderName, m.Params.FileName)
	m.solver = nil
	m.prepared = false
	m.Time = 0
	m.StepCount = 0
	m.steps, m.times = nil, nil

	m.logf("grid hierarchy: %d matrix cells, %d fracture grids, %d interfaces",
		g.NumCells(), len(h.GridsOfDim(g.Dim-1)), len(h.Interfaces))
	return m.WellCells()
}

// WellCells tags the injection cell: on the grid named by the deck's target
// shear zone, the cell closest to the borehole intersection gets tag 1;
// every other cell of every grid gets 0. Both the static tag and the
// exported state are written on all grids so the field is uniform across
// the hierarchy. Re-running with the same inputs tags the same cell.
func (m *Model) WellCells() error {
	target := m.Hierarchy.ByName(m.Params.Shearzone)
	if target == nil {
		return fmt.Errorf("%w: no grid named %q in the hierarchy",
			gts.ErrUnknownShearzone, m.Params.Shearzone)
	}
	for _, g := range m.Hierarchy.Grids() {
		tag := make([]float64, g.NumCells())
		if g == target {
			cell, dist := g.ClosestCell(m.WellPoint)
			tag[cell] = 1
			m.logf("injection well: cell %d of %q, %.4g length units from the borehole intersection",
				cell, g.Name, dist)
		}
		g.Tags["well_cells"] = tag
		state := make([]float64, len(tag))
		copy(state, tag)
		g.State["well"] = state
	}
	return nil
}

func scaleBox(b mesh.Box, ls float64) mesh.Box {
	return mesh.Box{
		XMin: b.XMin / ls, XMax: b.XMax / ls,
		YMin: b.YMin / ls, YMax: b.YMax / ls,
		ZMin: b.ZMin / ls, ZMax: b.ZMax / ls,
	}
}

func scaleSym(s *mat.SymDense, f float64) *mat.SymDense {
	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, f*s.At(i, j))
		}
	}
	return out
}
