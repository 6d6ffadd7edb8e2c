package biot

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keileg/mastersproject/InputParameters"
	"github.com/keileg/mastersproject/gts"
	"github.com/keileg/mastersproject/mesh"
)

// fracturedHierarchy is two tets sharing a triangle, with the shared
// triangle as an embedded fracture grid named after the injection target.
func fracturedHierarchy(t *testing.T) *mesh.Hierarchy {
	t.Helper()
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	matrix, err := mesh.NewGrid(3, "DOMAIN", coords, []int{1, 2, 3, 4, 5},
		[][]int{{0, 1, 2, 3}, {1, 2, 3, 4}})
	require.NoError(t, err)

	fc := [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	frac, err := mesh.NewGrid(2, "S1_2", fc, []int{2, 3, 4}, [][]int{{0, 1, 2}})
	require.NoError(t, err)

	h := &mesh.Hierarchy{}
	h.AddGrid(matrix)
	h.AddGrid(frac)
	require.NoError(t, h.BuildInterfaces())
	return h
}

// testModel wires a model around the synthetic hierarchy without touching
// gmsh: default deck, temp results folder, dt = 0.5 s.
func testModel(t *testing.T, numSteps int) *Model {
	t.Helper()
	params := InputParameters.DefaultSimulationParameters()
	params.FolderName = t.TempDir()
	params.BoundingBox = unitBox
	params.NumSteps = numSteps

	m := &Model{
		Params:          params,
		Stress:          scaleSym(gts.StressTensor(), 1),
		TimeStep:        0.5,
		injectionActive: true,
		logger:          log.New(io.Discard, "", 0),
	}
	m.EndTime = m.TimeStep * float64(numSteps-1)
	require.NoError(t, m.SetGrid(fracturedHierarchy(t)))
	return m
}

// stubSolver is a canned Discretizer: it counts solves, optionally fails at
// a chosen step, and distributes a fixed recognizable state.
type stubSolver struct {
	h           *mesh.Hierarchy
	discretized bool
	solves      int
	failAt      int
	err         error
}

func (s *stubSolver) Discretize() error { s.discretized = true; return nil }

func (s *stubSolver) AssembleAndSolve(tol float64) ([]float64, error) {
	s.solves++
	if s.failAt > 0 && s.solves == s.failAt {
		return nil, s.err
	}
	return make([]float64, 1), nil
}

func (s *stubSolver) DistributeSolution(x []float64) {
	for _, g := range s.h.Grids() {
		p := make([]float64, g.NumCells())
		for i := range p {
			p[i] = float64(s.solves)
		}
		g.State["p"] = p
		if g.Dim == s.h.DimMax() {
			g.State["u"] = []float64{1, 2, 3, 10, 20, 30}
		}
	}
}

func TestRunTimeDependent(t *testing.T) {
	m := testModel(t, 4)
	stub := &stubSolver{h: m.Hierarchy}
	m.solver = stub

	require.NoError(t, m.RunTimeDependent())

	// end_time = (n-1)*dt gives exactly n-1 solves and exits on the window end
	assert.True(t, stub.discretized)
	assert.Equal(t, 3, stub.solves)
	assert.Equal(t, 3, m.StepCount)
	assert.Equal(t, m.EndTime, m.Time)
	assert.Equal(t, []int{0, 1, 2, 3}, m.steps)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, m.times)

	// the distributed displacement is republished component-major
	assert.Equal(t, []float64{1, 10, 2, 20, 3, 30}, m.matrix.State["u_"])

	// one snapshot per dimension per step plus the index file
	for _, name := range []string{
		"gmsh_frac_file_3_000000.vtu",
		"gmsh_frac_file_2_000000.vtu",
		"gmsh_frac_file_3_000003.vtu",
		"gmsh_frac_file_2_000003.vtu",
		"gmsh_frac_file.pvd",
	} {
		_, err := os.Stat(filepath.Join(m.Params.FolderName, name))
		assert.NoError(t, err, name)
	}
}

func TestRunFailureSnapshot(t *testing.T) {
	m := testModel(t, 4)
	boom := errors.New("singular step")
	stub := &stubSolver{h: m.Hierarchy, failAt: 2, err: boom}
	m.solver = stub

	err := m.RunTimeDependent()
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "time step 2")
	assert.Equal(t, 2, stub.solves)
	assert.Equal(t, 2, m.StepCount)

	// the post-mortem snapshot of the failed step is on disk and indexed
	assert.Equal(t, []int{0, 1, 2}, m.steps)
	for _, name := range []string{"gmsh_frac_file_3_000002.vtu", "gmsh_frac_file.pvd"} {
		_, statErr := os.Stat(filepath.Join(m.Params.FolderName, name))
		assert.NoError(t, statErr, name)
	}
}

func TestRunBiotTwoPhase(t *testing.T) {
	m := testModel(t, 3)
	stub := &stubSolver{h: m.Hierarchy}
	m.solver = stub

	require.NoError(t, m.RunBiot())

	// two windows of n-1 steps each, continuous time
	assert.Equal(t, 4, stub.solves)
	assert.Equal(t, 4, m.StepCount)
	assert.InDelta(t, 2.0, m.Time, 1e-12)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, m.steps)

	// phase 2 re-armed the injection source in the store
	assert.True(t, m.injectionActive)
	frac := m.Hierarchy.ByName("S1_2")
	src := m.Store.Grid(frac).Flow.Source
	assert.InDelta(t, m.SourceFlowRate()*m.TimeStep, src[taggedCell(frac)], 1e-15)
}

func TestPrepareMainRun(t *testing.T) {
	m := testModel(t, 4)
	m.Time = 1.5
	m.injectionActive = false

	m.PrepareMainRun()
	assert.True(t, m.injectionActive)
	assert.InDelta(t, 3.0, m.EndTime, 1e-12)
}

func TestRunStationary(t *testing.T) {
	m := testModel(t, 4)
	stub := &stubSolver{h: m.Hierarchy}
	m.solver = stub

	require.NoError(t, m.RunStationary())
	assert.Equal(t, 1, stub.solves)
	assert.Equal(t, 0, m.StepCount)
	assert.Equal(t, []float64{1, 10, 2, 20, 3, 30}, m.matrix.State["u_"])
	_, err := os.Stat(filepath.Join(m.Params.FolderName, "gmsh_frac_file_3_000000.vtu"))
	assert.NoError(t, err)
}

func TestRunWithoutGrid(t *testing.T) {
	m := &Model{Params: InputParameters.DefaultSimulationParameters()}
	err := m.RunTimeDependent()
	assert.True(t, errors.Is(err, ErrGridNotBuilt))
}

func TestWellCells(t *testing.T) {
	m := testModel(t, 4)

	countTags := func() (total int, grid string) {
		for _, g := range m.Hierarchy.Grids() {
			for _, tag := range g.Tags["well_cells"] {
				if tag != 0 {
					total++
					grid = g.Name
				}
			}
		}
		return
	}

	{ // exactly one tagged cell, on the target shear zone
		total, grid := countTags()
		assert.Equal(t, 1, total)
		assert.Equal(t, "S1_2", grid)
	}
	{ // re-tagging is idempotent
		frac := m.Hierarchy.ByName("S1_2")
		before := taggedCell(frac)
		require.NoError(t, m.WellCells())
		assert.Equal(t, before, taggedCell(frac))
		total, _ := countTags()
		assert.Equal(t, 1, total)
	}
	{ // the exported state is a copy, not an alias of the tag
		frac := m.Hierarchy.ByName("S1_2")
		frac.State["well"][0] += 5
		assert.NotEqual(t, frac.State["well"][0], frac.Tags["well_cells"][0])
	}
	{ // a target zone absent from the hierarchy is a hard error
		m.Params.Shearzone = "S9_9"
		err := m.WellCells()
		assert.True(t, errors.Is(err, gts.ErrUnknownShearzone))
	}
}

func TestNew(t *testing.T) {
	{ // unit scales keep the survey coordinates as-is
		params := InputParameters.DefaultSimulationParameters()
		params.FolderName = t.TempDir()
		m, err := New(params)
		require.NoError(t, err)
		defer m.Close()

		assert.Equal(t, [3]float64{31.5, 96.2, 33.4}, m.WellPoint)
		assert.Equal(t, 1.0, m.TimeStep)
		assert.Equal(t, 1.0, m.EndTime)
		assert.Less(t, m.Stress.At(0, 0), 0.0)

		_, statErr := os.Stat(filepath.Join(params.FolderName, "results.log"))
		assert.NoError(t, statErr)
	}
	{ // length scale rescales the survey data and the time step
		params := InputParameters.DefaultSimulationParameters()
		params.FolderName = t.TempDir()
		params.LengthScale = 0.05
		m, err := New(params)
		require.NoError(t, err)
		defer m.Close()

		assert.InDelta(t, 31.5/0.05, m.WellPoint[0], 1e-9)
		assert.InDelta(t, 0.0025, m.TimeStep, 1e-15)
		assert.InDelta(t, 60/0.05, m.zones[0].Extent, 1e-9)
	}
	{ // a borehole with no mapped intersection cannot start a run
		params := InputParameters.DefaultSimulationParameters()
		params.FolderName = t.TempDir()
		params.Borehole = "PRP9"
		_, err := New(params)
		assert.True(t, errors.Is(err, gts.ErrNoIntersection))
	}
	{ // a duplicated table row is flagged, not silently picked
		dir := t.TempDir()
		table := filepath.Join(dir, "isc.csv")
		csv := "borehole,shearzone,x_sz,y_sz,z_sz\n" +
			"INJ1,S1_2,31.5,96.2,33.4\n" +
			"INJ1,S1_2,31.6,96.3,33.5\n"
		require.NoError(t, os.WriteFile(table, []byte(csv), 0644))

		params := InputParameters.DefaultSimulationParameters()
		params.FolderName = dir
		params.DataPath = table
		_, err := New(params)
		assert.True(t, errors.Is(err, gts.ErrAmbiguousIntersection))
	}
}

func TestReshapeRoundTrip(t *testing.T) {
	u := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	r := ReshapeF(u, 3)
	assert.Equal(t, []float64{1, 4, 7, 10, 2, 5, 8, 11, 3, 6, 9, 12}, r)
	assert.Equal(t, u, FlattenF(r, 3))
}
