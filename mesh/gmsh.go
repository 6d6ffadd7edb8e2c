package mesh

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/keileg/mastersproject/gts"
)

// BuildOpts configures mesh construction. FileName is the base name of the
// .geo/.msh pair inside Folder; GmshPath is the gmsh executable. With
// Overwrite false an existing .msh file is reused, so repeated setup calls
// are idempotent and a run can be restarted without re-meshing.
type BuildOpts struct {
	Folder   string
	FileName string
	GmshPath string

	Box      Box
	Zones    []gts.Zone
	MeshArgs MeshArgs

	Overwrite bool
	CLScale   float64 // optional global size factor handed to gmsh, 0 means 1
}

func (o BuildOpts) geoPath() string { return filepath.Join(o.Folder, o.FileName+".geo") }
func (o BuildOpts) mshPath() string { return filepath.Join(o.Folder, o.FileName+".msh") }

// RunGmsh invokes gmsh on a .geo file, producing a v2.2 msh file. The
// combined gmsh output is folded into the error on failure since gmsh
// writes its diagnostics to stdout.
func RunGmsh(gmshPath, geoPath, mshPath string, clScale float64) error {
	args := []string{"-3", "-format", "msh2", "-o", mshPath}
	if clScale > 0 && clScale != 1 {
		args = append(args, "-clscale", strconv.FormatFloat(clScale, 'g', -1, 64))
	}
	args = append(args, geoPath)

	cmd := exec.Command(gmshPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("gmsh %v: %w\n%s", args, err, tail(out, 2000))
	}
	if _, err = os.Stat(mshPath); err != nil {
		return fmt.Errorf("gmsh reported success but wrote no mesh: %w", err)
	}
	return nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}

// BuildHierarchy creates the mixed-dimensional grid set for the fracture
// network: resolve the network geometry, write the .geo file, run gmsh,
// read the mesh back and name the fracture grids against the zone planes.
// An existing mesh file is reused unless Overwrite is set; the naming
// validation still runs on the reused mesh, so a stale file that does not
// match the requested zones is rejected rather than silently accepted.
func BuildHierarchy(opts BuildOpts) (h *Hierarchy, err error) {
	net, err := NewNetwork(opts.Box, opts.Zones)
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(opts.mshPath()); statErr != nil || opts.Overwrite {
		if err = os.MkdirAll(opts.Folder, 0755); err != nil {
			return nil, err
		}
		if err = WriteGeo(opts.geoPath(), net, opts.MeshArgs); err != nil {
			return nil, err
		}
		if err = RunGmsh(opts.GmshPath, opts.geoPath(), opts.mshPath(), opts.CLScale); err != nil {
			return nil, err
		}
	}

	if h, err = ReadMsh22(opts.mshPath()); err != nil {
		return nil, err
	}
	if err = AssignNames(h, opts.Zones); err != nil {
		return nil, err
	}
	return h, nil
}

// RefineUniform builds a sequence of hierarchies over the same network,
// halving the gmsh characteristic-length factor at each level. Level 0 is
// the base mesh; meshes are written as <FileName>_r<level>.msh so a
// convergence study leaves every level on disk.
func RefineUniform(opts BuildOpts, levels int) (hs []*Hierarchy, err error) {
	if levels < 1 {
		return nil, fmt.Errorf("refinement levels must be >= 1, got %d", levels)
	}
	base := opts.FileName
	scale := 1.0
	if opts.CLScale > 0 {
		scale = opts.CLScale
	}
	for lvl := 0; lvl < levels; lvl++ {
		o := opts
		o.FileName = fmt.Sprintf("%s_r%d", base, lvl)
		o.CLScale = scale
		h, err := BuildHierarchy(o)
		if err != nil {
			return nil, fmt.Errorf("refinement level %d: %w", lvl, err)
		}
		hs = append(hs, h)
		scale /= 2
	}
	return
}
