package mesh

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/keileg/mastersproject/gts"
)

// ErrZoneNameMismatch is returned when the grids gmsh produced cannot be
// reconciled with the requested shear zones: wrong count, a grid matching
// no zone plane, two grids claiming one zone, or a physical name that
// contradicts the geometry.
var ErrZoneNameMismatch = errors.New("fracture grids do not match shear zones")

// matching tolerances, relative to each zone's extent and normal
const (
	nameAngleCos = 0.9999 // < 1 degree between mean grid normal and zone normal
	nameDistFrac = 0.01   // plane offset below 1% of the zone extent
)

// AssignNames names every fracture grid after the shear zone it discretizes
// and every intersection grid after its zone pair, and validates the result
// geometrically: each 2D grid must lie in exactly one requested zone plane,
// each zone must own exactly one grid. Physical names from the mesh file
// are honored but checked against the geometry, so neither a renamed zone
// list nor a stale mesh can silently attach data to the wrong surface.
func AssignNames(h *Hierarchy, zones []gts.Zone) error {
	fracs := h.GridsOfDim(2)
	if len(fracs) != len(zones) {
		return fmt.Errorf("%w: requested %d zones, mesh has %d fracture grids",
			ErrZoneNameMismatch, len(zones), len(fracs))
	}

	owner := make(map[string]*Grid, len(zones))
	for _, g := range fracs {
		zi, err := matchZone(g, zones)
		if err != nil {
			return err
		}
		z := zones[zi]
		if g.Name != "" && g.Name != z.Name {
			return fmt.Errorf("%w: grid named %q lies in the %q plane", ErrZoneNameMismatch, g.Name, z.Name)
		}
		if prev, taken := owner[z.Name]; taken {
			return fmt.Errorf("%w: zone %q matched by two grids (%d and %d cells)",
				ErrZoneNameMismatch, z.Name, prev.NumCells(), g.NumCells())
		}
		owner[z.Name] = g
		g.Name = z.Name
	}

	for _, g := range h.GridsOfDim(1) {
		if err := nameIntersection(g, zones); err != nil {
			return err
		}
	}
	return nil
}

// matchZone finds the unique zone whose plane contains the grid.
func matchZone(g *Grid, zones []gts.Zone) (int, error) {
	var (
		n   = g.MeanNormal()
		ctr = g.Centroid()
		hit = -1
	)
	for i, z := range zones {
		zn := z.Normal()
		if math.Abs(dot(n, zn)) < nameAngleCos {
			continue
		}
		if math.Abs(planeDist(ctr, z)) > nameDistFrac*z.Extent {
			continue
		}
		if lateralDist(ctr, z) > z.Extent*(1+nameDistFrac) {
			continue
		}
		if hit >= 0 {
			return 0, fmt.Errorf("%w: grid %q lies in both %q and %q planes",
				ErrZoneNameMismatch, g.Name, zones[hit].Name, z.Name)
		}
		hit = i
	}
	if hit < 0 {
		return 0, fmt.Errorf("%w: grid %q (normal %.3v, centroid %.3v) matches no requested zone",
			ErrZoneNameMismatch, g.Name, n, ctr)
	}
	return hit, nil
}

// nameIntersection validates or derives the zone-pair name of a 1D grid
// from the two zone planes that contain it.
func nameIntersection(g *Grid, zones []gts.Zone) error {
	var in []string
	ctr := g.Centroid()
	for _, z := range zones {
		if math.Abs(planeDist(ctr, z)) <= nameDistFrac*z.Extent {
			in = append(in, z.Name)
		}
	}
	if len(in) != 2 {
		return fmt.Errorf("%w: intersection grid %q lies in %d zone planes, want 2",
			ErrZoneNameMismatch, g.Name, len(in))
	}
	want := in[0] + "_" + in[1]
	swapped := in[1] + "_" + in[0]
	switch g.Name {
	case "":
		g.Name = want
	case want, swapped:
	default:
		return fmt.Errorf("%w: intersection grid named %q lies in planes %s",
			ErrZoneNameMismatch, g.Name, strings.Join(in, ","))
	}
	return nil
}

func planeDist(p [3]float64, z gts.Zone) float64 {
	return dot(z.Normal(), sub(p, z.Centroid))
}

func lateralDist(p [3]float64, z gts.Zone) float64 {
	d := sub(p, z.Centroid)
	off := planeDist(p, z)
	return math.Sqrt(math.Max(0, dot(d, d)-off*off))
}
