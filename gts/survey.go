package gts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
)

// Errors reported by the survey-table lookups. Callers that can recover
// should test with errors.Is; the wrapped message names the offending
// borehole / shear-zone pair.
var (
	ErrNoIntersection        = errors.New("no borehole-shearzone intersection in survey table")
	ErrAmbiguousIntersection = errors.New("multiple survey rows for one borehole-shearzone pair")
	ErrUnknownShearzone      = errors.New("shearzone not in survey table")
)

// Intersection is one row of the borehole / shear-zone intersection table:
// the point, in site coordinates (meters), where the named borehole crosses
// the named shear zone.
type Intersection struct {
	Borehole  string
	Shearzone string
	X, Y, Z   float64
}

// Zone describes the mapped geometry of a shear zone: the best-fit plane
// through its borehole intersections, given by a centroid, dip and dip
// direction (degrees), and a lateral extent (meters) used when truncating
// the plane to a polygon.
type Zone struct {
	Name         string
	Centroid     [3]float64
	Dip          float64
	DipDirection float64
	Extent       float64
}

// Normal returns the upward unit normal of the zone plane.
func (z Zone) Normal() [3]float64 {
	return PlaneNormal(z.Dip, z.DipDirection)
}

// Polygon truncates the zone plane to a regular n-gon of radius Extent
// centered on the centroid, returned as vertices in plane order.
func (z Zone) Polygon(n int) (verts [][3]float64) {
	var (
		s = StrikeVector(z.DipDirection)
		d = DipVector(z.Dip, z.DipDirection)
	)
	verts = make([][3]float64, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		c, sn := math.Cos(theta), math.Sin(theta)
		for k := 0; k < 3; k++ {
			verts[i][k] = z.Centroid[k] + z.Extent*(c*s[k]+sn*d[k])
		}
	}
	return
}

/*
Default survey tables for the ISC experiment volume. The intersection rows
are the structure-log picks of where each borehole crosses the S1 and S3
shear-zone sets; the zone table carries the best-fit plane of each zone.
Coordinates are in the local GTS system (meters).
*/
var defaultIntersections = []Intersection{
	{"INJ1", "S1_1", 28.0, 92.4, 38.1},
	{"INJ1", "S1_2", 31.5, 96.2, 33.4},
	{"INJ1", "S1_3", 34.8, 99.9, 28.7},
	{"INJ1", "S3_1", 38.2, 103.6, 24.1},
	{"INJ1", "S3_2", 40.9, 106.5, 20.4},
	{"INJ2", "S1_1", 24.6, 89.7, 35.2},
	{"INJ2", "S1_2", 28.3, 93.8, 30.6},
	{"INJ2", "S1_3", 31.9, 97.7, 26.1},
	{"INJ2", "S3_1", 35.5, 101.5, 21.7},
	{"INJ2", "S3_2", 38.4, 104.7, 18.0},
	{"PRP1", "S1_1", 33.1, 98.0, 41.0},
	{"PRP1", "S1_2", 36.4, 101.5, 36.5},
	{"PRP1", "S1_3", 39.6, 104.9, 32.1},
	{"PRP1", "S3_1", 42.9, 108.4, 27.6},
	{"PRP1", "S3_2", 45.5, 111.2, 24.0},
}

var defaultZones = []Zone{
	{Name: "S1_1", Centroid: [3]float64{28.6, 93.4, 38.1}, Dip: 77.0, DipDirection: 142.0, Extent: 60},
	{Name: "S1_2", Centroid: [3]float64{32.1, 97.2, 33.5}, Dip: 75.0, DipDirection: 140.0, Extent: 60},
	{Name: "S1_3", Centroid: [3]float64{35.4, 100.8, 29.0}, Dip: 72.0, DipDirection: 145.0, Extent: 60},
	{Name: "S3_1", Centroid: [3]float64{38.9, 104.5, 24.5}, Dip: 65.0, DipDirection: 140.0, Extent: 60},
	{Name: "S3_2", Centroid: [3]float64{41.6, 107.5, 20.8}, Dip: 63.0, DipDirection: 138.0, Extent: 60},
}

// Intersections returns the borehole / shear-zone intersection table. With
// an empty path the built-in survey data is used; otherwise the table is
// read from a CSV file with header borehole,shearzone,x_sz,y_sz,z_sz.
func Intersections(path string) (rows []Intersection, err error) {
	if path == "" {
		rows = make([]Intersection, len(defaultIntersections))
		copy(rows, defaultIntersections)
		return
	}
	var f *os.File
	if f, err = os.Open(path); err != nil {
		return nil, fmt.Errorf("opening intersection table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading intersection table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("intersection table %s is empty", path)
	}
	if len(records[0]) != 5 || records[0][0] != "borehole" {
		return nil, fmt.Errorf("intersection table %s: expected header borehole,shearzone,x_sz,y_sz,z_sz", path)
	}
	for li, rec := range records[1:] {
		var row Intersection
		row.Borehole, row.Shearzone = rec[0], rec[1]
		var coords [3]float64
		for k := 0; k < 3; k++ {
			if coords[k], err = strconv.ParseFloat(rec[2+k], 64); err != nil {
				return nil, fmt.Errorf("intersection table %s line %d: %w", path, li+2, err)
			}
		}
		row.X, row.Y, row.Z = coords[0], coords[1], coords[2]
		rows = append(rows, row)
	}
	return
}

// IntersectionPoint filters the table down to the unique row for one
// borehole / shear-zone pair and returns its coordinates. Zero matching
// rows yield ErrNoIntersection, more than one ErrAmbiguousIntersection;
// both name the pair so a bad run deck is diagnosable from the message.
func IntersectionPoint(rows []Intersection, borehole, shearzone string) (pt [3]float64, err error) {
	var n int
	for _, row := range rows {
		if row.Borehole == borehole && row.Shearzone == shearzone {
			pt = [3]float64{row.X, row.Y, row.Z}
			n++
		}
	}
	switch {
	case n == 0:
		err = fmt.Errorf("%w: borehole %q, shearzone %q", ErrNoIntersection, borehole, shearzone)
	case n > 1:
		err = fmt.Errorf("%w: borehole %q, shearzone %q has %d rows", ErrAmbiguousIntersection, borehole, shearzone, n)
	}
	return
}

// Zones resolves shear-zone names against the zone table, preserving the
// order of the request. An unknown name is a hard error so that a typo in
// a run deck cannot silently shrink the fracture network.
func Zones(names []string) (zones []Zone, err error) {
	zones = make([]Zone, 0, len(names))
	for _, name := range names {
		found := false
		for _, z := range defaultZones {
			if z.Name == name {
				zones = append(zones, z)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownShearzone, name)
		}
	}
	return
}

// ZoneNames lists the shear zones of the built-in survey in canonical order.
func ZoneNames() []string {
	names := make([]string, len(defaultZones))
	for i, z := range defaultZones {
		names[i] = z.Name
	}
	return names
}
