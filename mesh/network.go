package mesh

import (
	"fmt"
	"math"

	"github.com/keileg/mastersproject/gts"
)

// fracture polygon resolution and geometric tolerances of the network
// builder
const (
	polygonSides = 16
	clipMargin   = 1.e-2 // keep fractures strictly inside the box
	geomTol      = 1.e-8
)

// Fracture is one shear-zone surface of the network, truncated to the
// domain box.
type Fracture struct {
	Zone    gts.Zone
	Polygon [][3]float64
}

// Segment is the intersection line of two fractures, named by the pair of
// zones it belongs to.
type Segment struct {
	A, B  [3]float64
	Zones [2]string
}

// Name joins the two zone names in table order.
func (s Segment) Name() string { return s.Zones[0] + "_" + s.Zones[1] }

// Network is the resolved fracture network: the zone planes truncated to
// polygons inside the domain box, and every pairwise intersection segment.
// It is the geometric input handed to gmsh.
type Network struct {
	Box       Box
	Fractures []Fracture
	Segments  []Segment
}

// NewNetwork truncates each zone plane to a polygon inside the box and
// resolves all pairwise fracture intersections. A zone whose plane misses
// the box entirely is a hard error: the run deck asked for a fracture the
// domain cannot contain.
func NewNetwork(box Box, zones []gts.Zone) (net *Network, err error) {
	net = &Network{Box: box}
	for _, z := range zones {
		poly := z.Polygon(polygonSides)
		for _, hp := range boxHalfSpaces(box, clipMargin) {
			poly = clipPolygon(poly, hp.n, hp.d)
			if len(poly) < 3 {
				return nil, fmt.Errorf("shearzone %q does not reach the domain %v", z.Name, box)
			}
		}
		net.Fractures = append(net.Fractures, Fracture{Zone: z, Polygon: poly})
	}
	for i := 0; i < len(net.Fractures); i++ {
		for j := i + 1; j < len(net.Fractures); j++ {
			seg, ok := intersectFractures(&net.Fractures[i], &net.Fractures[j])
			if ok {
				net.Segments = append(net.Segments, seg)
			}
		}
	}
	return
}

type halfSpace struct {
	n [3]float64 // inward normal
	d float64    // points x with n.x >= d are kept
}

func boxHalfSpaces(b Box, margin float64) []halfSpace {
	return []halfSpace{
		{[3]float64{1, 0, 0}, b.XMin + margin},
		{[3]float64{-1, 0, 0}, -(b.XMax - margin)},
		{[3]float64{0, 1, 0}, b.YMin + margin},
		{[3]float64{0, -1, 0}, -(b.YMax - margin)},
		{[3]float64{0, 0, 1}, b.ZMin + margin},
		{[3]float64{0, 0, -1}, -(b.ZMax - margin)},
	}
}

// clipPolygon cuts a convex planar polygon by the half-space n.x >= d,
// keeping vertex order (Sutherland-Hodgman step).
func clipPolygon(poly [][3]float64, n [3]float64, d float64) (out [][3]float64) {
	inside := func(p [3]float64) bool { return dot(n, p) >= d }
	for i := range poly {
		cur, next := poly[i], poly[(i+1)%len(poly)]
		ci, ni := inside(cur), inside(next)
		if ci {
			out = append(out, cur)
		}
		if ci != ni {
			// edge crosses the plane
			t := (d - dot(n, cur)) / dot(n, sub(next, cur))
			var p [3]float64
			for k := 0; k < 3; k++ {
				p[k] = cur[k] + t*(next[k]-cur[k])
			}
			out = append(out, p)
		}
	}
	return
}

// intersectFractures computes the segment where two fracture polygons
// meet: the plane-plane intersection line, restricted to the interior of
// both polygons. ok is false for parallel planes or an empty overlap.
func intersectFractures(a, b *Fracture) (seg Segment, ok bool) {
	var (
		na = a.Zone.Normal()
		nb = b.Zone.Normal()
	)
	dir := cross(na, nb)
	if norm(dir) < geomTol {
		return
	}
	dir = scale(1/norm(dir), dir)

	// one point on the line: solve the 3x3 system {na.x=na.ca, nb.x=nb.cb,
	// dir.x=dir.ca}
	p, solved := solve3(na, nb, dir,
		dot(na, a.Zone.Centroid), dot(nb, b.Zone.Centroid), dot(dir, a.Zone.Centroid))
	if !solved {
		return
	}

	t0, t1 := math.Inf(-1), math.Inf(1)
	for _, f := range []*Fracture{a, b} {
		lo, hi, nonEmpty := lineInPolygon(p, dir, f)
		if !nonEmpty {
			return
		}
		t0, t1 = math.Max(t0, lo), math.Min(t1, hi)
	}
	if t1-t0 < geomTol {
		return
	}
	for k := 0; k < 3; k++ {
		seg.A[k] = p[k] + t0*dir[k]
		seg.B[k] = p[k] + t1*dir[k]
	}
	seg.Zones = [2]string{a.Zone.Name, b.Zone.Name}
	return seg, true
}

// solve3 solves the 3x3 linear system with rows r0,r1,r2 and right-hand
// side (b0,b1,b2) by Cramer's rule.
func solve3(r0, r1, r2 [3]float64, b0, b1, b2 float64) (x [3]float64, ok bool) {
	det := dot(r0, cross(r1, r2))
	if math.Abs(det) < geomTol {
		return
	}
	col := func(k int) [3]float64 { return [3]float64{r0[k], r1[k], r2[k]} }
	rhs := [3]float64{b0, b1, b2}
	for k := 0; k < 3; k++ {
		c0, c1, c2 := col(0), col(1), col(2)
		switch k {
		case 0:
			c0 = rhs
		case 1:
			c1 = rhs
		case 2:
			c2 = rhs
		}
		// det of the column-substituted matrix
		m0 := [3]float64{c0[0], c1[0], c2[0]}
		m1 := [3]float64{c0[1], c1[1], c2[1]}
		m2 := [3]float64{c0[2], c1[2], c2[2]}
		x[k] = dot(m0, cross(m1, m2)) / det
	}
	return x, true
}

// lineInPolygon restricts the line p + t*dir to the convex polygon of f,
// expressed as the intersection of the inward edge half-planes within the
// fracture plane. Vertices are ordered counter-clockwise about the zone
// normal.
func lineInPolygon(p, dir [3]float64, f *Fracture) (t0, t1 float64, ok bool) {
	t0, t1 = math.Inf(-1), math.Inf(1)
	n := f.Zone.Normal()
	poly := f.Polygon
	for i := range poly {
		v0, v1 := poly[i], poly[(i+1)%len(poly)]
		m := cross(n, sub(v1, v0)) // inward edge normal
		var (
			num = dot(m, sub(v0, p))
			den = dot(m, dir)
		)
		if math.Abs(den) < geomTol {
			if dot(m, sub(p, v0)) < 0 {
				return 0, 0, false // parallel and outside this edge
			}
			continue
		}
		t := num / den
		if den > 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
	}
	return t0, t1, t1 > t0
}
