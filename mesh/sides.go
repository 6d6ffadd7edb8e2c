package mesh

// Sides groups the boundary faces of a grid by the domain box plane they
// lie on: east/west are the x extremes, north/south the y extremes, top/
// bottom the z extremes. All lists every boundary face, whether or not a
// box plane claimed it (fracture grids have internal boundaries that touch
// no plane).
type Sides struct {
	East, West   []int
	North, South []int
	Top, Bottom  []int
	All          []int
}

// DomainSides classifies the boundary faces of g against the box planes,
// testing face centers within tol.
func DomainSides(g *Grid, box Box, tol float64) (s Sides) {
	near := func(a, b float64) bool { return a > b-tol && a < b+tol }
	for fid := range g.Faces {
		f := &g.Faces[fid]
		if !f.Boundary() {
			continue
		}
		s.All = append(s.All, fid)
		switch {
		case near(f.Center[0], box.XMax):
			s.East = append(s.East, fid)
		case near(f.Center[0], box.XMin):
			s.West = append(s.West, fid)
		case near(f.Center[1], box.YMax):
			s.North = append(s.North, fid)
		case near(f.Center[1], box.YMin):
			s.South = append(s.South, fid)
		case near(f.Center[2], box.ZMax):
			s.Top = append(s.Top, fid)
		case near(f.Center[2], box.ZMin):
			s.Bottom = append(s.Bottom, fid)
		}
	}
	return
}
