package mesh

import (
	"fmt"
	"os"
	"strings"
)

// geo entity numbering: the box owns ids 1..99, each fracture a block of
// 100 starting at 100*(i+1), intersection segments blocks of 10 from 10000
const (
	fractureIDBase = 100
	segmentIDBase  = 10000
)

// WriteGeo writes the gmsh geometry file for the network: the domain box
// as a volume, each fracture polygon as a plane surface embedded in the
// volume, and each fracture-fracture intersection as a line embedded in
// both surfaces. Characteristic lengths follow args: SizeBound on the box
// corners, SizeFrac on fracture polygon vertices, SizeMin on intersection
// endpoints.
func WriteGeo(path string, net *Network, args MeshArgs) error {
	var b strings.Builder
	fmt.Fprintf(&b, "// fracture network: %d surfaces, %d intersections in %v\n",
		len(net.Fractures), len(net.Segments), net.Box)
	fmt.Fprintf(&b, "lcBound = %g;\nlcFrac = %g;\nlcMin = %g;\n\n", args.SizeBound, args.SizeFrac, args.SizeMin)

	writeBox(&b, net.Box)

	for i, f := range net.Fractures {
		base := fractureIDBase * (i + 1)
		fmt.Fprintf(&b, "\n// shearzone %s\n", f.Zone.Name)
		n := len(f.Polygon)
		for j, p := range f.Polygon {
			fmt.Fprintf(&b, "Point(%d) = {%.12g, %.12g, %.12g, lcFrac};\n", base+j+1, p[0], p[1], p[2])
		}
		loop := make([]string, n)
		for j := 0; j < n; j++ {
			fmt.Fprintf(&b, "Line(%d) = {%d, %d};\n", base+j+1, base+j+1, base+(j+1)%n+1)
			loop[j] = fmt.Sprintf("%d", base+j+1)
		}
		fmt.Fprintf(&b, "Line Loop(%d) = {%s};\n", base, strings.Join(loop, ", "))
		fmt.Fprintf(&b, "Plane Surface(%d) = {%d};\n", base, base)
		fmt.Fprintf(&b, "Surface{%d} In Volume{1};\n", base)
	}

	for k, s := range net.Segments {
		base := segmentIDBase + 10*k
		fmt.Fprintf(&b, "\n// intersection %s\n", s.Name())
		fmt.Fprintf(&b, "Point(%d) = {%.12g, %.12g, %.12g, lcMin};\n", base+1, s.A[0], s.A[1], s.A[2])
		fmt.Fprintf(&b, "Point(%d) = {%.12g, %.12g, %.12g, lcMin};\n", base+2, s.B[0], s.B[1], s.B[2])
		fmt.Fprintf(&b, "Line(%d) = {%d, %d};\n", base, base+1, base+2)
		for _, zi := range fractureIndices(net, s) {
			fmt.Fprintf(&b, "Line{%d} In Surface{%d};\n", base, fractureIDBase*(zi+1))
		}
	}

	// physical groups: names carried into the msh file drive grid naming
	fmt.Fprintf(&b, "\nPhysical Volume(\"DOMAIN\") = {1};\n")
	for i, f := range net.Fractures {
		fmt.Fprintf(&b, "Physical Surface(\"%s\") = {%d};\n", f.Zone.Name, fractureIDBase*(i+1))
	}
	for k, s := range net.Segments {
		fmt.Fprintf(&b, "Physical Line(\"%s\") = {%d};\n", s.Name(), segmentIDBase+10*k)
	}

	fmt.Fprintf(&b, "\nMesh.CharacteristicLengthMin = %g;\n", args.SizeMin)
	fmt.Fprintf(&b, "Mesh.CharacteristicLengthMax = %g;\n", args.SizeBound)

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func writeBox(b *strings.Builder, box Box) {
	corners := [8][3]float64{
		{box.XMin, box.YMin, box.ZMin},
		{box.XMax, box.YMin, box.ZMin},
		{box.XMax, box.YMax, box.ZMin},
		{box.XMin, box.YMax, box.ZMin},
		{box.XMin, box.YMin, box.ZMax},
		{box.XMax, box.YMin, box.ZMax},
		{box.XMax, box.YMax, box.ZMax},
		{box.XMin, box.YMax, box.ZMax},
	}
	fmt.Fprintf(b, "// domain box\n")
	for i, c := range corners {
		fmt.Fprintf(b, "Point(%d) = {%g, %g, %g, lcBound};\n", i+1, c[0], c[1], c[2])
	}
	edges := [12][2]int{
		{1, 2}, {2, 3}, {3, 4}, {4, 1}, // bottom
		{5, 6}, {6, 7}, {7, 8}, {8, 5}, // top
		{1, 5}, {2, 6}, {3, 7}, {4, 8}, // verticals
	}
	for i, e := range edges {
		fmt.Fprintf(b, "Line(%d) = {%d, %d};\n", i+1, e[0], e[1])
	}
	loops := [6][4]int{
		{1, 2, 3, 4},       // bottom
		{5, 6, 7, 8},       // top
		{1, 10, -5, -9},    // south
		{2, 11, -6, -10},   // east
		{3, 12, -7, -11},   // north
		{4, 9, -8, -12},    // west
	}
	for i, l := range loops {
		fmt.Fprintf(b, "Line Loop(%d) = {%d, %d, %d, %d};\n", i+1, l[0], l[1], l[2], l[3])
		fmt.Fprintf(b, "Plane Surface(%d) = {%d};\n", i+1, i+1)
	}
	fmt.Fprintf(b, "Surface Loop(1) = {1, 2, 3, 4, 5, 6};\n")
	fmt.Fprintf(b, "Volume(1) = {1};\n")
}

func fractureIndices(net *Network, s Segment) (idx []int) {
	for i, f := range net.Fractures {
		if f.Zone.Name == s.Zones[0] || f.Zone.Name == s.Zones[1] {
			idx = append(idx, i)
		}
	}
	return
}
