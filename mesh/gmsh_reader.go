package mesh

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// gmsh v2.2 element types the hierarchy is built from; anything else in
// the file is skipped
const (
	gmshLine     = 1
	gmshTriangle = 2
	gmshTet      = 4
	gmshPoint    = 15
)

type physicalName struct {
	Dim  int
	Name string
}

type rawElement struct {
	Type     int
	Physical int
	Nodes    []int // mesh-file node ids
}

type mshFile struct {
	Version   string
	Physical  map[int]physicalName
	NodeIDs   []int
	NodeCoord map[int][3]float64
	Elements  []rawElement
}

// ReadMsh22 reads a gmsh MSH v2.2 file and assembles the mixed-dimensional
// hierarchy: tetrahedra become the matrix grid, triangles one grid per
// physical surface, lines one grid per physical curve. Grid names are taken
// from the physical names; interfaces are matched afterwards through the
// shared node numbering.
func ReadMsh22(filename string) (h *Hierarchy, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	msh := &mshFile{
		Physical:  make(map[int]physicalName),
		NodeCoord: make(map[int][3]float64),
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "$MeshFormat":
			if err = readMeshFormat22(scanner, msh); err != nil {
				return nil, err
			}
		case "$PhysicalNames":
			if err = readPhysicalNames22(scanner, msh); err != nil {
				return nil, err
			}
		case "$Nodes":
			if err = readNodes22(scanner, msh); err != nil {
				return nil, err
			}
		case "$Elements":
			if err = readElements22(scanner, msh); err != nil {
				return nil, err
			}
		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				// skip unknown sections
				endMarker := "$End" + line[1:]
				for scanner.Scan() {
					if strings.TrimSpace(scanner.Text()) == endMarker {
						break
					}
				}
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}

	return buildHierarchy(msh)
}

func readMeshFormat22(scanner *bufio.Scanner, msh *mshFile) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}
	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}
	msh.Version = parts[0]
	if !strings.HasPrefix(msh.Version, "2.") {
		return fmt.Errorf("msh format %s: only v2.2 ascii is supported", msh.Version)
	}
	if fileType, _ := strconv.Atoi(parts[1]); fileType == 1 {
		return fmt.Errorf("binary msh files are not supported")
	}
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$EndMeshFormat" {
			break
		}
	}
	return nil
}

func readPhysicalNames22(scanner *bufio.Scanner, msh *mshFile) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in PhysicalNames")
	}
	numNames, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	for i := 0; i < numNames; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading physical names")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			continue
		}
		dim, _ := strconv.Atoi(parts[0])
		tag, _ := strconv.Atoi(parts[1])
		name := strings.Trim(parts[2], "\"")
		for j := 3; j < len(parts); j++ {
			name += " " + strings.Trim(parts[j], "\"")
		}
		msh.Physical[tag] = physicalName{Dim: dim, Name: name}
	}
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$EndPhysicalNames" {
			break
		}
	}
	return nil
}

func readNodes22(scanner *bufio.Scanner, msh *mshFile) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}
	numNodes, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}
		id, _ := strconv.Atoi(parts[0])
		x, _ := strconv.ParseFloat(parts[1], 64)
		y, _ := strconv.ParseFloat(parts[2], 64)
		z, _ := strconv.ParseFloat(parts[3], 64)
		msh.NodeIDs = append(msh.NodeIDs, id)
		msh.NodeCoord[id] = [3]float64{x, y, z}
	}
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$EndNodes" {
			break
		}
	}
	return nil
}

func readElements22(scanner *bufio.Scanner, msh *mshFile) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Elements")
	}
	numElements, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	nodesPerType := map[int]int{gmshLine: 2, gmshTriangle: 3, gmshTet: 4, gmshPoint: 1}

	for i := 0; i < numElements; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading elements")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 5 {
			return fmt.Errorf("invalid element line: %s", scanner.Text())
		}
		elemType, _ := strconv.Atoi(parts[1])
		numTags, _ := strconv.Atoi(parts[2])
		if len(parts) < 3+numTags {
			return fmt.Errorf("invalid element tags: %s", scanner.Text())
		}

		want, ok := nodesPerType[elemType]
		if !ok || elemType == gmshPoint {
			continue
		}
		nodeStart := 3 + numTags
		if len(parts) < nodeStart+want {
			return fmt.Errorf("element %s: expected %d nodes", parts[0], want)
		}
		el := rawElement{Type: elemType}
		if numTags > 0 {
			el.Physical, _ = strconv.Atoi(parts[3])
		}
		el.Nodes = make([]int, want)
		for j := 0; j < want; j++ {
			el.Nodes[j], _ = strconv.Atoi(parts[nodeStart+j])
		}
		msh.Elements = append(msh.Elements, el)
	}
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$EndElements" {
			break
		}
	}
	return nil
}

// buildHierarchy groups the raw elements into grids: one matrix grid from
// all tetrahedra, one fracture grid per distinct physical surface, one
// intersection grid per distinct physical curve.
func buildHierarchy(msh *mshFile) (h *Hierarchy, err error) {
	if len(msh.Elements) == 0 {
		return nil, fmt.Errorf("msh file contains no elements")
	}

	type groupKey struct {
		Dim      int
		Physical int
	}
	groups := make(map[groupKey][][]int)
	var keys []groupKey
	for _, el := range msh.Elements {
		var dim int
		switch el.Type {
		case gmshTet:
			dim = 3
		case gmshTriangle:
			dim = 2
		case gmshLine:
			dim = 1
		}
		k := groupKey{Dim: dim, Physical: el.Physical}
		if dim == 3 {
			k.Physical = 0 // all tets form the single matrix grid
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], el.Nodes)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Dim != keys[j].Dim {
			return keys[i].Dim > keys[j].Dim
		}
		return keys[i].Physical < keys[j].Physical
	})

	if len(groups[groupKey{Dim: 3, Physical: 0}]) == 0 {
		return nil, fmt.Errorf("msh file contains no tetrahedra")
	}

	h = &Hierarchy{}
	for _, k := range keys {
		name := ""
		if k.Dim == 3 {
			name = "DOMAIN"
		} else if pn, ok := msh.Physical[k.Physical]; ok && pn.Dim == k.Dim {
			name = pn.Name
		}
		g, err := localizeGrid(msh, k.Dim, name, groups[k])
		if err != nil {
			return nil, err
		}
		h.AddGrid(g)
	}

	if err = h.BuildInterfaces(); err != nil {
		return nil, err
	}
	return h, nil
}

// localizeGrid renumbers a group of elements into grid-local vertices and
// builds the grid.
func localizeGrid(msh *mshFile, dim int, name string, elems [][]int) (*Grid, error) {
	var (
		local  = make(map[int]int)
		coords [][3]float64
		global []int
		cells  = make([][]int, len(elems))
	)
	for c, nodes := range elems {
		cells[c] = make([]int, len(nodes))
		for j, id := range nodes {
			li, ok := local[id]
			if !ok {
				xyz, found := msh.NodeCoord[id]
				if !found {
					return nil, fmt.Errorf("grid %q references unknown node %d", name, id)
				}
				li = len(coords)
				local[id] = li
				coords = append(coords, xyz)
				global = append(global, id)
			}
			cells[c][j] = li
		}
	}
	return NewGrid(dim, name, coords, global, cells)
}
