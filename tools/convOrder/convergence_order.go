package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
)

var (
	csvFile string
)

func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "convergence.csv written by a mechanics convergence study")
	flag.Parse()
	csvFile = *csvFilePtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	studies := readCSV(csvFile)
	for _, cs := range studies {
		fmt.Printf("Title = %s\n", cs.title)
		for i := range cs.cells {
			fmt.Printf("%d, %d, %v, %v\n", cs.levels[i], cs.cells[i], cs.maxU[i], cs.meanU[i])
		}
		reportOrder("max|u|", cs.maxU)
		reportOrder("mean|u|", cs.meanU)
	}
}

type ConvergenceStudy struct {
	title       string
	levels      []int
	cells       []int
	maxU, meanU []float64
}

func NewConvergenceStudy(title string) *ConvergenceStudy {
	return &ConvergenceStudy{
		title: title,
	}
}

func (cs *ConvergenceStudy) Add(level, cells int, maxU, meanU float64) {
	cs.levels = append(cs.levels, level)
	cs.cells = append(cs.cells, cells)
	cs.maxU = append(cs.maxU, maxU)
	cs.meanU = append(cs.meanU, meanU)
}

// reportOrder estimates the observed order of a scalar functional from
// each triple of successive levels. The study halves the mesh size per
// level, so p = log2 of the ratio of successive differences. Triples
// where the differences change sign or vanish carry no order estimate.
func reportOrder(name string, f []float64) {
	for i := 0; i+2 < len(f); i++ {
		d0, d1 := f[i]-f[i+1], f[i+1]-f[i+2]
		if d0 == 0 || d1 == 0 || d0*d1 < 0 {
			continue
		}
		p := math.Log2(math.Abs(d0) / math.Abs(d1))
		fmt.Printf("%s: levels %d,%d,%d give observed order %.2f\n", name, i, i+1, i+2, p)
	}
}

func readCSV(csvFile string) (studies map[string]*ConvergenceStudy) {
	var (
		records     [][]string
		err         error
		f           *os.File
		ok          bool
		cs          *ConvergenceStudy
		maxU, meanU float64
	)
	studies = make(map[string]*ConvergenceStudy)
	if f, err = os.Open(csvFile); err != nil {
		panic(err)
	}
	r := csv.NewReader(bufio.NewReader(f))
	if records, err = r.ReadAll(); err != nil {
		panic(err)
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		title, lvltxt, cellstxt := rec[0], rec[1], rec[2]
		lvl, _ := strconv.Atoi(lvltxt)
		cells, _ := strconv.Atoi(cellstxt)
		if cs, ok = studies[title]; !ok {
			cs = NewConvergenceStudy(title)
			studies[title] = cs
		}
		_, _ = fmt.Sscanf(rec[3], "%f", &maxU)
		_, _ = fmt.Sscanf(rec[4], "%f", &meanU)
		cs.Add(lvl, cells, maxU, meanU)
	}
	return
}
