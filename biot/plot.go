package biot

import (
	"math"
	"time"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"
)

// Monitor is the optional live chart of injection-cell pressure against
// time. The chart range is fixed at construction, so the series is replotted
// normalized by the largest magnitude seen.
type Monitor struct {
	chart    *chart2d.Chart2D
	colorMap *utils2.ColorMap
	delay    time.Duration

	times, values []float64
	maxAbs        float64
}

// NewMonitor opens the chart window for a run ending at endTime; delay
// throttles the redraw after each sample.
func NewMonitor(endTime float64, delay time.Duration) *Monitor {
	mon := &Monitor{
		chart:    chart2d.NewChart2D(1920, 1280, 0, float32(endTime), -1, 1),
		colorMap: utils2.NewColorMap(-1, 1, 1),
		delay:    delay,
	}
	go mon.chart.Plot()
	return mon
}

// Record appends one sample and redraws the whole series.
func (mon *Monitor) Record(t, p float64) {
	mon.times = append(mon.times, t)
	mon.values = append(mon.values, p)
	if a := math.Abs(p); a > mon.maxAbs {
		mon.maxAbs = a
	}
	scale := mon.maxAbs
	if scale == 0 {
		scale = 1
	}
	y := make([]float64, len(mon.values))
	for i, v := range mon.values {
		y[i] = v / scale
	}
	if err := mon.chart.AddSeries("injection pressure", mon.times, y,
		chart2d.CrossGlyph, chart2d.Solid, mon.colorMap.GetRGB(0.7)); err != nil {
		panic("unable to add graph series")
	}
	if mon.delay != 0 {
		time.Sleep(mon.delay)
	}
}
