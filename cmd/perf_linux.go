//go:build linux
// +build linux

package cmd

import (
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

// countInstructions runs f under a hardware instruction counter. If the
// perf_event_open setup fails, for example when the binary lacks
// CAP_PERFMON, f has not run yet and is run here without counting.
func countInstructions(f func()) {
	pv, err := perf.CPUInstructions(f)
	if err != nil {
		fmt.Printf("perf unavailable: %s\n", err.Error())
		f()
		return
	}
	fmt.Printf("%d instructions retired, %d ns enabled, %d ns running\n",
		pv.Value, pv.TimeEnabled, pv.TimeRunning)
}
