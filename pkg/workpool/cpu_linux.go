//go:build linux

package workpool

import (
	"bufio"
	"os"
)

// detectOptimalWorkers counts performance cores on hybrid Intel parts by
// comparing per-core clock rates in /proc/cpuinfo. It returns 0 on
// homogeneous machines so the caller falls back to physical cores.
func detectOptimalWorkers() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer f.Close()
	return perfCores(bufio.NewScanner(f))
}
