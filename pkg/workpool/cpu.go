package workpool

import (
	"bufio"
	"runtime"
	"strconv"
	"strings"

	"github.com/klauspost/cpuid"
)

// DefaultWorkers picks a worker count for CPU-bound rendering. It prefers
// performance cores on hybrid parts and physical cores elsewhere.
func DefaultWorkers() int {
	if n := detectOptimalWorkers(); n > 0 {
		return n
	}
	return physicalCores()
}

// physicalCores divides logical CPUs by hyperthreads per core
func physicalCores() int {
	n := runtime.NumCPU()
	if tpc := cpuid.CPU.ThreadsPerCore; tpc > 1 && n/tpc > 0 {
		n /= tpc
	}
	if n < 1 {
		n = 1
	}
	return n
}

// perfCores reads /proc/cpuinfo-formatted text and returns the number of
// cores clocked within 10% of the mean, or 0 when all cores look alike.
func perfCores(sc *bufio.Scanner) int {
	maxMHz := make(map[string]float64) // "physical id/core id" -> fastest sibling
	var phys, core string
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "processor":
			phys, core = "", ""
		case "physical id":
			phys = value
		case "core id":
			core = value
		case "cpu MHz":
			mhz, err := strconv.ParseFloat(value, 64)
			if err != nil || core == "" {
				continue
			}
			id := phys + "/" + core
			if mhz > maxMHz[id] {
				maxMHz[id] = mhz
			}
		}
	}
	if len(maxMHz) < 3 {
		return 0
	}

	var sum float64
	for _, mhz := range maxMHz {
		sum += mhz
	}
	threshold := 0.9 * sum / float64(len(maxMHz))
	fast := 0
	for _, mhz := range maxMHz {
		if mhz >= threshold {
			fast++
		}
	}
	if fast == 0 || fast == len(maxMHz) {
		return 0
	}
	return fast
}
