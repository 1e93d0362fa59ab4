//go:build darwin

package workpool

import "syscall"

// detectOptimalWorkers returns the performance-core count on Apple Silicon,
// or the physical core count, or 0 when sysctl has neither.
func detectOptimalWorkers() int {
	for _, name := range []string{"hw.perflevel0.physicalcpu", "hw.physicalcpu"} {
		if n := sysctlCount(name); n > 0 {
			return n
		}
	}
	return 0
}

// sysctlCount decodes a little-endian integer sysctl value
func sysctlCount(name string) int {
	raw, err := syscall.Sysctl(name)
	if err != nil || len(raw) == 0 {
		return 0
	}
	n := int(raw[0])
	if len(raw) > 1 {
		n |= int(raw[1]) << 8
	}
	return n
}
