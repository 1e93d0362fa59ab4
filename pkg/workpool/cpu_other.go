//go:build !darwin && !linux

package workpool

// detectOptimalWorkers has no topology source on this platform
func detectOptimalWorkers() int {
	return 0
}
