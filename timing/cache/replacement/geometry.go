package replacement

import "fmt"

// DefaultCPU is the cpu used when the host cannot attribute an access to a
// core, such as single-core runs or merged last-level-cache requests.
const DefaultCPU = 0

// Geometry holds the fixed dimensions of a policy's metadata.
type Geometry struct {
	NumCPUs int
	NumSets int
	NumWays int
}

// Validate checks that all dimensions are positive.
func (g Geometry) Validate() error {
	if g.NumCPUs <= 0 || g.NumSets <= 0 || g.NumWays <= 0 {
		return fmt.Errorf(
			"%w: need positive dimensions, got %d cpus x %d sets x %d ways",
			ErrInvalidGeometry, g.NumCPUs, g.NumSets, g.NumWays)
	}
	return nil
}

// Lines returns the number of line slots the geometry describes.
func (g Geometry) Lines() int {
	return g.NumCPUs * g.NumSets * g.NumWays
}

// PriorityThreshold is the number of protected lines a set may hold before
// eviction targets the protected class.
const PriorityThreshold = 4
