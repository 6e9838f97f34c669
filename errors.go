package gc

import "errors"

var (
	// ErrAlignment is returned by allocation when the requested alignment
	// exceeds MaxAlign. The request is rejected outright; it is never
	// silently downgraded to a weaker guarantee.
	ErrAlignment = errors.New("gc: requested alignment exceeds supported maximum")

	// ErrOutOfMemory is returned when backing memory cannot be obtained or
	// the configured heap limit would be exceeded. The heap is unchanged;
	// the collector does not retry internally.
	ErrOutOfMemory = errors.New("gc: out of memory")
)
