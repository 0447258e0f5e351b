package gi

import "errors"

// Configuration errors. Config.Validate wraps these with the offending
// values; test with errors.Is.
var (
	// ErrZeroResolution is returned when the working width or height is
	// not positive.
	ErrZeroResolution = errors.New("gi: zero resolution")

	// ErrProbeRatio is returned when the probe spacing does not evenly
	// divide the working resolution.
	ErrProbeRatio = errors.New("gi: probe spacing does not divide the working resolution")

	// ErrOutputScale is returned when the output scale is below 1.
	ErrOutputScale = errors.New("gi: output scale must be at least 1")

	// ErrInvalidConfig is returned for any other out-of-range or
	// non-finite parameter.
	ErrInvalidConfig = errors.New("gi: invalid configuration")
)

// ErrClosed is returned by Pipeline methods called after Close.
var ErrClosed = errors.New("gi: pipeline closed")

// ErrFallbackToCPU indicates the GPU accelerator cannot handle this operation.
// The pipeline transparently runs the stage on the CPU instead.
var ErrFallbackToCPU = errors.New("gi: falling back to CPU")
