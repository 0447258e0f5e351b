package gi

import "time"

// FrameStats describes the work of the last rendered frame.
type FrameStats struct {
	// Frame is the frame number, starting at 1.
	Frame uint64

	// Lights is the number of lights that reached the sampler after
	// resolving, capping and culling.
	Lights int

	// DroppedLights and DroppedOccluders count input over the configured
	// caps.
	DroppedLights    int
	DroppedOccluders int

	// Occluders and SkippedOccluders come from the rasterizer.
	Occluders        int
	SkippedOccluders int

	// CoveredTexels is the number of occupied working texels.
	CoveredTexels int

	// Sanitized is the number of non-finite distance values replaced.
	Sanitized int

	// GPUDistanceField reports whether the accelerator built the field.
	GPUDistanceField bool

	// Rays and Steps count sphere-tracing work.
	Rays  int64
	Steps int64

	// Stage durations.
	Rasterize     time.Duration
	DistanceField time.Duration
	Sample        time.Duration
	Denoise       time.Duration
	Upsample      time.Duration
	Total         time.Duration
}
