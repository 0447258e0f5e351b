//go:build !nogpu

// Package gpu registers the GPU distance-field accelerator.
//
// Import this package to build the signed distance field with wgpu/hal
// compute shaders instead of on the CPU. If GPU initialization fails (no
// Vulkan available), the accelerator declines every frame and pipelines
// fall back to the CPU builder.
//
// Usage:
//
//	import _ "github.com/gogpu/gi/gpu" // enable GPU distance fields
package gpu

import (
	"github.com/gogpu/gi"
	gpuimpl "github.com/gogpu/gi/internal/gpu"
)

func init() {
	accel := &gpuimpl.DistanceFieldAccelerator{}
	if err := gi.RegisterAccelerator(accel); err != nil {
		gi.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the GPU accelerator to use a shared GPU device
// from an external provider (e.g., gogpu) instead of opening its own.
//
// The provider should be a gpucontext.DeviceProvider that also implements
// gpucontext.HalProvider for direct HAL access.
func SetDeviceProvider(provider any) error {
	return gi.SetAcceleratorDeviceProvider(provider)
}
