package gi

import (
	"errors"
	"sync"
)

// AcceleratedOp describes pipeline stages an accelerator can take over.
type AcceleratedOp uint32

const (
	// AccelDistanceField represents the distance transform of the
	// occupancy grid.
	AccelDistanceField AcceleratedOp = 1 << iota
)

// DistanceFieldTarget is the input and output of an accelerated distance
// transform. Occupancy holds one byte per texel, non-zero where covered.
// Distance receives the signed field with the same layout and conventions
// as the CPU builder: texel-center distances in texels, shifted so that
// boundary texels are zero, ±(Width+Height) where no boundary exists.
type DistanceFieldTarget struct {
	Occupancy     []uint8
	Distance      []float32
	Width, Height int
}

// GPUAccelerator is an optional GPU acceleration provider.
//
// When registered via RegisterAccelerator, pipelines try the accelerator
// first for the stages it supports. If it returns ErrFallbackToCPU or any
// other error, the stage runs on the CPU for that frame.
//
// Implementations live in GPU backend packages. Users opt in with a blank
// import:
//
//	import _ "github.com/gogpu/gi/gpu" // enables GPU acceleration
type GPUAccelerator interface {
	// Name returns the accelerator name (e.g., "distance-gpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether the accelerator supports the given stage.
	CanAccelerate(op AcceleratedOp) bool

	// BuildDistanceField computes target.Distance from target.Occupancy.
	// Returns ErrFallbackToCPU if the GPU cannot serve the request.
	BuildDistanceField(target DistanceFieldTarget) error
}

// DeviceProviderAware is an optional interface for accelerators that can share
// GPU resources with an external provider (e.g., a host window).
// When SetDeviceProvider is called, the accelerator reuses the provided GPU
// device instead of creating its own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   GPUAccelerator
)

// RegisterAccelerator registers a GPU accelerator.
//
// Only one accelerator can be registered. Subsequent calls replace the previous one.
// The accelerator's Init() method is called during registration.
// If Init() fails, the accelerator is not registered and the error is returned.
func RegisterAccelerator(a GPUAccelerator) error {
	if a == nil {
		return errors.New("gi: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	Logger().Info("gi: accelerator registered", "name", a.Name())
	return nil
}

// Accelerator returns the currently registered GPU accelerator, or nil if none.
func Accelerator() GPUAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// unregisterAccelerator removes and closes the registered accelerator.
func unregisterAccelerator() {
	accelMu.Lock()
	old := accel
	accel = nil
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator, enabling GPU device sharing. If no accelerator is registered
// or it doesn't support device sharing, this is a no-op.
//
// The provider should implement HalDevice() any and HalQueue() any methods
// that return wgpu/hal types.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
