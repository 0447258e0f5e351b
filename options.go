package gi

import "github.com/gogpu/gi/internal/parallel"

// Option configures a Pipeline during creation.
//
// Example:
//
//	// Default: one worker per CPU, GPU distance field if registered
//	p, err := gi.NewPipeline(gi.DefaultConfig())
//
//	// Single-threaded, CPU only
//	p, err := gi.NewPipeline(cfg, gi.WithWorkers(1), gi.WithoutAccelerator())
type Option func(*options)

// options holds optional configuration for Pipeline creation.
type options struct {
	workers      int
	pool         *parallel.WorkerPool
	noAccel      bool
	deviceHandle DeviceHandle
}

// WithWorkers sets the number of worker goroutines of the pipeline's own
// pool. Zero or negative uses GOMAXPROCS. One runs every stage on the
// calling goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// withPool shares an existing worker pool. The pipeline does not close it.
func withPool(p *parallel.WorkerPool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithoutAccelerator keeps every stage on the CPU even when a GPU
// accelerator is registered.
func WithoutAccelerator() Option {
	return func(o *options) {
		o.noAccel = true
	}
}

// WithDeviceHandle hands the host's GPU device to the registered
// accelerator when the pipeline is created. A NullDeviceHandle is ignored.
func WithDeviceHandle(h DeviceHandle) Option {
	return func(o *options) {
		o.deviceHandle = h
	}
}
