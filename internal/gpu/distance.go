//go:build !nogpu

// Package gpu implements the wgpu/hal distance-field accelerator.
//
// The accelerator runs the exact distance transform as two compute passes
// over the occupancy grid: a column pass and a row pass that writes the
// signed field. Both passes share one pipeline and differ only in their
// uniform block. The result is read back into the caller's slice.
package gpu

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gi"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// paramsSize is the size of the WGSL Params uniform block.
const paramsSize = 16

// DistanceFieldAccelerator builds distance fields with wgpu/hal compute
// shaders. It implements gi.GPUAccelerator.
type DistanceFieldAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	gpuReady       bool
	externalDevice bool // true when using a shared device (don't destroy on Close)

	logger atomic.Pointer[slog.Logger]
}

var discardLogger = slog.New(slog.DiscardHandler)

var (
	_ gi.GPUAccelerator      = (*DistanceFieldAccelerator)(nil)
	_ gi.DeviceProviderAware = (*DistanceFieldAccelerator)(nil)
)

func (a *DistanceFieldAccelerator) Name() string { return "distance-gpu" }

func (a *DistanceFieldAccelerator) CanAccelerate(op gi.AcceleratedOp) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady && op&gi.AccelDistanceField != 0
}

// SetLogger sets the logger used by the accelerator. Nil silences it.
func (a *DistanceFieldAccelerator) SetLogger(l *slog.Logger) {
	a.logger.Store(l)
}

func (a *DistanceFieldAccelerator) log() *slog.Logger {
	if l := a.logger.Load(); l != nil {
		return l
	}
	return discardLogger
}

// Init opens a device on the best available adapter. A machine without a
// usable GPU is not an error: the accelerator stays registered but declines
// every request, so pipelines use the CPU.
func (a *DistanceFieldAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		a.log().Warn("gpu-distance: GPU init failed, using CPU fallback", "err", err)
	}
	return nil
}

func (a *DistanceFieldAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *DistanceFieldAccelerator) releaseLocked() {
	a.destroyPipelines()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
}

// SetDeviceProvider switches the accelerator to a shared GPU device from
// an external provider. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func (a *DistanceFieldAccelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu-distance: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu-distance: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu-distance: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.useDeviceLocked(device, queue); err != nil {
		return err
	}
	a.log().Info("gpu-distance: switched to shared GPU device")
	return nil
}

// useDeviceLocked drops any owned device and builds the pipeline on the
// given shared one.
func (a *DistanceFieldAccelerator) useDeviceLocked(device hal.Device, queue hal.Queue) error {
	a.releaseLocked()
	a.device = device
	a.queue = queue
	a.externalDevice = true
	if err := a.createPipelines(); err != nil {
		a.gpuReady = false
		return fmt.Errorf("gpu-distance: create pipelines with shared device: %w", err)
	}
	a.gpuReady = true
	return nil
}

// BuildDistanceField computes target.Distance on the GPU.
func (a *DistanceFieldAccelerator) BuildDistanceField(target gi.DistanceFieldTarget) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return gi.ErrFallbackToCPU
	}
	n := target.Width * target.Height
	if target.Width <= 0 || target.Height <= 0 || len(target.Occupancy) < n || len(target.Distance) < n {
		return fmt.Errorf("gpu-distance: target %dx%d with %d occupancy and %d distance values",
			target.Width, target.Height, len(target.Occupancy), len(target.Distance))
	}
	start := time.Now()
	if err := a.dispatch(target); err != nil {
		return fmt.Errorf("gpu-distance: %w", err)
	}
	a.log().Debug("gpu-distance: field built", "width", target.Width, "height", target.Height, "elapsed", time.Since(start))
	return nil
}

// dispatch uploads the occupancy, runs both passes in one command buffer,
// and reads the field back.
func (a *DistanceFieldAccelerator) dispatch(target gi.DistanceFieldTarget) error {
	w, h := uint32(target.Width), uint32(target.Height) //nolint:gosec // dimensions always fit uint32
	n := uint64(w) * uint64(h)
	occBytes := packOccupancy(target.Occupancy[:n])
	fieldSize := n * 4
	columnSize := n * 8
	maxDistance := float32(target.Width + target.Height)

	occBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "distance_occupancy", Size: uint64(len(occBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create occupancy buffer: %w", err)
	}
	defer a.device.DestroyBuffer(occBuf)

	colBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "distance_columns", Size: columnSize,
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		return fmt.Errorf("create column buffer: %w", err)
	}
	defer a.device.DestroyBuffer(colBuf)

	fieldBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "distance_field", Size: fieldSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create field buffer: %w", err)
	}
	defer a.device.DestroyBuffer(fieldBuf)

	stagingBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "distance_staging", Size: fieldSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(stagingBuf)

	if err := a.queue.WriteBuffer(occBuf, 0, occBytes); err != nil {
		return fmt.Errorf("upload occupancy: %w", err)
	}

	var uniforms []hal.Buffer
	var groups []hal.BindGroup
	defer func() { a.cleanupBindings(uniforms, groups) }()
	for pass := range uint32(2) {
		ub, err := a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "distance_params", Size: paramsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer %d: %w", pass, err)
		}
		uniforms = append(uniforms, ub)
		if err := a.queue.WriteBuffer(ub, 0, makeParams(w, h, pass, maxDistance)); err != nil {
			return fmt.Errorf("upload params %d: %w", pass, err)
		}

		bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label: "distance_bind", Layout: a.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: paramsSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: occBuf.NativeHandle(), Offset: 0, Size: uint64(len(occBytes))}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: colBuf.NativeHandle(), Offset: 0, Size: columnSize}},
				{Binding: 3, Resource: gputypes.BufferBinding{Buffer: fieldBuf.NativeHandle(), Offset: 0, Size: fieldSize}},
			},
		})
		if err != nil {
			return fmt.Errorf("create bind group %d: %w", pass, err)
		}
		groups = append(groups, bg)
	}

	readback, err := a.encodeAndRead(groups, fieldBuf, stagingBuf, w, h, fieldSize)
	if err != nil {
		return err
	}
	unpackField(readback, target.Distance[:n])
	return nil
}

// encodeAndRead records one compute pass per bind group, copies the field
// to the staging buffer, submits, waits for the queue to drain and reads
// the staging buffer back.
func (a *DistanceFieldAccelerator) encodeAndRead(
	groups []hal.BindGroup, fieldBuf, stagingBuf hal.Buffer, w, h uint32, size uint64,
) ([]byte, error) {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "distance_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("distance"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	// Separate passes give the storage barrier between column and row work.
	for _, bg := range groups {
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "distance_pass"})
		pass.SetPipeline(a.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch((w+7)/8, (h+7)/8, 1)
		pass.End()
	}
	encoder.CopyBufferToBuffer(fieldBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	if _, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if err := a.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("wait for GPU: %w", err)
	}
	return a.readStaging(stagingBuf, size)
}

// readStaging copies size bytes out of a mapped staging buffer.
func (a *DistanceFieldAccelerator) readStaging(buf hal.Buffer, size uint64) ([]byte, error) {
	mapping, err := a.device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	defer func() { _ = a.device.UnmapBuffer(buf) }()
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	return out, nil
}

func (a *DistanceFieldAccelerator) cleanupBindings(uniforms []hal.Buffer, groups []hal.BindGroup) {
	for _, bg := range groups {
		if bg != nil {
			a.device.DestroyBindGroup(bg)
		}
	}
	for _, ub := range uniforms {
		if ub != nil {
			a.device.DestroyBuffer(ub)
		}
	}
}

func (a *DistanceFieldAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	if err := a.createPipelines(); err != nil {
		a.device.Destroy()
		a.device = nil
		a.queue = nil
		return fmt.Errorf("create pipelines: %w", err)
	}
	a.gpuReady = true
	a.log().Info("gpu-distance: GPU accelerator initialized", "adapter", selected.Info.Name)
	return nil
}

func (a *DistanceFieldAccelerator) createPipelines() error {
	shader, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "distance",
		Source: hal.ShaderSource{WGSL: distanceShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile distance shader: %w", err)
	}
	a.shader = shader

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "distance_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	a.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "distance_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	a.pipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "distance_pipeline", Layout: a.pipeLayout,
		Compute: hal.ComputeState{Module: a.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	a.pipeline = pipeline
	return nil
}

func (a *DistanceFieldAccelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	if a.pipeline != nil {
		a.device.DestroyComputePipeline(a.pipeline)
		a.pipeline = nil
	}
	if a.pipeLayout != nil {
		a.device.DestroyPipelineLayout(a.pipeLayout)
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.device.DestroyBindGroupLayout(a.bindLayout)
		a.bindLayout = nil
	}
	if a.shader != nil {
		a.device.DestroyShaderModule(a.shader)
		a.shader = nil
	}
}

// makeParams encodes the WGSL Params block.
func makeParams(w, h, pass uint32, maxDistance float32) []byte {
	out := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(out[0:], w)
	binary.LittleEndian.PutUint32(out[4:], h)
	binary.LittleEndian.PutUint32(out[8:], pass)
	binary.LittleEndian.PutUint32(out[12:], math.Float32bits(maxDistance))
	return out
}

// packOccupancy widens the byte mask to one u32 per texel.
func packOccupancy(mask []uint8) []byte {
	out := make([]byte, len(mask)*4)
	for i, m := range mask {
		if m != 0 {
			binary.LittleEndian.PutUint32(out[i*4:], 1)
		}
	}
	return out
}

func unpackField(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
