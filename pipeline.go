package gi

import (
	"errors"
	"sync"
	"time"

	"github.com/gogpu/gi/internal/denoise"
	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
	"github.com/gogpu/gi/internal/probe"
	"github.com/gogpu/gi/internal/raster"
	"github.com/gogpu/gi/internal/sdf"
	"github.com/gogpu/gi/internal/upsample"
	"github.com/gogpu/gi/scene"
)

// Pipeline computes a full-resolution irradiance buffer from a scene
// snapshot. It owns every per-frame grid.
//
// Thread safety: Render, Reconfigure and Close are serialized; a Pipeline
// may be shared between goroutines, but frames never overlap.
type Pipeline struct {
	mu sync.Mutex

	cfg    Config
	layout Layout
	grids  *frameGrids

	pool     *parallel.WorkerPool
	ownsPool bool
	noAccel  bool
	closed   bool

	builder sdf.Builder
	sampler probe.Sampler
	filter  denoise.Filter

	frame uint64
	stats FrameStats
}

// frameGrids holds every buffer sized by one Layout. It is replaced as a
// whole on a layout change so no stage can see a grid of the wrong size.
type frameGrids struct {
	occ    *grid.Occupancy
	field  *grid.DistanceField
	raw    *grid.ProbeGrid
	probes *grid.ProbeGrid
	out    [2]*grid.Irradiance
	next   int
}

func newFrameGrids(l Layout) *frameGrids {
	return &frameGrids{
		occ:    grid.NewOccupancy(l.working()),
		field:  grid.NewDistanceField(l.working()),
		raw:    grid.NewProbeGrid(l.probes(), l.ProbeSpacing),
		probes: grid.NewProbeGrid(l.probes(), l.ProbeSpacing),
		out:    [2]*grid.Irradiance{grid.NewIrradiance(l.output()), grid.NewIrradiance(l.output())},
	}
}

// NewPipeline validates cfg and allocates the pipeline's grids.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		cfg:     cfg,
		layout:  cfg.Layout(),
		noAccel: o.noAccel,
	}
	switch {
	case o.pool != nil:
		p.pool = o.pool
	case o.workers == 1:
		// Stages run on the calling goroutine.
	default:
		p.pool = parallel.NewWorkerPool(o.workers)
		p.ownsPool = true
	}
	p.grids = newFrameGrids(p.layout)

	if h := o.deviceHandle; h != nil {
		if _, null := h.(NullDeviceHandle); !null {
			if err := SetAcceleratorDeviceProvider(h); err != nil {
				Logger().Warn("gi: device handle rejected by accelerator", "err", err)
			}
		}
	}

	Logger().Debug("gi: pipeline created",
		"working", [2]int{p.layout.Width, p.layout.Height},
		"probes", [2]int{p.layout.ProbesX, p.layout.ProbesY},
		"output", [2]int{p.layout.OutputWidth, p.layout.OutputHeight})
	return p, nil
}

// Config returns the current configuration.
func (p *Pipeline) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Layout returns the current grid geometry.
func (p *Pipeline) Layout() Layout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layout
}

// Stats returns the statistics of the last rendered frame.
func (p *Pipeline) Stats() FrameStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Reconfigure applies cfg before the next frame. Parameter changes take
// effect in place; a change of layout reallocates every grid at once and
// drops the temporal history. An invalid cfg is rejected and the pipeline
// keeps its previous configuration.
func (p *Pipeline) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	if l := cfg.Layout(); l != p.layout {
		p.grids = newFrameGrids(l)
		p.filter.Reset()
		p.layout = l
		Logger().Debug("gi: grids reallocated",
			"working", [2]int{l.Width, l.Height},
			"probes", [2]int{l.ProbesX, l.ProbesY},
			"output", [2]int{l.OutputWidth, l.OutputHeight})
	}
	p.cfg = cfg
	return nil
}

// Close releases the worker pool. Render and Reconfigure return ErrClosed
// afterwards. Close is safe to call multiple times.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.ownsPool {
		p.pool.Close()
	}
	p.grids = nil
}

// Render computes the irradiance of snap. A nil snapshot renders an empty
// scene. The snapshot is not modified.
//
// The returned buffer stays valid until the next-but-one Render.
func (p *Pipeline) Render(snap *scene.Snapshot) (*IrradianceBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if snap == nil {
		snap = &scene.Snapshot{}
	}

	start := time.Now()
	p.frame++
	st := FrameStats{Frame: p.frame}
	g := p.grids
	xf := p.layout.transform()

	resolved := snap.Resolve()
	lights := resolved.Lights
	if maxL := p.cfg.MaxLights; maxL > 0 && len(lights) > maxL {
		st.DroppedLights = len(lights) - maxL
		lights = lights[:maxL]
		Logger().Warn("gi: too many lights, dropping the rest", "max", maxL, "dropped", st.DroppedLights)
	}
	occluders := resolved.Occluders
	if maxO := p.cfg.MaxOccluders; maxO > 0 && len(occluders) > maxO {
		st.DroppedOccluders = len(occluders) - maxO
		occluders = occluders[:maxO]
		Logger().Warn("gi: too many occluders, dropping the rest", "max", maxO, "dropped", st.DroppedOccluders)
	}
	st.Lights = len(lights)

	t := time.Now()
	rs := raster.Rasterize(occluders, g.occ, xf, p.pool)
	st.Occluders, st.SkippedOccluders = rs.Rasterized, rs.Skipped
	st.CoveredTexels = g.occ.Count()
	st.Rasterize = time.Since(t)

	t = time.Now()
	st.GPUDistanceField, st.Sanitized = p.buildDistanceField(g)
	st.DistanceField = time.Since(t)

	t = time.Now()
	p.sampler.Params = p.samplerParams()
	ps := p.sampler.Sample(&probe.Frame{
		Lights:    lights,
		Sky:       resolved.SkyRadiance(),
		Masks:     resolved.SkylightMasks,
		Occupancy: g.occ,
		Field:     g.field,
		Transform: xf,
	}, g.raw, p.pool)
	st.Rays, st.Steps = ps.Rays, ps.Steps
	st.Sample = time.Since(t)

	t = time.Now()
	p.filter.Params = denoise.Params{
		RadiusX:       p.cfg.DenoiseRadiusX,
		RadiusY:       p.cfg.DenoiseRadiusY,
		Sigma:         p.cfg.DenoiseSigma,
		EdgeAware:     p.cfg.DenoiseEdgeAware,
		TemporalBlend: p.cfg.TemporalBlend,
	}
	p.filter.Apply(g.raw, g.probes, g.occ, p.pool)
	st.Denoise = time.Since(t)

	t = time.Now()
	out := g.out[g.next]
	g.next ^= 1
	upsample.Upsample(g.probes, g.field, g.occ, out, upsample.Params{
		Scale:   p.layout.OutputScale,
		Ambient: p.cfg.Ambient,
	}, p.pool)
	st.Upsample = time.Since(t)

	st.Total = time.Since(start)
	p.stats = st
	Logger().Debug("gi: frame",
		"frame", st.Frame,
		"lights", st.Lights,
		"occluders", st.Occluders,
		"rays", st.Rays,
		"steps", st.Steps,
		"gpu_sdf", st.GPUDistanceField,
		"total", st.Total)

	return &IrradianceBuffer{buf: out, frame: p.frame}, nil
}

func (p *Pipeline) samplerParams() probe.Params {
	return probe.Params{
		Tracer: probe.Tracer{
			MaxSteps: p.cfg.MaxSteps,
			Epsilon:  p.cfg.StepEpsilon,
			Streak:   p.cfg.OcclusionStreak,
		},
		DirectStrength: p.cfg.DirectStrength,
		BounceRays:     p.cfg.BounceRays,
		BounceStrength: p.cfg.BounceStrength,
		BounceDistance: p.cfg.BounceDistance,
	}
}

// buildDistanceField runs the accelerator when one can take the stage and
// the CPU builder otherwise. It reports whether the GPU produced the field
// and how many values had to be sanitized.
func (p *Pipeline) buildDistanceField(g *frameGrids) (bool, int) {
	if a := Accelerator(); a != nil && !p.noAccel && a.CanAccelerate(AccelDistanceField) {
		err := a.BuildDistanceField(DistanceFieldTarget{
			Occupancy: g.occ.Mask,
			Distance:  g.field.Values,
			Width:     g.occ.W,
			Height:    g.occ.H,
		})
		if err == nil {
			return true, g.field.Sanitize()
		}
		if errors.Is(err, ErrFallbackToCPU) {
			Logger().Debug("gi: distance field on CPU", "accelerator", a.Name())
		} else {
			Logger().Warn("gi: accelerator failed, distance field on CPU", "accelerator", a.Name(), "err", err)
		}
	}
	return false, p.builder.Build(g.occ, g.field, p.pool)
}
