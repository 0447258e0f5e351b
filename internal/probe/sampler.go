package probe

import (
	"math"
	"sync/atomic"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
	"github.com/gogpu/gi/scene"
)

// Confidence levels assigned by the direct phase.
const (
	confidenceBuried   = 0
	confidenceBoundary = 0.5
	confidenceOpen     = 1
)

// Params controls the sampler.
type Params struct {
	Tracer Tracer

	// DirectStrength scales direct light.
	DirectStrength float64

	// BounceRays is the number of evenly spaced bounce directions per
	// probe. Zero disables indirect light.
	BounceRays int

	// BounceStrength scales the averaged bounce light.
	BounceStrength float64

	// BounceDistance is the maximum length of a bounce ray in texels.
	BounceDistance float64
}

// Frame is the per-frame input of the sampler. Lights must already be
// resolved: enabled, finite and jittered.
type Frame struct {
	Lights    []scene.Light
	Sky       scene.RGB
	Masks     []scene.Mask
	Occupancy *grid.Occupancy
	Field     *grid.DistanceField
	Transform grid.Transform
}

// Stats counts the work of one Sample call.
type Stats struct {
	Rays  int64
	Steps int64
}

// Sampler fills a probe grid. It keeps the direct-light grid between calls
// and is not safe for concurrent use.
type Sampler struct {
	Params Params

	direct *grid.ProbeGrid
	dirs   []scene.Vec2
}

// Sample computes every probe of out in two phases. The first traces
// direct and sky light. The second sends bounce rays and lights each probe
// with what the first phase left on the surfaces they hit. The phases are
// separated by a barrier, so bounce light never depends on the order in
// which probes are processed.
func (s *Sampler) Sample(f *Frame, out *grid.ProbeGrid, pool *parallel.WorkerPool) Stats {
	if s.direct == nil || s.direct.Size != out.Size || s.direct.Spacing != out.Spacing {
		s.direct = grid.NewProbeGrid(out.Size, out.Spacing)
	}
	s.bounceDirections()

	var rays, steps atomic.Int64
	n := out.Len()

	parallel.ForBands(pool, n, func(lo, hi int) {
		var r, st int64
		for i := lo; i < hi; i++ {
			pr, ps := s.directProbe(f, i)
			r += pr
			st += ps
		}
		rays.Add(r)
		steps.Add(st)
	})

	parallel.ForBands(pool, n, func(lo, hi int) {
		var r, st int64
		for i := lo; i < hi; i++ {
			pr, ps := s.bounceProbe(f, out, i)
			r += pr
			st += ps
		}
		rays.Add(r)
		steps.Add(st)
	})

	return Stats{Rays: rays.Load(), Steps: steps.Load()}
}

// directProbe writes probe i of the direct grid.
func (s *Sampler) directProbe(f *Frame, i int) (rays, steps int64) {
	g := s.direct
	px, py := g.Center(i%g.W, i/g.W)
	cx, cy := int(math.Floor(px)), int(math.Floor(py))

	if f.Occupancy.Occupied(cx, cy) {
		g.Probes[i] = grid.Probe{Confidence: confidenceBuried}
		return 0, 0
	}

	p := grid.Probe{Confidence: confidenceOpen}
	if f.Field.At(cx, cy) <= 0 {
		p.Confidence = confidenceBoundary
	}

	world := f.Transform.ToWorld(scene.V2(px, py))
	tracer := s.Params.Tracer
	for _, l := range f.Lights {
		d := world.Distance(l.Position)
		if d >= l.Radius {
			continue
		}
		target := f.Transform.ToTexel(l.Position)
		reach := l.Size / f.Transform.TexelSize
		ok, n := tracer.Trace(f.Field, f.Occupancy, px, py, target.X, target.Y, reach)
		rays++
		steps += int64(n)
		if ok {
			p.Irradiance = p.Irradiance.Add(l.Radiance(d).Scale(s.Params.DirectStrength))
		}
	}

	if !f.Sky.IsZero() && !scene.Shielded(f.Masks, world) {
		p.Irradiance = p.Irradiance.Add(f.Sky)
	}
	p.Irradiance = p.Irradiance.Bounded()
	g.Probes[i] = p
	return rays, steps
}

// bounceProbe writes probe i of out: its direct light plus one bounce.
func (s *Sampler) bounceProbe(f *Frame, out *grid.ProbeGrid, i int) (rays, steps int64) {
	p := s.direct.Probes[i]
	if p.Confidence <= 0 || len(s.dirs) == 0 || s.Params.BounceStrength == 0 {
		out.Probes[i] = p
		return 0, 0
	}

	px, py := out.Center(i%out.W, i/out.W)
	tracer := s.Params.Tracer
	var bounce scene.RGB
	for _, dir := range s.dirs {
		hit, ok, n := tracer.March(f.Field, f.Occupancy, px, py, dir.X, dir.Y, s.Params.BounceDistance)
		rays++
		steps += int64(n)
		if !ok {
			continue
		}
		albedo := f.Occupancy.AlbedoNear(hit.SurfaceX, hit.SurfaceY)
		if albedo.IsZero() {
			continue
		}
		incoming, w := s.direct.SampleVisible(hit.LastX, hit.LastY, f.Occupancy)
		if w <= 0 {
			continue
		}
		bounce = bounce.Add(incoming.Mul(albedo).Bounded())
	}

	scale := s.Params.BounceStrength / float64(len(s.dirs))
	p.Irradiance = p.Irradiance.Add(bounce.Scale(scale)).Bounded()
	out.Probes[i] = p
	return rays, steps
}

// bounceDirections caches the unit vectors at angles 2πk/N + π/N.
func (s *Sampler) bounceDirections() {
	n := max(s.Params.BounceRays, 0)
	if len(s.dirs) == n {
		return
	}
	s.dirs = make([]scene.Vec2, n)
	for k := range n {
		a := 2*math.Pi*float64(k)/float64(n) + math.Pi/float64(n)
		s.dirs[k] = scene.V2(math.Cos(a), math.Sin(a))
	}
}
