package upsample

import (
	"math"
	"testing"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
	"github.com/gogpu/gi/internal/sdf"
	"github.com/gogpu/gi/scene"
)

type fixture struct {
	probes *grid.ProbeGrid
	occ    *grid.Occupancy
	field  *grid.DistanceField
}

func newFixture(pw, ph, spacing int) *fixture {
	size := grid.Size{W: pw * spacing, H: ph * spacing}
	return &fixture{
		probes: grid.NewProbeGrid(grid.Size{W: pw, H: ph}, spacing),
		occ:    grid.NewOccupancy(size),
		field:  grid.NewDistanceField(size),
	}
}

func (f *fixture) run(t *testing.T, p Params, pool *parallel.WorkerPool) *grid.Irradiance {
	t.Helper()
	var b sdf.Builder
	b.Build(f.occ, f.field, nil)
	out := grid.NewIrradiance(grid.Size{W: f.occ.W * max(p.Scale, 1), H: f.occ.H * max(p.Scale, 1)})
	Upsample(f.probes, f.field, f.occ, out, p, pool)
	return out
}

func near(a, b scene.RGB) bool {
	const eps = 1e-5
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps && math.Abs(a.B-b.B) < eps
}

func TestUpsampleUniform(t *testing.T) {
	for _, scale := range []int{1, 2, 3} {
		f := newFixture(4, 3, 8)
		c := scene.RGB{R: 0.25, G: 0.5, B: 0.75}
		for i := range f.probes.Probes {
			f.probes.Probes[i] = grid.Probe{Irradiance: c, Confidence: 1}
		}
		out := f.run(t, Params{Scale: scale}, nil)
		if out.W != 32*scale || out.H != 24*scale {
			t.Fatalf("scale %d: output %dx%d", scale, out.W, out.H)
		}
		for y := range out.H {
			for x := range out.W {
				if got := out.At(x, y); !near(got, c) {
					t.Fatalf("scale %d: pixel (%d,%d) = %v, want %v", scale, x, y, got, c)
				}
			}
		}
	}
}

func TestUpsampleInterpolates(t *testing.T) {
	f := newFixture(2, 1, 8)
	f.probes.Probes[0] = grid.Probe{Irradiance: scene.Black, Confidence: 1}
	f.probes.Probes[1] = grid.Probe{Irradiance: scene.White, Confidence: 1}
	out := f.run(t, Params{Scale: 1}, nil)

	// Pixel 7 is centered at 7.5, between the probes at 4 and 12.
	want := (7.5 - 4) / 8
	if got := out.At(7, 4).R; math.Abs(got-want) > 1e-6 {
		t.Errorf("pixel 7 = %v, want %v", got, want)
	}
	if got := out.At(0, 4).R; got != 0 {
		t.Errorf("pixel left of the first probe = %v, want 0 (edge clamp)", got)
	}
	prev := -1.0
	for x := range out.W {
		r := out.At(x, 4).R
		if r < prev {
			t.Fatalf("ramp not monotonic at %d: %v < %v", x, r, prev)
		}
		prev = r
	}
}

func TestUpsampleWallDoesNotLeak(t *testing.T) {
	f := newFixture(4, 2, 8)
	for j := range 2 {
		for i := range 4 {
			p := grid.Probe{Confidence: 1}
			if i < 2 {
				p.Irradiance = scene.RGB{R: 1}
			}
			f.probes.Probes[f.probes.Index(i, j)] = p
		}
	}
	for y := range f.occ.H {
		f.occ.Mask[f.occ.Index(16, y)] = 1
	}
	out := f.run(t, Params{Scale: 2}, nil)

	// Output pixels 34 and up lie right of working texel 16.
	for y := range out.H {
		for x := 34; x < out.W; x++ {
			if got := out.At(x, y); got.R != 0 {
				t.Fatalf("pixel (%d,%d) behind the wall = %v, want no red", x, y, got)
			}
		}
		for x := range 32 {
			if got := out.At(x, y); !near(got, scene.RGB{R: 1}) {
				t.Fatalf("pixel (%d,%d) = %v, want red", x, y, got)
			}
		}
	}
}

func TestUpsampleInsideWallIsLit(t *testing.T) {
	f := newFixture(4, 2, 8)
	for i := range f.probes.Probes {
		f.probes.Probes[i] = grid.Probe{Irradiance: scene.White, Confidence: 1}
	}
	for y := range f.occ.H {
		f.occ.Mask[f.occ.Index(16, y)] = 1
	}
	out := f.run(t, Params{Scale: 1}, nil)
	if got := out.At(16, 5); !near(got, scene.White) {
		t.Errorf("pixel inside the wall = %v, want white from its neighborhood", got)
	}
}

func TestUpsampleFallbackSearch(t *testing.T) {
	f := newFixture(4, 4, 8)
	f.probes.Probes[f.probes.Index(2, 2)] = grid.Probe{Irradiance: scene.White, Confidence: 1}
	ambient := scene.Gray(0.1)
	out := f.run(t, Params{Scale: 1, Ambient: ambient}, nil)

	// The four probes around texel (8, 8) are dark; the search finds (2,2).
	if got := out.At(8, 8); !near(got, scene.White.Add(ambient)) {
		t.Errorf("pixel (8,8) = %v, want white plus ambient", got)
	}
	// Nothing within reach of the corner: ambient only.
	if got := out.At(0, 0); !near(got, ambient) {
		t.Errorf("pixel (0,0) = %v, want ambient %v", got, ambient)
	}
}

func TestUpsampleParallelMatchesSerial(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	build := func() *fixture {
		f := newFixture(4, 4, 8)
		for i := range f.probes.Probes {
			f.probes.Probes[i] = grid.Probe{Irradiance: scene.Gray(float64(i) / 16), Confidence: 1}
		}
		for y := 4; y < 28; y++ {
			f.occ.Mask[f.occ.Index(15, y)] = 1
		}
		return f
	}
	a := build().run(t, Params{Scale: 2}, nil)
	b := build().run(t, Params{Scale: 2}, pool)
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("component %d differs: %v vs %v", i, a.Pix[i], b.Pix[i])
		}
	}
}
