package denoise

import (
	"math"
	"testing"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
	"github.com/gogpu/gi/scene"
)

func uniform(w, h int, c scene.RGB) *grid.ProbeGrid {
	g := grid.NewProbeGrid(grid.Size{W: w, H: h}, 8)
	for i := range g.Probes {
		g.Probes[i] = grid.Probe{Irradiance: c, Confidence: 1}
	}
	return g
}

func near(a, b scene.RGB) bool {
	const eps = 1e-9
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps && math.Abs(a.B-b.B) < eps
}

func TestApplyZeroRadiusCopies(t *testing.T) {
	src := uniform(3, 3, scene.Gray(0.5))
	src.Probes[4] = grid.Probe{Irradiance: scene.White, Confidence: 0.5}
	dst := grid.NewProbeGrid(src.Size, src.Spacing)

	f := &Filter{Params: Params{Sigma: 1}}
	f.Apply(src, dst, nil, nil)
	for i := range src.Probes {
		if dst.Probes[i] != src.Probes[i] {
			t.Fatalf("probe %d = %+v, want %+v", i, dst.Probes[i], src.Probes[i])
		}
	}
}

func TestApplyUniformIsUnchanged(t *testing.T) {
	c := scene.RGB{R: 0.3, G: 0.6, B: 0.9}
	src := uniform(5, 4, c)
	dst := grid.NewProbeGrid(src.Size, src.Spacing)

	f := &Filter{Params: Params{RadiusX: 2, RadiusY: 1, Sigma: 1}}
	f.Apply(src, dst, nil, nil)
	for i, p := range dst.Probes {
		if !near(p.Irradiance, c) || math.Abs(p.Confidence-1) > 1e-12 {
			t.Fatalf("probe %d = %+v, want %v with confidence 1", i, p, c)
		}
	}
}

func TestApplyFillsZeroConfidence(t *testing.T) {
	src := uniform(3, 3, scene.White)
	src.Probes[4] = grid.Probe{}
	dst := grid.NewProbeGrid(src.Size, src.Spacing)

	f := &Filter{Params: Params{RadiusX: 1, RadiusY: 1, Sigma: 1}}
	f.Apply(src, dst, nil, nil)
	if p := dst.Probes[4]; !near(p.Irradiance, scene.White) || p.Confidence != 1 {
		t.Errorf("center = %+v, want white filled from neighbors", p)
	}
}

func TestApplyAllZeroConfidence(t *testing.T) {
	src := grid.NewProbeGrid(grid.Size{W: 3, H: 2}, 8)
	for i := range src.Probes {
		src.Probes[i].Irradiance = scene.White
	}
	dst := grid.NewProbeGrid(src.Size, src.Spacing)

	f := &Filter{Params: Params{RadiusX: 1, RadiusY: 1, Sigma: 1}}
	f.Apply(src, dst, nil, nil)
	for i, p := range dst.Probes {
		if p != (grid.Probe{}) {
			t.Fatalf("probe %d = %+v, want zero", i, p)
		}
	}
}

// wallScene has red probes left of a wall and black probes right of it.
func wallScene() (*grid.ProbeGrid, *grid.Occupancy) {
	src := grid.NewProbeGrid(grid.Size{W: 4, H: 2}, 8)
	for j := range 2 {
		for i := range 4 {
			p := grid.Probe{Confidence: 1}
			if i < 2 {
				p.Irradiance = scene.RGB{R: 1}
			}
			src.Probes[src.Index(i, j)] = p
		}
	}
	occ := grid.NewOccupancy(grid.Size{W: 32, H: 16})
	for y := range 16 {
		occ.Mask[occ.Index(16, y)] = 1
	}
	return src, occ
}

func TestApplyEdgeAwareDoesNotBleed(t *testing.T) {
	src, occ := wallScene()
	dst := grid.NewProbeGrid(src.Size, src.Spacing)

	f := &Filter{Params: Params{RadiusX: 2, RadiusY: 1, Sigma: 1, EdgeAware: true}}
	f.Apply(src, dst, occ, nil)

	for j := range 2 {
		for i := 2; i < 4; i++ {
			if got := dst.At(i, j).Irradiance; !got.IsZero() {
				t.Errorf("probe (%d,%d) behind the wall = %v, want black", i, j, got)
			}
		}
		for i := range 2 {
			if got := dst.At(i, j).Irradiance; !near(got, scene.RGB{R: 1}) {
				t.Errorf("probe (%d,%d) = %v, want red", i, j, got)
			}
		}
	}
}

func TestApplyWithoutEdgesBleeds(t *testing.T) {
	src, occ := wallScene()
	dst := grid.NewProbeGrid(src.Size, src.Spacing)

	f := &Filter{Params: Params{RadiusX: 1, RadiusY: 1, Sigma: 1}}
	f.Apply(src, dst, occ, nil)
	if got := dst.At(2, 0).Irradiance; got.R <= 0 {
		t.Errorf("probe next to the wall = %v, want some red without edge awareness", got)
	}
}

func TestApplyBuriedProbeGathersAcrossWalls(t *testing.T) {
	src, occ := wallScene()
	// Bury probe (1,0), centered on texel (12,4).
	occ.Mask[occ.Index(12, 4)] = 1
	src.Probes[src.Index(1, 0)] = grid.Probe{}
	dst := grid.NewProbeGrid(src.Size, src.Spacing)

	f := &Filter{Params: Params{RadiusX: 1, RadiusY: 1, Sigma: 1, EdgeAware: true}}
	f.Apply(src, dst, occ, nil)

	p := dst.At(1, 0)
	if p.Confidence <= 0 {
		t.Fatalf("buried probe confidence = %v, want filled", p.Confidence)
	}
	if p.Irradiance.R <= 0 || p.Irradiance.R >= 1 {
		t.Errorf("buried probe = %v, want a mix of both sides", p.Irradiance)
	}
}

func TestApplyTemporalBlend(t *testing.T) {
	f := &Filter{Params: Params{TemporalBlend: 0.9}}
	dst := grid.NewProbeGrid(grid.Size{W: 2, H: 2}, 8)

	f.Apply(uniform(2, 2, scene.White), dst, nil, nil)
	if got := dst.Probes[0].Irradiance; got != scene.White {
		t.Fatalf("first frame = %v, want white (no history yet)", got)
	}

	f.Apply(uniform(2, 2, scene.Black), dst, nil, nil)
	if got := dst.Probes[0].Irradiance; !near(got, scene.Gray(0.5)) {
		t.Errorf("second frame = %v, want gray 0.5 (blend clamped to 0.5)", got)
	}

	f.Reset()
	f.Apply(uniform(2, 2, scene.Black), dst, nil, nil)
	if got := dst.Probes[0].Irradiance; !got.IsZero() {
		t.Errorf("after Reset = %v, want black", got)
	}
}

func TestApplyParallelMatchesSerial(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	src, occ := wallScene()
	params := Params{RadiusX: 2, RadiusY: 2, Sigma: 1.5, EdgeAware: true}
	a := grid.NewProbeGrid(src.Size, src.Spacing)
	b := grid.NewProbeGrid(src.Size, src.Spacing)
	(&Filter{Params: params}).Apply(src, a, occ, nil)
	(&Filter{Params: params}).Apply(src, b, occ, pool)

	for i := range a.Probes {
		if a.Probes[i] != b.Probes[i] {
			t.Fatalf("probe %d differs: %+v vs %+v", i, a.Probes[i], b.Probes[i])
		}
	}
}
