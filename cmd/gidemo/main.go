// Command gidemo renders a scene through the gi pipeline and writes the
// irradiance buffer as a PNG.
//
// Without -scene it renders a built-in scene: three colored lights around
// a box. With -frames greater than one it renders successive frames with a
// new jitter seed each and writes one PNG per frame.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gi"
	"github.com/gogpu/gi/scene"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "JSON scene file (default: built-in scene)")
		output    = flag.String("output", "light.png", "output file")
		width     = flag.Int("width", 256, "working width in texels")
		height    = flag.Int("height", 256, "working height in texels")
		scale     = flag.Int("scale", 2, "output pixels per working texel")
		spacing   = flag.Int("spacing", 8, "texels between probes")
		exposure  = flag.Float64("exposure", 1.5, "tonemap exposure")
		frames    = flag.Int("frames", 1, "number of frames to render")
		diag      = flag.String("diag", "", "write diagnostic PNGs with this path prefix")
		dump      = flag.String("dump", "", "write the scene as JSON to this file")
		verbose   = flag.Bool("v", false, "log per-frame debug output")
	)
	flag.Parse()

	if *verbose {
		gi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	snap := builtinScene()
	if *scenePath != "" {
		var err error
		if snap, err = scene.LoadFile(*scenePath); err != nil {
			log.Fatalf("Failed to load scene: %v", err)
		}
	}
	if *dump != "" {
		if err := dumpScene(snap, *dump); err != nil {
			log.Fatalf("Failed to write scene: %v", err)
		}
	}

	cfg := gi.DefaultConfig()
	cfg.Width, cfg.Height = *width, *height
	cfg.OutputScale = *scale
	cfg.ProbeSpacing = *spacing
	p, err := gi.NewPipeline(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	defer p.Close()

	for i := range max(*frames, 1) {
		snap.Seed = uint64(i) //nolint:gosec // frame index is non-negative
		buf, err := p.Render(snap)
		if err != nil {
			log.Fatalf("Render failed: %v", err)
		}
		path := frameName(*output, i, *frames)
		if err := buf.SavePNG(path, *exposure); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		st := p.Stats()
		log.Printf("Frame %d saved to %s (%dx%d, %d lights, %d rays, %v)\n",
			st.Frame, path, buf.Width(), buf.Height(), st.Lights, st.Rays, st.Total)
	}

	if *diag != "" {
		if err := saveDiagnostics(p, *diag, *exposure); err != nil {
			log.Fatalf("Failed to save diagnostics: %v", err)
		}
	}
}

// builtinScene places red, blue and green lights around a central box.
func builtinScene() *scene.Snapshot {
	flicker := scene.PointLight(scene.V2(0, 128), 320, scene.RGB{R: 0.3, G: 1, B: 0.3}, 1.2)
	flicker.JitterIntensity = 0.15
	flicker.JitterTranslation = 2

	wall := scene.RotatedBox(scene.V2(-150, 60), scene.V2(40, 6), 0.5)
	wall.Albedo = scene.RGB{R: 0.9, G: 0.6, B: 0.3}

	return &scene.Snapshot{
		Occluders: []scene.Occluder{
			scene.Box(scene.V2(0, 0), scene.V2(40, 20)),
			wall,
			scene.Polygon(scene.V2(140, 120), scene.V2(0, -24), scene.V2(21, 12), scene.V2(-21, 12)),
		},
		Lights: []scene.Light{
			scene.PointLight(scene.V2(-128, -128), 320, scene.RGB{R: 1, G: 0.25, B: 0.2}, 1.2),
			scene.PointLight(scene.V2(128, -128), 320, scene.RGB{R: 0.2, G: 0.35, B: 1}, 1.2),
			flicker,
		},
		Skylights:     []scene.Skylight{{Color: scene.RGB{R: 0.6, G: 0.7, B: 1}, Intensity: 0.05}},
		SkylightMasks: []scene.Mask{{Center: scene.V2(0, -200), HalfSize: scene.V2(256, 56)}},
	}
}

func frameName(output string, i, frames int) string {
	if frames <= 1 {
		return output
	}
	ext := filepath.Ext(output)
	return fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(output, ext), i, ext)
}

func dumpScene(snap *scene.Snapshot, path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return snap.WriteJSON(f)
}

func saveDiagnostics(p *gi.Pipeline, prefix string, exposure float64) error {
	d, err := p.Diagnostics(exposure)
	if err != nil {
		return err
	}
	images := []struct {
		name string
		save func(string) error
	}{
		{"occupancy", func(path string) error { return savePNG(path, d.Occupancy) }},
		{"distance", func(path string) error { return savePNG(path, d.DistanceField) }},
		{"probes", func(path string) error { return savePNG(path, d.Probes) }},
	}
	for _, img := range images {
		path := prefix + "_" + img.name + ".png"
		if err := img.save(path); err != nil {
			return fmt.Errorf("%s: %w", img.name, err)
		}
		log.Printf("Diagnostic saved to %s\n", path)
	}
	return nil
}
