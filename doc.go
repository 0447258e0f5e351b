// Package gi computes real-time 2D global illumination for tile and sprite
// scenes.
//
// # Overview
//
// Every frame a Pipeline turns a scene.Snapshot (opaque occluders, point
// lights, optional sky light) into a full-resolution irradiance buffer with
// soft shadows, colored light and one bounce of indirect light. The host
// composites the buffer over its own scene render.
//
// # Quick Start
//
//	p, err := gi.NewPipeline(gi.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	snap := &scene.Snapshot{
//	    Occluders: []scene.Occluder{scene.Box(scene.V2(0, 0), scene.V2(40, 20))},
//	    Lights:    []scene.Light{scene.PointLight(scene.V2(-100, 0), 200, scene.White, 1)},
//	}
//	buf, err := p.Render(snap)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	buf.SavePNG("light.png", 1)
//
// # Stages
//
// Render runs five stages in order, each split across a worker pool and
// separated by a barrier:
//
//  1. Occluder rasterizer: occluders to an occupancy grid (union, order independent)
//  2. Distance field builder: exact signed Euclidean distance transform
//  3. Probe sampler: sphere tracing toward every light, then one bounce
//  4. Denoise: confidence-weighted Gaussian over neighboring probes
//  5. Upsampler: bilinear reconstruction that refuses to look through walls
//
// Every frame is recomputed from scratch. Rendering the same snapshot twice
// gives bit-identical output.
//
// # Configuration
//
// Config fixes the working resolution, the probe spacing and the output
// scale, together called the Layout, plus the tracing, bounce and denoise
// parameters. Config.Validate rejects a zero resolution, a probe spacing
// that does not divide it and an output scale below 1 before any frame
// runs. Reconfigure changes parameters between frames and reallocates
// every grid when the layout changes.
//
// # GPU Acceleration
//
// The distance field can be built on the GPU by importing the gpu package:
//
//	import _ "github.com/gogpu/gi/gpu"
//
// When no GPU is available, or the accelerator declines a frame, the CPU
// builder runs instead. Both produce the same field up to float rounding.
//
// # Logging
//
// gi is silent by default. SetLogger installs a log/slog logger that also
// reaches the GPU accelerator.
package gi
