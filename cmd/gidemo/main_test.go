package main

import "testing"

func TestFrameName(t *testing.T) {
	tests := []struct {
		output string
		i      int
		frames int
		want   string
	}{
		{"light.png", 0, 1, "light.png"},
		{"light.png", 3, 10, "light_003.png"},
		{"out/anim", 12, 20, "out/anim_012"},
	}
	for _, tt := range tests {
		if got := frameName(tt.output, tt.i, tt.frames); got != tt.want {
			t.Errorf("frameName(%q, %d, %d) = %q, want %q", tt.output, tt.i, tt.frames, got, tt.want)
		}
	}
}

func TestBuiltinSceneResolves(t *testing.T) {
	snap := builtinScene()
	if n := len(snap.Resolve().Lights); n != 3 {
		t.Errorf("resolved %d lights, want 3", n)
	}
	for i, o := range snap.Occluders {
		if o.Degenerate() {
			t.Errorf("occluder %d is degenerate", i)
		}
	}
}
