package gi

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gi/scene"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("key", "val")}).(nopHandler); !ok {
		t.Error("WithAttrs did not return a nopHandler")
	}
	if _, ok := h.WithGroup("group").(nopHandler); !ok {
		t.Error("WithGroup did not return a nopHandler")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger should not be enabled for %v", level)
		}
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)

	l := Logger()
	if l == nil {
		t.Fatal("SetLogger(nil) should set nop logger, not nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should produce a disabled logger")
	}
}

func TestSetLoggerPropagatesToAccelerator(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	m := &mockAccelerator{name: "logger-test"}
	registerMock(t, m)

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)
	if m.logger != custom {
		t.Error("SetLogger did not propagate to accelerator")
	}
}

func TestRegisterAcceleratorPropagatesCurrentLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)

	m := &mockAccelerator{name: "propagation-test"}
	registerMock(t, m)
	if m.logger != custom {
		t.Error("RegisterAccelerator did not propagate current logger to accelerator")
	}
}

func TestRenderLogs(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	cfg := testConfig()
	cfg.MaxLights = 1
	p := newTestPipeline(t, cfg)
	snap := centerLight()
	snap.Lights = append(snap.Lights, snap.Lights[0])
	mustRender(t, p, snap)

	out := buf.String()
	for _, want := range []string{"gi: pipeline created", "gi: frame", "too many lights"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "level=WARN") {
		t.Error("dropped lights were not logged at warn level")
	}
}

func TestLoggingDoesNotChangeOutput(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	snap := &scene.Snapshot{Lights: centerLight().Lights, Occluders: shadowScene().Occluders}
	quiet := newTestPipeline(t, testConfig())
	want := append([]float32(nil), mustRender(t, quiet, snap).Pix()...)

	SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})))
	loud := newTestPipeline(t, testConfig())
	got := mustRender(t, loud, snap).Pix()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Pix[%d] = %v with logging, %v without", i, got[i], want[i])
		}
	}
}
