package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/component"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/persist"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

type memorySink struct {
	samples []persist.StepSample
	changes []persist.TimestepChange
	writes  int
	err     error
}

func (m *memorySink) WriteSamples(_ context.Context, s []persist.StepSample) error {
	m.writes++
	if m.err != nil {
		return m.err
	}
	m.samples = append(m.samples, s...)
	return nil
}

func (m *memorySink) WriteTimestepChanges(_ context.Context, c []persist.TimestepChange) error {
	if m.err != nil {
		return m.err
	}
	m.changes = append(m.changes, c...)
	return nil
}

func withTelemetry(sink TelemetrySink, flushEvery int, sys **TelemetrySystem) extraSystem {
	return func(w *physics.World) (string, coresys.System) {
		*sys = NewTelemetrySystem(w, sink, flushEvery, time.Second, zap.NewNop())
		return "telemetry", *sys
	}
}

func TestTelemetry_BatchesSamples(t *testing.T) {
	sink := &memorySink{}
	var tel *TelemetrySystem
	h := newHarness(t, NewPhysicsBundle(mgl64.Vec3{}).WithFixedStepper(120), withTelemetry(sink, 3, &tel))
	h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Build())

	h.tick(7)
	if len(sink.samples) != 6 {
		t.Fatalf("flushed %d samples after 7 frames, want 6", len(sink.samples))
	}
	s := sink.samples[5]
	if s.Frame != 6 || s.FrameSteps != 2 || s.GlobalSteps != 12 || s.Bodies != 1 {
		t.Fatalf("sample %+v", s)
	}
	if s.Mode != "fixed" || s.Target != physics.HzToDuration(120) {
		t.Fatalf("sample mode %q target %v", s.Mode, s.Target)
	}

	// The timestep change of frame 1 is dispatched in frame 2.
	if len(sink.changes) != 1 || sink.changes[0].Frame != 1 || sink.changes[0].To != physics.HzToDuration(120) {
		t.Fatalf("changes %+v", sink.changes)
	}

	tel.Flush()
	if len(sink.samples) != 7 {
		t.Fatalf("samples after final flush %d, want 7", len(sink.samples))
	}
}

func TestTelemetry_FailedBatchIsDropped(t *testing.T) {
	sink := &memorySink{err: errors.New("database down")}
	var tel *TelemetrySystem
	h := newHarness(t, nil, withTelemetry(sink, 2, &tel))

	h.tick(4)
	if sink.writes != 2 {
		t.Fatalf("write attempts %d, want 2", sink.writes)
	}
	if len(tel.samples) != 0 {
		t.Fatalf("buffer holds %d samples after failed flushes", len(tel.samples))
	}

	sink.err = nil
	h.tick(2)
	if len(sink.samples) != 2 || sink.samples[0].Frame != 5 {
		t.Fatalf("samples %+v, want frames 5 and 6 only", sink.samples)
	}
}
