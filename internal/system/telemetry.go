package system

import (
	"context"
	"time"

	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/persist"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// TelemetrySink stores stepper telemetry. persist.TelemetryRepo
// implements it.
type TelemetrySink interface {
	WriteSamples(ctx context.Context, samples []persist.StepSample) error
	WriteTimestepChanges(ctx context.Context, changes []persist.TimestepChange) error
}

// TelemetrySystem samples the stepper every frame and writes the samples
// in batches. Phase 6 (Persist).
type TelemetrySystem struct {
	w          *physics.World
	sink       TelemetrySink
	flushEvery int
	timeout    time.Duration
	log        *zap.Logger

	frame   uint64
	samples []persist.StepSample
	changes []persist.TimestepChange
}

func NewTelemetrySystem(w *physics.World, sink TelemetrySink, flushEvery int, timeout time.Duration, log *zap.Logger) *TelemetrySystem {
	if flushEvery < 1 {
		flushEvery = 1
	}
	return &TelemetrySystem{
		w:          w,
		sink:       sink,
		flushEvery: flushEvery,
		timeout:    timeout,
		log:        log,
		samples:    make([]persist.StepSample, 0, flushEvery),
	}
}

func (s *TelemetrySystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *TelemetrySystem) Setup() error {
	event.Subscribe(s.w.Bus, func(ev physics.TimestepChanged) {
		// Published last frame.
		s.changes = append(s.changes, persist.TimestepChange{
			Frame: s.frame, From: ev.From, To: ev.To, Index: ev.Index,
		})
	})
	return nil
}

func (s *TelemetrySystem) Update(_ time.Duration) {
	s.frame++
	if s.w.Timestep != nil {
		snap := s.w.Timestep.Snapshot()
		s.samples = append(s.samples, persist.StepSample{
			Frame:       s.frame,
			Mode:        snap.Mode.String(),
			Target:      snap.Target,
			Index:       snap.Index,
			FrameSteps:  snap.FrameSteps,
			GlobalSteps: snap.GlobalSteps,
			Accumulator: snap.Accumulator,
			AvgStepCost: snap.AvgStepCost,
			RunningSlow: snap.RunningSlow,
			RunningFast: snap.RunningFast,
			Bodies:      s.w.Registry.NumBodies(),
			Colliders:   s.w.Registry.NumColliders(),
			Joints:      s.w.Registry.NumJoints(),
		})
	}
	if len(s.samples) >= s.flushEvery {
		s.Flush()
	}
}

// Flush writes everything buffered. Failed batches are dropped so a
// database outage cannot grow the buffers without bound. Also called on
// shutdown.
func (s *TelemetrySystem) Flush() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.sink.WriteTimestepChanges(ctx, s.changes); err != nil {
		s.log.Error("write timestep changes", zap.Int("count", len(s.changes)), zap.Error(err))
	}
	s.changes = s.changes[:0]

	if err := s.sink.WriteSamples(ctx, s.samples); err != nil {
		s.log.Error("write stepper samples", zap.Int("count", len(s.samples)), zap.Error(err))
	}
	s.samples = s.samples[:0]
}
