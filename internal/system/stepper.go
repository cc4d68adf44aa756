package system

import (
	"time"

	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// StepperSystem advances the engine by as many target-sized steps as the
// accumulated frame time covers, adapting the target on a semi-fixed
// ladder. Runs last in Phase 3 (Physics).
type StepperSystem struct {
	w   *physics.World
	log *zap.Logger
}

func NewStepperSystem(w *physics.World, log *zap.Logger) *StepperSystem {
	return &StepperSystem{w: w, log: log}
}

func (s *StepperSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *StepperSystem) Setup() error {
	if s.w.Timestep == nil {
		return physics.ErrInvalidTimestep
	}
	return nil
}

func (s *StepperSystem) Update(dt time.Duration) {
	ts := s.w.Timestep
	eng := s.w.Engine

	changed, err := ts.Adapt()
	if err != nil {
		s.log.Error("physics stepping cannot adapt further", zap.Error(err),
			zap.Duration("target", ts.Target()), zap.Duration("avg_step_cost", ts.AvgStepCost()))
	}
	if changed {
		s.log.Info("physics timestep adjusted",
			zap.Int("index", ts.Index()), zap.Duration("target", ts.Target()))
	}

	if from := eng.Timestep(); ts.Differs(from) {
		eng.SetTimestep(ts.Target())
		// Step costs measured at another timestep are not comparable.
		ts.ResetCost()
		event.Emit(s.w.Bus, physics.TimestepChanged{From: from, To: ts.Target(), Index: ts.Index()})
	}

	rep := ts.Advance(dt, func() {
		eng.Step()
		s.w.CollectEngineEvents()
	})
	if rep.Slow {
		s.log.Warn("physics running slow",
			zap.Int("steps", rep.Steps), zap.Duration("behind", ts.Accumulator()))
	}
	if rep.Postponed {
		s.log.Debug("physics steps postponed to next frame",
			zap.Int("steps", rep.Steps), zap.Duration("behind", ts.Accumulator()))
	}
}
