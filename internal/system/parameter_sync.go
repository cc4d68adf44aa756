package system

import (
	"time"

	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// ParameterSyncSystem writes the desired simulation parameters into the
// engine, touching only the fields that differ. Some engines drop solver
// caches on every write. Phase 3 (Physics).
type ParameterSyncSystem struct {
	w   *physics.World
	log *zap.Logger
}

func NewParameterSyncSystem(w *physics.World, log *zap.Logger) *ParameterSyncSystem {
	return &ParameterSyncSystem{w: w, log: log}
}

func (s *ParameterSyncSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *ParameterSyncSystem) Update(_ time.Duration) {
	p := s.w.Parameters
	if p == nil {
		return
	}
	eng := s.w.Engine

	if g := eng.Gravity(); p.Gravity != nil && *p.Gravity != g {
		s.log.Debug("gravity changed", zap.Float64s("from", g[:]), zap.Float64s("to", p.Gravity[:]))
		eng.SetGravity(*p.Gravity)
	}
	if p.Integration != nil && *p.Integration != eng.IntegrationParameters() {
		s.log.Debug("integration parameters changed")
		eng.SetIntegrationParameters(*p.Integration)
	}
	if p.Profiling != nil && *p.Profiling != eng.ProfilingEnabled() {
		s.log.Debug("profiling toggled", zap.Bool("enabled", *p.Profiling))
		eng.SetProfilingEnabled(*p.Profiling)
	}
}
