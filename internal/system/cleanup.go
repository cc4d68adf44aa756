package system

import (
	"time"

	"github.com/l1jgo/physync/internal/core/ecs"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"go.uber.org/zap"
)

// CleanupSystem destroys the entities marked during the frame. The sync
// stages see the resulting Removed events next frame, after the engine
// has produced this frame's events for them.
// Phase 7 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if s.world.Doomed() == 0 {
		return
	}
	if n := s.world.FlushDestroyQueue(); n > 0 {
		s.log.Debug("entities destroyed", zap.Int("count", n))
	}
}
