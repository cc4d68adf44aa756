package system

import (
	"time"

	"github.com/l1jgo/physync/internal/core/ecs"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/physics"
)

// PoseSystem copies simulated body positions back into Pose, and velocity
// and mass properties back into Body. Writes go through the unflagged
// accessors so they do not feed back into BodySyncSystem.
// Phase 4 (PostPhysics).
type PoseSystem struct {
	w *physics.World
}

func NewPoseSystem(w *physics.World) *PoseSystem {
	return &PoseSystem{w: w}
}

func (s *PoseSystem) Phase() coresys.Phase { return coresys.PhasePostPhysics }

func (s *PoseSystem) Update(_ time.Duration) {
	s.w.Registry.EachBody(func(id ecs.EntityID, h engine.BodyHandle) {
		if h == engine.Ground {
			return
		}
		eb, ok := s.w.Engine.Body(h)
		if !ok || !eb.IsDynamic() || !eb.IsActive() {
			return
		}
		if pose, ok := s.w.Poses.Get(id); ok {
			pose.Isometry = eb.Position
		}
		if body, ok := s.w.Bodies.Get(id); ok {
			body.LinearVelocity = eb.LinearVelocity
			body.AngularVelocity = eb.AngularVelocity
			body.Mass = eb.Mass
			body.AngularInertia = eb.AngularInertia
			body.LocalCenterOfMass = eb.LocalCenterOfMass
		}
	})
}
