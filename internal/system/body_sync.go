package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// BodySyncSystem pushes Body and Pose changes into the engine.
// Phase 3 (Physics).
type BodySyncSystem struct {
	w   *physics.World
	log *zap.Logger

	poseReader *ecs.ReaderID
	bodyReader *ecs.ReaderID
}

func NewBodySyncSystem(w *physics.World, log *zap.Logger) *BodySyncSystem {
	return &BodySyncSystem{w: w, log: log}
}

func (s *BodySyncSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *BodySyncSystem) Setup() error {
	s.poseReader = s.w.Poses.RegisterReader()
	s.bodyReader = s.w.Bodies.RegisterReader()
	return nil
}

func (s *BodySyncSystem) Update(_ time.Duration) {
	poses := physics.Drain(s.w.Poses, s.poseReader)
	bodies := physics.Drain(s.w.Bodies, s.bodyReader)

	for _, id := range unionSorted(poses.Removed, bodies.Removed) {
		if s.w.Bodies.Has(id) && s.w.Poses.Has(id) && !bodies.Inserted.Has(id) && !poses.Inserted.Has(id) {
			continue
		}
		s.remove(id, bodies.Removed.Has(id))
	}

	for _, id := range unionSorted(poses.Inserted, bodies.Inserted) {
		s.insert(id)
	}

	for _, id := range unionSorted(poses.Modified, bodies.Modified) {
		if poses.Inserted.Has(id) || bodies.Inserted.Has(id) {
			continue
		}
		s.modify(id, poses.Modified.Has(id))
	}
}

// remove drops the engine body of an entity that lost its Body or Pose.
// A missing handle is only worth a warning when the Body itself went away;
// pose-only entities never had one.
func (s *BodySyncSystem) remove(id ecs.EntityID, bodyRemoved bool) {
	h, ok := s.w.Registry.UnregisterBody(id)
	if !ok {
		if bodyRemoved {
			s.log.Warn("body removed without a registered handle", zap.Stringer("entity", id))
		}
		return
	}
	s.removeEngineBody(h)
}

func (s *BodySyncSystem) removeEngineBody(h engine.BodyHandle) {
	removal := s.w.Engine.RemoveBodies([]engine.BodyHandle{h})
	mirrorCascade(s.w, removal)
}

func (s *BodySyncSystem) insert(id ecs.EntityID) {
	body, ok := s.w.Bodies.Get(id)
	if !ok {
		return
	}
	pose, ok := s.w.Poses.Get(id)
	if !ok {
		return
	}
	if old, ok := s.w.Registry.UnregisterBody(id); ok {
		s.log.Debug("replacing stale body", zap.Stringer("entity", id), zap.Uint32("handle", uint32(old)))
		s.removeEngineBody(old)
	}

	h := s.w.Engine.AddBody(engine.BodyDesc{
		Status:            body.Status,
		Position:          pose.Isometry,
		LinearVelocity:    body.LinearVelocity,
		AngularVelocity:   body.AngularVelocity,
		Mass:              body.Mass,
		AngularInertia:    body.AngularInertia,
		LocalCenterOfMass: body.LocalCenterOfMass,
		GravityEnabled:    body.GravityEnabled,
	})
	if err := s.w.Registry.RegisterBody(id, h); err != nil {
		s.log.DPanic("register body", zap.Stringer("entity", id), zap.Error(err))
		return
	}
	if eb, ok := s.w.Engine.Body(h); ok {
		applyPendingForce(eb, body)
	}
}

func (s *BodySyncSystem) modify(id ecs.EntityID, poseChanged bool) {
	body, ok := s.w.Bodies.Get(id)
	if !ok {
		return
	}
	pose, ok := s.w.Poses.Get(id)
	if !ok {
		return
	}
	h, ok := s.w.Registry.Body(id)
	if !ok {
		s.log.DPanic("modified body has no handle",
			zap.Stringer("entity", id), zap.Error(physics.ErrMissingHandle))
		return
	}
	eb, ok := s.w.Engine.Body(h)
	if !ok {
		s.log.DPanic("registered body missing from engine",
			zap.Stringer("entity", id), zap.Uint32("handle", uint32(h)))
		return
	}

	eb.GravityEnabled = body.GravityEnabled
	eb.Status = body.Status
	eb.LinearVelocity = body.LinearVelocity
	eb.AngularVelocity = body.AngularVelocity
	eb.AngularInertia = body.AngularInertia
	eb.Mass = body.Mass
	eb.LocalCenterOfMass = body.LocalCenterOfMass
	applyPendingForce(eb, body)

	if poseChanged {
		eb.Position = pose.Isometry
		eb.Sleeping = false
	}
}

// applyPendingForce hands the frame's accumulated force to the engine and
// clears it on the component without flagging a modification.
func applyPendingForce(eb *engine.Body, body *component.Body) {
	if body.ExternalForce.Len() == 0 && body.ExternalTorque.Len() == 0 {
		return
	}
	eb.ApplyForce(body.ExternalForce, body.ExternalTorque)
	body.ExternalForce = mgl64.Vec3{}
	body.ExternalTorque = mgl64.Vec3{}
}

// mirrorCascade unregisters colliders and joints the engine removed along
// with a body, and queues them so their stages can re-resolve them.
// Every cascaded joint gets its JointRemoved event here.
func mirrorCascade(w *physics.World, removal engine.Removal) {
	for _, ch := range removal.Colliders {
		if id, ok := w.Registry.ForgetCollider(ch); ok {
			w.RequeueCollider(id)
		}
	}
	for _, rj := range removal.Joints {
		id, ok := w.Registry.ForgetJoint(rj.Handle)
		if !ok {
			continue
		}
		event.Emit(w.Bus, physics.JointEvent{
			Entity: id, Handle: rj.Handle, Body1: rj.Body1, Body2: rj.Body2, Type: physics.JointRemoved,
		})
		w.RequeueJoint(id)
	}
}

func unionSorted(a, b physics.EntitySet) []ecs.EntityID {
	u := make(physics.EntitySet, len(a)+len(b))
	for id := range a {
		u[id] = struct{}{}
	}
	for id := range b {
		u[id] = struct{}{}
	}
	return u.Sorted()
}
