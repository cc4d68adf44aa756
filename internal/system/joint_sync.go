package system

import (
	"time"

	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// JointSyncSystem pushes Joint changes into the engine and publishes a
// physics.JointEvent with the engine's actual anchors for every insertion
// and removal. Runs after BodySyncSystem. Phase 3 (Physics).
type JointSyncSystem struct {
	w      *physics.World
	log    *zap.Logger
	reader *ecs.ReaderID
}

func NewJointSyncSystem(w *physics.World, log *zap.Logger) *JointSyncSystem {
	return &JointSyncSystem{w: w, log: log}
}

func (s *JointSyncSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *JointSyncSystem) Setup() error {
	s.reader = s.w.Joints.RegisterReader()
	return nil
}

func (s *JointSyncSystem) Update(_ time.Duration) {
	joints := physics.Drain(s.w.Joints, s.reader)

	cascaded := make(physics.EntitySet)
	for _, id := range s.w.TakeRequeuedJoints() {
		cascaded[id] = struct{}{}
	}

	for _, id := range joints.Removed.Sorted() {
		if !s.remove(id) && !cascaded.Has(id) {
			s.log.Warn("joint removed without a registered handle", zap.Stringer("entity", id))
		}
	}

	for _, id := range unionSorted(joints.Inserted, cascaded) {
		if j, ok := s.w.Joints.Get(id); ok {
			s.insert(id, j)
		}
	}

	// Joints cannot be edited in place: a modification is a replacement.
	for _, id := range joints.Modified.Sorted() {
		if joints.Inserted.Has(id) || cascaded.Has(id) {
			continue
		}
		if j, ok := s.w.Joints.Get(id); ok {
			s.insert(id, j)
		}
	}
}

func (s *JointSyncSystem) resolve(ref component.BodyPartRef) (engine.BodyPartHandle, bool) {
	if !s.w.ECS.Alive(ref.Entity) {
		return engine.BodyPartHandle{}, false
	}
	h, ok := s.w.Registry.Body(ref.Entity)
	if !ok {
		return engine.BodyPartHandle{}, false
	}
	return engine.BodyPartHandle{Body: h, Part: ref.Part}, true
}

func (s *JointSyncSystem) insert(id ecs.EntityID, j *component.Joint) {
	s.remove(id)

	b1, ok1 := s.resolve(j.Body1)
	b2, ok2 := s.resolve(j.Body2)
	if !ok1 || !ok2 {
		s.log.Warn("joint target has no body",
			zap.Stringer("entity", id),
			zap.Stringer("body1", j.Body1.Entity), zap.Bool("body1_found", ok1),
			zap.Stringer("body2", j.Body2.Entity), zap.Bool("body2_found", ok2))
		return
	}

	h := s.w.Engine.AddJoint(engine.JointDesc{
		Kind:    j.Kind,
		Body1:   b1,
		Body2:   b2,
		Anchor1: j.Anchor1,
		Anchor2: j.Anchor2,
		Axis:    j.Axis,
	})
	if err := s.w.Registry.RegisterJoint(id, h); err != nil {
		s.log.DPanic("register joint", zap.Stringer("entity", id), zap.Error(err))
		return
	}
	a1, a2, _ := s.w.Engine.JointAnchors(h)
	event.Emit(s.w.Bus, physics.JointEvent{Entity: id, Handle: h, Body1: a1, Body2: a2, Type: physics.JointInserted})
}

// remove drops the entity's joint if it has one and reports whether it did.
func (s *JointSyncSystem) remove(id ecs.EntityID) bool {
	h, ok := s.w.Registry.UnregisterJoint(id)
	if !ok {
		return false
	}
	a1, a2, _ := s.w.Engine.JointAnchors(h)
	s.w.Engine.RemoveJoints([]engine.JointHandle{h})
	event.Emit(s.w.Bus, physics.JointEvent{Entity: id, Handle: h, Body1: a1, Body2: a2, Type: physics.JointRemoved})
	return true
}
