package system

import (
	"time"

	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/geom"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// ColliderSyncSystem pushes Collider changes into the engine, attaching each
// collider to its own body, its Parent's body, or the ground.
// Runs after BodySyncSystem. Phase 3 (Physics).
type ColliderSyncSystem struct {
	w   *physics.World
	log *zap.Logger

	colliderReader *ecs.ReaderID
	poseReader     *ecs.ReaderID
	bodyReader     *ecs.ReaderID

	// attached remembers the parent each registered collider was created on.
	attached map[ecs.EntityID]engine.BodyPartHandle
}

func NewColliderSyncSystem(w *physics.World, log *zap.Logger) *ColliderSyncSystem {
	return &ColliderSyncSystem{
		w:        w,
		log:      log,
		attached: make(map[ecs.EntityID]engine.BodyPartHandle),
	}
}

func (s *ColliderSyncSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *ColliderSyncSystem) Setup() error {
	s.colliderReader = s.w.Colliders.RegisterReader()
	s.poseReader = s.w.Poses.RegisterReader()
	s.bodyReader = s.w.Bodies.RegisterReader()
	return nil
}

func (s *ColliderSyncSystem) Update(_ time.Duration) {
	colliders := physics.Drain(s.w.Colliders, s.colliderReader)
	poses := physics.Drain(s.w.Poses, s.poseReader)
	bodies := physics.Drain(s.w.Bodies, s.bodyReader)

	cascaded := make(physics.EntitySet)
	for _, id := range s.w.TakeRequeuedColliders() {
		cascaded[id] = struct{}{}
		delete(s.attached, id)
	}

	for _, id := range colliders.Removed.Sorted() {
		s.remove(id, cascaded.Has(id))
	}

	// Colliders the engine dropped with their body, and ground colliders
	// whose entity or Parent just gained a body, are attached anew.
	reinsert := make(physics.EntitySet, len(cascaded))
	for id := range cascaded {
		reinsert[id] = struct{}{}
	}
	if len(bodies.Inserted) > 0 {
		for id, parent := range s.attached {
			if !parent.IsGround() {
				continue
			}
			if bodies.Inserted.Has(id) {
				reinsert[id] = struct{}{}
				continue
			}
			if p, ok := s.w.Parents.Get(id); ok && bodies.Inserted.Has(p.Entity) {
				reinsert[id] = struct{}{}
			}
		}
	}

	for _, id := range unionSorted(colliders.Inserted, reinsert) {
		if c, ok := s.w.Colliders.Get(id); ok {
			s.insert(id, c)
		}
	}

	for _, id := range colliders.Modified.Sorted() {
		if colliders.Inserted.Has(id) || reinsert.Has(id) {
			continue
		}
		if c, ok := s.w.Colliders.Get(id); ok {
			s.modify(id, c)
		}
	}

	// Ground colliders follow their entity's pose.
	for _, id := range unionSorted(poses.Modified, poses.Inserted) {
		if colliders.Inserted.Has(id) || colliders.Modified.Has(id) || reinsert.Has(id) {
			continue
		}
		parent, ok := s.attached[id]
		if !ok || !parent.IsGround() {
			continue
		}
		c, ok := s.w.Colliders.Get(id)
		if !ok {
			continue
		}
		if h, ok := s.w.Registry.Collider(id); ok {
			s.w.Engine.SetColliderPosition(h, s.placement(id, c, parent))
		}
	}
}

// resolveParent picks the body part a collider attaches to: the entity's
// own body, then its Parent's body, then the ground.
func (s *ColliderSyncSystem) resolveParent(id ecs.EntityID) engine.BodyPartHandle {
	if h, ok := s.w.Registry.Body(id); ok {
		return engine.BodyPartHandle{Body: h}
	}
	if p, ok := s.w.Parents.Get(id); ok && s.w.ECS.Alive(p.Entity) {
		if h, ok := s.w.Registry.Body(p.Entity); ok {
			return engine.BodyPartHandle{Body: h}
		}
	}
	return engine.GroundPart()
}

// placement is the collider position relative to its parent. Ground has no
// frame of its own, so ground colliders are placed at pose ∘ offset.
func (s *ColliderSyncSystem) placement(id ecs.EntityID, c *component.Collider, parent engine.BodyPartHandle) geom.Isometry {
	if !parent.IsGround() {
		return c.OffsetFromParent
	}
	if pose, ok := s.w.Poses.Get(id); ok {
		return pose.Isometry.Mul(c.OffsetFromParent)
	}
	return c.OffsetFromParent
}

func queryType(c *component.Collider) engine.QueryType {
	if c.Sensor {
		return engine.ProximityQuery(c.LinearPrediction * 0.5)
	}
	return engine.Contacts(c.Margin+c.LinearPrediction*0.5, c.AngularPrediction)
}

func (s *ColliderSyncSystem) insert(id ecs.EntityID, c *component.Collider) {
	if old, ok := s.w.Registry.UnregisterCollider(id); ok {
		s.log.Debug("replacing stale collider", zap.Stringer("entity", id), zap.Uint32("handle", uint32(old)))
		s.w.Engine.RemoveColliders([]engine.ColliderHandle{old})
	}

	parent := s.resolveParent(id)
	h := s.w.Engine.AddCollider(engine.ColliderDesc{
		Shape:    c.Shape,
		Parent:   parent,
		Position: s.placement(id, c, parent),
		Margin:   c.Margin,
		Density:  c.Density,
		Material: c.Material,
		Sensor:   c.Sensor,
		UserData: uint64(id),
	})
	if err := s.w.Registry.RegisterCollider(id, h); err != nil {
		s.log.DPanic("register collider", zap.Stringer("entity", id), zap.Error(err))
		return
	}
	s.attached[id] = parent
	s.w.Engine.SetCollisionGroups(h, c.Groups)
	s.w.Engine.SetQueryType(h, queryType(c))
}

func (s *ColliderSyncSystem) modify(id ecs.EntityID, c *component.Collider) {
	h, ok := s.w.Registry.Collider(id)
	if !ok {
		s.log.Warn("modified collider has no handle",
			zap.Stringer("entity", id), zap.Error(physics.ErrMissingHandle))
		return
	}
	parent, ok := s.attached[id]
	if !ok {
		parent = s.resolveParent(id)
	}
	s.w.Engine.SetCollisionGroups(h, c.Groups)
	s.w.Engine.SetColliderShape(h, c.Shape)
	s.w.Engine.SetColliderPosition(h, s.placement(id, c, parent))
	s.w.Engine.SetQueryType(h, queryType(c))
	s.w.Engine.SetColliderMaterial(h, c.Material)
}

func (s *ColliderSyncSystem) remove(id ecs.EntityID, cascaded bool) {
	delete(s.attached, id)
	h, ok := s.w.Registry.UnregisterCollider(id)
	if !ok {
		if !cascaded {
			s.log.Warn("collider removed without a registered handle", zap.Stringer("entity", id))
		}
		return
	}
	s.w.Engine.RemoveColliders([]engine.ColliderHandle{h})
}
