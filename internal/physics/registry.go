package physics

import (
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/engine"
)

type handleMap[H ~uint32] struct {
	byEntity map[ecs.EntityID]H
	byHandle map[H]ecs.EntityID
}

func newHandleMap[H ~uint32]() handleMap[H] {
	return handleMap[H]{
		byEntity: make(map[ecs.EntityID]H),
		byHandle: make(map[H]ecs.EntityID),
	}
}

func (m handleMap[H]) register(kind HandleKind, id ecs.EntityID, h H) error {
	if old, ok := m.byEntity[id]; ok {
		return &DuplicateHandleError{Kind: kind, Entity: id, Existing: uint32(old)}
	}
	m.byEntity[id] = h
	m.byHandle[h] = id
	return nil
}

func (m handleMap[H]) lookup(id ecs.EntityID) (H, bool) {
	h, ok := m.byEntity[id]
	return h, ok
}

func (m handleMap[H]) entity(h H) (ecs.EntityID, bool) {
	id, ok := m.byHandle[h]
	return id, ok
}

func (m handleMap[H]) unregister(id ecs.EntityID) (H, bool) {
	h, ok := m.byEntity[id]
	if !ok {
		return 0, false
	}
	delete(m.byEntity, id)
	delete(m.byHandle, h)
	return h, true
}

func (m handleMap[H]) forget(h H) (ecs.EntityID, bool) {
	id, ok := m.byHandle[h]
	if !ok {
		return 0, false
	}
	delete(m.byHandle, h)
	delete(m.byEntity, id)
	return id, true
}

// Registry maps entities to the engine handles created for them.
// Every handle it holds is live in the engine; sync stages keep it that way
// by unregistering in the same pass that removes the engine object.
// Written only by the sync stages.
type Registry struct {
	bodies    handleMap[engine.BodyHandle]
	colliders handleMap[engine.ColliderHandle]
	joints    handleMap[engine.JointHandle]
}

func NewRegistry() *Registry {
	return &Registry{
		bodies:    newHandleMap[engine.BodyHandle](),
		colliders: newHandleMap[engine.ColliderHandle](),
		joints:    newHandleMap[engine.JointHandle](),
	}
}

func (r *Registry) RegisterBody(id ecs.EntityID, h engine.BodyHandle) error {
	return r.bodies.register(KindBody, id, h)
}

func (r *Registry) RegisterCollider(id ecs.EntityID, h engine.ColliderHandle) error {
	return r.colliders.register(KindCollider, id, h)
}

func (r *Registry) RegisterJoint(id ecs.EntityID, h engine.JointHandle) error {
	return r.joints.register(KindJoint, id, h)
}

func (r *Registry) Body(id ecs.EntityID) (engine.BodyHandle, bool) { return r.bodies.lookup(id) }
func (r *Registry) Collider(id ecs.EntityID) (engine.ColliderHandle, bool) {
	return r.colliders.lookup(id)
}
func (r *Registry) Joint(id ecs.EntityID) (engine.JointHandle, bool) { return r.joints.lookup(id) }

func (r *Registry) UnregisterBody(id ecs.EntityID) (engine.BodyHandle, bool) {
	return r.bodies.unregister(id)
}

func (r *Registry) UnregisterCollider(id ecs.EntityID) (engine.ColliderHandle, bool) {
	return r.colliders.unregister(id)
}

func (r *Registry) UnregisterJoint(id ecs.EntityID) (engine.JointHandle, bool) {
	return r.joints.unregister(id)
}

func (r *Registry) BodyEntity(h engine.BodyHandle) (ecs.EntityID, bool) { return r.bodies.entity(h) }

func (r *Registry) ColliderEntity(h engine.ColliderHandle) (ecs.EntityID, bool) {
	return r.colliders.entity(h)
}

func (r *Registry) JointEntity(h engine.JointHandle) (ecs.EntityID, bool) { return r.joints.entity(h) }

// ForgetCollider drops a collider the engine already removed (cascade from
// a body removal) and returns the entity that owned it.
func (r *Registry) ForgetCollider(h engine.ColliderHandle) (ecs.EntityID, bool) {
	return r.colliders.forget(h)
}

// ForgetJoint is the joint counterpart of ForgetCollider.
func (r *Registry) ForgetJoint(h engine.JointHandle) (ecs.EntityID, bool) {
	return r.joints.forget(h)
}

func (r *Registry) NumBodies() int    { return len(r.bodies.byEntity) }
func (r *Registry) NumColliders() int { return len(r.colliders.byEntity) }
func (r *Registry) NumJoints() int    { return len(r.joints.byEntity) }

// EachBody visits every registered body. Order is unspecified.
func (r *Registry) EachBody(fn func(ecs.EntityID, engine.BodyHandle)) {
	for id, h := range r.bodies.byEntity {
		fn(id, h)
	}
}
