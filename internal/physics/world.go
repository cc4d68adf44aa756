package physics

import (
	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	"github.com/l1jgo/physync/internal/engine"
)

// World bundles the resources the sync stages share: the ECS world and
// its physics component stores, the engine, the handle registry, the
// stepper state and the event bus.
// Accessed only from the game loop goroutine.
type World struct {
	ECS    *ecs.World
	Bus    *event.Bus
	Engine engine.Engine

	Registry   *Registry
	Timestep   *Timestep
	Parameters *Parameters

	Poses     *ecs.TrackedStore[component.Pose]
	Bodies    *ecs.TrackedStore[component.Body]
	Colliders *ecs.TrackedStore[component.Collider]
	Joints    *ecs.TrackedStore[component.Joint]
	Parents   *ecs.PlainStore[component.Parent]
	Forces    *ecs.PlainStore[component.ForceGenerator]

	requeuedColliders []ecs.EntityID
	requeuedJoints    []ecs.EntityID

	contacts    []engine.ContactEvent
	proximities []engine.ProximityEvent
}

// NewWorld creates the physics component stores and registers them with
// the ECS world so entity destruction emits Removed events.
func NewWorld(w *ecs.World, bus *event.Bus, eng engine.Engine, ts *Timestep) *World {
	pw := &World{
		ECS:        w,
		Bus:        bus,
		Engine:     eng,
		Registry:   NewRegistry(),
		Timestep:   ts,
		Parameters: &Parameters{},
		Poses:      ecs.NewTrackedStore[component.Pose](),
		Bodies:     ecs.NewTrackedStore[component.Body](),
		Colliders:  ecs.NewTrackedStore[component.Collider](),
		Joints:     ecs.NewTrackedStore[component.Joint](),
		Parents:    ecs.NewPlainStore[component.Parent](),
		Forces:     ecs.NewPlainStore[component.ForceGenerator](),
	}
	reg := w.Registry()
	reg.Register("pose", pw.Poses)
	reg.Register("body", pw.Bodies)
	reg.Register("collider", pw.Colliders)
	reg.Register("joint", pw.Joints)
	reg.Register("parent", pw.Parents)
	reg.Register("force", pw.Forces)
	return pw
}

// RequeueCollider schedules a collider the engine dropped along with its
// body for re-insertion by the collider stage.
func (w *World) RequeueCollider(id ecs.EntityID) {
	w.requeuedColliders = append(w.requeuedColliders, id)
}

func (w *World) RequeueJoint(id ecs.EntityID) {
	w.requeuedJoints = append(w.requeuedJoints, id)
}

func (w *World) TakeRequeuedColliders() []ecs.EntityID {
	out := w.requeuedColliders
	w.requeuedColliders = nil
	return out
}

func (w *World) TakeRequeuedJoints() []ecs.EntityID {
	out := w.requeuedJoints
	w.requeuedJoints = nil
	return out
}

// CollectEngineEvents copies the events of the engine's last step into the
// frame buffer. Called by the stepper after every step.
func (w *World) CollectEngineEvents() {
	w.contacts = append(w.contacts, w.Engine.ContactEvents()...)
	w.proximities = append(w.proximities, w.Engine.ProximityEvents()...)
}

// TakeEngineEvents returns and clears the frame's buffered engine events.
func (w *World) TakeEngineEvents() ([]engine.ContactEvent, []engine.ProximityEvent) {
	c, p := w.contacts, w.proximities
	w.contacts, w.proximities = nil, nil
	return c, p
}

// EntityFromUserData resolves collider user data to a live entity.
func (w *World) EntityFromUserData(data uint64) (ecs.EntityID, bool) {
	id := ecs.EntityID(data)
	if id.IsZero() || !w.ECS.Alive(id) {
		return 0, false
	}
	return id, true
}
