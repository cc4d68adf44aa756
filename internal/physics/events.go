package physics

import (
	"time"

	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/engine"
)

// ContactEvent is an engine contact event re-keyed by entity.
type ContactEvent struct {
	Entity1 ecs.EntityID
	Entity2 ecs.EntityID
	Type    engine.ContactEventType
}

// ProximityEvent is an engine proximity event re-keyed by entity.
type ProximityEvent struct {
	Entity1 ecs.EntityID
	Entity2 ecs.EntityID
	Prev    engine.Proximity
	New     engine.Proximity
}

type JointEventType uint8

const (
	JointInserted JointEventType = iota
	JointRemoved
)

// JointEvent records the body parts the engine actually bound (or
// released) for a joint entity.
type JointEvent struct {
	Entity ecs.EntityID
	Handle engine.JointHandle
	Body1  engine.BodyPartHandle
	Body2  engine.BodyPartHandle
	Type   JointEventType
}

// TimestepChanged is published when the stepper pushes a new timestep into
// the engine.
type TimestepChanged struct {
	From  time.Duration
	To    time.Duration
	Index int
}
