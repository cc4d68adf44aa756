package system

import (
	"time"

	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// EventTranslationSystem re-keys the frame's engine contact and proximity
// events by entity and publishes them on the bus. Events whose colliders
// no longer resolve to a live entity are dropped.
// Phase 4 (PostPhysics).
type EventTranslationSystem struct {
	w   *physics.World
	log *zap.Logger
}

func NewEventTranslationSystem(w *physics.World, log *zap.Logger) *EventTranslationSystem {
	return &EventTranslationSystem{w: w, log: log}
}

func (s *EventTranslationSystem) Phase() coresys.Phase { return coresys.PhasePostPhysics }

func (s *EventTranslationSystem) Update(_ time.Duration) {
	contacts, proximities := s.w.TakeEngineEvents()

	for _, ev := range contacts {
		e1, e2, ok := s.entities(ev.Collider1, ev.Collider2)
		if !ok {
			s.log.Error("dropping contact event with unresolved collider",
				zap.Uint32("collider1", uint32(ev.Collider1)), zap.Uint32("collider2", uint32(ev.Collider2)),
				zap.Stringer("type", ev.Type))
			continue
		}
		event.Emit(s.w.Bus, physics.ContactEvent{Entity1: e1, Entity2: e2, Type: ev.Type})
	}

	for _, ev := range proximities {
		e1, e2, ok := s.entities(ev.Collider1, ev.Collider2)
		if !ok {
			s.log.Error("dropping proximity event with unresolved collider",
				zap.Uint32("collider1", uint32(ev.Collider1)), zap.Uint32("collider2", uint32(ev.Collider2)),
				zap.Stringer("new", ev.New))
			continue
		}
		event.Emit(s.w.Bus, physics.ProximityEvent{Entity1: e1, Entity2: e2, Prev: ev.Prev, New: ev.New})
	}
}

func (s *EventTranslationSystem) entities(c1, c2 engine.ColliderHandle) (ecs.EntityID, ecs.EntityID, bool) {
	e1, ok1 := s.entity(c1)
	e2, ok2 := s.entity(c2)
	return e1, e2, ok1 && ok2
}

func (s *EventTranslationSystem) entity(h engine.ColliderHandle) (ecs.EntityID, bool) {
	data, ok := s.w.Engine.ColliderUserData(h)
	if !ok {
		return 0, false
	}
	return s.w.EntityFromUserData(data)
}
