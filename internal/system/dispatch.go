package system

import (
	"time"

	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
)

// EventDispatchSystem makes last frame's events readable and delivers them
// to subscribers. Phase 0 (Input).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
