package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput       Phase = iota // 0: swap event buffers, drain inbound queues
	PhasePreUpdate                // 1: process last frame's events
	PhaseUpdate                   // 2: application logic, force generators
	PhasePhysics                  // 3: ECS → engine sync + stepping
	PhasePostPhysics              // 4: engine → ECS readback, event translation
	PhaseOutput                   // 5: pose stream
	PhasePersist                  // 6: telemetry flush
	PhaseCleanup                  // 7: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePhysics:
		return "physics"
	case PhasePostPhysics:
		return "post_physics"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Setupper is implemented by systems that need one-time initialization
// (registering change readers, validating collaborators) before the first
// frame. A Setup error aborts Runner.Setup.
type Setupper interface {
	Setup() error
}
