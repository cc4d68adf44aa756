package physics

import (
	"errors"
	"fmt"

	"github.com/l1jgo/physync/internal/core/ecs"
)

var (
	ErrDuplicateHandle        = errors.New("entity already holds a live handle")
	ErrMissingHandle          = errors.New("entity has no registered handle")
	ErrMaximumTimestepReached = errors.New("already at the coarsest timestep")
	ErrMinimumTimestepReached = errors.New("already at the finest timestep")
	ErrWrongStepType          = errors.New("operation requires a semi-fixed timestep")
	ErrStepOutOfBounds        = errors.New("step index out of ladder bounds")
	ErrInvalidTimestep        = errors.New("invalid timestep configuration")
)

type HandleKind uint8

const (
	KindBody HandleKind = iota
	KindCollider
	KindJoint
)

func (k HandleKind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindCollider:
		return "collider"
	case KindJoint:
		return "joint"
	}
	return "unknown"
}

// DuplicateHandleError is returned when registering a handle for an entity
// that already holds one of the same kind.
type DuplicateHandleError struct {
	Kind     HandleKind
	Entity   ecs.EntityID
	Existing uint32
}

func (e *DuplicateHandleError) Error() string {
	return fmt.Sprintf("entity %s already holds %s handle %d", e.Entity, e.Kind, e.Existing)
}

func (e *DuplicateHandleError) Is(target error) bool { return target == ErrDuplicateHandle }

// TimestepChangeError reports a failed ladder adjustment.
type TimestepChangeError struct {
	Op    string
	Index int
	Steps int
	Err   error
}

func (e *TimestepChangeError) Error() string {
	return fmt.Sprintf("%s at index %d of %d: %v", e.Op, e.Index, e.Steps, e.Err)
}

func (e *TimestepChangeError) Unwrap() error { return e.Err }
